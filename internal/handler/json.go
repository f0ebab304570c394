package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"
)

// maxJSONBody caps JSON request bodies. File bytes travel as multipart,
// never JSON, so this only needs to fit text shares comfortably.
const maxJSONBody = 1 << 20

func respondJSON(w http.ResponseWriter, status int, payload map[string]any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	err := json.NewEncoder(w).Encode(payload)
	if err != nil {
		slog.Error("failed to encode response", "error", err)
	}
}

// respondOK writes a 200 with {"status":"ok"} merged over data.
func respondOK(w http.ResponseWriter, data map[string]any) {
	payload := map[string]any{"status": "ok"}
	for k, v := range data {
		payload[k] = v
	}
	respondJSON(w, http.StatusOK, payload)
}

func respondFail(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]any{
		"status":  "fail",
		"message": message,
	})
}

func respondError(w http.ResponseWriter, err error) {
	slog.Error("request failed", "error", err)
	respondFail(w, http.StatusInternalServerError, "internal server error")
}

// decodeJSON parses the request body into dst with a size cap.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxJSONBody)

	err := json.NewDecoder(r.Body).Decode(dst)
	if err != nil {
		respondFail(w, http.StatusBadRequest, "invalid JSON body")
		return false
	}
	return true
}
