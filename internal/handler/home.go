package handler

import (
	"net/http"
)

type homeHandler struct {
	appName string
}

func NewHomeHandler(appName string) *homeHandler {
	return &homeHandler{appName: appName}
}

func (h *homeHandler) Index(w http.ResponseWriter, r *http.Request) {
	respondOK(w, map[string]any{
		"service": h.appName,
	})
}

func (h *homeHandler) NotFound(w http.ResponseWriter, r *http.Request) {
	respondFail(w, http.StatusNotFound, "not found")
}
