package model

// Scope identifies which share slot (and which upload sessions) a caller
// owns: the single public slot, or one authenticated user's private slot.
type Scope struct {
	UserID string // empty for the public scope
}

func PublicScope() Scope {
	return Scope{}
}

func UserScope(userID string) Scope {
	return Scope{UserID: userID}
}

func (s Scope) IsPublic() bool {
	return s.UserID == ""
}

// Key returns the stable slot identifier used as the shares primary key.
func (s Scope) Key() string {
	if s.IsPublic() {
		return "public"
	}
	return "user:" + s.UserID
}
