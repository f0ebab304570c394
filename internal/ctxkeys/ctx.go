package ctxkeys

import (
	"context"

	"github.com/dshare/dshare/internal/model"
)

// contextKey is a type for context keys to avoid collisions
type contextKey string

const (
	UserKey contextKey = "user"
)

func User(ctx context.Context) *model.User {
	user, _ := ctx.Value(UserKey).(*model.User)
	return user
}

func WithUser(ctx context.Context, user *model.User) context.Context {
	return context.WithValue(ctx, UserKey, user)
}

// Scope returns the caller's share scope: the user's private scope when
// authenticated, the public scope otherwise.
func Scope(ctx context.Context) model.Scope {
	user := User(ctx)
	if user == nil {
		return model.PublicScope()
	}
	return model.UserScope(user.ID)
}
