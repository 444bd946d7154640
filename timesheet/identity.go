package timesheet

import (
	"context"
	"fmt"
	"strings"
)

// DisplayName formats a user for reports: "First Last", or the username
// when no name is known.
func DisplayName(u User) string {
	name := strings.TrimSpace(strings.TrimSpace(u.FirstName) + " " + strings.TrimSpace(u.LastName))
	if name == "" {
		return u.Username
	}
	return name
}

// PostAuthHook runs after a user authenticated against an external
// directory.
type PostAuthHook interface {
	AfterAuthentication(ctx context.Context, user User) error
}

// UserActivator marks a user account as active.
type UserActivator interface {
	ActivateUser(ctx context.Context, id UserID) error
}

var _ PostAuthHook = DirectoryActivationHook{}

// DirectoryActivationHook activates accounts that successfully
// authenticated against the directory but are still inactive locally.
type DirectoryActivationHook struct {
	Users UserActivator
}

func (h DirectoryActivationHook) AfterAuthentication(ctx context.Context, user User) error {
	if user.Active {
		return nil
	}
	if err := h.Users.ActivateUser(ctx, user.ID); err != nil {
		return fmt.Errorf("failed to activate user %s: %w", user.ID, err)
	}
	return nil
}
