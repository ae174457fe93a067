package repository

import "context"

// AuthorizedUsers remembers which chat users have passed the password gate.
// Backed by a JSON file by default, or redis when configured.
type AuthorizedUsers interface {
	IsAuthorized(ctx context.Context, userID int64) (bool, error)
	Authorize(ctx context.Context, userID int64) error
}
