package preferences

import "context"

// Repository defines the interface for preference persistence.
type Repository interface {
	// Get retrieves the record for a user.
	// Returns ErrNotFound if the user has none.
	Get(ctx context.Context, userID string) (*Record, error)

	// Upsert creates or replaces the record for record.UserID.
	// CreatedAt is kept from an existing record.
	Upsert(ctx context.Context, record *Record) error

	// Delete removes the record for a user. Deleting a missing record is not an error.
	Delete(ctx context.Context, userID string) error
}
