package repository

import (
	"context"

	"github.com/skillvouch/skillvouch/internal/domain/entity"
)

// UserStore is an ordered map from user id to the full User aggregate.
// There are no partial-field updates: callers read the whole record, mutate
// it in memory, and write the whole record back.
type UserStore interface {
	// Get returns the aggregate stored at id, or model.ErrNotFound.
	Get(ctx context.Context, id string) (*entity.User, error)

	// Insert creates or overwrites the full record at id.
	Insert(ctx context.Context, id string, u *entity.User) error

	// Remove deletes the record at id, returning model.ErrNotFound when absent.
	Remove(ctx context.Context, id string) error

	// Items enumerates all records in ascending id order.
	Items(ctx context.Context) ([]entity.User, error)
}
