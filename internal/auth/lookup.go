package auth

import (
	"context"
	"errors"

	"github.com/hi-events/hi-events-api/internal/models"
	"gorm.io/gorm"
)

// UserLookup loads the current state of a user. A nil user with a nil error
// means the account no longer exists.
type UserLookup func(ctx context.Context, id string) (*models.User, error)

func GormUserLookup(db *gorm.DB) UserLookup {
	return func(ctx context.Context, id string) (*models.User, error) {
		var user models.User
		err := db.WithContext(ctx).First(&user, "id = ?", id).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		if err != nil {
			return nil, err
		}
		return &user, nil
	}
}
