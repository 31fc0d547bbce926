package notifier

import (
	"errors"

	"github.com/hi-events/hi-events-api/internal/models"
)

// Notifier announces registration changes. Callers log failures and never
// roll back the registration because of them.
type Notifier interface {
	NotifyRegistration(user models.User, event models.Event, registration models.Registration) error
}

type Nop struct{}

func (Nop) NotifyRegistration(models.User, models.Event, models.Registration) error { return nil }

// Multi fans a notification out to every notifier and joins their errors.
type Multi []Notifier

func (m Multi) NotifyRegistration(user models.User, event models.Event, registration models.Registration) error {
	var errs []error
	for _, n := range m {
		if err := n.NotifyRegistration(user, event, registration); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
