package booking

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/hi-events/hi-events-api/internal/metrics"
	"github.com/hi-events/hi-events-api/internal/models"
	"github.com/hi-events/hi-events-api/internal/notifier"
	"github.com/rs/zerolog"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var (
	ErrEventNotFound     = errors.New("event not found")
	ErrEventNotOpen      = errors.New("event is not open for registration")
	ErrEventPast         = errors.New("event has already started")
	ErrAlreadyRegistered = errors.New("already registered for this event")
	ErrNotRegistered     = errors.New("not registered for this event")
)

const (
	reasonRegistered   = "registered"
	reasonReregistered = "registered again"
	reasonCancelled    = "cancelled by attendee"
	reasonPromoted     = "promoted from waitlist"
)

type Service struct {
	db       *gorm.DB
	notifier notifier.Notifier
	logger   zerolog.Logger
	now      func() time.Time
}

func NewService(db *gorm.DB, n notifier.Notifier, logger zerolog.Logger) *Service {
	if n == nil {
		n = notifier.Nop{}
	}
	return &Service{db: db, notifier: n, logger: logger, now: time.Now}
}

// forUpdate row-locks the selected rows on databases that support it. SQLite
// connections begin transactions IMMEDIATE, which takes the write lock up
// front (see database.SQLiteDSN).
func forUpdate(tx *gorm.DB) *gorm.DB {
	if tx.Dialector.Name() == "postgres" {
		return tx.Clauses(clause.Locking{Strength: "UPDATE"})
	}
	return tx
}

func recordHistory(tx *gorm.DB, reg *models.Registration, reason string) error {
	return tx.Create(&models.RegistrationHistory{
		RegistrationID: reg.ID,
		UserID:         reg.UserID,
		EventID:        reg.EventID,
		Status:         reg.Status,
		Reason:         reason,
	}).Error
}

func confirmedCount(tx *gorm.DB, eventID string) (int64, error) {
	var n int64
	err := tx.Model(&models.Registration{}).
		Where("event_id = ? AND status = ?", eventID, models.RegistrationConfirmed).
		Count(&n).Error
	return n, err
}

func waitlistedCount(tx *gorm.DB, eventID string) (int64, error) {
	var n int64
	err := tx.Model(&models.Registration{}).
		Where("event_id = ? AND status = ?", eventID, models.RegistrationWaitlisted).
		Count(&n).Error
	return n, err
}

func hasSeat(event *models.Event, confirmed int64) bool {
	return event.MaxAttendees == nil || confirmed < int64(*event.MaxAttendees)
}

// Register books a seat for the user, or a waitlist spot when the event is
// full or others are already waiting. A previously cancelled registration is
// re-activated.
func (s *Service) Register(ctx context.Context, userID, eventID string) (*models.Registration, error) {
	var (
		event models.Event
		reg   models.Registration
	)

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := forUpdate(tx).First(&event, "id = ?", eventID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrEventNotFound
			}
			return err
		}
		if event.Status != models.EventPublished {
			return ErrEventNotOpen
		}
		if event.StartDate.Before(s.now()) {
			return ErrEventPast
		}

		err := tx.Where("user_id = ? AND event_id = ?", userID, eventID).First(&reg).Error
		existing := err == nil
		if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}
		if existing && reg.Status.Active() {
			return ErrAlreadyRegistered
		}

		confirmed, err := confirmedCount(tx, eventID)
		if err != nil {
			return err
		}
		waiting, err := waitlistedCount(tx, eventID)
		if err != nil {
			return err
		}
		status := models.RegistrationWaitlisted
		if waiting == 0 && hasSeat(&event, confirmed) {
			status = models.RegistrationConfirmed
		}

		reason := reasonRegistered
		if existing {
			reason = reasonReregistered
			reg.Status = status
			if err := tx.Save(&reg).Error; err != nil {
				return err
			}
		} else {
			reg = models.Registration{UserID: userID, EventID: eventID, Status: status}
			if err := tx.Create(&reg).Error; err != nil {
				return err
			}
		}
		return recordHistory(tx, &reg, reason)
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info().
		Str("event_id", eventID).
		Str("user_id", userID).
		Str("status", string(reg.Status)).
		Msg("registration created")
	s.announce(ctx, reg, event)
	return &reg, nil
}

// Cancel cancels the user's registration. When a confirmed seat is released
// the longest waiting registration is promoted and returned as promoted.
func (s *Service) Cancel(ctx context.Context, userID, eventID string) (cancelled *models.Registration, promoted *models.Registration, err error) {
	var (
		event models.Event
		reg   models.Registration
		moved []models.Registration
	)

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := forUpdate(tx).First(&event, "id = ?", eventID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrEventNotFound
			}
			return err
		}

		err := forUpdate(tx).Where("user_id = ? AND event_id = ?", userID, eventID).First(&reg).Error
		if errors.Is(err, gorm.ErrRecordNotFound) || (err == nil && !reg.Status.Active()) {
			return ErrNotRegistered
		}
		if err != nil {
			return err
		}

		released := reg.Status == models.RegistrationConfirmed
		reg.Status = models.RegistrationCancelled
		if err := tx.Save(&reg).Error; err != nil {
			return err
		}
		if err := recordHistory(tx, &reg, reasonCancelled); err != nil {
			return err
		}
		if !released {
			return nil
		}

		moved, err = promoteWaitlist(tx, &event)
		return err
	})
	if err != nil {
		return nil, nil, err
	}

	s.logger.Info().Str("event_id", eventID).Str("user_id", userID).Msg("registration cancelled")
	s.announce(ctx, reg, event)
	s.announcePromotions(ctx, moved, event)
	if len(moved) > 0 {
		return &reg, &moved[0], nil
	}
	return &reg, nil, nil
}

// FillFromWaitlist confirms waitlisted registrations, oldest first, while the
// event has free seats. Call it after the capacity of an event was raised or
// removed.
func (s *Service) FillFromWaitlist(ctx context.Context, eventID string) ([]models.Registration, error) {
	var (
		event models.Event
		moved []models.Registration
	)

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := forUpdate(tx).First(&event, "id = ?", eventID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrEventNotFound
			}
			return err
		}
		var err error
		moved, err = promoteWaitlist(tx, &event)
		return err
	})
	if err != nil {
		return nil, err
	}

	s.announcePromotions(ctx, moved, event)
	return moved, nil
}

// promoteWaitlist confirms the longest waiting registrations until the event
// is full or the waitlist is empty.
func promoteWaitlist(tx *gorm.DB, event *models.Event) ([]models.Registration, error) {
	var moved []models.Registration
	for {
		confirmed, err := confirmedCount(tx, event.ID)
		if err != nil {
			return nil, err
		}
		if !hasSeat(event, confirmed) {
			return moved, nil
		}

		var next models.Registration
		err = forUpdate(tx).
			Where("event_id = ? AND status = ?", event.ID, models.RegistrationWaitlisted).
			Order("updated_at ASC").Order("id ASC").
			First(&next).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return moved, nil
		}
		if err != nil {
			return nil, err
		}

		next.Status = models.RegistrationConfirmed
		if err := tx.Save(&next).Error; err != nil {
			return nil, err
		}
		if err := recordHistory(tx, &next, reasonPromoted); err != nil {
			return nil, err
		}
		moved = append(moved, next)
	}
}

func (s *Service) announcePromotions(ctx context.Context, moved []models.Registration, event models.Event) {
	for _, reg := range moved {
		s.logger.Info().Str("event_id", event.ID).Str("user_id", reg.UserID).Msg("waitlisted registration promoted")
		s.announce(ctx, reg, event)
	}
}

// announce reports a committed status change. Failures are logged only.
func (s *Service) announce(ctx context.Context, reg models.Registration, event models.Event) {
	metrics.RegistrationChanged(string(reg.Status))

	var user models.User
	if err := s.db.WithContext(ctx).First(&user, "id = ?", reg.UserID).Error; err != nil {
		s.logger.Warn().Err(err).Str("user_id", reg.UserID).Msg("skipping notification, user lookup failed")
		return
	}
	if err := s.notifier.NotifyRegistration(user, event, reg); err != nil {
		s.logger.Warn().Err(err).Str("registration_id", reg.ID).Msg("failed to send registration notification")
	}
}

func (s *Service) ConfirmedCount(ctx context.Context, eventID string) (int64, error) {
	return confirmedCount(s.db.WithContext(ctx), eventID)
}

// ConfirmedCounts returns the confirmed registrations of each given event.
// Events without registrations are absent from the map.
func (s *Service) ConfirmedCounts(ctx context.Context, eventIDs []string) (map[string]int64, error) {
	counts := make(map[string]int64, len(eventIDs))
	if len(eventIDs) == 0 {
		return counts, nil
	}

	var rows []struct {
		EventID string
		Count   int64
	}
	err := s.db.WithContext(ctx).Model(&models.Registration{}).
		Select("event_id, COUNT(*) AS count").
		Where("event_id IN ? AND status = ?", eventIDs, models.RegistrationConfirmed).
		Group("event_id").
		Scan(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("failed to count registrations: %w", err)
	}
	for _, r := range rows {
		counts[r.EventID] = r.Count
	}
	return counts, nil
}

// ActiveFor returns the user's active registration status per event.
func (s *Service) ActiveFor(ctx context.Context, userID string, eventIDs []string) (map[string]models.RegistrationStatus, error) {
	statuses := make(map[string]models.RegistrationStatus, len(eventIDs))
	if userID == "" || len(eventIDs) == 0 {
		return statuses, nil
	}

	var regs []models.Registration
	err := s.db.WithContext(ctx).
		Where("user_id = ? AND event_id IN ? AND status <> ?", userID, eventIDs, models.RegistrationCancelled).
		Find(&regs).Error
	if err != nil {
		return nil, err
	}
	for _, r := range regs {
		statuses[r.EventID] = r.Status
	}
	return statuses, nil
}

func (s *Service) ListForEvent(ctx context.Context, eventID string) ([]models.Registration, error) {
	var regs []models.Registration
	err := s.db.WithContext(ctx).
		Preload("User").
		Where("event_id = ?", eventID).
		Order("created_at ASC").
		Find(&regs).Error
	return regs, err
}

func (s *Service) ListForUser(ctx context.Context, userID string) ([]models.Registration, error) {
	var regs []models.Registration
	err := s.db.WithContext(ctx).
		Preload("Event").
		Preload("Event.Category").
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Find(&regs).Error
	return regs, err
}

func (s *Service) History(ctx context.Context, registrationID string) ([]models.RegistrationHistory, error) {
	var history []models.RegistrationHistory
	err := s.db.WithContext(ctx).
		Where("registration_id = ?", registrationID).
		Order("created_at ASC").
		Find(&history).Error
	return history, err
}
