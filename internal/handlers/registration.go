package handlers

import (
	"context"
	"errors"

	"github.com/danielgtaylor/huma/v2"
	"github.com/hi-events/hi-events-api/internal/auth"
	"github.com/hi-events/hi-events-api/internal/booking"
	"github.com/hi-events/hi-events-api/internal/models"
	"github.com/rs/zerolog"
	"gorm.io/gorm"
)

type RegistrationHandler struct {
	db       *gorm.DB
	bookings *booking.Service
	logger   zerolog.Logger
}

func NewRegistrationHandler(db *gorm.DB, bookings *booking.Service, logger zerolog.Logger) *RegistrationHandler {
	return &RegistrationHandler{db: db, bookings: bookings, logger: logger}
}

type RegistrationResult struct {
	Registration models.Registration  `json:"registration"`
	Promoted     *models.Registration `json:"promoted,omitempty" doc:"Waitlisted registration that took the released seat"`
}

type RegistrationResponse struct {
	Body Envelope[RegistrationResult]
}

type RegistrationWithHistory struct {
	models.Registration
	StatusLabel string                       `json:"statusLabel"`
	History     []models.RegistrationHistory `json:"history"`
}

type MyRegistrationsResponse struct {
	Body Envelope[[]RegistrationWithHistory]
}

type EventRegistrationsResponse struct {
	Body Envelope[[]models.Registration]
}

func bookingError(err error) error {
	switch {
	case errors.Is(err, booking.ErrEventNotFound):
		return huma.Error404NotFound("Event not found")
	case errors.Is(err, booking.ErrEventNotOpen):
		return huma.Error400BadRequest("Event is not open for registration")
	case errors.Is(err, booking.ErrEventPast):
		return huma.Error400BadRequest("Cannot register for past events")
	case errors.Is(err, booking.ErrAlreadyRegistered):
		return huma.Error409Conflict("Already registered for this event")
	case errors.Is(err, booking.ErrNotRegistered):
		return huma.Error404NotFound("Registration not found")
	}
	return huma.Error500InternalServerError("Failed to process registration")
}

// lookupEvent resolves an event ID or slug. Unlisted events are reported as
// missing to users who cannot manage them when listedOnly is set.
func (h *RegistrationHandler) lookupEvent(ctx context.Context, idOrSlug string, user *auth.AuthUser, listedOnly bool) (*models.Event, error) {
	var event models.Event
	err := h.db.WithContext(ctx).
		Where(h.db.Where("id = ?", idOrSlug).Or("slug = ?", idOrSlug)).
		First(&event).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, huma.Error404NotFound("Event not found")
	}
	if err != nil {
		h.logger.Error().Err(err).Str("event_id", idOrSlug).Msg("failed to load event")
		return nil, huma.Error500InternalServerError("Failed to fetch event")
	}
	if listedOnly && !event.IsPublic && !auth.CanManageEvent(*user, event.OrganizerID) {
		return nil, huma.Error404NotFound("Event not found")
	}
	return &event, nil
}

func (h *RegistrationHandler) HandleRegister(ctx context.Context, input *EventIDPath) (*RegistrationResponse, error) {
	user, err := currentUser(ctx)
	if err != nil {
		return nil, err
	}
	event, err := h.lookupEvent(ctx, input.ID, user, true)
	if err != nil {
		return nil, err
	}

	reg, err := h.bookings.Register(ctx, user.ID, event.ID)
	if err != nil {
		h.logger.Debug().Err(err).Str("event_id", event.ID).Str("user_id", user.ID).Msg("registration rejected")
		return nil, bookingError(err)
	}

	message := "Successfully registered for event"
	if reg.Status == models.RegistrationWaitlisted {
		message = "Event is full, you have been added to the waitlist"
	}
	res := &RegistrationResponse{}
	res.Body = success(RegistrationResult{Registration: *reg}, message)
	return res, nil
}

func (h *RegistrationHandler) HandleCancel(ctx context.Context, input *EventIDPath) (*RegistrationResponse, error) {
	user, err := currentUser(ctx)
	if err != nil {
		return nil, err
	}

	event, err := h.lookupEvent(ctx, input.ID, user, false)
	if err != nil {
		return nil, err
	}

	cancelled, promoted, err := h.bookings.Cancel(ctx, user.ID, event.ID)
	if err != nil {
		return nil, bookingError(err)
	}

	res := &RegistrationResponse{}
	res.Body = success(RegistrationResult{Registration: *cancelled, Promoted: promoted}, "Registration cancelled")
	return res, nil
}

func (h *RegistrationHandler) HandleMine(ctx context.Context, _ *struct{}) (*MyRegistrationsResponse, error) {
	user, err := currentUser(ctx)
	if err != nil {
		return nil, err
	}

	regs, err := h.bookings.ListForUser(ctx, user.ID)
	if err != nil {
		h.logger.Error().Err(err).Str("user_id", user.ID).Msg("failed to list registrations")
		return nil, huma.Error500InternalServerError("Failed to fetch registrations")
	}

	out := make([]RegistrationWithHistory, 0, len(regs))
	for _, r := range regs {
		history, err := h.bookings.History(ctx, r.ID)
		if err != nil {
			return nil, huma.Error500InternalServerError("Failed to fetch registration history")
		}
		out = append(out, RegistrationWithHistory{Registration: r, StatusLabel: r.Status.Label(), History: history})
	}

	res := &MyRegistrationsResponse{}
	res.Body = success(out, "")
	return res, nil
}

func (h *RegistrationHandler) HandleForEvent(ctx context.Context, input *EventIDPath) (*EventRegistrationsResponse, error) {
	user, err := currentUser(ctx)
	if err != nil {
		return nil, err
	}

	event, err := h.lookupEvent(ctx, input.ID, user, false)
	if err != nil {
		return nil, err
	}
	if !auth.CanManageEvent(*user, event.OrganizerID) {
		return nil, huma.Error403Forbidden("You can only view registrations of your own events")
	}

	regs, err := h.bookings.ListForEvent(ctx, event.ID)
	if err != nil {
		h.logger.Error().Err(err).Str("event_id", event.ID).Msg("failed to list registrations")
		return nil, huma.Error500InternalServerError("Failed to fetch registrations")
	}

	res := &EventRegistrationsResponse{}
	res.Body = success(regs, "")
	return res, nil
}
