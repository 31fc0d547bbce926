package handlers

import (
	"context"

	"github.com/hi-events/hi-events-api/internal/auth"
	"github.com/hi-events/hi-events-api/internal/booking"
	"github.com/hi-events/hi-events-api/internal/dates"
	"github.com/hi-events/hi-events-api/internal/format"
	"github.com/hi-events/hi-events-api/internal/models"
)

// EventDisplay is an event with the fields the event pages render.
type EventDisplay struct {
	models.Event
	StatusLabel        string                     `json:"statusLabel"`
	OrganizerName      string                     `json:"organizerName"`
	CategoryName       *string                    `json:"categoryName,omitempty"`
	RegistrationCount  int64                      `json:"registrationCount"`
	SpotsRemaining     *int64                     `json:"spotsRemaining,omitempty"`
	IsUserRegistered   bool                       `json:"isUserRegistered"`
	RegistrationStatus *models.RegistrationStatus `json:"registrationStatus,omitempty"`
	CanRegister        bool                       `json:"canRegister"`
	FormattedPrice     string                     `json:"formattedPrice"`
	FriendlyDate       string                     `json:"friendlyDate"`
	RelativeTime       string                     `json:"relativeTime"`
}

func formattedPrice(e models.Event) string {
	if e.IsFree() {
		return "Free"
	}
	return format.FormatCurrency(*e.Price, e.Currency, format.DefaultLocale)
}

func newEventDisplay(e models.Event, confirmed int64, status models.RegistrationStatus) EventDisplay {
	d := EventDisplay{
		Event:             e,
		StatusLabel:       e.Status.Label(),
		RegistrationCount: confirmed,
		IsUserRegistered:  status.Active(),
		FormattedPrice:    formattedPrice(e),
		FriendlyDate:      dates.FriendlyDate(e.StartDate),
		RelativeTime:      dates.RelativeTime(e.StartDate),
	}
	if e.Organizer != nil {
		d.OrganizerName = e.Organizer.DisplayName()
	}
	// The organizer's account details stay private.
	d.Organizer = nil
	if e.Category != nil {
		d.CategoryName = &e.Category.Name
	}
	if e.MaxAttendees != nil {
		left := max(int64(*e.MaxAttendees)-confirmed, 0)
		d.SpotsRemaining = &left
	}
	if status.Active() {
		d.RegistrationStatus = &status
	}
	d.CanRegister = e.Status == models.EventPublished && dates.IsUpcoming(e.StartDate) && !d.IsUserRegistered
	return d
}

// buildDisplays decorates events for viewer, who may be nil.
func buildDisplays(ctx context.Context, bookings *booking.Service, events []models.Event, viewer *auth.AuthUser) ([]EventDisplay, error) {
	ids := make([]string, len(events))
	for i, e := range events {
		ids[i] = e.ID
	}

	counts, err := bookings.ConfirmedCounts(ctx, ids)
	if err != nil {
		return nil, err
	}
	statuses := map[string]models.RegistrationStatus{}
	if viewer != nil {
		if statuses, err = bookings.ActiveFor(ctx, viewer.ID, ids); err != nil {
			return nil, err
		}
	}

	out := make([]EventDisplay, len(events))
	for i, e := range events {
		out[i] = newEventDisplay(e, counts[e.ID], statuses[e.ID])
	}
	return out, nil
}
