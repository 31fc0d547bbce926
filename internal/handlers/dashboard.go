package handlers

import (
	"context"
	"sort"
	"time"

	"github.com/danielgtaylor/huma/v2"
	"github.com/hi-events/hi-events-api/internal/booking"
	"github.com/hi-events/hi-events-api/internal/dates"
	"github.com/hi-events/hi-events-api/internal/format"
	"github.com/hi-events/hi-events-api/internal/models"
	"github.com/rs/zerolog"
	"gorm.io/gorm"
)

const recentEventsLimit = 5

type DashboardHandler struct {
	db       *gorm.DB
	bookings *booking.Service
	logger   zerolog.Logger
}

func NewDashboardHandler(db *gorm.DB, bookings *booking.Service, logger zerolog.Logger) *DashboardHandler {
	return &DashboardHandler{db: db, bookings: bookings, logger: logger}
}

type DashboardEvent struct {
	ID               string             `json:"id"`
	Title            string             `json:"title"`
	StartDate        time.Time          `json:"startDate"`
	FriendlyDate     string             `json:"friendlyDate"`
	Attendees        int64              `json:"attendees"`
	Revenue          float64            `json:"revenue"`
	FormattedRevenue string             `json:"formattedRevenue"`
	Status           models.EventStatus `json:"status"`
	StatusLabel      string             `json:"statusLabel"`
	ImageURL         *string            `json:"imageUrl,omitempty"`
}

type Dashboard struct {
	TotalEvents      int64            `json:"totalEvents"`
	ActiveEvents     int64            `json:"activeEvents"`
	TicketsSold      int64            `json:"ticketsSold"`
	TotalRevenue     float64          `json:"totalRevenue"`
	FormattedRevenue string           `json:"formattedRevenue"`
	RecentEvents     []DashboardEvent `json:"recentEvents"`
}

type DashboardResponse struct {
	Body Envelope[Dashboard]
}

func revenueOf(e models.Event, attendees int64) float64 {
	if e.IsFree() {
		return 0
	}
	return *e.Price * float64(attendees)
}

// HandleGet summarises the caller's events; admins see every event. Revenue
// is summed across currencies and rendered in USD.
func (h *DashboardHandler) HandleGet(ctx context.Context, _ *struct{}) (*DashboardResponse, error) {
	user, err := currentUser(ctx)
	if err != nil {
		return nil, err
	}

	q := h.db.WithContext(ctx)
	if user.Role != models.RoleAdmin {
		q = q.Where("organizer_id = ?", user.ID)
	}
	var events []models.Event
	if err := q.Order("start_date DESC").Find(&events).Error; err != nil {
		h.logger.Error().Err(err).Str("user_id", user.ID).Msg("failed to load dashboard events")
		return nil, huma.Error500InternalServerError("Failed to load dashboard")
	}

	ids := make([]string, len(events))
	for i, e := range events {
		ids[i] = e.ID
	}
	counts, err := h.bookings.ConfirmedCounts(ctx, ids)
	if err != nil {
		return nil, huma.Error500InternalServerError("Failed to load dashboard")
	}

	d := Dashboard{TotalEvents: int64(len(events)), RecentEvents: []DashboardEvent{}}
	for _, e := range events {
		attendees := counts[e.ID]
		revenue := revenueOf(e, attendees)
		d.TicketsSold += attendees
		d.TotalRevenue += revenue
		if e.Status == models.EventPublished && dates.IsUpcoming(e.StartDate) {
			d.ActiveEvents++
		}
	}
	d.FormattedRevenue = format.FormatCurrency(d.TotalRevenue, format.DefaultCurrency, format.DefaultLocale)

	sort.SliceStable(events, func(i, j int) bool { return events[i].CreatedAt.After(events[j].CreatedAt) })
	for _, e := range events[:min(len(events), recentEventsLimit)] {
		attendees := counts[e.ID]
		revenue := revenueOf(e, attendees)
		d.RecentEvents = append(d.RecentEvents, DashboardEvent{
			ID:               e.ID,
			Title:            e.Title,
			StartDate:        e.StartDate,
			FriendlyDate:     dates.FriendlyDate(e.StartDate),
			Attendees:        attendees,
			Revenue:          revenue,
			FormattedRevenue: format.FormatCurrency(revenue, e.Currency, format.DefaultLocale),
			Status:           e.Status,
			StatusLabel:      e.Status.Label(),
			ImageURL:         e.ImageURL,
		})
	}

	res := &DashboardResponse{}
	res.Body = success(d, "")
	return res, nil
}
