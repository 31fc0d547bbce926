package handlers

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"time"

	"github.com/danielgtaylor/huma/v2"
	"github.com/google/uuid"
	"github.com/hi-events/hi-events-api/internal/auth"
	"github.com/hi-events/hi-events-api/internal/booking"
	"github.com/hi-events/hi-events-api/internal/dates"
	"github.com/hi-events/hi-events-api/internal/format"
	"github.com/hi-events/hi-events-api/internal/models"
	"github.com/hi-events/hi-events-api/internal/validation"
	"github.com/rs/zerolog"
	"gorm.io/gorm"
)

const (
	defaultPageSize = 12
	maxPageSize     = 100
)

var sortColumns = map[string]string{
	"startDate": "start_date",
	"createdAt": "created_at",
	"title":     "title",
	"price":     "price",
}

type EventHandler struct {
	db       *gorm.DB
	bookings *booking.Service
	logger   zerolog.Logger
}

func NewEventHandler(db *gorm.DB, bookings *booking.Service, logger zerolog.Logger) *EventHandler {
	return &EventHandler{db: db, bookings: bookings, logger: logger}
}

type ListEventsRequest struct {
	Page       int    `query:"page" minimum:"1" default:"1"`
	Limit      int    `query:"limit" minimum:"1" default:"12" doc:"Page size, capped at 100"`
	SortBy     string `query:"sortBy" enum:"startDate,createdAt,title,price" default:"startDate"`
	SortOrder  string `query:"sortOrder" enum:"asc,desc" default:"asc"`
	CategoryID string `query:"categoryId"`
	Location   string `query:"location" doc:"Case-insensitive substring match"`
	StartDate  string `query:"startDate" doc:"Events starting on or after this date (RFC 3339 or YYYY-MM-DD)"`
	EndDate    string `query:"endDate" doc:"Events starting on or before this date (RFC 3339 or YYYY-MM-DD)"`
	Status     string `query:"status" doc:"DRAFT, PUBLISHED, CANCELLED or COMPLETED"`
	IsPublic   string `query:"isPublic" doc:"true or false"`
	Search     string `query:"search" doc:"Matches title and description"`
}

type EventIDPath struct {
	ID string `path:"id" doc:"Event ID or slug"`
}

type CreateEventBody struct {
	Title        string              `json:"title" minLength:"1" maxLength:"200" validate:"required,max=200"`
	Description  *string             `json:"description,omitempty" maxLength:"5000" validate:"omitempty,max=5000"`
	Location     string              `json:"location" minLength:"1" maxLength:"200" validate:"required,max=200"`
	StartDate    time.Time           `json:"startDate" validate:"required,future"`
	EndDate      *time.Time          `json:"endDate,omitempty"`
	IsPublic     bool                `json:"isPublic"`
	MaxAttendees *int                `json:"maxAttendees,omitempty" minimum:"1" validate:"omitempty,gte=1"`
	Price        *float64            `json:"price,omitempty" minimum:"0" validate:"omitempty,gte=0"`
	Currency     string              `json:"currency,omitempty" doc:"ISO 4217 code, defaults to USD" validate:"omitempty,iso4217"`
	ImageURL     *string             `json:"imageUrl,omitempty" validate:"omitempty,url"`
	CategoryID   *string             `json:"categoryId,omitempty"`
	Status       *models.EventStatus `json:"status,omitempty" doc:"Defaults to DRAFT"`
}

type CreateEventRequest struct {
	Body CreateEventBody
}

type UpdateEventBody struct {
	Title        *string             `json:"title,omitempty" maxLength:"200" validate:"omitempty,min=1,max=200"`
	Description  *string             `json:"description,omitempty" maxLength:"5000" validate:"omitempty,max=5000"`
	Location     *string             `json:"location,omitempty" maxLength:"200" validate:"omitempty,min=1,max=200"`
	StartDate    *time.Time          `json:"startDate,omitempty"`
	EndDate      *time.Time          `json:"endDate,omitempty"`
	IsPublic     *bool               `json:"isPublic,omitempty"`
	MaxAttendees *int                `json:"maxAttendees,omitempty" minimum:"1" validate:"omitempty,gte=1"`
	Price        *float64            `json:"price,omitempty" minimum:"0" validate:"omitempty,gte=0"`
	Currency     *string             `json:"currency,omitempty" validate:"omitempty,iso4217"`
	ImageURL     *string             `json:"imageUrl,omitempty" validate:"omitempty,url"`
	CategoryID   *string             `json:"categoryId,omitempty"`
	Status       *models.EventStatus `json:"status,omitempty"`
}

type UpdateEventRequest struct {
	EventIDPath
	Body UpdateEventBody
}

type EventListResponse struct {
	Body Envelope[[]EventDisplay]
}

type EventResponse struct {
	Body Envelope[EventDisplay]
}

type MessageResponse struct {
	Body Envelope[any]
}

// visibleTo limits q to the events viewer may see: admins see everything,
// everyone else sees published public events plus their own.
func visibleTo(q *gorm.DB, viewer *auth.AuthUser) *gorm.DB {
	if viewer != nil && viewer.Role == models.RoleAdmin {
		return q
	}
	if viewer != nil {
		return q.Where("((is_public = ? AND status <> ?) OR organizer_id = ?)", true, models.EventDraft, viewer.ID)
	}
	return q.Where("is_public = ? AND status <> ?", true, models.EventDraft)
}

func viewerFrom(ctx context.Context) *auth.AuthUser {
	if user, found := auth.UserFromContext(ctx); found {
		return user
	}
	return nil
}

func (h *EventHandler) applyFilters(q *gorm.DB, in *ListEventsRequest) (*gorm.DB, error) {
	if in.CategoryID != "" {
		q = q.Where("category_id = ?", in.CategoryID)
	}
	if loc := strings.TrimSpace(in.Location); loc != "" {
		q = q.Where("LOWER(location) LIKE ?", "%"+strings.ToLower(loc)+"%")
	}
	if in.StartDate != "" {
		from, err := dates.ParseDate(in.StartDate)
		if err != nil {
			return nil, badRequest("Invalid startDate", err)
		}
		q = q.Where("start_date >= ?", from)
	}
	if in.EndDate != "" {
		to, err := dates.ParseDate(in.EndDate)
		if err != nil {
			return nil, badRequest("Invalid endDate", err)
		}
		if len(in.EndDate) == len("2006-01-02") {
			_, to = dates.DayBounds(to)
		}
		q = q.Where("start_date <= ?", to)
	}
	if in.Status != "" {
		status := models.EventStatus(strings.ToUpper(in.Status))
		if !status.Valid() {
			return nil, huma.Error400BadRequest("Invalid status")
		}
		q = q.Where("status = ?", status)
	}
	if in.IsPublic != "" {
		public, err := strconv.ParseBool(in.IsPublic)
		if err != nil {
			return nil, badRequest("Invalid isPublic", err)
		}
		q = q.Where("is_public = ?", public)
	}
	if s := strings.TrimSpace(in.Search); s != "" {
		like := "%" + strings.ToLower(s) + "%"
		q = q.Where("(LOWER(title) LIKE ? OR LOWER(COALESCE(description, '')) LIKE ?)", like, like)
	}
	return q, nil
}

func (h *EventHandler) HandleList(ctx context.Context, input *ListEventsRequest) (*EventListResponse, error) {
	page := max(input.Page, 1)
	limit := input.Limit
	if limit <= 0 {
		limit = defaultPageSize
	}
	limit = min(limit, maxPageSize)

	column, found := sortColumns[input.SortBy]
	if !found {
		column = sortColumns["startDate"]
	}
	order := "ASC"
	if strings.EqualFold(input.SortOrder, "desc") {
		order = "DESC"
	}

	viewer := viewerFrom(ctx)
	q, err := h.applyFilters(visibleTo(h.db.WithContext(ctx).Model(&models.Event{}), viewer), input)
	if err != nil {
		return nil, err
	}

	var total int64
	if err := q.Session(&gorm.Session{}).Count(&total).Error; err != nil {
		h.logger.Error().Err(err).Msg("failed to count events")
		return nil, huma.Error500InternalServerError("Failed to fetch events")
	}

	var events []models.Event
	err = q.Preload("Organizer").Preload("Category").
		Order(column + " " + order).Order("id ASC").
		Offset((page - 1) * limit).Limit(limit).
		Find(&events).Error
	if err != nil {
		h.logger.Error().Err(err).Msg("failed to list events")
		return nil, huma.Error500InternalServerError("Failed to fetch events")
	}

	displays, err := buildDisplays(ctx, h.bookings, events, viewer)
	if err != nil {
		return nil, huma.Error500InternalServerError("Failed to fetch events")
	}

	res := &EventListResponse{}
	res.Body = success(displays, "")
	res.Body.Meta = newMeta(page, limit, total)
	return res, nil
}

// findEvent loads the event by ID or slug. Events the viewer may not see are
// reported as missing.
func (h *EventHandler) findEvent(ctx context.Context, idOrSlug string, viewer *auth.AuthUser) (*models.Event, error) {
	var event models.Event
	q := visibleTo(h.db.WithContext(ctx).Model(&models.Event{}), viewer).
		Where(h.db.Where("id = ?", idOrSlug).Or("slug = ?", idOrSlug))
	err := q.Preload("Organizer").Preload("Category").First(&event).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, huma.Error404NotFound("Event not found")
	}
	if err != nil {
		h.logger.Error().Err(err).Str("event_id", idOrSlug).Msg("failed to load event")
		return nil, huma.Error500InternalServerError("Failed to fetch event")
	}
	return &event, nil
}

func (h *EventHandler) display(ctx context.Context, event models.Event, viewer *auth.AuthUser) (EventDisplay, error) {
	displays, err := buildDisplays(ctx, h.bookings, []models.Event{event}, viewer)
	if err != nil {
		return EventDisplay{}, huma.Error500InternalServerError("Failed to fetch event")
	}
	return displays[0], nil
}

func (h *EventHandler) HandleGet(ctx context.Context, input *EventIDPath) (*EventResponse, error) {
	viewer := viewerFrom(ctx)
	event, err := h.findEvent(ctx, input.ID, viewer)
	if err != nil {
		return nil, err
	}
	d, err := h.display(ctx, *event, viewer)
	if err != nil {
		return nil, err
	}
	res := &EventResponse{}
	res.Body = success(d, "")
	return res, nil
}

func (h *EventHandler) checkCategory(ctx context.Context, id *string) error {
	if id == nil || *id == "" {
		return nil
	}
	var count int64
	if err := h.db.WithContext(ctx).Model(&models.Category{}).Where("id = ?", *id).Count(&count).Error; err != nil {
		return huma.Error500InternalServerError("Failed to check category")
	}
	if count == 0 {
		return huma.Error400BadRequest("Category not found")
	}
	return nil
}

func (h *EventHandler) HandleCreate(ctx context.Context, input *CreateEventRequest) (*EventResponse, error) {
	user, err := currentUser(ctx)
	if err != nil {
		return nil, err
	}
	body := input.Body
	if err := validation.Validate(ctx, body); err != nil {
		return nil, badRequest("Invalid event data", err)
	}
	if body.EndDate != nil && !body.EndDate.After(body.StartDate) {
		return nil, huma.Error400BadRequest("End date must be after start date")
	}
	status := models.EventDraft
	if body.Status != nil {
		if !body.Status.Valid() {
			return nil, huma.Error400BadRequest("Invalid status")
		}
		status = *body.Status
	}
	if err := h.checkCategory(ctx, body.CategoryID); err != nil {
		return nil, err
	}

	currency := strings.ToUpper(body.Currency)
	if currency == "" {
		currency = format.DefaultCurrency
	}
	categoryID := body.CategoryID
	if categoryID != nil && *categoryID == "" {
		categoryID = nil
	}

	id := uuid.NewString()
	event := models.Event{
		Base:         models.Base{ID: id},
		Title:        strings.TrimSpace(body.Title),
		Slug:         eventSlug(body.Title, id),
		Description:  body.Description,
		Location:     strings.TrimSpace(body.Location),
		StartDate:    body.StartDate,
		EndDate:      body.EndDate,
		IsPublic:     body.IsPublic,
		MaxAttendees: body.MaxAttendees,
		Price:        body.Price,
		Currency:     currency,
		ImageURL:     body.ImageURL,
		Status:       status,
		OrganizerID:  user.ID,
		CategoryID:   categoryID,
	}
	if err := h.db.WithContext(ctx).Create(&event).Error; err != nil {
		h.logger.Error().Err(err).Str("user_id", user.ID).Msg("failed to create event")
		return nil, huma.Error500InternalServerError("Failed to create event")
	}
	h.logger.Info().Str("event_id", event.ID).Str("user_id", user.ID).Msg("event created")

	created, err := h.findEvent(ctx, event.ID, user)
	if err != nil {
		return nil, err
	}
	d, err := h.display(ctx, *created, user)
	if err != nil {
		return nil, err
	}
	res := &EventResponse{}
	res.Body = success(d, "Event created successfully")
	return res, nil
}

// eventSlug suffixes the slugified title with the start of the ID. Titles
// without letters or digits fall back to "event".
func eventSlug(title, id string) string {
	base := format.Slugify(title)
	if base == "" {
		base = "event"
	}
	return base + "-" + id[:8]
}

// manageable loads an event and checks that user may change it.
func (h *EventHandler) manageable(ctx context.Context, id string) (*models.Event, *auth.AuthUser, error) {
	user, err := currentUser(ctx)
	if err != nil {
		return nil, nil, err
	}
	event, err := h.findEvent(ctx, id, user)
	if err != nil {
		return nil, nil, err
	}
	if !auth.CanManageEvent(*user, event.OrganizerID) {
		return nil, nil, huma.Error403Forbidden("You can only manage your own events")
	}
	return event, user, nil
}

func (h *EventHandler) HandleUpdate(ctx context.Context, input *UpdateEventRequest) (*EventResponse, error) {
	body := input.Body
	if err := validation.Validate(ctx, body); err != nil {
		return nil, badRequest("Invalid event data", err)
	}
	event, user, err := h.manageable(ctx, input.ID)
	if err != nil {
		return nil, err
	}

	if body.Title != nil {
		event.Title = strings.TrimSpace(*body.Title)
	}
	if body.Description != nil {
		event.Description = body.Description
	}
	if body.Location != nil {
		event.Location = strings.TrimSpace(*body.Location)
	}
	if body.StartDate != nil {
		if !body.StartDate.Equal(event.StartDate) && dates.IsPast(*body.StartDate) {
			return nil, huma.Error400BadRequest("Start date must be in the future")
		}
		event.StartDate = *body.StartDate
	}
	if body.EndDate != nil {
		event.EndDate = body.EndDate
	}
	if event.EndDate != nil && !event.EndDate.After(event.StartDate) {
		return nil, huma.Error400BadRequest("End date must be after start date")
	}
	if body.IsPublic != nil {
		event.IsPublic = *body.IsPublic
	}
	capacityGrew := false
	if body.MaxAttendees != nil {
		capacityGrew = event.MaxAttendees != nil && *body.MaxAttendees > *event.MaxAttendees
		event.MaxAttendees = body.MaxAttendees
	}
	if body.Price != nil {
		event.Price = body.Price
	}
	if body.Currency != nil {
		event.Currency = strings.ToUpper(*body.Currency)
	}
	if body.ImageURL != nil {
		event.ImageURL = body.ImageURL
	}
	if body.CategoryID != nil {
		if err := h.checkCategory(ctx, body.CategoryID); err != nil {
			return nil, err
		}
		event.CategoryID = body.CategoryID
		if *body.CategoryID == "" {
			event.CategoryID = nil
		}
		event.Category = nil
	}
	if body.Status != nil {
		if !body.Status.Valid() {
			return nil, huma.Error400BadRequest("Invalid status")
		}
		event.Status = *body.Status
	}

	// Associations are reloaded below; saving them would upsert the organizer.
	if err := h.db.WithContext(ctx).Omit("Organizer", "Category").Save(event).Error; err != nil {
		h.logger.Error().Err(err).Str("event_id", event.ID).Msg("failed to update event")
		return nil, huma.Error500InternalServerError("Failed to update event")
	}
	if capacityGrew {
		moved, err := h.bookings.FillFromWaitlist(ctx, event.ID)
		if err != nil {
			h.logger.Error().Err(err).Str("event_id", event.ID).Msg("failed to promote waitlist")
		} else if len(moved) > 0 {
			h.logger.Info().Str("event_id", event.ID).Int("promoted", len(moved)).Msg("waitlist promoted after capacity change")
		}
	}

	updated, err := h.findEvent(ctx, event.ID, user)
	if err != nil {
		return nil, err
	}
	d, err := h.display(ctx, *updated, user)
	if err != nil {
		return nil, err
	}
	res := &EventResponse{}
	res.Body = success(d, "Event updated successfully")
	return res, nil
}

func (h *EventHandler) HandleDelete(ctx context.Context, input *EventIDPath) (*MessageResponse, error) {
	event, user, err := h.manageable(ctx, input.ID)
	if err != nil {
		return nil, err
	}

	err = h.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("event_id = ?", event.ID).Delete(&models.RegistrationHistory{}).Error; err != nil {
			return err
		}
		if err := tx.Where("event_id = ?", event.ID).Delete(&models.Registration{}).Error; err != nil {
			return err
		}
		return tx.Delete(&models.Event{}, "id = ?", event.ID).Error
	})
	if err != nil {
		h.logger.Error().Err(err).Str("event_id", event.ID).Msg("failed to delete event")
		return nil, huma.Error500InternalServerError("Failed to delete event")
	}
	h.logger.Info().Str("event_id", event.ID).Str("user_id", user.ID).Msg("event deleted")

	res := &MessageResponse{}
	res.Body = success[any](nil, "Event deleted successfully")
	return res, nil
}
