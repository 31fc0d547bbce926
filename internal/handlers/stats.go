package handlers

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"
	"github.com/hi-events/hi-events-api/internal/database"
	"github.com/hi-events/hi-events-api/internal/format"
	"github.com/hi-events/hi-events-api/internal/models"
	"github.com/rs/zerolog"
	"gorm.io/gorm"
)

type SystemHandler struct {
	db     *gorm.DB
	logger zerolog.Logger
}

func NewSystemHandler(db *gorm.DB, logger zerolog.Logger) *SystemHandler {
	return &SystemHandler{db: db, logger: logger}
}

type Stat struct {
	Value     int64  `json:"value"`
	Formatted string `json:"formatted"`
}

func newStat(v int64) Stat {
	return Stat{Value: v, Formatted: format.FormatNumber(float64(v))}
}

type PlatformStats struct {
	Users         Stat `json:"users"`
	Events        Stat `json:"events"`
	Cities        Stat `json:"cities"`
	Registrations Stat `json:"registrations"`
}

type StatsResponse struct {
	Body Envelope[PlatformStats]
}

type HealthResponse struct {
	Status int
	Body   struct {
		Status   string `json:"status"`
		Database bool   `json:"database"`
	}
}

func (h *SystemHandler) HandleStats(ctx context.Context, _ *struct{}) (*StatsResponse, error) {
	db := h.db.WithContext(ctx)
	var users, events, cities, registrations int64

	visible := db.Model(&models.Event{}).Where("is_public = ? AND status <> ?", true, models.EventDraft)
	err := db.Model(&models.User{}).Count(&users).Error
	if err == nil {
		err = visible.Session(&gorm.Session{}).Count(&events).Error
	}
	if err == nil {
		err = visible.Session(&gorm.Session{}).Distinct("location").Count(&cities).Error
	}
	if err == nil {
		err = db.Model(&models.Registration{}).Where("status = ?", models.RegistrationConfirmed).Count(&registrations).Error
	}
	if err != nil {
		h.logger.Error().Err(err).Msg("failed to compute stats")
		return nil, huma.Error500InternalServerError("Failed to fetch stats")
	}

	res := &StatsResponse{}
	res.Body = success(PlatformStats{
		Users:         newStat(users),
		Events:        newStat(events),
		Cities:        newStat(cities),
		Registrations: newStat(registrations),
	}, "")
	return res, nil
}

func (h *SystemHandler) HandleHealth(ctx context.Context, _ *struct{}) (*HealthResponse, error) {
	res := &HealthResponse{Status: http.StatusOK}
	res.Body.Status = "ok"
	res.Body.Database = database.CheckConnection(ctx, h.db)
	if !res.Body.Database {
		res.Status = http.StatusServiceUnavailable
		res.Body.Status = "degraded"
	}
	return res, nil
}
