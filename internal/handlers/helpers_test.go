package handlers

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/danielgtaylor/huma/v2"
	"github.com/hi-events/hi-events-api/internal/auth"
	"github.com/hi-events/hi-events-api/internal/booking"
	"github.com/hi-events/hi-events-api/internal/config"
	"github.com/hi-events/hi-events-api/internal/database"
	"github.com/hi-events/hi-events-api/internal/models"
	"github.com/rs/zerolog"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

type testEnv struct {
	db       *gorm.DB
	cfg      *config.Config
	authn    *auth.Authenticator
	bookings *booking.Service
	handlers Handlers
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{Logger: logger.Discard})
	if err != nil {
		t.Fatalf("failed to connect database: %v", err)
	}
	sqlDB, _ := db.DB()
	sqlDB.SetMaxOpenConns(1)
	if err := database.Migrate(db); err != nil {
		t.Fatalf("failed to migrate: %v", err)
	}
	if err := database.SeedCategories(db); err != nil {
		t.Fatalf("failed to seed: %v", err)
	}

	cfg := &config.Config{
		Env:                config.EnvTest,
		JWTSecret:          "test-secret",
		JWTIssuer:          "hi-events",
		AccessTokenTTL:     24 * time.Hour,
		RefreshTokenTTL:    7 * 24 * time.Hour,
		DefaultPhoneRegion: "US",
	}
	log := zerolog.Nop()
	authn := auth.NewAuthenticator(auth.NewTokenService(cfg, log), log, false).WithUserLookup(auth.GormUserLookup(db))
	bookings := booking.NewService(db, nil, log)

	return &testEnv{
		db:       db,
		cfg:      cfg,
		authn:    authn,
		bookings: bookings,
		handlers: Handlers{
			Auth:          NewAuthHandler(db, authn, cfg, log),
			Events:        NewEventHandler(db, bookings, log),
			Registrations: NewRegistrationHandler(db, bookings, log),
			Categories:    NewCategoryHandler(db, log),
			Dashboard:     NewDashboardHandler(db, bookings, log),
			System:        NewSystemHandler(db, log),
		},
	}
}

func (e *testEnv) createUser(t *testing.T, email string, role models.Role) models.User {
	t.Helper()
	hash, _ := auth.HashPassword("Secret123!")
	u := models.User{Email: email, PasswordHash: hash, Role: role}
	if err := e.db.Create(&u).Error; err != nil {
		t.Fatalf("failed to create user: %v", err)
	}
	return u
}

type eventOpt func(*models.Event)

func (e *testEnv) createEvent(t *testing.T, organizer models.User, opts ...eventOpt) models.Event {
	t.Helper()
	ev := models.Event{
		Title:       "Go Meetup",
		Slug:        fmt.Sprintf("go-meetup-%d", time.Now().UnixNano()),
		Location:    "Prague",
		StartDate:   time.Now().Add(72 * time.Hour),
		IsPublic:    true,
		Currency:    "USD",
		Status:      models.EventPublished,
		OrganizerID: organizer.ID,
	}
	for _, opt := range opts {
		opt(&ev)
	}
	if err := e.db.Create(&ev).Error; err != nil {
		t.Fatalf("failed to create event: %v", err)
	}
	return ev
}

func as(user models.User) context.Context {
	return auth.WithUser(context.Background(), &auth.AuthUser{ID: user.ID, Email: user.Email, Role: user.Role})
}

func statusOf(err error) int {
	var se huma.StatusError
	if errors.As(err, &se) {
		return se.GetStatus()
	}
	return 0
}

func ptr[T any](v T) *T { return &v }
