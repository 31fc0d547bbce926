package auth

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/hi-events/hi-events-api/internal/config"
	"github.com/hi-events/hi-events-api/internal/database"
	"github.com/hi-events/hi-events-api/internal/models"
	"github.com/rs/zerolog"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{Logger: logger.Discard})
	if err != nil {
		t.Fatalf("failed to open database: %v", err)
	}
	sqlDB, _ := db.DB()
	sqlDB.SetMaxOpenConns(1)
	if err := database.Migrate(db); err != nil {
		t.Fatalf("failed to migrate: %v", err)
	}
	return db
}

func fakeDiscord(t *testing.T, profile discordUser) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/oauth2/token", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]any{
			"access_token": "discord-access",
			"token_type":   "Bearer",
			"expires_in":   3600,
		})
	})
	mux.HandleFunc("/users/@me", func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer discord-access" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		json.NewEncoder(w).Encode(profile)
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func newTestDiscordLogin(t *testing.T, db *gorm.DB, srv *httptest.Server) *DiscordLogin {
	cfg := &config.Config{
		Env:                 config.EnvTest,
		DiscordClientID:     "client",
		DiscordClientSecret: "secret",
		DiscordRedirectURL:  "http://localhost/auth/discord/callback",
		FrontendURL:         "http://localhost:3000",
	}
	authn := NewAuthenticator(newTestTokenService(), zerolog.Nop(), false)
	h := NewDiscordLogin(cfg, db, authn, zerolog.Nop())
	if srv != nil {
		h.oauthConfig.Endpoint.TokenURL = srv.URL + "/oauth2/token"
		h.userAPI = srv.URL + "/users/@me"
	}
	return h
}

func TestDiscordLogin_RedirectSetsState(t *testing.T) {
	h := newTestDiscordLogin(t, setupTestDB(t), nil)

	w := httptest.NewRecorder()
	h.HandleLogin(w, httptest.NewRequest(http.MethodGet, "/auth/discord/login", nil))

	if w.Code != http.StatusTemporaryRedirect {
		t.Fatalf("expected 307, got %d", w.Code)
	}
	var state string
	for _, c := range w.Result().Cookies() {
		if c.Name == stateCookieName {
			state = c.Value
		}
	}
	if state == "" {
		t.Fatal("expected state cookie")
	}
	loc, _ := w.Result().Location()
	if loc.Query().Get("state") != state {
		t.Errorf("redirect state %q does not match cookie %q", loc.Query().Get("state"), state)
	}
}

func TestDiscordLogin_CallbackStateMismatch(t *testing.T) {
	h := newTestDiscordLogin(t, setupTestDB(t), nil)

	req := httptest.NewRequest(http.MethodGet, "/auth/discord/callback?state=b&code=c", nil)
	req.AddCookie(&http.Cookie{Name: stateCookieName, Value: "a"})
	w := httptest.NewRecorder()
	h.HandleCallback(w, req)

	if w.Code != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", w.Code)
	}
}

func TestDiscordLogin_CallbackCreatesUser(t *testing.T) {
	db := setupTestDB(t)
	srv := fakeDiscord(t, discordUser{ID: "d-1", Username: "ada", Email: "Ada@Example.com", Avatar: "abc"})
	h := newTestDiscordLogin(t, db, srv)

	req := httptest.NewRequest(http.MethodGet, "/auth/discord/callback?state=s&code=c", nil)
	req.AddCookie(&http.Cookie{Name: stateCookieName, Value: "s"})
	w := httptest.NewRecorder()
	h.HandleCallback(w, req)

	if w.Code != http.StatusFound {
		t.Fatalf("expected 302, got %d: %s", w.Code, w.Body.String())
	}
	if loc := w.Header().Get("Location"); loc != "http://localhost:3000" {
		t.Errorf("unexpected redirect %q", loc)
	}

	var session string
	for _, c := range w.Result().Cookies() {
		if c.Name == CookieName {
			session = c.Value
		}
	}
	claims, err := h.authn.Tokens().VerifyAccessToken(session)
	if err != nil {
		t.Fatalf("session cookie is not a valid token: %v", err)
	}

	var user models.User
	if err := db.Where("discord_id = ?", "d-1").First(&user).Error; err != nil {
		t.Fatalf("user not created: %v", err)
	}
	if user.Email != "ada@example.com" || user.Role != models.RoleUser {
		t.Errorf("unexpected user %+v", user)
	}
	if claims.UserID != user.ID {
		t.Errorf("token is for %s, want %s", claims.UserID, user.ID)
	}
	if user.Avatar == nil || *user.Avatar != "https://cdn.discordapp.com/avatars/d-1/abc.png" {
		t.Errorf("unexpected avatar %v", user.Avatar)
	}
}

func TestDiscordLogin_LinkUserByEmail(t *testing.T) {
	db := setupTestDB(t)
	name := "Ada Lovelace"
	existing := models.User{Email: "ada@example.com", Name: &name, Role: models.RoleOrganizer}
	if err := db.Create(&existing).Error; err != nil {
		t.Fatalf("failed to create user: %v", err)
	}

	h := newTestDiscordLogin(t, db, nil)
	user, err := h.LinkUser(context.Background(), &discordUser{ID: "d-2", Username: "ada", Email: "ADA@example.com"})
	if err != nil {
		t.Fatalf("LinkUser returned error: %v", err)
	}

	if user.ID != existing.ID {
		t.Errorf("expected existing user to be linked, got new id %s", user.ID)
	}
	if user.Role != models.RoleOrganizer {
		t.Errorf("role must be preserved, got %s", user.Role)
	}
	if *user.Name != "Ada Lovelace" {
		t.Errorf("name must not be overwritten, got %s", *user.Name)
	}

	// A second login finds the user by Discord ID.
	again, err := h.LinkUser(context.Background(), &discordUser{ID: "d-2", Email: "other@example.com"})
	if err != nil {
		t.Fatalf("LinkUser returned error: %v", err)
	}
	if again.ID != existing.ID {
		t.Error("expected lookup by discord id")
	}

	var count int64
	db.Model(&models.User{}).Count(&count)
	if count != 1 {
		t.Errorf("expected 1 user, got %d", count)
	}
}
