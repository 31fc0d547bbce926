package auth

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/hi-events/hi-events-api/internal/config"
	"github.com/hi-events/hi-events-api/internal/models"
	"github.com/rs/zerolog"
	"golang.org/x/oauth2"
	"gorm.io/gorm"
)

const (
	DiscordAuthorizeEndpoint = "https://discord.com/api/oauth2/authorize"
	DiscordTokenEndpoint     = "https://discord.com/api/oauth2/token"
	DiscordUserAPI           = "https://discord.com/api/users/@me"

	stateCookieName = "oauth_state"
)

type discordUser struct {
	ID       string `json:"id"`
	Username string `json:"username"`
	Email    string `json:"email"`
	Avatar   string `json:"avatar"`
}

// DiscordLogin lets users sign in with their Discord account. The account is
// linked to an existing user with the same email when there is one.
type DiscordLogin struct {
	oauthConfig *oauth2.Config
	db          *gorm.DB
	authn       *Authenticator
	cfg         *config.Config
	logger      zerolog.Logger
	userAPI     string
}

func NewDiscordLogin(cfg *config.Config, db *gorm.DB, authn *Authenticator, logger zerolog.Logger) *DiscordLogin {
	return &DiscordLogin{
		oauthConfig: &oauth2.Config{
			ClientID:     cfg.DiscordClientID,
			ClientSecret: cfg.DiscordClientSecret,
			RedirectURL:  cfg.DiscordRedirectURL,
			Scopes:       []string{"identify", "email"},
			Endpoint: oauth2.Endpoint{
				AuthURL:  DiscordAuthorizeEndpoint,
				TokenURL: DiscordTokenEndpoint,
			},
		},
		db:      db,
		authn:   authn,
		cfg:     cfg,
		logger:  logger,
		userAPI: DiscordUserAPI,
	}
}

func (h *DiscordLogin) HandleLogin(w http.ResponseWriter, r *http.Request) {
	state, err := randomState()
	if err != nil {
		http.Error(w, "Failed to start login", http.StatusInternalServerError)
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     stateCookieName,
		Value:    state,
		Path:     "/",
		MaxAge:   int((10 * time.Minute).Seconds()),
		HttpOnly: true,
		Secure:   h.cfg.IsProduction(),
		SameSite: http.SameSiteLaxMode,
	})

	url := h.oauthConfig.AuthCodeURL(state, oauth2.AccessTypeOnline)
	http.Redirect(w, r, url, http.StatusTemporaryRedirect)
}

func (h *DiscordLogin) HandleCallback(w http.ResponseWriter, r *http.Request) {
	stateCookie, err := r.Cookie(stateCookieName)
	if err != nil || stateCookie.Value == "" || stateCookie.Value != r.URL.Query().Get("state") {
		http.Error(w, "Invalid OAuth state", http.StatusBadRequest)
		return
	}

	code := r.URL.Query().Get("code")
	if code == "" {
		http.Error(w, "Code not found", http.StatusBadRequest)
		return
	}

	token, err := h.oauthConfig.Exchange(r.Context(), code)
	if err != nil {
		h.logger.Warn().Err(err).Msg("discord token exchange failed")
		http.Error(w, "Failed to exchange token", http.StatusInternalServerError)
		return
	}

	profile, err := h.fetchProfile(r.Context(), h.oauthConfig.Client(r.Context(), token))
	if err != nil {
		h.logger.Warn().Err(err).Msg("discord profile lookup failed")
		http.Error(w, "Failed to get user info", http.StatusInternalServerError)
		return
	}

	user, err := h.LinkUser(r.Context(), profile)
	if err != nil {
		h.logger.Error().Err(err).Str("discord_id", profile.ID).Msg("failed to link discord user")
		http.Error(w, "Failed to save user", http.StatusInternalServerError)
		return
	}

	accessToken, err := h.authn.Tokens().GenerateAccessToken(user.ID, user.Email, user.Role)
	if err != nil {
		http.Error(w, "Failed to generate token", http.StatusInternalServerError)
		return
	}

	http.SetCookie(w, &http.Cookie{Name: stateCookieName, Path: "/", MaxAge: -1})
	http.SetCookie(w, h.authn.SessionCookie(accessToken))
	http.Redirect(w, r, h.cfg.FrontendURL, http.StatusFound)
}

func (h *DiscordLogin) fetchProfile(ctx context.Context, client *http.Client) (*discordUser, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, h.userAPI, nil)
	if err != nil {
		return nil, err
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("discord returned %s", resp.Status)
	}

	var profile discordUser
	if err := json.NewDecoder(resp.Body).Decode(&profile); err != nil {
		return nil, fmt.Errorf("failed to decode user info: %w", err)
	}
	if profile.ID == "" || profile.Email == "" {
		return nil, errors.New("discord profile is missing id or email")
	}
	return &profile, nil
}

// LinkUser finds the user by Discord ID, then by email, and creates one when
// neither exists.
func (h *DiscordLogin) LinkUser(ctx context.Context, profile *discordUser) (*models.User, error) {
	var user models.User
	err := h.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		err := tx.Where("discord_id = ?", profile.ID).First(&user).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			err = tx.Where("email = ?", strings.ToLower(profile.Email)).First(&user).Error
		}
		switch {
		case errors.Is(err, gorm.ErrRecordNotFound):
			user = models.User{
				Email: strings.ToLower(profile.Email),
				Role:  models.RoleUser,
			}
		case err != nil:
			return err
		}

		user.DiscordID = &profile.ID
		if user.Name == nil && profile.Username != "" {
			user.Name = &profile.Username
		}
		if user.Avatar == nil && profile.Avatar != "" {
			avatar := fmt.Sprintf("https://cdn.discordapp.com/avatars/%s/%s.png", profile.ID, profile.Avatar)
			user.Avatar = &avatar
		}
		return tx.Save(&user).Error
	})
	if err != nil {
		return nil, err
	}
	return &user, nil
}

func randomState() (string, error) {
	b := make([]byte, 16)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}
