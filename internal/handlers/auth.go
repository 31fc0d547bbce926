package handlers

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/danielgtaylor/huma/v2"
	"github.com/hi-events/hi-events-api/internal/auth"
	"github.com/hi-events/hi-events-api/internal/config"
	"github.com/hi-events/hi-events-api/internal/metrics"
	"github.com/hi-events/hi-events-api/internal/models"
	"github.com/hi-events/hi-events-api/internal/validation"
	"github.com/rs/zerolog"
	"gorm.io/gorm"
)

type AuthHandler struct {
	db     *gorm.DB
	authn  *auth.Authenticator
	cfg    *config.Config
	logger zerolog.Logger
}

func NewAuthHandler(db *gorm.DB, authn *auth.Authenticator, cfg *config.Config, logger zerolog.Logger) *AuthHandler {
	return &AuthHandler{db: db, authn: authn, cfg: cfg, logger: logger}
}

type RegisterUserRequest struct {
	Body struct {
		Email    string  `json:"email" format:"email" maxLength:"255" doc:"Login e-mail" validate:"required,email,max=255"`
		Password string  `json:"password" minLength:"8" maxLength:"128" doc:"At least 8 characters, three of upper/lower/digit/special" validate:"required,min=8,max=128"`
		Name     *string `json:"name,omitempty" maxLength:"100" doc:"Display name" validate:"omitempty,max=100"`
		Phone    *string `json:"phone,omitempty" doc:"Phone number, normalised to E.164"`
	}
}

type LoginRequest struct {
	Body struct {
		Email    string `json:"email" doc:"Login e-mail"`
		Password string `json:"password" doc:"Password"`
	}
}

type RefreshRequest struct {
	Body struct {
		RefreshToken string `json:"refreshToken" doc:"Refresh token issued at login"`
	}
}

type UpdateProfileRequest struct {
	Body struct {
		Name   *string `json:"name,omitempty" maxLength:"100" validate:"omitempty,max=100"`
		Avatar *string `json:"avatar,omitempty" doc:"Avatar image URL" validate:"omitempty,url"`
		Phone  *string `json:"phone,omitempty" doc:"Phone number, empty string clears it"`
	}
}

type Session struct {
	User         models.User          `json:"user"`
	Permissions  auth.RolePermissions `json:"permissions"`
	AccessToken  string               `json:"accessToken"`
	RefreshToken string               `json:"refreshToken"`
	ExpiresAt    int64                `json:"expiresAt" doc:"Access token expiry, unix milliseconds"`
}

type SessionResponse struct {
	SetCookie http.Cookie `header:"Set-Cookie"`
	Body      Envelope[Session]
}

type Profile struct {
	User        models.User          `json:"user"`
	Permissions auth.RolePermissions `json:"permissions"`
}

type ProfileResponse struct {
	Body Envelope[Profile]
}

type LogoutResponse struct {
	SetCookie http.Cookie `header:"Set-Cookie"`
	Body      Envelope[any]
}

func (h *AuthHandler) session(user models.User, flow, message string) (*SessionResponse, error) {
	pair, err := h.authn.Tokens().GenerateTokenPair(user)
	if err != nil {
		h.logger.Error().Err(err).Str("user_id", user.ID).Msg("failed to issue tokens")
		return nil, huma.Error500InternalServerError("Failed to generate token")
	}
	metrics.TokenIssued(flow)

	res := &SessionResponse{SetCookie: *h.authn.SessionCookie(pair.AccessToken)}
	res.Body = success(Session{
		User:         user,
		Permissions:  auth.PermissionsFor(user.Role),
		AccessToken:  pair.AccessToken,
		RefreshToken: pair.RefreshToken,
		ExpiresAt:    pair.ExpiresAt,
	}, message)
	return res, nil
}

func (h *AuthHandler) normalizePhone(phone *string) (*string, error) {
	if phone == nil || strings.TrimSpace(*phone) == "" {
		return nil, nil
	}
	if !validation.IsValidPhone(*phone) {
		return nil, validation.ErrInvalidPhone
	}
	e164, err := validation.NormalizePhone(*phone, h.cfg.DefaultPhoneRegion)
	if err != nil {
		return nil, err
	}
	return &e164, nil
}

func (h *AuthHandler) HandleRegister(ctx context.Context, input *RegisterUserRequest) (*SessionResponse, error) {
	if err := validation.Validate(ctx, input.Body); err != nil {
		return nil, badRequest("Invalid registration data", err)
	}
	email := strings.ToLower(strings.TrimSpace(input.Body.Email))
	if !validation.IsValidEmail(email) {
		return nil, huma.Error400BadRequest("Invalid email address")
	}

	strength := validation.ValidatePassword(input.Body.Password)
	if !strength.IsValid {
		details := make([]error, 0, len(strength.Requirements.Missing()))
		for _, m := range strength.Requirements.Missing() {
			details = append(details, errors.New(m))
		}
		return nil, huma.Error400BadRequest("Password is too weak", details...)
	}

	phone, err := h.normalizePhone(input.Body.Phone)
	if err != nil {
		return nil, badRequest("Invalid phone number", err)
	}

	hash, err := auth.HashPassword(input.Body.Password)
	if err != nil {
		return nil, huma.Error500InternalServerError("Failed to register user")
	}

	user := models.User{
		Email:        email,
		PasswordHash: hash,
		Name:         input.Body.Name,
		Phone:        phone,
		Role:         models.RoleUser,
	}
	err = h.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var count int64
		if err := tx.Model(&models.User{}).Where("email = ?", email).Count(&count).Error; err != nil {
			return err
		}
		if count > 0 {
			return errEmailTaken
		}
		return tx.Create(&user).Error
	})
	if errors.Is(err, errEmailTaken) {
		return nil, huma.Error409Conflict("User with this email already exists")
	}
	if err != nil {
		h.logger.Error().Err(err).Msg("failed to create user")
		return nil, huma.Error500InternalServerError("Failed to register user")
	}

	h.logger.Info().Str("user_id", user.ID).Msg("user registered")
	return h.session(user, "register", "User registered successfully")
}

var errEmailTaken = errors.New("email taken")

func (h *AuthHandler) HandleLogin(ctx context.Context, input *LoginRequest) (*SessionResponse, error) {
	email := strings.ToLower(strings.TrimSpace(input.Body.Email))
	if email == "" || input.Body.Password == "" {
		return nil, huma.Error400BadRequest("Email and password are required")
	}

	var user models.User
	err := h.db.WithContext(ctx).Where("email = ?", email).First(&user).Error
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, huma.Error500InternalServerError("Failed to log in")
	}
	if err != nil || auth.ComparePassword(input.Body.Password, user.PasswordHash) != nil {
		h.logger.Info().Str("email", email).Msg("failed login attempt")
		return nil, huma.Error401Unauthorized("Invalid email or password")
	}

	return h.session(user, "login", "Login successful")
}

func (h *AuthHandler) HandleLogout(ctx context.Context, _ *struct{}) (*LogoutResponse, error) {
	res := &LogoutResponse{SetCookie: *h.authn.ClearSessionCookie()}
	res.Body = success[any](nil, "Logged out successfully")
	return res, nil
}

func (h *AuthHandler) HandleRefresh(ctx context.Context, input *RefreshRequest) (*SessionResponse, error) {
	claims, err := h.authn.Tokens().VerifyRefreshToken(input.Body.RefreshToken)
	if err != nil {
		if errors.Is(err, auth.ErrTokenExpired) {
			return nil, huma.Error401Unauthorized("Refresh token expired")
		}
		return nil, huma.Error401Unauthorized("Invalid refresh token")
	}

	var user models.User
	if err := h.db.WithContext(ctx).First(&user, "id = ?", claims.UserID).Error; err != nil {
		return nil, huma.Error401Unauthorized("Invalid refresh token")
	}

	return h.session(user, "refresh", "Token refreshed")
}

func (h *AuthHandler) loadUser(ctx context.Context) (*models.User, error) {
	current, err := currentUser(ctx)
	if err != nil {
		return nil, err
	}
	var user models.User
	if err := h.db.WithContext(ctx).First(&user, "id = ?", current.ID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, huma.Error404NotFound("User not found")
		}
		return nil, huma.Error500InternalServerError("Failed to load profile")
	}
	return &user, nil
}

func (h *AuthHandler) HandleGetProfile(ctx context.Context, _ *struct{}) (*ProfileResponse, error) {
	user, err := h.loadUser(ctx)
	if err != nil {
		return nil, err
	}
	res := &ProfileResponse{}
	res.Body = success(Profile{User: *user, Permissions: auth.PermissionsFor(user.Role)}, "")
	return res, nil
}

func (h *AuthHandler) HandleUpdateProfile(ctx context.Context, input *UpdateProfileRequest) (*ProfileResponse, error) {
	if err := validation.Validate(ctx, input.Body); err != nil {
		return nil, badRequest("Invalid profile data", err)
	}
	user, err := h.loadUser(ctx)
	if err != nil {
		return nil, err
	}

	if input.Body.Name != nil {
		name := strings.TrimSpace(*input.Body.Name)
		user.Name = &name
	}
	if input.Body.Avatar != nil {
		user.Avatar = input.Body.Avatar
	}
	if input.Body.Phone != nil {
		phone, err := h.normalizePhone(input.Body.Phone)
		if err != nil {
			return nil, badRequest("Invalid phone number", err)
		}
		user.Phone = phone
	}

	if err := h.db.WithContext(ctx).Save(user).Error; err != nil {
		h.logger.Error().Err(err).Str("user_id", user.ID).Msg("failed to update profile")
		return nil, huma.Error500InternalServerError("Failed to update profile")
	}

	res := &ProfileResponse{}
	res.Body = success(Profile{User: *user, Permissions: auth.PermissionsFor(user.Role)}, "Profile updated successfully")
	return res, nil
}

func currentUser(ctx context.Context) (*auth.AuthUser, error) {
	user, found := auth.UserFromContext(ctx)
	if !found {
		return nil, huma.Error401Unauthorized("Authentication required")
	}
	return user, nil
}
