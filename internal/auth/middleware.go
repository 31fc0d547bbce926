package auth

import (
	"errors"
	"net/http"
	"time"

	"github.com/danielgtaylor/huma/v2"
	"github.com/hi-events/hi-events-api/internal/models"
	"github.com/rs/zerolog"
)

const CookieName = "auth_token"

const (
	msgNoToken            = "No authentication token provided"
	msgInvalidToken       = "Invalid token"
	msgTokenExpired       = "Token expired"
	msgVerificationFailed = "Token verification failed"
	msgAuthRequired       = "Authentication required"
	msgForbidden          = "Insufficient permissions"
)

// AuthResult is the outcome of authenticating one request.
type AuthResult struct {
	Success bool      `json:"success"`
	User    *AuthUser `json:"user,omitempty"`
	Error   string    `json:"error,omitempty"`

	claims     *Claims
	fromCookie bool
}

type Authenticator struct {
	tokens       *TokenService
	logger       zerolog.Logger
	secureCookie bool
	lookup       UserLookup
}

func NewAuthenticator(tokens *TokenService, logger zerolog.Logger, secureCookie bool) *Authenticator {
	return &Authenticator{tokens: tokens, logger: logger, secureCookie: secureCookie}
}

// WithUserLookup makes session renewal re-read the user, so a changed role
// or a deleted account is picked up instead of copied from the old token.
func (a *Authenticator) WithUserLookup(lookup UserLookup) *Authenticator {
	a.lookup = lookup
	return a
}

func (a *Authenticator) Tokens() *TokenService { return a.tokens }

// Authenticate looks for a bearer token first and falls back to the session
// cookie.
func (a *Authenticator) Authenticate(authHeader, cookieHeader string) AuthResult {
	token := ExtractTokenFromHeader(authHeader)
	fromCookie := false
	if token == "" {
		token = sessionFromCookieHeader(cookieHeader)
		fromCookie = token != ""
	}
	if token == "" {
		return AuthResult{Error: msgNoToken}
	}

	claims, err := a.tokens.VerifyAccessToken(token)
	if err != nil {
		a.logger.Debug().Err(err).Bool("cookie", fromCookie).Msg("token rejected")
		return AuthResult{Error: messageFor(err)}
	}

	return AuthResult{
		Success: true,
		User: &AuthUser{
			ID:    claims.UserID,
			Email: claims.Email,
			Role:  models.Role(claims.Role),
		},
		claims:     claims,
		fromCookie: fromCookie,
	}
}

func messageFor(err error) string {
	switch {
	case errors.Is(err, ErrTokenExpired):
		return msgTokenExpired
	case errors.Is(err, ErrInvalidToken), errors.Is(err, ErrWrongTokenType):
		return msgInvalidToken
	default:
		return msgVerificationFailed
	}
}

func sessionFromCookieHeader(header string) string {
	if header == "" {
		return ""
	}
	cookies, err := http.ParseCookie(header)
	if err != nil {
		return ""
	}
	for _, c := range cookies {
		if c.Name == CookieName {
			return c.Value
		}
	}
	return ""
}

// RequireAuth rejects unauthenticated requests with 401 and, when roles are
// given, requests whose role is not in the list with 403.
func (a *Authenticator) RequireAuth(api huma.API, roles ...models.Role) func(huma.Context, func(huma.Context)) {
	return func(ctx huma.Context, next func(huma.Context)) {
		result := a.Authenticate(ctx.Header("Authorization"), ctx.Header("Cookie"))
		if !result.Success {
			msg := result.Error
			if msg == "" {
				msg = msgAuthRequired
			}
			huma.WriteErr(api, ctx, http.StatusUnauthorized, msg)
			return
		}

		if len(roles) > 0 && !HasRequiredRole(*result.User, roles...) {
			huma.WriteErr(api, ctx, http.StatusForbidden, msgForbidden)
			return
		}

		if result.fromCookie {
			a.slideSession(ctx, result.claims)
		}

		next(huma.WithValue(ctx, userKey, result.User))
	}
}

// OptionalAuth attaches the user when a valid token is present and lets every
// request through.
func (a *Authenticator) OptionalAuth() func(huma.Context, func(huma.Context)) {
	return func(ctx huma.Context, next func(huma.Context)) {
		result := a.Authenticate(ctx.Header("Authorization"), ctx.Header("Cookie"))
		if result.Success {
			next(huma.WithValue(ctx, userKey, result.User))
			return
		}
		next(ctx)
	}
}

// slideSession re-issues the cookie once it is past half of its lifetime.
func (a *Authenticator) slideSession(ctx huma.Context, claims *Claims) {
	if claims.ExpiresAt == nil {
		return
	}
	remaining := claims.ExpiresAt.Sub(a.tokens.now())
	if remaining >= a.tokens.AccessTTL()/2 {
		return
	}

	user := models.User{Base: models.Base{ID: claims.UserID}, Email: claims.Email, Role: models.Role(claims.Role)}
	if a.lookup != nil {
		current, err := a.lookup(ctx.Context(), claims.UserID)
		if err != nil {
			a.logger.Error().Err(err).Str("user_id", claims.UserID).Msg("failed to load user for session renewal")
			return
		}
		if current == nil {
			a.logger.Debug().Str("user_id", claims.UserID).Msg("session not renewed, user no longer exists")
			return
		}
		user = *current
	}

	token, err := a.tokens.RenewAccessToken(claims, user)
	if errors.Is(err, ErrSessionExhausted) {
		a.logger.Debug().Str("user_id", claims.UserID).Msg("session reached its maximum lifetime")
		return
	}
	if err != nil {
		a.logger.Error().Err(err).Str("user_id", claims.UserID).Msg("failed to renew session")
		return
	}
	ctx.AppendHeader("Set-Cookie", a.SessionCookie(token).String())
}

func (a *Authenticator) SessionCookie(token string) *http.Cookie {
	return &http.Cookie{
		Name:     CookieName,
		Value:    token,
		Path:     "/",
		Expires:  time.Now().Add(a.tokens.AccessTTL()),
		MaxAge:   int(a.tokens.AccessTTL().Seconds()),
		HttpOnly: true,
		Secure:   a.secureCookie,
		SameSite: http.SameSiteLaxMode,
	}
}

func (a *Authenticator) ClearSessionCookie() *http.Cookie {
	return &http.Cookie{
		Name:     CookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		Expires:  time.Unix(0, 0),
		HttpOnly: true,
		Secure:   a.secureCookie,
		SameSite: http.SameSiteLaxMode,
	}
}
