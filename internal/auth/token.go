package auth

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/hi-events/hi-events-api/internal/config"
	"github.com/hi-events/hi-events-api/internal/models"
	"github.com/rs/zerolog"
)

const (
	// FallbackSecret is used when JWT_SECRET is unset. Never rely on it in
	// production.
	FallbackSecret = "fallback-secret-key-change-this-in-production"

	DefaultIssuer     = "hi-events"
	DefaultAccessTTL  = 24 * time.Hour
	DefaultRefreshTTL = 7 * 24 * time.Hour

	TokenTypeAccess  = "access"
	TokenTypeRefresh = "refresh"

	bearerPrefix = "Bearer "
)

var (
	ErrInvalidToken      = errors.New("invalid token")
	ErrTokenExpired      = errors.New("token expired")
	ErrTokenVerification = errors.New("token verification failed")
	ErrWrongTokenType    = errors.New("invalid token type")
	ErrSessionExhausted  = errors.New("session reached its maximum lifetime")
)

// Claims is the payload of both access and refresh tokens.
type Claims struct {
	UserID string `json:"userId"`
	Email  string `json:"email,omitempty"`
	Role   string `json:"role,omitempty"`
	Type   string `json:"type,omitempty"`
	// SessionStart is the time of the login that started the session. It is
	// carried over when a session cookie is renewed.
	SessionStart *jwt.NumericDate `json:"sst,omitempty"`
	jwt.RegisteredClaims
}

type TokenPair struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
	ExpiresAt    int64  `json:"expiresAt"`
}

type TokenService struct {
	secret     []byte
	issuer     string
	accessTTL  time.Duration
	refreshTTL time.Duration
	now        func() time.Time
}

func NewTokenService(cfg *config.Config, logger zerolog.Logger) *TokenService {
	secret := cfg.JWTSecret
	if secret == "" {
		logger.Warn().Msg("JWT_SECRET not found in environment variables. Using default secret.")
		logger.Warn().Msg("Please set JWT_SECRET for production use.")
		secret = FallbackSecret
	}

	ts := &TokenService{
		secret:     []byte(secret),
		issuer:     cfg.JWTIssuer,
		accessTTL:  cfg.AccessTokenTTL,
		refreshTTL: cfg.RefreshTokenTTL,
		now:        time.Now,
	}
	if ts.issuer == "" {
		ts.issuer = DefaultIssuer
	}
	if ts.accessTTL == 0 {
		ts.accessTTL = DefaultAccessTTL
	}
	if ts.refreshTTL == 0 {
		ts.refreshTTL = DefaultRefreshTTL
	}
	return ts
}

func (ts *TokenService) AccessTTL() time.Duration { return ts.accessTTL }

func (ts *TokenService) RefreshTTL() time.Duration { return ts.refreshTTL }

func (ts *TokenService) sign(claims *Claims, ttl time.Duration) (string, error) {
	now := ts.now()
	claims.Issuer = ts.issuer
	claims.Subject = claims.UserID
	claims.IssuedAt = jwt.NewNumericDate(now)
	claims.ExpiresAt = jwt.NewNumericDate(now.Add(ttl))

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(ts.secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign %s token: %w", claims.Type, err)
	}
	return signed, nil
}

func (ts *TokenService) GenerateAccessToken(userID, email string, role models.Role) (string, error) {
	return ts.sign(&Claims{
		UserID:       userID,
		Email:        email,
		Role:         string(role),
		Type:         TokenTypeAccess,
		SessionStart: jwt.NewNumericDate(ts.now()),
	}, ts.accessTTL)
}

// RenewAccessToken re-issues the access token of an ongoing session for the
// current state of user. The session keeps its start time and never outlives
// the refresh token lifetime counted from it.
func (ts *TokenService) RenewAccessToken(claims *Claims, user models.User) (string, error) {
	start := claims.SessionStart
	if start == nil {
		start = claims.IssuedAt
	}
	if start == nil {
		return "", ErrSessionExhausted
	}

	left := start.Add(ts.refreshTTL).Sub(ts.now())
	if left <= 0 {
		return "", ErrSessionExhausted
	}
	return ts.sign(&Claims{
		UserID:       user.ID,
		Email:        user.Email,
		Role:         string(user.Role),
		Type:         TokenTypeAccess,
		SessionStart: start,
	}, min(ts.accessTTL, left))
}

func (ts *TokenService) GenerateRefreshToken(userID string) (string, error) {
	return ts.sign(&Claims{UserID: userID, Type: TokenTypeRefresh}, ts.refreshTTL)
}

// GenerateTokenPair issues a fresh access and refresh token for user.
func (ts *TokenService) GenerateTokenPair(user models.User) (*TokenPair, error) {
	access, err := ts.GenerateAccessToken(user.ID, user.Email, user.Role)
	if err != nil {
		return nil, err
	}
	refresh, err := ts.GenerateRefreshToken(user.ID)
	if err != nil {
		return nil, err
	}
	return &TokenPair{
		AccessToken:  access,
		RefreshToken: refresh,
		ExpiresAt:    ts.now().Add(ts.accessTTL).UnixMilli(),
	}, nil
}

// VerifyToken checks signature, algorithm, issuer and expiry and returns the
// decoded claims.
func (ts *TokenService) VerifyToken(tokenString string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return ts.secret, nil
	}, jwt.WithIssuer(ts.issuer), jwt.WithTimeFunc(ts.now), jwt.WithExpirationRequired())

	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrTokenExpired
		}
		return nil, ErrInvalidToken
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, ErrTokenVerification
	}
	if claims.UserID == "" {
		return nil, ErrInvalidToken
	}
	return claims, nil
}

// VerifyAccessToken rejects refresh tokens presented as credentials.
func (ts *TokenService) VerifyAccessToken(tokenString string) (*Claims, error) {
	claims, err := ts.VerifyToken(tokenString)
	if err != nil {
		return nil, err
	}
	if claims.Type == TokenTypeRefresh {
		return nil, ErrWrongTokenType
	}
	return claims, nil
}

func (ts *TokenService) VerifyRefreshToken(tokenString string) (*Claims, error) {
	claims, err := ts.VerifyToken(tokenString)
	if err != nil {
		return nil, err
	}
	if claims.Type != TokenTypeRefresh {
		return nil, ErrWrongTokenType
	}
	return claims, nil
}

// IsTokenExpired is true only when the token failed verification because of
// its expiry.
func (ts *TokenService) IsTokenExpired(tokenString string) bool {
	_, err := ts.VerifyToken(tokenString)
	return errors.Is(err, ErrTokenExpired)
}

// DecodeToken returns the unverified claims, for logging only.
func DecodeToken(tokenString string) jwt.MapClaims {
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(tokenString, claims); err != nil {
		return nil
	}
	return claims
}

// ExtractTokenFromHeader returns the token of a "Bearer <token>" header, or
// "" for anything else.
func ExtractTokenFromHeader(authHeader string) string {
	if !strings.HasPrefix(authHeader, bearerPrefix) {
		return ""
	}
	return authHeader[len(bearerPrefix):]
}
