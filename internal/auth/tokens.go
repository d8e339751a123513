package auth

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/golang-jwt/jwt/v4"
	"github.com/google/uuid"
	"github.com/playpong/backend/internal/models"
)

// Token types carried in the "typ" claim so the two tokens cannot stand in
// for each other.
const (
	tokenTypeAccess  = "access"
	tokenTypeRefresh = "refresh"
)

// Identity is the authenticated principal extracted from a token.
type Identity struct {
	PlayerID  string
	Username  string
	ExpiresAt time.Time
	JTI       string // refresh tokens only
}

// Blacklist is the persistent set of refresh jtis that were rotated away or
// revoked by logout.
type Blacklist interface {
	BlacklistToken(ctx context.Context, jti, playerID string, expiresAt time.Time) error
	IsTokenBlacklisted(ctx context.Context, jti string) (bool, error)
}

// CookieConfig controls how the token cookies are written.
type CookieConfig struct {
	AccessName  string
	RefreshName string
	Secure      bool
	SameSite    http.SameSite
}

// TokenPair is a freshly minted access + refresh pair.
type TokenPair struct {
	Access           string
	Refresh          string
	RefreshJTI       string
	RefreshExpiresAt time.Time
}

// GateResult is the outcome of gating one request. Identity is nil for an
// unauthenticated request; SetCookies carries rotation or clearing cookies
// the response must apply.
type GateResult struct {
	Identity   *Identity
	SetCookies []*http.Cookie
}

// TokenService mints, verifies and rotates the HS256 JWT pair and owns the
// cookie shapes. It has no HTTP framework dependency so the gate logic is
// testable in isolation.
type TokenService struct {
	secret           []byte
	accessTTL        time.Duration
	refreshTTL       time.Duration
	refreshThreshold time.Duration
	cookies          CookieConfig
	blacklist        Blacklist
	now              func() time.Time
}

func NewTokenService(secret string, accessTTL, refreshTTL, refreshThreshold time.Duration, cookies CookieConfig, blacklist Blacklist) *TokenService {
	return &TokenService{
		secret:           []byte(secret),
		accessTTL:        accessTTL,
		refreshTTL:       refreshTTL,
		refreshThreshold: refreshThreshold,
		cookies:          cookies,
		blacklist:        blacklist,
		now:              time.Now,
	}
}

// AccessCookieName is exposed for the WebSocket gate, which reads the access
// cookie straight off the upgrade request.
func (s *TokenService) AccessCookieName() string {
	return s.cookies.AccessName
}

// RefreshCookieName is exposed for the HTTP gate middleware.
func (s *TokenService) RefreshCookieName() string {
	return s.cookies.RefreshName
}

// MintPair issues a fresh access + refresh pair for the player.
func (s *TokenService) MintPair(playerID, username string) (*TokenPair, error) {
	now := s.now()

	access, err := s.sign(jwt.MapClaims{
		"sub":      playerID,
		"username": username,
		"typ":      tokenTypeAccess,
		"iat":      now.Unix(),
		"exp":      now.Add(s.accessTTL).Unix(),
	})
	if err != nil {
		return nil, fmt.Errorf("sign access token: %w", err)
	}

	jti := uuid.NewString()
	refreshExp := now.Add(s.refreshTTL)
	refresh, err := s.sign(jwt.MapClaims{
		"sub":      playerID,
		"username": username,
		"typ":      tokenTypeRefresh,
		"jti":      jti,
		"iat":      now.Unix(),
		"exp":      refreshExp.Unix(),
	})
	if err != nil {
		return nil, fmt.Errorf("sign refresh token: %w", err)
	}

	return &TokenPair{
		Access:           access,
		Refresh:          refresh,
		RefreshJTI:       jti,
		RefreshExpiresAt: refreshExp,
	}, nil
}

func (s *TokenService) sign(claims jwt.MapClaims) (string, error) {
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
}

// VerifyAccess validates an access token and returns its identity.
func (s *TokenService) VerifyAccess(raw string) (*Identity, error) {
	return s.parse(raw, tokenTypeAccess)
}

// VerifyRefresh validates a refresh token, including the blacklist check.
func (s *TokenService) VerifyRefresh(ctx context.Context, raw string) (*Identity, error) {
	ident, err := s.parse(raw, tokenTypeRefresh)
	if err != nil {
		return nil, err
	}
	listed, err := s.blacklist.IsTokenBlacklisted(ctx, ident.JTI)
	if err != nil {
		return nil, fmt.Errorf("check blacklist: %w", err)
	}
	if listed {
		return nil, models.ErrAuthInvalid("refresh token has been revoked")
	}
	return ident, nil
}

func (s *TokenService) parse(raw, wantType string) (*Identity, error) {
	token, err := jwt.Parse(raw, func(t *jwt.Token) (interface{}, error) {
		if t.Method.Alg() != jwt.SigningMethodHS256.Alg() {
			return nil, fmt.Errorf("unexpected signing method: %s", t.Method.Alg())
		}
		return s.secret, nil
	})
	if err != nil {
		var verr *jwt.ValidationError
		if errors.As(err, &verr) && verr.Errors&jwt.ValidationErrorExpired != 0 {
			return nil, models.ErrAuthExpired("token expired")
		}
		return nil, models.ErrAuthInvalid("invalid token")
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok || !token.Valid {
		return nil, models.ErrAuthInvalid("invalid token")
	}
	if typ, _ := claims["typ"].(string); typ != wantType {
		return nil, models.ErrAuthInvalid("wrong token type")
	}
	sub, _ := claims["sub"].(string)
	username, _ := claims["username"].(string)
	if sub == "" || username == "" {
		return nil, models.ErrAuthInvalid("token missing subject")
	}
	exp, _ := claims["exp"].(float64)
	jti, _ := claims["jti"].(string)

	return &Identity{
		PlayerID:  sub,
		Username:  username,
		ExpiresAt: time.Unix(int64(exp), 0),
		JTI:       jti,
	}, nil
}

// Rotate blacklists the presented refresh token and mints a new pair for its
// subject.
func (s *TokenService) Rotate(ctx context.Context, rawRefresh string) (*TokenPair, *Identity, error) {
	ident, err := s.VerifyRefresh(ctx, rawRefresh)
	if err != nil {
		return nil, nil, err
	}
	if err := s.blacklist.BlacklistToken(ctx, ident.JTI, ident.PlayerID, ident.ExpiresAt); err != nil {
		return nil, nil, fmt.Errorf("blacklist rotated token: %w", err)
	}
	pair, err := s.MintPair(ident.PlayerID, ident.Username)
	if err != nil {
		return nil, nil, err
	}
	return pair, ident, nil
}

// RevokeRefresh blacklists the presented refresh token (logout). An
// unparseable token is ignored: there is nothing to revoke.
func (s *TokenService) RevokeRefresh(ctx context.Context, rawRefresh string) error {
	ident, err := s.parse(rawRefresh, tokenTypeRefresh)
	if err != nil {
		return nil
	}
	return s.blacklist.BlacklistToken(ctx, ident.JTI, ident.PlayerID, ident.ExpiresAt)
}

// Gate applies the sliding-refresh contract to one request:
//
//  1. A valid access token expiring more than refreshThreshold from now
//     passes through untouched.
//  2. Otherwise a valid refresh token is rotated: the old jti is
//     blacklisted, a new pair is minted and both cookies are rewritten.
//  3. Otherwise both cookies are cleared and the request continues
//     unauthenticated.
func (s *TokenService) Gate(ctx context.Context, accessRaw, refreshRaw string) GateResult {
	if accessRaw != "" {
		if ident, err := s.VerifyAccess(accessRaw); err == nil {
			if ident.ExpiresAt.Sub(s.now()) > s.refreshThreshold {
				return GateResult{Identity: ident}
			}
		}
	}

	if refreshRaw != "" {
		pair, ident, err := s.Rotate(ctx, refreshRaw)
		if err == nil {
			return GateResult{Identity: ident, SetCookies: s.PairCookies(pair)}
		}
		log.Printf("[AUTH] Refresh rotation failed: %v", err)
	}

	return GateResult{SetCookies: s.ClearCookies()}
}

// PairCookies builds the HTTP-only cookies carrying a minted pair.
func (s *TokenService) PairCookies(pair *TokenPair) []*http.Cookie {
	return []*http.Cookie{
		s.cookie(s.cookies.AccessName, pair.Access, int(s.accessTTL.Seconds())),
		s.cookie(s.cookies.RefreshName, pair.Refresh, int(s.refreshTTL.Seconds())),
	}
}

// ClearCookies builds expired cookies that remove the pair from the client.
func (s *TokenService) ClearCookies() []*http.Cookie {
	return []*http.Cookie{
		s.cookie(s.cookies.AccessName, "", -1),
		s.cookie(s.cookies.RefreshName, "", -1),
	}
}

func (s *TokenService) cookie(name, value string, maxAge int) *http.Cookie {
	return &http.Cookie{
		Name:     name,
		Value:    value,
		Path:     "/",
		MaxAge:   maxAge,
		HttpOnly: true,
		Secure:   s.cookies.Secure,
		SameSite: s.cookies.SameSite,
	}
}
