package api

import (
	"errors"
	"os"
	"sync"
	"time"

	"github.com/MicahParks/keyfunc"
	"github.com/golang-jwt/jwt/v4"

	"taskflow-api/domain"
)

const (
	defaultJWKSCacheTTL = 15 * time.Minute
	envJWKSCacheTTL     = "JWKS_CACHE_TTL"
)

// Auth issues and validates session tokens. Local sessions are HS256 JWTs
// signed with the shared secret; when a JWKS is configured, RS256 tokens from
// an external identity provider are accepted as well.
type Auth struct {
	JWKS     *keyfunc.JWKS
	Audience string
	Issuer   string
	Secret   []byte
	TTL      time.Duration

	parser      *jwt.Parser
	keyCache    sync.Map
	keyCacheTTL time.Duration
}

type cachedKey struct {
	key       any
	expiresAt time.Time
}

// NewAuth creates an Auth gate that signs and verifies local HS256 sessions.
func NewAuth(secret []byte, ttl time.Duration) *Auth {
	if len(secret) == 0 {
		panic("api.NewAuth: empty session secret")
	}
	a := &Auth{Secret: secret, TTL: ttl}
	a.keyCacheTTL = parseJWKSCacheTTL()
	a.parser = jwt.NewParser(jwt.WithValidMethods([]string{"HS256"}))
	return a
}

// NewAuthWithJWKS creates an Auth gate that additionally accepts RS256 tokens
// issued by the identity provider behind the given JWKS.
func NewAuthWithJWKS(secret []byte, ttl time.Duration, jwks *keyfunc.JWKS, audience, issuer string) *Auth {
	a := NewAuth(secret, ttl)
	a.JWKS = jwks
	a.Audience = audience
	a.Issuer = issuer
	a.parser = jwt.NewParser(jwt.WithValidMethods([]string{"HS256", "RS256"}))
	return a
}

func parseJWKSCacheTTL() time.Duration {
	ttl := defaultJWKSCacheTTL
	if raw := os.Getenv(envJWKSCacheTTL); raw != "" {
		parsed, err := time.ParseDuration(raw)
		if err != nil || parsed <= 0 {
			panic("invalid JWKS_CACHE_TTL")
		}
		ttl = parsed
	}
	return ttl
}

// IssueToken signs a session token for the given user.
func (a *Auth) IssueToken(user domain.User) (string, error) {
	now := time.Now()
	claims := jwt.MapClaims{
		"sub":   user.ID,
		"name":  user.Name,
		"email": user.Email,
		"iat":   now.Unix(),
		"exp":   now.Add(a.TTL).Unix(),
	}
	if a.Issuer != "" {
		claims["iss"] = a.Issuer
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(a.Secret)
}

// UserIDFromAuthHeader extracts the owner identifier from the Authorization
// header.
func (a *Auth) UserIDFromAuthHeader(h string) (string, error) {
	token, err := bearerTokenFromString(h)
	if err != nil {
		return "", err
	}
	return a.userIDFromToken(token)
}

func (a *Auth) userIDFromToken(tokenStr string) (string, error) {
	parsedToken, err := a.parser.Parse(tokenStr, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); ok {
			return a.Secret, nil
		}
		return a.keyForToken(t)
	})
	if err != nil {
		return "", err
	}

	claims, ok := parsedToken.Claims.(jwt.MapClaims)
	if !ok {
		return "", errors.New("invalid claims")
	}

	now := time.Now().Add(time.Minute).Unix()
	if !claims.VerifyExpiresAt(now, true) {
		return "", errors.New("token expired")
	}
	if !claims.VerifyNotBefore(now, false) {
		return "", errors.New("token not valid yet")
	}
	if !claims.VerifyIssuedAt(now, false) {
		return "", errors.New("token used before issued")
	}
	if a.Audience != "" && !claims.VerifyAudience(a.Audience, false) {
		return "", errors.New("invalid audience")
	}
	if a.Issuer != "" && !claims.VerifyIssuer(a.Issuer, false) {
		return "", errors.New("invalid issuer")
	}

	sub, ok := claims["sub"].(string)
	if !ok || sub == "" {
		return "", errors.New("missing sub")
	}

	return sub, nil
}

func (a *Auth) keyForToken(token *jwt.Token) (any, error) {
	if a.JWKS == nil {
		return nil, errors.New("jwks not configured")
	}

	kid, _ := token.Header["kid"].(string)
	if kid != "" && a.keyCacheTTL > 0 {
		if cached, ok := a.keyCache.Load(kid); ok {
			entry := cached.(cachedKey)
			if time.Now().Before(entry.expiresAt) {
				return entry.key, nil
			}
			a.keyCache.Delete(kid)
		}
	}

	key, err := a.JWKS.Keyfunc(token)
	if err != nil {
		return nil, err
	}

	if kid != "" && a.keyCacheTTL > 0 {
		a.keyCache.Store(kid, cachedKey{key: key, expiresAt: time.Now().Add(a.keyCacheTTL)})
	}
	return key, nil
}
