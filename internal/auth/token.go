package auth

import (
	"errors"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/hongminglow/paygate/internal/models"
)

// ErrInvalidToken covers every reason a presented token is rejected.
var ErrInvalidToken = errors.New("invalid token")

const (
	typeAccess  = "access"
	typeRefresh = "refresh"
)

type tokenClaims struct {
	Role string `json:"role,omitempty"`
	Type string `json:"typ"`
	jwt.RegisteredClaims
}

// Claims is the verified content of an access or refresh token.
type Claims struct {
	UserID    int64
	Role      models.Role
	JTI       string
	ExpiresAt time.Time
}

// TokenManager issues and verifies signed JWTs for authenticated users.
type TokenManager struct {
	secret     []byte
	issuer     string
	accessTTL  time.Duration
	refreshTTL time.Duration
	now        func() time.Time
}

// NewTokenManager creates a manager with the provided secret, issuer, and lifetimes.
func NewTokenManager(secret, issuer string, accessTTL, refreshTTL time.Duration) *TokenManager {
	return &TokenManager{
		secret:     []byte(secret),
		issuer:     issuer,
		accessTTL:  accessTTL,
		refreshTTL: refreshTTL,
		now:        time.Now,
	}
}

// WithClock swaps the time source used for issuing and validating tokens.
func (t *TokenManager) WithClock(now func() time.Time) *TokenManager {
	t.now = now
	return t
}

// AccessTTL is the lifetime of access tokens.
func (t *TokenManager) AccessTTL() time.Duration { return t.accessTTL }

// RefreshTTL is the lifetime of refresh tokens.
func (t *TokenManager) RefreshTTL() time.Duration { return t.refreshTTL }

// IssueAccess signs a short-lived token carrying the user id and role.
func (t *TokenManager) IssueAccess(user models.User) (string, Claims, error) {
	return t.sign(user, typeAccess, string(user.Role), "", t.accessTTL)
}

// IssueRefresh signs a long-lived token identified by a fresh jti.
func (t *TokenManager) IssueRefresh(user models.User) (string, Claims, error) {
	return t.sign(user, typeRefresh, "", uuid.NewString(), t.refreshTTL)
}

func (t *TokenManager) sign(user models.User, typ, role, jti string, ttl time.Duration) (string, Claims, error) {
	now := t.now()
	exp := now.Add(ttl)
	claims := tokenClaims{
		Role: role,
		Type: typ,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    t.issuer,
			Subject:   strconv.FormatInt(user.ID, 10),
			ID:        jti,
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(exp),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(t.secret)
	if err != nil {
		return "", Claims{}, err
	}
	return signed, Claims{UserID: user.ID, Role: models.Role(role), JTI: jti, ExpiresAt: exp}, nil
}

// ParseAccess verifies an access token. Refresh tokens are rejected.
func (t *TokenManager) ParseAccess(raw string) (Claims, error) {
	return t.parse(raw, typeAccess)
}

// ParseRefresh verifies a refresh token. Access tokens are rejected.
func (t *TokenManager) ParseRefresh(raw string) (Claims, error) {
	return t.parse(raw, typeRefresh)
}

func (t *TokenManager) parse(raw, typ string) (Claims, error) {
	if raw == "" {
		return Claims{}, ErrInvalidToken
	}
	var claims tokenClaims
	tok, err := jwt.ParseWithClaims(raw, &claims, func(token *jwt.Token) (any, error) {
		return t.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithLeeway(5*time.Second),
		jwt.WithIssuer(t.issuer),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(t.now),
	)
	if err != nil || !tok.Valid || claims.Type != typ {
		return Claims{}, ErrInvalidToken
	}
	id, err := strconv.ParseInt(claims.Subject, 10, 64)
	if err != nil || id <= 0 {
		return Claims{}, ErrInvalidToken
	}
	if typ == typeRefresh && claims.ID == "" {
		return Claims{}, ErrInvalidToken
	}
	out := Claims{UserID: id, Role: models.Role(claims.Role), JTI: claims.ID}
	if claims.ExpiresAt != nil {
		out.ExpiresAt = claims.ExpiresAt.Time
	}
	return out, nil
}

// Cookie names shared by the HTTP layer and the client.
const (
	AccessCookie  = "token"
	RefreshCookie = "refreshToken"

	// InvalidTokenChallenge is the WWW-Authenticate value sent when the access
	// token itself was rejected. Other 401s (a wrong PIN or password) omit it,
	// and clients only refresh on this one.
	InvalidTokenChallenge = `Bearer error="invalid_token"`
)
