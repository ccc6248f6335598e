package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/edukit/edukit/internal/model"
)

type TokenKind string

const (
	TokenKindAccess  TokenKind = "access"
	TokenKindRefresh TokenKind = "refresh"
)

var (
	ErrTokenExpired   = errors.New("token expired")
	ErrTokenSignature = errors.New("token signature invalid")
	ErrTokenMalformed = errors.New("token malformed")
)

// Claims is the signed claim set. Access tokens carry the full identity;
// refresh tokens carry only user_id and kind.
type Claims struct {
	UserID     int64     `json:"user_id"`
	Email      string    `json:"email,omitempty"`
	TenantID   int64     `json:"tenant_id,omitempty"`
	TenantCode string    `json:"tenant_code,omitempty"`
	Kind       TokenKind `json:"kind"`
	jwt.RegisteredClaims
}

// Codec issues and verifies HS-family JWTs. Verification never touches the
// database.
type Codec struct {
	secret     []byte
	method     jwt.SigningMethod
	accessTTL  time.Duration
	refreshTTL time.Duration
}

func NewCodec(secret []byte, algorithm string, accessTTL, refreshTTL time.Duration) (*Codec, error) {
	method := jwt.GetSigningMethod(algorithm)
	if _, ok := method.(*jwt.SigningMethodHMAC); !ok {
		return nil, fmt.Errorf("unsupported signing algorithm %q", algorithm)
	}
	if len(secret) == 0 {
		return nil, errors.New("empty token secret")
	}
	return &Codec{
		secret:     secret,
		method:     method,
		accessTTL:  accessTTL,
		refreshTTL: refreshTTL,
	}, nil
}

func (c *Codec) IssueAccess(user model.User, tenant model.Tenant) (string, error) {
	return c.sign(Claims{
		UserID:     user.ID,
		Email:      user.Email,
		TenantID:   tenant.ID,
		TenantCode: tenant.Code,
		Kind:       TokenKindAccess,
	}, c.accessTTL)
}

func (c *Codec) IssueRefresh(userID int64) (string, error) {
	return c.sign(Claims{
		UserID: userID,
		Kind:   TokenKindRefresh,
	}, c.refreshTTL)
}

func (c *Codec) sign(claims Claims, ttl time.Duration) (string, error) {
	now := time.Now().UTC()
	claims.RegisteredClaims = jwt.RegisteredClaims{
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
	}
	token := jwt.NewWithClaims(c.method, claims)
	return token.SignedString(c.secret)
}

// Verify parses and validates a token string. exp is an exclusive bound:
// a token whose expiry equals the current instant is already expired.
func (c *Codec) Verify(tokenString string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(*jwt.Token) (interface{}, error) {
		return c.secret, nil
	}, jwt.WithValidMethods([]string{c.method.Alg()}), jwt.WithExpirationRequired())
	if err != nil {
		switch {
		case errors.Is(err, jwt.ErrTokenExpired):
			return nil, ErrTokenExpired
		case errors.Is(err, jwt.ErrTokenSignatureInvalid):
			return nil, ErrTokenSignature
		default:
			return nil, ErrTokenMalformed
		}
	}
	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, ErrTokenMalformed
	}
	if claims.Kind != TokenKindAccess && claims.Kind != TokenKindRefresh {
		return nil, ErrTokenMalformed
	}
	return claims, nil
}
