package auth

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// Token type claim values. Access and refresh tokens share the signing key
// and are told apart only by this claim.
const (
	TypeAccess  = "access"
	TypeRefresh = "refresh"
)

var ErrInvalidToken = errors.New("invalid or expired token")

// Issuer mints signed access and refresh tokens. Verification here covers
// signature, expiry and token type only; revocation is a separate lookup
// owned by the ledger and the revocation list.
type Issuer struct {
	Secret     []byte
	AccessTTL  time.Duration
	RefreshTTL time.Duration
}

// IssuedToken is a freshly signed token plus the metadata callers persist.
type IssuedToken struct {
	Raw       string
	JTI       string
	ExpiresAt time.Time
}

func (i Issuer) IssueAccess(userID string) (IssuedToken, error) {
	return i.issue(userID, TypeAccess, i.AccessTTL)
}

func (i Issuer) IssueRefresh(userID string) (IssuedToken, error) {
	return i.issue(userID, TypeRefresh, i.RefreshTTL)
}

func (i Issuer) issue(userID, typ string, ttl time.Duration) (IssuedToken, error) {
	now := time.Now()
	exp := now.Add(ttl)
	jti := uuid.NewString()
	claims := jwt.MapClaims{
		"sub": userID,
		"jti": jti,
		"typ": typ,
		"iat": now.Unix(),
		"exp": exp.Unix(),
	}
	raw, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(i.Secret)
	if err != nil {
		return IssuedToken{}, err
	}
	return IssuedToken{Raw: raw, JTI: jti, ExpiresAt: exp}, nil
}

// Verify checks signature, expiry and that the token carries the wanted type
// claim. It never consults the ledger or blacklist.
func (i Issuer) Verify(raw, wantType string) (Claims, error) {
	tok, err := jwt.Parse(raw, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return i.Secret, nil
	}, jwt.WithValidMethods([]string{"HS256"}))
	if err != nil || !tok.Valid {
		return Claims{}, ErrInvalidToken
	}
	mapc, ok := tok.Claims.(jwt.MapClaims)
	if !ok {
		return Claims{}, ErrInvalidToken
	}
	sub, _ := mapc["sub"].(string)
	jti, _ := mapc["jti"].(string)
	typ, _ := mapc["typ"].(string)
	if sub == "" || jti == "" || typ != wantType {
		return Claims{}, ErrInvalidToken
	}
	exp, err := mapc.GetExpirationTime()
	if err != nil || exp == nil {
		return Claims{}, ErrInvalidToken
	}
	return Claims{Subject: sub, JTI: jti, ExpiresAt: exp.Time}, nil
}
