package tokens

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/Skotchmaster/gpio_shop/internal/models"
)

var (
	ErrUnexpectedSignMethod = errors.New("unexpected sign method")
	ErrMalformedClaims      = errors.New("token carries no single principal")
)

// Claims is the wire shape of a session token. Exactly one of UserID and
// AdminID is set; Identity resolves which.
type Claims struct {
	UserID  string      `json:"userId,omitempty"`
	AdminID string      `json:"adminId,omitempty"`
	Role    models.Role `json:"role"`
	jwt.RegisteredClaims
}

// Identity is either UserClaims or AdminClaims.
type Identity interface {
	Role() models.Role
	ID() string
}

type UserClaims struct{ UserID string }

func (UserClaims) Role() models.Role { return models.RoleUser }
func (u UserClaims) ID() string      { return u.UserID }

type AdminClaims struct{ AdminID string }

func (AdminClaims) Role() models.Role { return models.RoleAdmin }
func (a AdminClaims) ID() string      { return a.AdminID }

func (c *Claims) Identity() (Identity, error) {
	switch {
	case c.UserID != "" && c.AdminID == "" && c.Role == models.RoleUser:
		return UserClaims{UserID: c.UserID}, nil
	case c.AdminID != "" && c.UserID == "" && c.Role == models.RoleAdmin:
		return AdminClaims{AdminID: c.AdminID}, nil
	default:
		return nil, ErrMalformedClaims
	}
}

type Issuer struct {
	Secret []byte
	TTL    time.Duration
	Now    func() time.Time
}

func NewIssuer(secret []byte, ttl time.Duration) *Issuer {
	return &Issuer{Secret: secret, TTL: ttl, Now: time.Now}
}

func (i *Issuer) Issue(role models.Role, id string) (string, time.Time, error) {
	now := i.Now()
	exp := now.Add(i.TTL)

	claims := Claims{
		Role: role,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(exp),
		},
	}
	switch role {
	case models.RoleAdmin:
		claims.AdminID = id
	default:
		claims.UserID = id
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(i.Secret)
	if err != nil {
		return "", time.Time{}, err
	}
	return signed, exp, nil
}

func Parse(tokenStr string, secret []byte) (*Claims, error) {
	var claims Claims
	tkn, err := jwt.ParseWithClaims(tokenStr, &claims, func(t *jwt.Token) (any, error) {
		if t.Method.Alg() != jwt.SigningMethodHS256.Alg() {
			return nil, ErrUnexpectedSignMethod
		}
		return secret, nil
	})
	if err != nil {
		return nil, err
	}
	if !tkn.Valid {
		return nil, jwt.ErrTokenSignatureInvalid
	}
	return &claims, nil
}
