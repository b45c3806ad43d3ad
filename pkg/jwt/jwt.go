// Package jwt emite y verifica los tokens HS256 con los que el POS identifica usuario,
// empresa (tenant) y rol.
package jwt

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Identity lo que el middleware necesita del token.
type Identity struct {
	UserID    string
	CompanyID string
	Role      string
}

type claims struct {
	jwt.RegisteredClaims
	CompanyID string `json:"company_id"`
	Role      string `json:"role,omitempty"`
}

// Codec firma y valida tokens con un secreto compartido.
type Codec struct {
	secret []byte
	issuer string
	ttl    time.Duration
	now    func() time.Time
}

// NewCodec issuer vacío desactiva la verificación del emisor.
func NewCodec(secret, issuer string, ttl time.Duration) (*Codec, error) {
	if secret == "" {
		return nil, errors.New("jwt: secreto vacío")
	}
	if ttl <= 0 {
		ttl = time.Hour
	}
	return &Codec{secret: []byte(secret), issuer: issuer, ttl: ttl, now: time.Now}, nil
}

// WithClock fija el reloj (pruebas de expiración).
func (c *Codec) WithClock(now func() time.Time) *Codec {
	c.now = now
	return c
}

// Issue emite un token con vigencia ttl.
func (c *Codec) Issue(id Identity) (string, error) {
	if id.UserID == "" || id.CompanyID == "" {
		return "", errors.New("jwt: usuario y empresa son obligatorios")
	}
	now := c.now()
	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    c.issuer,
			Subject:   id.UserID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(c.ttl)),
		},
		CompanyID: id.CompanyID,
		Role:      id.Role,
	})
	return tok.SignedString(c.secret)
}

// Verify valida firma, algoritmo, vencimiento y emisor.
func (c *Codec) Verify(raw string) (Identity, error) {
	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(c.now),
	}
	if c.issuer != "" {
		opts = append(opts, jwt.WithIssuer(c.issuer))
	}
	var cl claims
	if _, err := jwt.ParseWithClaims(raw, &cl, func(*jwt.Token) (any, error) { return c.secret, nil }, opts...); err != nil {
		return Identity{}, fmt.Errorf("jwt: %w", err)
	}
	if cl.Subject == "" || cl.CompanyID == "" {
		return Identity{}, errors.New("jwt: token sin usuario o empresa")
	}
	return Identity{UserID: cl.Subject, CompanyID: cl.CompanyID, Role: cl.Role}, nil
}
