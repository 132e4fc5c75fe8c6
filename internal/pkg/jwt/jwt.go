package jwt

import (
	"errors"
	"time"

	jwtlib "github.com/golang-jwt/jwt/v5"
)

type Service struct {
	secret      []byte
	ttl         time.Duration
	elevatedTTL time.Duration
}

type Claims struct {
	UID      string `json:"uid"`
	Role     string `json:"role"`
	Elevated bool   `json:"elevated,omitempty"`
	jwtlib.RegisteredClaims
}

func New(secret string, ttl, elevatedTTL time.Duration) *Service {
	return &Service{
		secret:      []byte(secret),
		ttl:         ttl,
		elevatedTTL: elevatedTTL,
	}
}

func (s *Service) GenerateToken(uid, role string) (string, error) {
	return s.sign(uid, role, false, s.ttl)
}

// GenerateElevatedToken mints the short-lived token handed out by the
// panel unlock. Elevation never outlives elevatedTTL; the client falls
// back to its plain token afterwards.
func (s *Service) GenerateElevatedToken(uid, role string) (string, error) {
	return s.sign(uid, role, true, s.elevatedTTL)
}

func (s *Service) sign(uid, role string, elevated bool, ttl time.Duration) (string, error) {
	claims := Claims{
		UID:      uid,
		Role:     role,
		Elevated: elevated,
		RegisteredClaims: jwtlib.RegisteredClaims{
			ExpiresAt: jwtlib.NewNumericDate(time.Now().Add(ttl)),
			IssuedAt:  jwtlib.NewNumericDate(time.Now()),
		},
	}

	token := jwtlib.NewWithClaims(jwtlib.SigningMethodHS256, claims)
	return token.SignedString(s.secret)
}

func (s *Service) ValidateToken(tokenStr string) (*Claims, error) {
	token, err := jwtlib.ParseWithClaims(tokenStr, &Claims{}, func(t *jwtlib.Token) (any, error) {
		return s.secret, nil
	})
	if err != nil || !token.Valid {
		return nil, errors.New("invalid token")
	}

	claims, ok := token.Claims.(*Claims)
	if !ok {
		return nil, errors.New("invalid claims")
	}

	return claims, nil
}
