package services

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/brocketdesign/rakubun-sub003/src/models"
)

// SessionService verifies signed session tokens issued by the identity
// provider. It never issues business credentials itself; token minting is
// exposed only so tests and local tooling can produce valid tokens.
type SessionService struct {
	jwtSecret string
}

// NewSessionService creates a new session service
func NewSessionService(jwtSecret string) *SessionService {
	return &SessionService{jwtSecret: jwtSecret}
}

// SessionClaims contains the JWT claims carried by a session token
type SessionClaims struct {
	UserID string `json:"user_id"`
	jwt.RegisteredClaims
}

// VerifySession validates a session token and returns the caller identity.
// Missing, malformed, expired, and badly-signed tokens all collapse into
// ErrAuthentication: the caller sees one generic failure, same as the API
// key path.
func (s *SessionService) VerifySession(tokenString string) (*models.CallerIdentity, error) {
	if tokenString == "" {
		return nil, ErrAuthentication
	}

	claims := &SessionClaims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return []byte(s.jwtSecret), nil
	})
	if err != nil || !token.Valid || claims.UserID == "" {
		return nil, ErrAuthentication
	}

	return &models.CallerIdentity{OwnerID: claims.UserID}, nil
}

// MintSession creates a signed session token for userID, valid for ttl.
// Production tokens come from the identity provider; this exists for tests
// and the local development flow.
func (s *SessionService) MintSession(userID string, ttl time.Duration) (string, error) {
	claims := SessionClaims{
		UserID: userID,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(ttl)),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
			Issuer:    "rakubun",
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(s.jwtSecret))
}
