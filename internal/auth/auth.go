package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/eventorias/eventorias/internal/event"
	"github.com/golang-jwt/jwt/v5"
)

var ErrInvalidToken = errors.New("invalid token")

// Auth exposes the identity of the caller the operation runs on behalf of.
// Consumed read-only; sign-in itself happens outside this service.
type Auth interface {
	CurrentUser() event.Userdata
}

// StaticAuth is a fixed identity, used by tools and tests.
type StaticAuth struct {
	User event.Userdata
}

func (a StaticAuth) CurrentUser() event.Userdata {
	return a.User
}

// TokenVerifier validates HS256 bearer tokens and extracts the Userdata
// carried in their claims.
type TokenVerifier struct {
	secret []byte
}

func NewTokenVerifier(secret string) *TokenVerifier {
	return &TokenVerifier{secret: []byte(secret)}
}

// Verify parses and validates a token string. The subject claim is required;
// the profile claims are optional and default to empty.
func (v *TokenVerifier) Verify(tokenStr string) (event.Userdata, error) {
	token, err := jwt.Parse(tokenStr, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return v.secret, nil
	})
	if err != nil || !token.Valid {
		return event.Userdata{}, ErrInvalidToken
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return event.Userdata{}, ErrInvalidToken
	}
	sub, ok := claims["sub"].(string)
	if !ok || sub == "" {
		return event.Userdata{}, ErrInvalidToken
	}

	name, _ := claims["name"].(string)
	email, _ := claims["email"].(string)
	picture, _ := claims["picture"].(string)
	photo, _ := claims["photo"].(string)
	return event.Userdata{
		UserID:            sub,
		Username:          name,
		Email:             email,
		ProfilePictureURL: picture,
		PhotoURL:          photo,
	}, nil
}

// Mint signs a token for the given identity. Used by tests and the local
// tooling; production tokens come from the identity provider.
func Mint(secret string, user event.Userdata, ttl time.Duration) (string, error) {
	claims := jwt.MapClaims{
		"sub":     user.UserID,
		"name":    user.Username,
		"email":   user.Email,
		"picture": user.ProfilePictureURL,
		"photo":   user.PhotoURL,
		"iat":     time.Now().Unix(),
		"iss":     "eventorias",
		"exp":     time.Now().Add(ttl).Unix(),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(secret))
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}
	return signed, nil
}
