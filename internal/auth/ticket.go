package auth

import (
	"crypto/rand"
	"encoding/base64"
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

var (
	ErrInvalidToken = errors.New("invalid token")
	ErrExpiredToken = errors.New("token has expired")
)

const ticketAudience = "ws"

// TicketClaims identify the user a WebSocket upgrade belongs to
type TicketClaims struct {
	UserID string `json:"uid"`
	jwt.RegisteredClaims
}

// TicketManager signs short-lived WebSocket tickets. Browsers cannot attach an
// Authorization header to a WebSocket handshake, so an authenticated client
// first exchanges its ID token for a ticket and passes it as a query parameter.
type TicketManager struct {
	secret []byte
	expiry time.Duration
	issuer string
}

func NewTicketManager(secret string, expiry time.Duration) *TicketManager {
	return &TicketManager{
		secret: []byte(secret),
		expiry: expiry,
		issuer: "praxis",
	}
}

// Issue returns a signed ticket for userID and its expiry
func (m *TicketManager) Issue(userID string) (string, time.Time, error) {
	now := time.Now()
	expiresAt := now.Add(m.expiry)
	claims := &TicketClaims{
		UserID: userID,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Subject:   userID,
			Issuer:    m.issuer,
			Audience:  jwt.ClaimStrings{ticketAudience},
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(m.secret)
	return signed, expiresAt, err
}

// Validate checks a ticket and returns the user it was issued to
func (m *TicketManager) Validate(ticket string) (string, error) {
	token, err := jwt.ParseWithClaims(ticket, &TicketClaims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrInvalidToken
		}
		return m.secret, nil
	},
		jwt.WithIssuer(m.issuer),
		jwt.WithAudience(ticketAudience),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return "", ErrExpiredToken
		}
		return "", ErrInvalidToken
	}

	claims, ok := token.Claims.(*TicketClaims)
	if !ok || !token.Valid || claims.UserID == "" {
		return "", ErrInvalidToken
	}
	return claims.UserID, nil
}

// GenerateSecureToken returns a random URL-safe token of length bytes
func GenerateSecureToken(length int) (string, error) {
	b := make([]byte, length)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}
