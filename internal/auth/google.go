package auth

import (
	"context"
	"errors"

	"google.golang.org/api/idtoken"
)

var (
	ErrInvalidGoogleToken = errors.New("invalid Google ID token")
	ErrGoogleEmailMissing = errors.New("email not found in Google token")
)

// GoogleUser is the identity asserted by a Google ID token
type GoogleUser struct {
	GoogleID      string
	Email         string
	EmailVerified bool
	Name          string
	Picture       string
}

// GoogleAuthVerifier validates Google ID tokens against the configured client IDs
type GoogleAuthVerifier struct {
	clientIDs []string
	validate  func(ctx context.Context, token, audience string) (*idtoken.Payload, error)
}

func NewGoogleAuthVerifier(clientIDs []string) *GoogleAuthVerifier {
	ids := make([]string, 0, len(clientIDs))
	for _, id := range clientIDs {
		if id != "" {
			ids = append(ids, id)
		}
	}
	return &GoogleAuthVerifier{
		clientIDs: ids,
		validate:  idtoken.Validate,
	}
}

// VerifyIDToken accepts a token issued to any of the configured clients
func (v *GoogleAuthVerifier) VerifyIDToken(ctx context.Context, idToken string) (*GoogleUser, error) {
	for _, clientID := range v.clientIDs {
		payload, err := v.validate(ctx, idToken, clientID)
		if err == nil {
			return googleUserFromClaims(payload.Claims)
		}
	}
	return nil, ErrInvalidGoogleToken
}

func (v *GoogleAuthVerifier) IsConfigured() bool {
	return len(v.clientIDs) > 0
}

func googleUserFromClaims(claims map[string]interface{}) (*GoogleUser, error) {
	sub, _ := claims["sub"].(string)
	if sub == "" {
		return nil, ErrInvalidGoogleToken
	}
	email, _ := claims["email"].(string)
	if email == "" {
		return nil, ErrGoogleEmailMissing
	}

	u := &GoogleUser{GoogleID: sub, Email: email}
	u.EmailVerified, _ = claims["email_verified"].(bool)
	u.Name, _ = claims["name"].(string)
	u.Picture, _ = claims["picture"].(string)
	return u, nil
}
