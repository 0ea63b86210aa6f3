package auth

import (
	"context"
	"errors"
	"fmt"

	firebaseauth "firebase.google.com/go/v4/auth"
)

var (
	ErrEmailExists      = errors.New("email already in use")
	ErrIdentityNotFound = errors.New("identity not found")
)

// Identity is an account held by the identity provider
type Identity struct {
	UID           string
	Email         string
	Name          string
	PhotoURL      string
	EmailVerified bool
}

// FirebaseAuth verifies Firebase ID tokens and manages Firebase Auth accounts
type FirebaseAuth struct {
	client *firebaseauth.Client
}

func NewFirebaseAuth(client *firebaseauth.Client) *FirebaseAuth {
	return &FirebaseAuth{client: client}
}

// VerifyIDToken returns the uid of a valid, unrevoked ID token
func (f *FirebaseAuth) VerifyIDToken(ctx context.Context, idToken string) (string, error) {
	token, err := f.client.VerifyIDTokenAndCheckRevoked(ctx, idToken)
	if err != nil {
		if firebaseauth.IsIDTokenExpired(err) {
			return "", ErrExpiredToken
		}
		return "", ErrInvalidToken
	}
	return token.UID, nil
}

func (f *FirebaseAuth) CreateUser(ctx context.Context, email, password, name string) (*Identity, error) {
	params := (&firebaseauth.UserToCreate{}).
		Email(email).
		Password(password).
		DisplayName(name)
	rec, err := f.client.CreateUser(ctx, params)
	if err != nil {
		if firebaseauth.IsEmailAlreadyExists(err) {
			return nil, ErrEmailExists
		}
		return nil, fmt.Errorf("create firebase user: %w", err)
	}
	return identityFromRecord(rec), nil
}

// CreateFederatedUser creates a password-less account for a user who signed in with Google
func (f *FirebaseAuth) CreateFederatedUser(ctx context.Context, id Identity) (*Identity, error) {
	params := (&firebaseauth.UserToCreate{}).
		Email(id.Email).
		EmailVerified(id.EmailVerified)
	if id.Name != "" {
		params = params.DisplayName(id.Name)
	}
	if id.PhotoURL != "" {
		params = params.PhotoURL(id.PhotoURL)
	}
	rec, err := f.client.CreateUser(ctx, params)
	if err != nil {
		if firebaseauth.IsEmailAlreadyExists(err) {
			return nil, ErrEmailExists
		}
		return nil, fmt.Errorf("create firebase user: %w", err)
	}
	return identityFromRecord(rec), nil
}

func (f *FirebaseAuth) GetUserByEmail(ctx context.Context, email string) (*Identity, error) {
	rec, err := f.client.GetUserByEmail(ctx, email)
	if err != nil {
		if firebaseauth.IsUserNotFound(err) {
			return nil, ErrIdentityNotFound
		}
		return nil, fmt.Errorf("get firebase user: %w", err)
	}
	return identityFromRecord(rec), nil
}

// CustomToken mints a token the client exchanges for a Firebase session
func (f *FirebaseAuth) CustomToken(ctx context.Context, uid string) (string, error) {
	return f.client.CustomToken(ctx, uid)
}

// RevokeSessions invalidates every refresh token issued to uid
func (f *FirebaseAuth) RevokeSessions(ctx context.Context, uid string) error {
	return f.client.RevokeRefreshTokens(ctx, uid)
}

func (f *FirebaseAuth) PasswordResetLink(ctx context.Context, email string) (string, error) {
	link, err := f.client.PasswordResetLink(ctx, email)
	if err != nil {
		if firebaseauth.IsUserNotFound(err) {
			return "", ErrIdentityNotFound
		}
		return "", err
	}
	return link, nil
}

func identityFromRecord(rec *firebaseauth.UserRecord) *Identity {
	return &Identity{
		UID:           rec.UID,
		Email:         rec.Email,
		Name:          rec.DisplayName,
		PhotoURL:      rec.PhotoURL,
		EmailVerified: rec.EmailVerified,
	}
}
