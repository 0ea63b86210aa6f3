package domain

import (
	"context"
	"errors"
	"fmt"

	"github.com/praxis/backend/internal/auth"
	"go.uber.org/zap"
)

// IdentityProvider is the external account system
type IdentityProvider interface {
	CreateUser(ctx context.Context, email, password, name string) (*auth.Identity, error)
	CreateFederatedUser(ctx context.Context, id auth.Identity) (*auth.Identity, error)
	GetUserByEmail(ctx context.Context, email string) (*auth.Identity, error)
	CustomToken(ctx context.Context, uid string) (string, error)
	RevokeSessions(ctx context.Context, uid string) error
	PasswordResetLink(ctx context.Context, email string) (string, error)
}

// GoogleVerifier validates Google ID tokens
type GoogleVerifier interface {
	VerifyIDToken(ctx context.Context, idToken string) (*auth.GoogleUser, error)
}

// AuthResult is returned by every sign-in path. The client exchanges
// CustomToken for a provider session.
type AuthResult struct {
	Profile         *Profile `json:"profile"`
	CustomToken     string   `json:"customToken"`
	IsNewUser       bool     `json:"isNewUser"`
	NeedsOnboarding bool     `json:"needsOnboarding"`
}

// AuthService handles account creation and sign-in on top of the identity provider
type AuthService struct {
	identity IdentityProvider
	google   GoogleVerifier
	profiles *ProfileService
	logger   *zap.Logger
}

func NewAuthService(identity IdentityProvider, google GoogleVerifier, profiles *ProfileService, logger *zap.Logger) *AuthService {
	return &AuthService{
		identity: identity,
		google:   google,
		profiles: profiles,
		logger:   logger,
	}
}

// Register creates an email/password account and its empty profile
func (s *AuthService) Register(ctx context.Context, email, password, name string) (*AuthResult, error) {
	id, err := s.identity.CreateUser(ctx, email, password, name)
	if err != nil {
		if errors.Is(err, auth.ErrEmailExists) {
			return nil, ErrUserAlreadyExists
		}
		return nil, err
	}

	profile, err := s.profiles.CreateInitialProfile(ctx, id.UID, name, email, "")
	if err != nil {
		// No compensation: the account stays without a profile until a Google sign-in recreates it.
		s.logger.Error("account created without profile", zap.String("user_id", id.UID), zap.Error(err))
		return nil, err
	}

	return s.signIn(ctx, profile, true)
}

// GoogleLogin verifies a Google ID token, creating the account and profile on first use
func (s *AuthService) GoogleLogin(ctx context.Context, idToken string) (*AuthResult, error) {
	gu, err := s.google.VerifyIDToken(ctx, idToken)
	if err != nil {
		return nil, ErrInvalidCredentials
	}
	return s.LoginWithGoogleUser(ctx, gu)
}

// LoginWithGoogleUser signs in an already verified Google identity
func (s *AuthService) LoginWithGoogleUser(ctx context.Context, gu *auth.GoogleUser) (*AuthResult, error) {
	id, err := s.identity.GetUserByEmail(ctx, gu.Email)
	if errors.Is(err, auth.ErrIdentityNotFound) {
		id, err = s.identity.CreateFederatedUser(ctx, auth.Identity{
			Email:         gu.Email,
			Name:          gu.Name,
			PhotoURL:      gu.Picture,
			EmailVerified: gu.EmailVerified,
		})
	}
	if err != nil {
		return nil, fmt.Errorf("resolve google identity: %w", err)
	}

	name := gu.Name
	if name == "" {
		name = id.Name
	}
	profile, created, err := s.profiles.EnsureProfile(ctx, id.UID, name, gu.Email, gu.Picture)
	if err != nil {
		return nil, err
	}
	return s.signIn(ctx, profile, created)
}

// LogoutAll revokes every session of userID
func (s *AuthService) LogoutAll(ctx context.Context, userID string) error {
	return s.identity.RevokeSessions(ctx, userID)
}

// PasswordResetLink returns a reset link, or ErrUserNotFound if no account uses email
func (s *AuthService) PasswordResetLink(ctx context.Context, email string) (string, error) {
	link, err := s.identity.PasswordResetLink(ctx, email)
	if err != nil {
		if errors.Is(err, auth.ErrIdentityNotFound) {
			return "", ErrUserNotFound
		}
		return "", err
	}
	return link, nil
}

func (s *AuthService) signIn(ctx context.Context, profile *Profile, isNew bool) (*AuthResult, error) {
	token, err := s.identity.CustomToken(ctx, profile.ID)
	if err != nil {
		return nil, fmt.Errorf("mint custom token: %w", err)
	}
	return &AuthResult{
		Profile:         profile,
		CustomToken:     token,
		IsNewUser:       isNew,
		NeedsOnboarding: profile.NeedsOnboarding(),
	}, nil
}
