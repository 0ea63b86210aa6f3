package domain

import (
	"context"
	"time"
)

// Profile is a user's skill-swap profile, keyed by the auth provider's uid
type Profile struct {
	ID              string    `json:"id"`
	Name            string    `json:"name"`
	Email           string    `json:"email,omitempty"`
	Bio             string    `json:"bio"`
	Skills          []string  `json:"skills"`
	WantsToLearn    []string  `json:"wantsToLearn"`
	AvatarURL       string    `json:"avatarUrl,omitempty"`
	ProfileComplete bool      `json:"profileComplete"`
	Settings        Settings  `json:"settings"`
	FCMTokens       []string  `json:"-"`
	CreatedAt       time.Time `json:"createdAt"`
}

// PublicProfile is what other users see
type PublicProfile struct {
	ID           string    `json:"id"`
	Name         string    `json:"name"`
	Bio          string    `json:"bio"`
	Skills       []string  `json:"skills"`
	WantsToLearn []string  `json:"wantsToLearn"`
	AvatarURL    string    `json:"avatarUrl,omitempty"`
	CreatedAt    time.Time `json:"createdAt"`
}

// ToPublic converts a Profile to its public representation
func (p *Profile) ToPublic() *PublicProfile {
	return &PublicProfile{
		ID:           p.ID,
		Name:         p.Name,
		Bio:          p.Bio,
		Skills:       nonNil(p.Skills),
		WantsToLearn: nonNil(p.WantsToLearn),
		AvatarURL:    p.AvatarURL,
		CreatedAt:    p.CreatedAt,
	}
}

// NeedsOnboarding reports whether the profile has neither skill list filled in
func (p *Profile) NeedsOnboarding() bool {
	return len(p.Skills) == 0 && len(p.WantsToLearn) == 0
}

const (
	VisibilityPublic      = "public"
	VisibilityConnections = "connections"
	VisibilityPrivate     = "private"

	ThemeDark   = "dark"
	ThemeSystem = "system"
)

// Settings are per-user preferences
type Settings struct {
	NotificationsEmail bool   `json:"notificationsEmail"`
	NotificationsPush  bool   `json:"notificationsPush"`
	ProfileVisibility  string `json:"profileVisibility"`
	Theme              string `json:"theme"`
}

// DefaultSettings returns the settings a new profile starts with
func DefaultSettings() Settings {
	return Settings{
		NotificationsEmail: true,
		NotificationsPush:  true,
		ProfileVisibility:  VisibilityPublic,
		Theme:              ThemeDark,
	}
}

// Validate checks enumerated settings values
func (s Settings) Validate() error {
	switch s.ProfileVisibility {
	case VisibilityPublic, VisibilityConnections, VisibilityPrivate:
	default:
		return ErrInvalidSettings
	}
	switch s.Theme {
	case ThemeDark, ThemeSystem:
	default:
		return ErrInvalidSettings
	}
	return nil
}

// ProfileFields is a partial profile update; nil fields are left unchanged
type ProfileFields struct {
	Name            *string
	Bio             *string
	Skills          *[]string
	WantsToLearn    *[]string
	AvatarURL       *string
	ProfileComplete *bool
	Settings        *Settings
}

// ProfileRepository is the Profile Store Adapter over the users collection
type ProfileRepository interface {
	CreateProfile(ctx context.Context, profile *Profile) error
	GetProfile(ctx context.Context, userID string) (*Profile, error)
	ListProfiles(ctx context.Context) ([]*Profile, error)
	UpdateProfile(ctx context.Context, userID string, fields ProfileFields) error
	AddFCMToken(ctx context.Context, userID, token string) error
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
