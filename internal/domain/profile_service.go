package domain

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/praxis/backend/internal/storage"
	"github.com/praxis/backend/pkg/validator"
	"go.uber.org/zap"
)

// UpdateProfileParams holds the user-editable profile fields; nil means unchanged
type UpdateProfileParams struct {
	Name         *string   `json:"name"`
	Bio          *string   `json:"bio"`
	Skills       *[]string `json:"skills"`
	WantsToLearn *[]string `json:"wantsToLearn"`
}

type ProfileService struct {
	repo    ProfileRepository
	storage storage.FileStorage
	logger  *zap.Logger
}

func NewProfileService(repo ProfileRepository, storage storage.FileStorage, logger *zap.Logger) *ProfileService {
	return &ProfileService{
		repo:    repo,
		storage: storage,
		logger:  logger,
	}
}

func (s *ProfileService) GetProfile(ctx context.Context, userID string) (*Profile, error) {
	return s.repo.GetProfile(ctx, userID)
}

// GetPublicProfile returns what another user may see of userID
func (s *ProfileService) GetPublicProfile(ctx context.Context, userID string) (*PublicProfile, error) {
	p, err := s.repo.GetProfile(ctx, userID)
	if err != nil {
		return nil, err
	}
	return p.ToPublic(), nil
}

// CreateInitialProfile writes the document a new account starts with
func (s *ProfileService) CreateInitialProfile(ctx context.Context, userID, name, email, avatarURL string) (*Profile, error) {
	p := &Profile{
		ID:           userID,
		Name:         name,
		Email:        email,
		Skills:       []string{},
		WantsToLearn: []string{},
		AvatarURL:    avatarURL,
		Settings:     DefaultSettings(),
		CreatedAt:    time.Now().UTC(),
	}
	if err := s.repo.CreateProfile(ctx, p); err != nil {
		return nil, fmt.Errorf("create profile: %w", err)
	}
	return p, nil
}

// EnsureProfile returns the existing profile or creates an initial one.
// The boolean reports whether a profile was created.
func (s *ProfileService) EnsureProfile(ctx context.Context, userID, name, email, avatarURL string) (*Profile, bool, error) {
	p, err := s.repo.GetProfile(ctx, userID)
	if err == nil {
		return p, false, nil
	}
	if !errors.Is(err, ErrProfileNotFound) {
		return nil, false, err
	}
	p, err = s.CreateInitialProfile(ctx, userID, name, email, avatarURL)
	if err != nil {
		return nil, false, err
	}
	return p, true, nil
}

// UpdateProfile validates and applies an edit from the profile page
func (s *ProfileService) UpdateProfile(ctx context.Context, userID string, params UpdateProfileParams) (*Profile, error) {
	var errs validator.ValidationErrors
	var fields ProfileFields

	if params.Name != nil {
		name := validator.SanitizeString(*params.Name, 100)
		if !validator.ValidateName(name) {
			errs.Add("name", "must be between 2 and 100 characters")
		}
		fields.Name = &name
	}
	if params.Bio != nil {
		bio := validator.SanitizeString(*params.Bio, validator.MaxBioLength)
		fields.Bio = &bio
	}
	if params.Skills != nil {
		skills := validator.NormalizeSkills(*params.Skills)
		errs = append(errs, validator.ValidateSkills("skills", skills)...)
		fields.Skills = &skills
	}
	if params.WantsToLearn != nil {
		wants := validator.NormalizeSkills(*params.WantsToLearn)
		errs = append(errs, validator.ValidateSkills("wantsToLearn", wants)...)
		fields.WantsToLearn = &wants
	}
	if errs.HasErrors() {
		return nil, errs
	}

	if err := s.repo.UpdateProfile(ctx, userID, fields); err != nil {
		return nil, err
	}
	return s.repo.GetProfile(ctx, userID)
}

// CompleteOnboarding stores the initial skill lists and marks the profile complete
func (s *ProfileService) CompleteOnboarding(ctx context.Context, userID string, skills, wantsToLearn []string) (*Profile, error) {
	skills = validator.NormalizeSkills(skills)
	wantsToLearn = validator.NormalizeSkills(wantsToLearn)

	var errs validator.ValidationErrors
	errs = append(errs, validator.ValidateSkills("skills", skills)...)
	errs = append(errs, validator.ValidateSkills("wantsToLearn", wantsToLearn)...)
	if errs.HasErrors() {
		return nil, errs
	}

	complete := true
	err := s.repo.UpdateProfile(ctx, userID, ProfileFields{
		Skills:          &skills,
		WantsToLearn:    &wantsToLearn,
		ProfileComplete: &complete,
	})
	if err != nil {
		return nil, err
	}
	return s.repo.GetProfile(ctx, userID)
}

func (s *ProfileService) UpdateSettings(ctx context.Context, userID string, settings Settings) (*Settings, error) {
	if err := settings.Validate(); err != nil {
		return nil, err
	}
	if err := s.repo.UpdateProfile(ctx, userID, ProfileFields{Settings: &settings}); err != nil {
		return nil, err
	}
	return &settings, nil
}

// SetAvatar uploads a new avatar and removes the previous one on a best effort basis
func (s *ProfileService) SetAvatar(ctx context.Context, userID string, file io.Reader, filename, contentType string) (string, error) {
	current, err := s.repo.GetProfile(ctx, userID)
	if err != nil {
		return "", err
	}

	url, err := s.storage.SaveFile(ctx, file, filename, contentType)
	if err != nil {
		return "", fmt.Errorf("save avatar: %w", err)
	}
	if err := s.repo.UpdateProfile(ctx, userID, ProfileFields{AvatarURL: &url}); err != nil {
		return "", err
	}

	if current.AvatarURL != "" && current.AvatarURL != url {
		if err := s.storage.DeleteFile(ctx, current.AvatarURL); err != nil {
			s.logger.Warn("failed to delete previous avatar", zap.String("user_id", userID), zap.Error(err))
		}
	}
	return url, nil
}

func (s *ProfileService) RegisterFCMToken(ctx context.Context, userID, token string) error {
	if token == "" {
		return validator.ValidationErrors{{Field: "token", Message: "is required"}}
	}
	return s.repo.AddFCMToken(ctx, userID, token)
}
