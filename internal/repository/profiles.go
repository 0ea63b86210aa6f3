package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/praxis/backend/internal/domain"
	"github.com/praxis/backend/internal/store"
)

type profileDoc struct {
	Name            string           `json:"name"`
	Email           string           `json:"email,omitempty"`
	Bio             string           `json:"bio"`
	Skills          []string         `json:"skills"`
	WantsToLearn    []string         `json:"wantsToLearn"`
	AvatarURL       string           `json:"avatarUrl,omitempty"`
	ProfileComplete bool             `json:"profileComplete"`
	Settings        *domain.Settings `json:"settings,omitempty"`
	FCMTokens       []string         `json:"fcmTokens,omitempty"`
	CreatedAt       string           `json:"createdAt"`
}

func toProfile(d store.Document) (*domain.Profile, error) {
	var doc profileDoc
	if err := store.Decode(d.Data, &doc); err != nil {
		return nil, fmt.Errorf("user %s: %w", d.ID, err)
	}
	settings := domain.DefaultSettings()
	if doc.Settings != nil {
		settings = *doc.Settings
	}
	skills := doc.Skills
	if skills == nil {
		skills = []string{}
	}
	wants := doc.WantsToLearn
	if wants == nil {
		wants = []string{}
	}
	return &domain.Profile{
		ID:              d.ID,
		Name:            doc.Name,
		Email:           doc.Email,
		Bio:             doc.Bio,
		Skills:          skills,
		WantsToLearn:    wants,
		AvatarURL:       doc.AvatarURL,
		ProfileComplete: doc.ProfileComplete,
		Settings:        settings,
		FCMTokens:       doc.FCMTokens,
		CreatedAt:       parseTime(doc.CreatedAt),
	}, nil
}

// CreateProfile writes the profile document keyed by the user's uid
func (r *DocumentRepository) CreateProfile(ctx context.Context, p *domain.Profile) error {
	settings := p.Settings
	createdAt := p.CreatedAt
	if createdAt.IsZero() {
		createdAt = r.now()
	}
	data, err := store.Encode(profileDoc{
		Name:            p.Name,
		Email:           p.Email,
		Bio:             p.Bio,
		Skills:          nonNil(p.Skills),
		WantsToLearn:    nonNil(p.WantsToLearn),
		AvatarURL:       p.AvatarURL,
		ProfileComplete: p.ProfileComplete,
		Settings:        &settings,
		FCMTokens:       p.FCMTokens,
		CreatedAt:       formatTime(createdAt),
	})
	if err != nil {
		return err
	}
	return r.store.Set(ctx, usersCollection, p.ID, data)
}

func (r *DocumentRepository) GetProfile(ctx context.Context, userID string) (*domain.Profile, error) {
	d, err := r.store.Get(ctx, usersCollection, userID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, domain.ErrProfileNotFound
		}
		return nil, err
	}
	return toProfile(*d)
}

// ListProfiles reads the whole users collection
func (r *DocumentRepository) ListProfiles(ctx context.Context) ([]*domain.Profile, error) {
	docs, err := r.store.Query(ctx, store.Collection(usersCollection))
	if err != nil {
		return nil, err
	}
	return decodeAll(docs, toProfile)
}

func (r *DocumentRepository) UpdateProfile(ctx context.Context, userID string, fields domain.ProfileFields) error {
	update := map[string]interface{}{}
	if fields.Name != nil {
		update["name"] = *fields.Name
	}
	if fields.Bio != nil {
		update["bio"] = *fields.Bio
	}
	if fields.Skills != nil {
		update["skills"] = nonNil(*fields.Skills)
	}
	if fields.WantsToLearn != nil {
		update["wantsToLearn"] = nonNil(*fields.WantsToLearn)
	}
	if fields.AvatarURL != nil {
		update["avatarUrl"] = *fields.AvatarURL
	}
	if fields.ProfileComplete != nil {
		update["profileComplete"] = *fields.ProfileComplete
	}
	if fields.Settings != nil {
		settings, err := store.Encode(fields.Settings)
		if err != nil {
			return err
		}
		update["settings"] = settings
	}
	if len(update) == 0 {
		return nil
	}

	err := r.store.Update(ctx, usersCollection, userID, update)
	if errors.Is(err, store.ErrNotFound) {
		return domain.ErrProfileNotFound
	}
	return err
}

// AddFCMToken appends a device token unless it is already registered
func (r *DocumentRepository) AddFCMToken(ctx context.Context, userID, token string) error {
	p, err := r.GetProfile(ctx, userID)
	if err != nil {
		return err
	}
	for _, t := range p.FCMTokens {
		if t == token {
			return nil
		}
	}
	tokens := append(p.FCMTokens, token)
	err = r.store.Update(ctx, usersCollection, userID, map[string]interface{}{"fcmTokens": tokens})
	if errors.Is(err, store.ErrNotFound) {
		return domain.ErrProfileNotFound
	}
	return err
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
