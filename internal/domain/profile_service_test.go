package domain_test

import (
	"bytes"
	"context"
	"io"
	"testing"

	"github.com/praxis/backend/internal/domain"
	"github.com/praxis/backend/pkg/validator"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type memFiles struct {
	saved   map[string][]byte
	deleted []string
}

func (m *memFiles) SaveFile(_ context.Context, file io.Reader, filename, _ string) (string, error) {
	b, err := io.ReadAll(file)
	if err != nil {
		return "", err
	}
	if m.saved == nil {
		m.saved = map[string][]byte{}
	}
	url := "https://cdn.test/" + filename
	m.saved[url] = b
	return url, nil
}

func (m *memFiles) DeleteFile(_ context.Context, fileURL string) error {
	m.deleted = append(m.deleted, fileURL)
	return nil
}

func ptr[T any](v T) *T { return &v }

func newProfileService(t *testing.T, f *fixture) (*domain.ProfileService, *memFiles) {
	t.Helper()
	files := &memFiles{}
	return domain.NewProfileService(f.repo, files, zap.NewNop()), files
}

func TestCreateInitialProfile(t *testing.T) {
	f := newFixture(t)
	svc, _ := newProfileService(t, f)
	ctx := context.Background()

	_, err := svc.CreateInitialProfile(ctx, "u1", "Avery", "avery@example.com", "")
	require.NoError(t, err)

	p, err := svc.GetProfile(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, "Avery", p.Name)
	assert.Equal(t, "", p.Bio)
	assert.Equal(t, []string{}, p.Skills)
	assert.Equal(t, []string{}, p.WantsToLearn)
	assert.False(t, p.ProfileComplete)
	assert.True(t, p.NeedsOnboarding())
	assert.Equal(t, domain.DefaultSettings(), p.Settings)
	assert.False(t, p.CreatedAt.IsZero())
}

func TestEnsureProfile(t *testing.T) {
	f := newFixture(t)
	svc, _ := newProfileService(t, f)
	ctx := context.Background()

	_, created, err := svc.EnsureProfile(ctx, "u1", "Avery", "avery@example.com", "")
	require.NoError(t, err)
	assert.True(t, created)

	p, created, err := svc.EnsureProfile(ctx, "u1", "Other", "other@example.com", "")
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, "Avery", p.Name)
}

func TestUpdateProfile(t *testing.T) {
	f := newFixture(t)
	svc, _ := newProfileService(t, f)
	ctx := context.Background()
	seedProfile(t, f, "u1", []string{"Go"}, nil)

	p, err := svc.UpdateProfile(ctx, "u1", domain.UpdateProfileParams{
		Bio:          ptr("  I teach Go  "),
		WantsToLearn: &[]string{" Design ", "Design", "", "design"},
	})
	require.NoError(t, err)
	assert.Equal(t, "User u1", p.Name)
	assert.Equal(t, "I teach Go", p.Bio)
	assert.Equal(t, []string{"Go"}, p.Skills)
	assert.Equal(t, []string{"Design", "design"}, p.WantsToLearn)

	_, err = svc.UpdateProfile(ctx, "u1", domain.UpdateProfileParams{Name: ptr("x")})
	var verrs validator.ValidationErrors
	require.ErrorAs(t, err, &verrs)
	assert.Equal(t, "name", verrs[0].Field)

	_, err = svc.UpdateProfile(ctx, "missing", domain.UpdateProfileParams{Bio: ptr("hi")})
	assert.ErrorIs(t, err, domain.ErrProfileNotFound)
}

func TestCompleteOnboarding(t *testing.T) {
	f := newFixture(t)
	svc, _ := newProfileService(t, f)
	ctx := context.Background()
	_, err := svc.CreateInitialProfile(ctx, "u1", "Avery", "", "")
	require.NoError(t, err)

	p, err := svc.CompleteOnboarding(ctx, "u1", []string{"Python"}, []string{"Design"})
	require.NoError(t, err)
	assert.True(t, p.ProfileComplete)
	assert.False(t, p.NeedsOnboarding())
	assert.Equal(t, []string{"Python"}, p.Skills)
}

func TestUpdateSettings(t *testing.T) {
	f := newFixture(t)
	svc, _ := newProfileService(t, f)
	ctx := context.Background()
	seedProfile(t, f, "u1", nil, nil)

	settings := domain.Settings{ProfileVisibility: domain.VisibilityPrivate, Theme: domain.ThemeSystem}
	_, err := svc.UpdateSettings(ctx, "u1", settings)
	require.NoError(t, err)

	p, err := svc.GetProfile(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, settings, p.Settings)

	_, err = svc.UpdateSettings(ctx, "u1", domain.Settings{ProfileVisibility: "everyone", Theme: domain.ThemeDark})
	assert.ErrorIs(t, err, domain.ErrInvalidSettings)
}

func TestSetAvatar_ReplacesPrevious(t *testing.T) {
	f := newFixture(t)
	svc, files := newProfileService(t, f)
	ctx := context.Background()
	seedProfile(t, f, "u1", nil, nil)

	first, err := svc.SetAvatar(ctx, "u1", bytes.NewReader([]byte("one")), "one.png", "image/png")
	require.NoError(t, err)
	second, err := svc.SetAvatar(ctx, "u1", bytes.NewReader([]byte("two")), "two.png", "image/png")
	require.NoError(t, err)

	p, err := svc.GetProfile(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, second, p.AvatarURL)
	assert.Equal(t, []string{first}, files.deleted)
	assert.Equal(t, []byte("two"), files.saved[second])
}

func TestRegisterFCMToken(t *testing.T) {
	f := newFixture(t)
	svc, _ := newProfileService(t, f)
	ctx := context.Background()
	seedProfile(t, f, "u1", nil, nil)

	require.NoError(t, svc.RegisterFCMToken(ctx, "u1", "tok"))
	require.NoError(t, svc.RegisterFCMToken(ctx, "u1", "tok"))
	assert.Error(t, svc.RegisterFCMToken(ctx, "u1", ""))

	p, err := svc.GetProfile(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, []string{"tok"}, p.FCMTokens)
}
