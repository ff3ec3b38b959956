package logic

import (
	"context"
	"testing"

	"github.com/ANTONINEUTRON/tita-flow-sub001/internal/apperror"
	"github.com/ANTONINEUTRON/tita-flow-sub001/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func strPtr(s string) *string { return &s }
func boolPtr(b bool) *bool    { return &b }

func TestUpdateProfile(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	require.NoError(t, f.userRepo.Create(ctx, &model.UserModel{
		Id:          "user-1",
		CreatedAt:   testNow,
		UpdatedAt:   testNow,
		Preferences: model.DefaultPreferences(),
	}))

	_, err := f.users.UpdateProfile(ctx, "user-2", "user-1", ProfileInput{Name: strPtr("Mallory")})
	assert.True(t, apperror.Is(err, apperror.KindForbidden))

	_, err = f.users.UpdateProfile(ctx, "user-1", "user-1", ProfileInput{
		Email: strPtr("not an email"),
		Preferences: &PreferencesInput{
			DisplayCurrency: strPtr("EUR"),
			Timezone:        strPtr("Mars/Olympus"),
		},
	})
	fields := violationFields(t, err)
	assert.ElementsMatch(t, []string{"email", "preferences.display_currency", "preferences.timezone"}, fields)

	updated, err := f.users.UpdateProfile(ctx, "user-1", "user-1", ProfileInput{
		Email:    strPtr("ada@example.com"),
		Username: strPtr("ada"),
		Preferences: &PreferencesInput{
			Email:           boolPtr(false),
			DisplayCurrency: strPtr("sol"),
			Timezone:        strPtr("Africa/Lagos"),
		},
	})
	require.NoError(t, err)
	assert.Equal(t, "SOL", updated.Preferences.DisplayCurrency)

	got, err := f.users.GetProfile(ctx, "user-1")
	require.NoError(t, err)
	assert.Equal(t, "ada@example.com", got.Email)
	assert.Equal(t, "ada", got.Username)
	assert.False(t, got.Preferences.EmailNotifications)
	assert.Equal(t, "Africa/Lagos", got.Preferences.Timezone)

	_, err = f.users.GetProfile(ctx, "nobody")
	assert.True(t, apperror.Is(err, apperror.KindNotFound))
}
