package p2c

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultProfile_Production(t *testing.T) {
	profile := DefaultProfile(EnvironmentProduction)

	assert.Equal(t, EnvironmentProduction, profile.Environment)
	assert.Equal(t, 30*time.Second, profile.Timeout)
	assert.Equal(t, 3, profile.MaxAttempts)
	assert.Equal(t, 2*time.Second, profile.BackoffBase)
	assert.True(t, profile.IsProduction())
}

func TestDefaultProfile_Test(t *testing.T) {
	profile := DefaultProfile(EnvironmentTest)

	assert.Equal(t, EnvironmentTest, profile.Environment)
	assert.Equal(t, 15*time.Second, profile.Timeout)
	assert.Equal(t, 2, profile.MaxAttempts)
	assert.Equal(t, 1*time.Second, profile.BackoffBase)
	assert.False(t, profile.IsProduction())
}

func TestDefaultProfile_UnknownEnvironmentFailsFast(t *testing.T) {
	profile := DefaultProfile(Environment("staging"))

	// Anything that isn't production gets the fail-fast posture
	assert.Equal(t, EnvironmentTest, profile.Environment)
	assert.Equal(t, 2, profile.MaxAttempts)
}

func validProfile() Profile {
	profile := DefaultProfile(EnvironmentTest)
	profile.BaseURL = "https://sandbox.example.com/p2c"
	profile.Username = "commerce"
	profile.Password = "secret"
	profile.Affiliation = "1234567"
	profile.CommercePhone = "04140000000"
	profile.CommerceBank = "0102"
	return profile
}

func TestProfileValidate(t *testing.T) {
	require.NoError(t, validProfile().Validate())

	tests := []struct {
		name    string
		mutate  func(*Profile)
		wantErr string
	}{
		{"missing_base_url", func(p *Profile) { p.BaseURL = "" }, "base URL"},
		{"missing_username", func(p *Profile) { p.Username = "" }, "credentials"},
		{"missing_password", func(p *Profile) { p.Password = "" }, "credentials"},
		{"missing_affiliation", func(p *Profile) { p.Affiliation = "" }, "affiliation"},
		{"zero_attempts", func(p *Profile) { p.MaxAttempts = 0 }, "attempts"},
		{"zero_timeout", func(p *Profile) { p.Timeout = 0 }, "timeout"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			profile := validProfile()
			tt.mutate(&profile)

			err := profile.Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}
