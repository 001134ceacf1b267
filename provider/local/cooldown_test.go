package local

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCoolDownExpired(t *testing.T) {
	tests := []struct {
		name    string
		last    time.Time
		window  string
		expired bool
	}{
		{
			name:    "inside window",
			last:    time.Now().Add(-30 * time.Minute),
			window:  "1h",
			expired: false,
		},
		{
			name:    "outside window",
			last:    time.Now().Add(-25 * time.Hour),
			window:  "24h",
			expired: true,
		},
		{
			name:    "compound expression",
			last:    time.Now().Add(-2 * time.Hour),
			window:  "2h30m",
			expired: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			expired, err := coolDownExpired(tt.last, tt.window)
			require.NoError(t, err)
			assert.Equal(t, tt.expired, expired)
		})
	}
}

func TestCoolDownExpiredBadExpression(t *testing.T) {
	_, err := coolDownExpired(time.Now(), "not-a-duration")
	assert.Error(t, err)
}
