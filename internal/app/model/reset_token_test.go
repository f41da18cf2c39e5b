package model

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestResetToken_IsLive(t *testing.T) {
	now := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)

	tests := []struct {
		name      string
		expiresAt time.Time
		want      bool
	}{
		{"Expires later", now.Add(time.Minute), true},
		{"Expires exactly now", now, false},
		{"Already expired", now.Add(-time.Second), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			token := &ResetToken{ExpiresAt: tt.expiresAt}
			assert.Equal(t, tt.want, token.IsLive(now))
		})
	}
}
