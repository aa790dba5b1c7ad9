package model

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestParseRole(t *testing.T) {
	for _, s := range []string{"admin", "operator", "user", "guest"} {
		r, ok := ParseRole(s)
		assert.True(t, ok, s)
		assert.Equal(t, Role(s), r)
	}
	for _, s := range []string{"", "root", "ADMIN", "Admin", "superuser"} {
		_, ok := ParseRole(s)
		assert.False(t, ok, s)
	}
}

func TestInvitationExpired(t *testing.T) {
	now := time.Now().UTC()
	inv := Invitation{ExpiresAt: now.Add(time.Hour)}
	assert.False(t, inv.Expired(now))
	assert.True(t, inv.Expired(now.Add(time.Hour)))
	assert.True(t, inv.Expired(now.Add(2*time.Hour)))
}
