package main

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIdentityFromEnv(t *testing.T) {
	t.Setenv("HUB_USER_ID", "")
	p, err := identityFromEnv()
	require.NoError(t, err)
	assert.Nil(t, p.Identity)

	t.Setenv("HUB_USER_ID", "123e4567-e89b-12d3-a456-426614174000")
	t.Setenv("HUB_USER_NAME", "Asha")
	p, err = identityFromEnv()
	require.NoError(t, err)
	require.NotNil(t, p.Identity)
	assert.Equal(t, "Asha", p.Identity.DisplayName)

	t.Setenv("HUB_USER_ID", "nope")
	_, err = identityFromEnv()
	assert.Error(t, err)
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "short", truncate("short", 10))
	assert.Equal(t, "Operati...", truncate("Operating Systems", 10))
}

func TestUsage(t *testing.T) {
	for _, cmd := range []string{"list", "upload", "download", "sweep", "catalog", "profile", "token"} {
		assert.Contains(t, usage, "\n  "+cmd+" ")
	}
	assert.True(t, strings.HasSuffix(usage, "\n"))
}
