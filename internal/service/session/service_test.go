package session

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIssueAndValidate(t *testing.T) {
	svc := New()
	seen := make(map[string]bool)
	for i := 0; i < 100; i++ {
		id, err := svc.Issue()
		require.NoError(t, err)
		require.NoError(t, svc.Validate(id))
		require.False(t, seen[id], "duplicate id %s", id)
		seen[id] = true
	}
}

func TestValidateRejects(t *testing.T) {
	svc := New()
	id, err := svc.Issue()
	require.NoError(t, err)

	for _, bad := range []string{"", "short", id + "x", id[:len(id)-1] + "*", "../../etc/passwd"} {
		assert.ErrorIs(t, svc.Validate(bad), ErrInvalidSession, bad)
	}
}
