package domain

import (
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewIDEmbedsCreationTime(t *testing.T) {
	id := NewID()
	require.Len(t, id, 24)

	ts, err := IDTimestamp(id)
	require.NoError(t, err)
	assert.WithinDuration(t, time.Now(), ts, 5*time.Second)
}

func TestIDTimestamp(t *testing.T) {
	at := time.Date(2026, 3, 14, 9, 26, 53, 0, time.UTC)
	id := fmt.Sprintf("%08x", at.Unix()) + strings.Repeat("0", 16)

	ts, err := IDTimestamp(id)
	require.NoError(t, err)
	assert.True(t, ts.Equal(at))
}

func TestIDTimestampRejectsBadIDs(t *testing.T) {
	for _, id := range []string{"", "short", strings.Repeat("z", 24)} {
		_, err := IDTimestamp(id)
		assert.Error(t, err, "id %q should be rejected", id)
	}
}
