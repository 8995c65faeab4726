package conv

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDirectThreadNormalizesPair(t *testing.T) {
	a := DirectThread("uffe", "anna")
	b := DirectThread("anna", "uffe")

	assert.Equal(t, a, b)
	assert.Equal(t, "dm:anna:uffe", a.String())
}

func TestDirectThreadOtherParty(t *testing.T) {
	k := DirectThread("anna", "uffe")

	assert.Equal(t, "uffe", k.OtherParty("anna"))
	assert.Equal(t, "anna", k.OtherParty("uffe"))
}

func TestJobThreadString(t *testing.T) {
	k := JobThread("42")

	assert.True(t, k.IsJob())
	assert.Equal(t, "job:42", k.String())
}

func TestParseThreadKeyRoundTrip(t *testing.T) {
	for _, raw := range []string{"job:42", "dm:anna:uffe"} {
		k, err := ParseThreadKey(raw)
		require.NoError(t, err)
		assert.Equal(t, raw, k.String())
	}
}

func TestParseThreadKeyNormalizes(t *testing.T) {
	k, err := ParseThreadKey("dm:uffe:anna")
	require.NoError(t, err)
	assert.Equal(t, "dm:anna:uffe", k.String())
}

func TestParseThreadKeyRejectsGarbage(t *testing.T) {
	for _, raw := range []string{"", "job:", "dm:", "dm:anna", "dm::x", "conversation:1"} {
		_, err := ParseThreadKey(raw)
		assert.Error(t, err, "input %q", raw)
	}
}
