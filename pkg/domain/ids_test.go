package domain

import (
	"encoding/json"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	dErrors "yatra/pkg/domain-errors"
)

func TestIDJSONRoundTrip(t *testing.T) {
	u := uuid.New()

	t.Run("alert id marshals as a UUID string", func(t *testing.T) {
		raw, err := json.Marshal(AlertID(u))
		require.NoError(t, err)
		assert.Equal(t, `"`+u.String()+`"`, string(raw))

		var back AlertID
		require.NoError(t, json.Unmarshal(raw, &back))
		assert.Equal(t, AlertID(u), back)

		parsed, err := ParseAlertID(u.String())
		require.NoError(t, err)
		assert.Equal(t, AlertID(u), parsed)
	})

	t.Run("fence id marshals as a UUID string", func(t *testing.T) {
		raw, err := json.Marshal(FenceID(u))
		require.NoError(t, err)
		assert.Equal(t, `"`+u.String()+`"`, string(raw))

		var back FenceID
		require.NoError(t, json.Unmarshal(raw, &back))
		assert.Equal(t, FenceID(u), back)
	})

	t.Run("broadcast id marshals as a UUID string", func(t *testing.T) {
		raw, err := json.Marshal(BroadcastID(u))
		require.NoError(t, err)
		assert.Equal(t, `"`+u.String()+`"`, string(raw))
	})

	t.Run("zero fence id is omitted with omitzero", func(t *testing.T) {
		payload := struct {
			FenceID FenceID `json:"fence_id,omitzero"`
		}{}
		raw, err := json.Marshal(payload)
		require.NoError(t, err)
		assert.Equal(t, `{}`, string(raw))

		payload.FenceID = FenceID(u)
		raw, err = json.Marshal(payload)
		require.NoError(t, err)
		assert.Contains(t, string(raw), u.String())
	})
}

func TestIsNil(t *testing.T) {
	assert.True(t, AlertID{}.IsNil())
	assert.True(t, FenceID{}.IsNil())
	assert.True(t, BroadcastID{}.IsNil())

	u := uuid.New()
	assert.False(t, AlertID(u).IsNil())
	assert.False(t, FenceID(u).IsNil())
	assert.False(t, BroadcastID(u).IsNil())
}

func TestParseAlertID(t *testing.T) {
	cases := []struct {
		name  string
		input string
	}{
		{"empty", ""},
		{"malformed", "not-a-uuid"},
		{"nil uuid", uuid.Nil.String()},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := ParseAlertID(tc.input)
			assert.True(t, dErrors.Is(err, dErrors.CodeInvalidInput))
		})
	}

	t.Run("valid", func(t *testing.T) {
		u := uuid.New()
		parsed, err := ParseAlertID(u.String())
		require.NoError(t, err)
		assert.Equal(t, u.String(), parsed.String())
	})
}

func TestParseTouristToken(t *testing.T) {
	cases := []struct {
		name  string
		input string
		ok    bool
	}{
		{"valid", "TID-0123456789abcdef01234567", true},
		{"empty", "", false},
		{"wrong prefix", "XID-0123456789abcdef01234567", false},
		{"too short", "TID-0123456789abcdef", false},
		{"uppercase hex", "TID-0123456789ABCDEF01234567", false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			token, err := ParseTouristToken(tc.input)
			if tc.ok {
				require.NoError(t, err)
				assert.Equal(t, tc.input, token.String())
				return
			}
			assert.True(t, dErrors.Is(err, dErrors.CodeInvalidInput))
		})
	}
}
