package entities

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseStatus(t *testing.T) {
	tests := []struct {
		key      string
		expected StatusID
	}{
		{"1", StatusReading},
		{"6", StatusToBuy},
		{" 11 ", StatusNotInLibrary},
		{"finished", StatusFinished},
		{"FINISHED_NOT_IN_LIBRARY", StatusFinishedNotInLibrary},
		{"in_library", StatusInLibrary},
	}

	for _, tt := range tests {
		t.Run(tt.key, func(t *testing.T) {
			got, err := ParseStatus(tt.key)
			require.NoError(t, err)
			assert.Equal(t, tt.expected, got)
		})
	}
}

func TestParseStatus_Invalid(t *testing.T) {
	for _, key := range []string{"", "5", "12", "0", "someone_reading", "-1"} {
		t.Run(key, func(t *testing.T) {
			_, err := ParseStatus(key)
			assert.ErrorIs(t, err, ErrInvalidStatus)
		})
	}
}

func TestStatusNamesAreUnique(t *testing.T) {
	seen := make(map[string]bool)
	for _, s := range AllStatuses {
		require.True(t, s.Valid(), "status %d should be valid", s)
		assert.NotEmpty(t, s.Label())
		assert.False(t, seen[s.Name()], "duplicate name %s", s.Name())
		seen[s.Name()] = true
	}
	assert.Equal(t, "status(5)", StatusID(5).String())
}

func TestEventTypesAreNamed(t *testing.T) {
	seen := make(map[string]bool)
	for _, e := range AllEventTypes {
		require.True(t, e.Valid(), "event type %d should be valid", e)
		assert.False(t, seen[e.Name()], "duplicate name %s", e.Name())
		seen[e.Name()] = true
	}
	assert.Len(t, AllEventTypes, 28)
	assert.False(t, EventTypeID(1).Valid())
}

func TestAuthorityNames(t *testing.T) {
	assert.Equal(t, "guest", AuthorityGuest.String())
	assert.Equal(t, "admin", AuthorityAdmin.String())
	assert.False(t, AuthorityID(9).Valid())
}
