package ports_test

import (
	"encoding/base64"
	"testing"

	"famhub-backend/application/ports"
	apperrors "famhub-backend/pkg/errors"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCursorRoundTrip(t *testing.T) {
	lastKey := map[string]string{
		"PK": "COMMENT#photo-1",
		"SK": "2024-05-01T12:00:00.000Z#abc",
	}

	cursor := ports.EncodeCursor(lastKey)
	require.NotEmpty(t, cursor)

	decoded, err := ports.DecodeCursor(cursor)
	require.NoError(t, err)
	assert.Equal(t, lastKey, decoded)
}

func TestEmptyCursorMeansFirstPage(t *testing.T) {
	decoded, err := ports.DecodeCursor("")
	require.NoError(t, err)
	assert.Nil(t, decoded)

	assert.Empty(t, ports.EncodeCursor(nil))
	assert.Empty(t, ports.EncodeCursor(map[string]string{}))
}

func TestInvalidCursorFailsWithValidationError(t *testing.T) {
	cases := map[string]string{
		"not base64":  "!!definitely not base64!!",
		"not json":    base64.URLEncoding.EncodeToString([]byte("not json")),
		"empty keys":  base64.URLEncoding.EncodeToString([]byte(`{"k":{}}`)),
		"wrong shape": base64.URLEncoding.EncodeToString([]byte(`[1,2,3]`)),
	}

	for name, cursor := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := ports.DecodeCursor(cursor)
			assert.True(t, apperrors.IsValidation(err), "tampered cursors never silently restart the query")
		})
	}
}
