package ports

import (
	"encoding/base64"
	"encoding/json"

	apperrors "famhub-backend/pkg/errors"
)

// cursorData is the serialized form of a pagination cursor: the last
// evaluated key attributes, all of which are strings in this table.
type cursorData struct {
	Keys map[string]string `json:"k"`
}

// EncodeCursor encodes a last-evaluated key into an opaque URL-safe token.
func EncodeCursor(lastKey map[string]string) string {
	if len(lastKey) == 0 {
		return ""
	}

	jsonData, err := json.Marshal(cursorData{Keys: lastKey})
	if err != nil {
		return ""
	}

	return base64.URLEncoding.EncodeToString(jsonData)
}

// DecodeCursor decodes an opaque cursor back into key attributes. Invalid or
// tampered cursors fail with a validation error; they never silently restart
// the query from the beginning.
func DecodeCursor(cursor string) (map[string]string, error) {
	if cursor == "" {
		return nil, nil
	}

	jsonData, err := base64.URLEncoding.DecodeString(cursor)
	if err != nil {
		return nil, apperrors.NewValidationError("invalid cursor format").WithCause(err)
	}

	var data cursorData
	if err := json.Unmarshal(jsonData, &data); err != nil {
		return nil, apperrors.NewValidationError("invalid cursor data").WithCause(err)
	}
	if len(data.Keys) == 0 {
		return nil, apperrors.NewValidationError("empty cursor")
	}

	return data.Keys, nil
}
