package model

import (
	"encoding/json"

	fgerrors "github.com/fieldgrid/fieldgrid/internal/errors"
)

// Marshal serializes an entity or event body to its persisted JSON form.
func Marshal(v any) ([]byte, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, fgerrors.NewInternalError("failed to serialize record body", err)
	}
	return data, nil
}

// Unmarshal decodes a persisted JSON body into the given record. A decode
// failure reports the body as corrupt rather than as an I/O error so scan
// callers can skip the row and keep going.
func Unmarshal(data []byte, v any) error {
	if err := json.Unmarshal(data, v); err != nil {
		return fgerrors.Wrap(fgerrors.ErrCategoryCorrupt, fgerrors.CodeUnparsableBody,
			"failed to decode record body", err)
	}
	return nil
}
