package sqlite

import (
	"encoding/json"

	"github.com/pkg/errors"
)

// Embeddings and dominant color swatches are stored as JSON text. The
// in-process index is the only consumer of the vectors, so no SQL-side
// vector operations are needed.

func encodeVector(vec []float32) (string, error) {
	if len(vec) == 0 {
		return "", nil
	}
	raw, err := json.Marshal(vec)
	if err != nil {
		return "", errors.Wrap(err, "failed to encode vector")
	}
	return string(raw), nil
}

func decodeVector(raw string) ([]float32, error) {
	if raw == "" {
		return nil, nil
	}
	var vec []float32
	if err := json.Unmarshal([]byte(raw), &vec); err != nil {
		return nil, errors.Wrap(err, "failed to decode vector")
	}
	return vec, nil
}

func encodeSwatches(colors [][3]uint8) (string, error) {
	if len(colors) == 0 {
		return "", nil
	}
	raw, err := json.Marshal(colors)
	if err != nil {
		return "", errors.Wrap(err, "failed to encode dominant colors")
	}
	return string(raw), nil
}

func decodeSwatches(raw string) ([][3]uint8, error) {
	if raw == "" {
		return nil, nil
	}
	var colors [][3]uint8
	if err := json.Unmarshal([]byte(raw), &colors); err != nil {
		return nil, errors.Wrap(err, "failed to decode dominant colors")
	}
	return colors, nil
}
