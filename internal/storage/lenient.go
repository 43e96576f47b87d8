package storage

import (
	"bytes"
	"encoding/json"
	"errors"
)

// ErrCorrupt reports that a backing blob could not be parsed strictly and
// nothing could be salvaged from it. It never escapes a repository: callers
// treat the store as empty and heal the file.
var ErrCorrupt = errors.New("corrupt record")

// LargestBracketed extracts the widest well-formed-looking sub-slice between
// the first open and the last close byte. It is the shared salvage pass for
// partially written or truncated blobs.
func LargestBracketed(raw []byte, open, close byte) ([]byte, bool) {
	start := bytes.IndexByte(raw, open)
	end := bytes.LastIndexByte(raw, close)
	if start == -1 || end == -1 || end <= start {
		return nil, false
	}
	return raw[start : end+1], true
}

// DecodeListLenient decodes a JSON array of T. On strict-parse failure it
// re-parses the largest bracketed sub-structure and keeps only entries that
// satisfy valid. Returns ErrCorrupt when nothing can be recovered.
func DecodeListLenient[T any](raw []byte, valid func(*T) bool) ([]T, error) {
	var out []T
	if err := json.Unmarshal(raw, &out); err == nil {
		return out, nil
	}

	sub, ok := LargestBracketed(raw, '[', ']')
	if !ok {
		return nil, ErrCorrupt
	}

	// Element-wise decode: a single bad entry must not discard the rest.
	var rawItems []json.RawMessage
	if err := json.Unmarshal(sub, &rawItems); err != nil {
		return nil, ErrCorrupt
	}

	recovered := make([]T, 0, len(rawItems))
	for _, item := range rawItems {
		var v T
		if err := json.Unmarshal(item, &v); err != nil {
			continue
		}
		if valid != nil && !valid(&v) {
			continue
		}
		recovered = append(recovered, v)
	}
	return recovered, nil
}

// DecodeObjectLenient decodes a single JSON object of T, salvaging the
// largest braced sub-structure when the strict parse fails.
func DecodeObjectLenient[T any](raw []byte, valid func(*T) bool) (*T, error) {
	var out T
	if err := json.Unmarshal(raw, &out); err == nil {
		return &out, nil
	}

	sub, ok := LargestBracketed(raw, '{', '}')
	if !ok {
		return nil, ErrCorrupt
	}

	var recovered T
	if err := json.Unmarshal(sub, &recovered); err != nil {
		return nil, ErrCorrupt
	}
	if valid != nil && !valid(&recovered) {
		return nil, ErrCorrupt
	}
	return &recovered, nil
}
