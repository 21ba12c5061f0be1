package cli

import (
	"bufio"
	"encoding/json"
	"io"
	"sync"
)

// EncoderFunc converts a value of type T to JSON bytes.
type EncoderFunc[T any] func(T) ([]byte, error)

// JSONLEmitter writes one JSON object per line (JSONL).
type JSONLEmitter[T any] struct {
	mu     sync.Mutex
	w      *bufio.Writer
	encode EncoderFunc[T]
}

// NewJSONLEmitter creates a JSONLEmitter writing to w.
// If encode is nil, it falls back to json.Marshal.
func NewJSONLEmitter[T any](w io.Writer, encode EncoderFunc[T]) *JSONLEmitter[T] {
	if encode == nil {
		encode = func(v T) ([]byte, error) { return json.Marshal(v) }
	}
	return &JSONLEmitter[T]{w: bufio.NewWriter(w), encode: encode}
}

// Emit writes a slice of records.
func (je *JSONLEmitter[T]) Emit(records []T) error {
	for _, rec := range records {
		if err := je.EmitOne(rec); err != nil {
			return err
		}
	}
	return nil
}

// EmitOne writes a single record and flushes it.
func (je *JSONLEmitter[T]) EmitOne(record T) error {
	b, err := je.encode(record)
	if err != nil {
		return err
	}

	je.mu.Lock()
	defer je.mu.Unlock()
	if _, err := je.w.Write(b); err != nil {
		return err
	}
	if err := je.w.WriteByte('\n'); err != nil {
		return err
	}
	return je.w.Flush()
}
