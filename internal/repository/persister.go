package repository

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"

	"github.com/timmy/copyscale/internal/domain"
)

// Persister loads and saves the whole fingerprint document.
// Save always replaces everything previously saved.
type Persister interface {
	Load(ctx context.Context) (Document, error)
	Save(ctx context.Context, doc Document) error
}

// Document is the persisted form of the store, in enumeration order.
// It encodes as one JSON object keyed by record id, keeping key order.
type Document struct {
	Records []domain.FingerprintRecord
}

// MarshalJSON writes the records as an ordered object.
func (d Document) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, rec := range d.Records {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(rec.ID)
		if err != nil {
			return nil, err
		}
		val, err := json.Marshal(rec)
		if err != nil {
			return nil, err
		}
		buf.Write(key)
		buf.WriteByte(':')
		buf.Write(val)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// UnmarshalJSON reads an object keyed by record id. A repeated key replaces
// the earlier record in place.
func (d *Document) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	if err := expectDelim(dec, '{'); err != nil {
		return err
	}

	index := make(map[string]int)
	var records []domain.FingerprintRecord
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return err
		}
		id, ok := tok.(string)
		if !ok {
			return fmt.Errorf("expected record id, got %v", tok)
		}
		var rec domain.FingerprintRecord
		if err := dec.Decode(&rec); err != nil {
			return fmt.Errorf("record %q: %w", id, err)
		}
		rec.ID = id
		if i, dup := index[id]; dup {
			records[i] = rec
			continue
		}
		index[id] = len(records)
		records = append(records, rec)
	}
	if err := expectDelim(dec, '}'); err != nil {
		return err
	}
	d.Records = records
	return nil
}

func expectDelim(dec *json.Decoder, want json.Delim) error {
	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if got, ok := tok.(json.Delim); !ok || got != want {
		return fmt.Errorf("expected %q, got %v", want, tok)
	}
	return nil
}
