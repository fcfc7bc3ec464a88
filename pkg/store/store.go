package store

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"

	"github.com/vnykmshr/reactflow/pkg/streaming/stream"
)

// IDField is the JSON name of the document identity field.
const IDField = "id"

// Document is a record stored in a Collection. Implementations are value
// types whose JSON encoding carries the id under IDField.
type Document[T any] interface {
	DocumentID() string
	WithDocumentID(id string) T
}

// Collection is a named set of documents of one type. Every operation is
// lazy: nothing touches the backend until the returned stream is subscribed.
type Collection[T Document[T]] interface {
	// Name returns the collection name.
	Name() string

	// Save persists doc and emits it as stored. Documents without an id get
	// a server-assigned UUID.
	Save(doc T) stream.Single[T]

	// FindAll emits every document in insertion order.
	FindAll() stream.Many[T]

	// FindWhere emits the documents whose field equals value.
	FindWhere(field string, value any) stream.Many[T]

	// FindOneWhere emits the first document whose field equals value, or
	// completes empty when there is none.
	FindOneWhere(field string, value any) stream.Single[T]
}

// Pinger is implemented by backends that can report their health.
type Pinger interface {
	Ping(ctx context.Context) error
}

// AssignID returns doc with a new UUID when its id is empty.
func AssignID[T Document[T]](doc T) T {
	if doc.DocumentID() != "" {
		return doc
	}
	return doc.WithDocumentID(uuid.NewString())
}

// Fields returns the top-level JSON fields of an encoded document.
func Fields(data []byte) (map[string]json.RawMessage, error) {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(data, &fields); err != nil {
		return nil, fmt.Errorf("decode document fields: %w", err)
	}
	return fields, nil
}

// EncodeValue returns the JSON encoding used to compare value against
// document fields.
func EncodeValue(value any) ([]byte, error) {
	data, err := json.Marshal(value)
	if err != nil {
		return nil, fmt.Errorf("encode field value: %w", err)
	}
	return data, nil
}

// Matches reports whether the encoded document has field equal to the
// encoded value. Equality is on JSON encodings, so 10, 10.0 and float64(10)
// all match a stored total of 10.
func Matches(data []byte, field string, encodedValue []byte) (bool, error) {
	fields, err := Fields(data)
	if err != nil {
		return false, err
	}
	raw, ok := fields[field]
	if !ok {
		return false, nil
	}
	return bytes.Equal(compact(raw), compact(encodedValue)), nil
}

func compact(data []byte) []byte {
	var buf bytes.Buffer
	if err := json.Compact(&buf, data); err != nil {
		return data
	}
	return buf.Bytes()
}
