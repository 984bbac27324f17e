package marshal

import (
	"fmt"
	"io"

	"github.com/go-json-experiment/json/jsontext"
	"github.com/viant/structgraph"
)

const (
	// TypeKey holds structure type identifier, always the first member
	TypeKey = "$type"
	// RefKey holds back-reference index
	RefKey = "$ref"
)

// Writer renders an operation stream as JSON text.
type Writer struct {
	encoder *jsontext.Encoder
}

// New creates a writer over w, opts are passed to the jsontext encoder
func New(w io.Writer, opts ...jsontext.Options) *Writer {
	return &Writer{encoder: jsontext.NewEncoder(w, opts...)}
}

// NewWithEncoder creates a writer over an existing encoder
func NewWithEncoder(encoder *jsontext.Encoder) *Writer {
	return &Writer{encoder: encoder}
}

func (w *Writer) WriteNull() error {
	return w.encoder.WriteToken(jsontext.Null)
}

// Write writes scalar value, integers are accepted next to float64
func (w *Writer) Write(value interface{}) error {
	switch actual := value.(type) {
	case nil:
		return w.encoder.WriteToken(jsontext.Null)
	case bool:
		return w.encoder.WriteToken(jsontext.Bool(actual))
	case string:
		return w.encoder.WriteToken(jsontext.String(actual))
	case float64:
		return w.encoder.WriteToken(jsontext.Float(actual))
	case float32:
		return w.encoder.WriteToken(jsontext.Float(float64(actual)))
	case int:
		return w.encoder.WriteToken(jsontext.Int(int64(actual)))
	case int64:
		return w.encoder.WriteToken(jsontext.Int(actual))
	}
	return fmt.Errorf("%w: %T", structgraph.ErrUnknownTypeCode, value)
}

func (w *Writer) BeginStructure(typeID string) error {
	if err := w.encoder.WriteToken(jsontext.BeginObject); err != nil {
		return err
	}
	if typeID == "" {
		return nil
	}
	if err := w.encoder.WriteToken(jsontext.String(TypeKey)); err != nil {
		return err
	}
	return w.encoder.WriteToken(jsontext.String(typeID))
}

func (w *Writer) AddProperty(name string) error {
	return w.encoder.WriteToken(jsontext.String(name))
}

func (w *Writer) EndStructure() error {
	return w.encoder.WriteToken(jsontext.EndObject)
}

func (w *Writer) BeginSequence() error {
	return w.encoder.WriteToken(jsontext.BeginArray)
}

func (w *Writer) EndSequence() error {
	return w.encoder.WriteToken(jsontext.EndArray)
}

func (w *Writer) WriteReference(index int) error {
	for _, token := range []jsontext.Token{jsontext.BeginObject, jsontext.String(RefKey), jsontext.Int(int64(index)), jsontext.EndObject} {
		if err := w.encoder.WriteToken(token); err != nil {
			return err
		}
	}
	return nil
}
