package unmarshal

import (
	"bytes"
	"context"
	"fmt"
	"io"

	"github.com/go-json-experiment/json/jsontext"
	"github.com/viant/structgraph"
)

const (
	// TypeKey holds structure type identifier, recognised as the first member only
	TypeKey = "$type"
	// RefKey holds back-reference index
	RefKey = "$ref"
)

// Driver replays a JSON token stream into a structgraph.Writer.
type Driver struct {
	ctx     context.Context
	decoder *jsontext.Decoder
}

// New creates a driver reading from r
func New(ctx context.Context, r io.Reader, opts ...jsontext.Options) *Driver {
	if ctx == nil {
		ctx = context.Background()
	}
	return &Driver{ctx: ctx, decoder: jsontext.NewDecoder(r, opts...)}
}

// Replay drives w with a single JSON value held by data
func Replay(data []byte, w structgraph.Writer) error {
	return New(context.Background(), bytes.NewReader(data)).Drive(w)
}

// Drive reads the next top-level JSON value and replays it into w
func (d *Driver) Drive(w structgraph.Writer) error {
	return d.value(w)
}

// Finish verifies that no data follows the last value
func (d *Driver) Finish() error {
	_, err := d.decoder.ReadToken()
	if err == io.EOF {
		return nil
	}
	if err == nil {
		return fmt.Errorf("unexpected data after top-level value at %v", d.decoder.InputOffset())
	}
	return err
}

func (d *Driver) value(w structgraph.Writer) error {
	token, err := d.decoder.ReadToken()
	if err != nil {
		return err
	}
	switch token.Kind() {
	case 'n':
		return w.WriteNull()
	case 'f', 't':
		return w.Write(token.Bool())
	case '"':
		return w.Write(token.String())
	case '0':
		return w.Write(token.Float())
	case '[':
		return d.array(w)
	case '{':
		return d.object(w)
	}
	return fmt.Errorf("unexpected token %v at %v", token.Kind(), d.decoder.InputOffset())
}

func (d *Driver) array(w structgraph.Writer) error {
	if err := d.ctx.Err(); err != nil {
		return err
	}
	if err := w.BeginSequence(); err != nil {
		return err
	}
	for i := 0; d.decoder.PeekKind() != ']'; i++ {
		if err := d.value(w); err != nil {
			return structgraph.WrapPath(err, "", fmt.Sprintf("[%d]", i))
		}
	}
	if _, err := d.decoder.ReadToken(); err != nil {
		return err
	}
	return w.EndSequence()
}

func (d *Driver) object(w structgraph.Writer) error {
	if err := d.ctx.Err(); err != nil {
		return err
	}
	if d.decoder.PeekKind() == '}' {
		if _, err := d.decoder.ReadToken(); err != nil {
			return err
		}
		if err := w.BeginStructure(""); err != nil {
			return err
		}
		return w.EndStructure()
	}
	name, err := d.name()
	if err != nil {
		return err
	}
	switch name {
	case RefKey:
		return d.reference(w)
	case TypeKey:
		typeID, err := d.decoder.ReadToken()
		if err != nil {
			return err
		}
		if typeID.Kind() != '"' {
			return fmt.Errorf("%w: %v has to be a string", structgraph.ErrUnresolvableType, TypeKey)
		}
		if err = w.BeginStructure(typeID.String()); err != nil {
			return err
		}
		if d.decoder.PeekKind() == '}' {
			break
		}
		if name, err = d.name(); err != nil {
			return err
		}
		if err = d.member(w, name); err != nil {
			return err
		}
	default:
		if err = w.BeginStructure(""); err != nil {
			return err
		}
		if err = d.member(w, name); err != nil {
			return err
		}
	}
	for d.decoder.PeekKind() != '}' {
		if name, err = d.name(); err != nil {
			return err
		}
		if err = d.member(w, name); err != nil {
			return err
		}
	}
	if _, err = d.decoder.ReadToken(); err != nil {
		return err
	}
	return w.EndStructure()
}

func (d *Driver) name() (string, error) {
	token, err := d.decoder.ReadToken()
	if err != nil {
		return "", err
	}
	return token.String(), nil
}

func (d *Driver) member(w structgraph.Writer, name string) error {
	if err := w.AddProperty(name); err != nil {
		return err
	}
	if err := d.value(w); err != nil {
		return structgraph.WrapPath(err, "", name)
	}
	return nil
}

func (d *Driver) reference(w structgraph.Writer) error {
	token, err := d.decoder.ReadToken()
	if err != nil {
		return err
	}
	if token.Kind() != '0' {
		return fmt.Errorf("%w: %v has to be a number", structgraph.ErrInvalidReference, RefKey)
	}
	index := token.Int()
	end, err := d.decoder.ReadToken()
	if err != nil {
		return err
	}
	if end.Kind() != '}' {
		return fmt.Errorf("%w: %v object can not have other members", structgraph.ErrInvalidReference, RefKey)
	}
	return w.WriteReference(int(index))
}
