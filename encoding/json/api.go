package json

import (
	"bytes"
	"context"
	"fmt"
	"reflect"

	"github.com/viant/structgraph"
	"github.com/viant/structgraph/builder"
	"github.com/viant/structgraph/encoding/json/marshal"
	"github.com/viant/structgraph/encoding/json/unmarshal"
	"github.com/viant/structgraph/reader"
	"github.com/viant/structgraph/tree"
)

// MarshalContext marshals with an explicit context.
func MarshalContext(ctx context.Context, value interface{}, opts ...Option) ([]byte, error) {
	cfg := resolveOptions(ctx, opts)
	if err := cfg.Ctx.Err(); err != nil {
		return nil, err
	}
	buffer := &bytes.Buffer{}
	w := marshal.New(buffer, cfg.encoderOptions()...)
	if err := reader.New(cfg.Cache, cfg.readerOptions()...).Read(value, w); err != nil {
		return nil, err
	}
	return bytes.TrimSuffix(buffer.Bytes(), []byte("\n")), nil
}

// Marshal marshals using context.Background unless overridden by options.
func Marshal(value interface{}, opts ...Option) ([]byte, error) {
	return MarshalContext(context.Background(), value, opts...)
}

// UnmarshalContext unmarshals with an explicit context.
func UnmarshalContext(ctx context.Context, data []byte, dest interface{}, opts ...Option) error {
	cfg := resolveOptions(ctx, opts)
	destType, err := destinationType(dest)
	if err != nil {
		return err
	}
	b := builder.New(cfg.Cache, destType, cfg.builderOptions(structgraph.SourceJSON)...)
	driver := unmarshal.New(cfg.Ctx, bytes.NewReader(data))
	if err = driver.Drive(b); err != nil {
		return err
	}
	if err = driver.Finish(); err != nil {
		return err
	}
	return b.Into(dest)
}

// Unmarshal unmarshals using context.Background unless overridden by options.
func Unmarshal(data []byte, dest interface{}, opts ...Option) error {
	return UnmarshalContext(context.Background(), data, dest, opts...)
}

// Clone deep copies src into dest pointer without rendering text, shared instances stay shared
func Clone(src interface{}, dest interface{}, opts ...Option) error {
	cfg := resolveOptions(nil, opts)
	destType, err := destinationType(dest)
	if err != nil {
		return err
	}
	readerOptions := cfg.readerOptions()
	if cfg.DeclaredType == nil {
		readerOptions = append(readerOptions, reader.WithDeclaredType(destType))
	}
	b := builder.New(cfg.Cache, destType, cfg.builderOptions(structgraph.SourceObject)...)
	if err = reader.New(cfg.Cache, readerOptions...).Read(src, b); err != nil {
		return err
	}
	return b.Into(dest)
}

// ToTree renders value as map[string]interface{}, []interface{} and scalars;
// shared instances become the same map unless references are collapsed
func ToTree(value interface{}, opts ...Option) (interface{}, error) {
	cfg := resolveOptions(nil, opts)
	b := tree.New()
	if err := reader.New(cfg.Cache, cfg.readerOptions()...).Read(value, b); err != nil {
		return nil, err
	}
	return b.Value()
}

// FromTree builds dest from a tree produced by ToTree or a decoded JSON document
func FromTree(value interface{}, dest interface{}, opts ...Option) error {
	cfg := resolveOptions(nil, opts)
	destType, err := destinationType(dest)
	if err != nil {
		return err
	}
	b := builder.New(cfg.Cache, destType, cfg.builderOptions(structgraph.SourceAny)...)
	if err = tree.Replay(value, b); err != nil {
		return err
	}
	return b.Into(dest)
}

func destinationType(dest interface{}) (reflect.Type, error) {
	destValue := reflect.ValueOf(dest)
	if destValue.Kind() != reflect.Ptr || destValue.IsNil() {
		return nil, fmt.Errorf("%w: destination has to be a non nil pointer, but had %T", structgraph.ErrUnsupportedOperation, dest)
	}
	return destValue.Type().Elem(), nil
}
