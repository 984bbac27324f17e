package structgraph

import (
	"fmt"
	"reflect"
	"strings"

	"github.com/go-json-experiment/json/jsontext"
)

// Source identifies the producer of an operation stream.
type Source int

const (
	// SourceAny matches every producer
	SourceAny Source = iota
	// SourceJSON identifies the JSON text driver
	SourceJSON
	// SourceObject identifies the object graph reader
	SourceObject
)

func (s Source) String() string {
	switch s {
	case SourceJSON:
		return "json"
	case SourceObject:
		return "object"
	}
	return "any"
}

const preBuildPrefix = "PreBuild"

var (
	// RawTreeType is the generic tree raw context accepted by prebuild transforms
	RawTreeType = reflect.TypeOf(map[string]interface{}{})
	// RawJSONType is the JSON text raw context accepted by prebuild transforms
	RawJSONType = reflect.TypeOf(jsontext.Value(nil))
)

// PreBuild is a transform applied to the raw representation of a structure before typed building.
type PreBuild struct {
	Name         string
	Source       Source
	Raw          reflect.Type
	fn           reflect.Value
	receiver     reflect.Value
	returnsError bool
}

// Apply invokes the transform
func (p *PreBuild) Apply(raw interface{}) (result interface{}, err error) {
	rawValue := reflect.ValueOf(raw)
	if !rawValue.IsValid() {
		rawValue = reflect.Zero(p.Raw)
	}
	if rawValue.Type() != p.Raw {
		if !rawValue.Type().ConvertibleTo(p.Raw) {
			return nil, fmt.Errorf("%w: %v expected %v, but had %T", ErrPropertyTypeMismatch, p.Name, p.Raw, raw)
		}
		rawValue = rawValue.Convert(p.Raw)
	}
	args := []reflect.Value{rawValue}
	if p.receiver.IsValid() {
		args = append([]reflect.Value{p.receiver}, args...)
	}
	out := p.fn.Call(args)
	if p.returnsError && !out[1].IsNil() {
		return nil, out[1].Interface().(error)
	}
	return out[0].Interface(), nil
}

// newPreBuild validates fn type, offset skips the method receiver
func newPreBuild(name string, source Source, fn reflect.Value, receiver reflect.Value) (*PreBuild, error) {
	if fn.Kind() != reflect.Func || fn.IsNil() {
		return nil, fmt.Errorf("%w: %v expected func, but had %v", ErrInvalidPreBuildSignature, name, fn.Kind())
	}
	fnType := fn.Type()
	offset := 0
	if receiver.IsValid() {
		offset = 1
	}
	if fnType.IsVariadic() || fnType.NumIn() != offset+1 {
		return nil, fmt.Errorf("%w: %v: %v", ErrInvalidPreBuildSignature, name, fnType)
	}
	raw := fnType.In(offset)
	if raw != RawTreeType && raw != RawJSONType {
		return nil, fmt.Errorf("%w: %v: unsupported raw context %v", ErrInvalidPreBuildSignature, name, raw)
	}
	ret := &PreBuild{Name: name, Source: source, Raw: raw, fn: fn, receiver: receiver}
	switch fnType.NumOut() {
	case 2:
		if fnType.Out(1) != errorType {
			return nil, fmt.Errorf("%w: %v: %v", ErrInvalidPreBuildSignature, name, fnType)
		}
		ret.returnsError = true
	case 1:
	default:
		return nil, fmt.Errorf("%w: %v: %v", ErrInvalidPreBuildSignature, name, fnType)
	}
	if fnType.Out(0) != raw {
		return nil, fmt.Errorf("%w: %v: result %v does not match %v", ErrInvalidPreBuildSignature, name, fnType.Out(0), raw)
	}
	return ret, nil
}

// methodPreBuilds discovers PreBuild* methods, invoked on a zero value receiver
func methodPreBuilds(structType reflect.Type) ([]*PreBuild, error) {
	ptrType := reflect.PointerTo(structType)
	var result []*PreBuild
	for i := 0; i < ptrType.NumMethod(); i++ {
		method := ptrType.Method(i)
		if !strings.HasPrefix(method.Name, preBuildPrefix) {
			continue
		}
		preBuild, err := newPreBuild(structType.Name()+"."+method.Name, SourceAny, method.Func, reflect.New(structType))
		if err != nil {
			return nil, err
		}
		result = append(result, preBuild)
	}
	return result, nil
}
