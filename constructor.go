package structgraph

import (
	"fmt"
	"reflect"
	"strings"
)

// Parameter describes a named constructor parameter.
type Parameter struct {
	Name       string
	Type       reflect.Type
	definition *TypeDefinition
}

// Definition returns parameter type definition
func (p *Parameter) Definition() *TypeDefinition { return p.definition }

// IsNillable returns true if parameter can be omitted and passed as nil
func (p *Parameter) IsNillable() bool {
	switch p.Type.Kind() {
	case reflect.Ptr, reflect.Interface, reflect.Map, reflect.Slice:
		return true
	}
	return false
}

// Constructor describes a registered constructor function of a structure.
type Constructor struct {
	Parameters     []*Parameter
	fn             reflect.Value
	structType     reflect.Type
	returnsPointer bool
	returnsError   bool
}

// Parameter returns parameter matched by case-insensitive name, or nil
func (c *Constructor) Parameter(name string) *Parameter {
	for _, candidate := range c.Parameters {
		if strings.EqualFold(candidate.Name, name) {
			return candidate
		}
	}
	return nil
}

// Invoke calls the constructor and returns a pointer to the created struct
func (c *Constructor) Invoke(args []reflect.Value) (reflect.Value, error) {
	out := c.fn.Call(args)
	if c.returnsError && !out[1].IsNil() {
		return reflect.Value{}, out[1].Interface().(error)
	}
	result := out[0]
	if !c.returnsPointer {
		ptr := reflect.New(c.structType)
		ptr.Elem().Set(result)
		return ptr, nil
	}
	if result.IsNil() {
		return reflect.Value{}, fmt.Errorf("%w: %v constructor returned nil", ErrInvalidConstructor, c.structType)
	}
	return result, nil
}

// String returns constructor signature with parameter names
func (c *Constructor) String() string {
	builder := strings.Builder{}
	builder.WriteString(c.structType.Name())
	builder.WriteString("(")
	for i, param := range c.Parameters {
		if i > 0 {
			builder.WriteString(", ")
		}
		builder.WriteString(param.Name)
		builder.WriteString(" ")
		builder.WriteString(param.Type.String())
	}
	builder.WriteString(")")
	return builder.String()
}

func (p *populator) newConstructor(structType reflect.Type, fn interface{}, names []string) (*Constructor, error) {
	fnValue := reflect.ValueOf(fn)
	if fnValue.Kind() != reflect.Func || fnValue.IsNil() {
		return nil, fmt.Errorf("%w: %v expected func, but had %T", ErrInvalidConstructor, structType, fn)
	}
	fnType := fnValue.Type()
	if fnType.IsVariadic() || fnType.NumIn() != len(names) {
		return nil, fmt.Errorf("%w: %v has %v parameters, but %v names were supplied", ErrInvalidConstructor, fnType, fnType.NumIn(), len(names))
	}
	ret := &Constructor{fn: fnValue, structType: structType}
	switch fnType.NumOut() {
	case 2:
		if fnType.Out(1) != errorType {
			return nil, fmt.Errorf("%w: %v second result has to be error", ErrInvalidConstructor, fnType)
		}
		ret.returnsError = true
	case 1:
	default:
		return nil, fmt.Errorf("%w: %v has to return %v", ErrInvalidConstructor, fnType, structType)
	}
	switch fnType.Out(0) {
	case structType:
	case reflect.PointerTo(structType):
		ret.returnsPointer = true
	default:
		return nil, fmt.Errorf("%w: %v has to return %v", ErrInvalidConstructor, fnType, structType)
	}
	for i, name := range names {
		paramType := fnType.In(i)
		definition, err := p.definition(paramType)
		if err != nil {
			return nil, WrapPath(err, structType.Name(), name)
		}
		ret.Parameters = append(ret.Parameters, &Parameter{Name: name, Type: paramType, definition: definition})
	}
	return ret, nil
}
