package structgraph

import (
	"fmt"
	"reflect"
	"unsafe"

	"github.com/viant/xunsafe"
)

// Property describes a readable and optionally writable member of a structure.
// Field properties are addressed through an xunsafe field path, method
// properties through a niladic getter and an optional Set<Name> method.
type Property struct {
	Name       string
	FieldName  string
	Explicit   bool
	Typed      bool
	OmitEmpty  bool
	TimeLayout string

	index       int
	rType       reflect.Type
	definition  *TypeDefinition
	fields      []*xunsafe.Field
	getter      int
	setter      int
	setterError bool
	markerIndex int
}

// Type returns declared property type
func (p *Property) Type() reflect.Type { return p.rType }

// Definition returns declared property type definition
func (p *Property) Definition() *TypeDefinition { return p.definition }

// Index returns property position within its structure
func (p *Property) Index() int { return p.index }

// IsField returns true for struct field properties
func (p *Property) IsField() bool { return len(p.fields) > 0 }

// CanGet returns true if property value can be read
func (p *Property) CanGet() bool { return len(p.fields) > 0 || p.getter >= 0 }

// CanSet returns true if property value can be replaced
func (p *Property) CanSet() bool { return len(p.fields) > 0 || p.setter >= 0 }

// IsSerializable returns true if property is emitted by readers
func (p *Property) IsSerializable() bool { return p.CanGet() }

// MarkerIndex returns presence marker position or -1
func (p *Property) MarkerIndex() int { return p.markerIndex }

// Get returns property value, holder has to be a non nil pointer to the owning struct
func (p *Property) Get(holder reflect.Value) reflect.Value {
	if len(p.fields) == 0 {
		return holder.Method(p.getter).Call(nil)[0]
	}
	ptr := p.fieldPointer(holder.UnsafePointer(), false)
	if ptr == nil {
		return reflect.Zero(p.rType)
	}
	return reflect.NewAt(p.rType, ptr).Elem()
}

// Addr returns an addressable field value, allocating nil embedded pointers on the path
func (p *Property) Addr(holder reflect.Value) reflect.Value {
	if len(p.fields) == 0 {
		return p.Get(holder)
	}
	return reflect.NewAt(p.rType, p.fieldPointer(holder.UnsafePointer(), true)).Elem()
}

// Set assigns property value, value has to be assignable to the property type
func (p *Property) Set(holder reflect.Value, value reflect.Value) error {
	if !value.IsValid() {
		value = reflect.Zero(p.rType)
	}
	if p.setter >= 0 {
		out := holder.Method(p.setter).Call([]reflect.Value{value})
		if p.setterError && !out[0].IsNil() {
			return out[0].Interface().(error)
		}
		return nil
	}
	if len(p.fields) == 0 {
		return fmt.Errorf("%w: property %v is read-only", ErrUnsupportedOperation, p.Name)
	}
	p.Addr(holder).Set(value)
	return nil
}

func (p *Property) fieldPointer(ptr unsafe.Pointer, allocate bool) unsafe.Pointer {
	last := len(p.fields) - 1
	for i, field := range p.fields {
		fieldPtr := field.Pointer(ptr)
		if i == last {
			return fieldPtr
		}
		if field.Type.Kind() != reflect.Ptr {
			ptr = fieldPtr
			continue
		}
		embedded := reflect.NewAt(field.Type, fieldPtr).Elem()
		if embedded.IsNil() {
			if !allocate {
				return nil
			}
			embedded.Set(reflect.New(field.Type.Elem()))
		}
		ptr = embedded.UnsafePointer()
	}
	return ptr
}

func setterMethod(ptrType reflect.Type, name string, valueType reflect.Type) (reflect.Method, bool, bool) {
	method, ok := ptrType.MethodByName(name)
	if !ok || method.Type.NumIn() != 2 || method.Type.In(1) != valueType {
		return method, false, false
	}
	switch method.Type.NumOut() {
	case 0:
		return method, false, true
	case 1:
		if method.Type.Out(0) == errorType {
			return method, true, true
		}
	}
	return method, false, false
}

var errorType = reflect.TypeOf((*error)(nil)).Elem()
