package structgraph

import (
	"fmt"
	"reflect"
	"unsafe"

	"github.com/viant/xunsafe"
)

// Marker tracks which struct fields were assigned, using a holder field
// tagged with presenceMarker that points to a struct of bool flags.
type Marker struct {
	t        reflect.Type
	holder   *xunsafe.Field
	fields   []*xunsafe.Field
	index    map[string]int //marker field position
	noStrict bool
}

// Index returns mapped field index or -1
func (p *Marker) Index(name string) int {
	if len(p.index) == 0 {
		return -1
	}
	pos, ok := p.index[name]
	if !ok {
		return -1
	}
	return pos
}

// CanUseHolder returns true if holder was allocated
func (p *Marker) CanUseHolder(ptr unsafe.Pointer) bool {
	if p.holder == nil || p.holder.IsNil(ptr) {
		return false
	}
	return true
}

// EnsureHolder allocates the marker holder if needed
func (p *Marker) EnsureHolder(ptr unsafe.Pointer) {
	if p.holder == nil || !p.holder.IsNil(ptr) {
		return
	}
	holder := reflect.New(p.holder.Type.Elem())
	reflect.NewAt(p.holder.Type, p.holder.Pointer(ptr)).Elem().Set(holder)
}

// Set sets field marker
func (p *Marker) Set(ptr unsafe.Pointer, index int, flag bool) error {
	if !p.CanUseHolder(ptr) {
		return fmt.Errorf("holder was empty")
	}
	markerPtr := p.holder.ValuePointer(ptr)
	if index < 0 || index >= len(p.fields) || p.fields[index] == nil {
		return fmt.Errorf("field at index %v was missing in set marker", index)
	}
	p.fields[index].SetBool(markerPtr, flag)
	return nil
}

// IsSet returns true if field has been set, without a holder every field is assumed set
func (p *Marker) IsSet(ptr unsafe.Pointer, index int) bool {
	if !p.CanUseHolder(ptr) {
		return true
	}
	markerPtr := p.holder.ValuePointer(ptr)
	if index < 0 || index >= len(p.fields) || p.fields[index] == nil {
		return false
	}
	return p.fields[index].Bool(markerPtr)
}

func (p *Marker) init() error {
	if p.holder == nil {
		typeName := ""
		if p.t != nil {
			typeName = p.t.String()
		}
		return fmt.Errorf("holder was empty for %s", typeName)
	}
	if len(p.index) == 0 {
		return fmt.Errorf("struct has no markable fields")
	}
	holderType := ensureStruct(p.holder.Type)
	if holderType == nil || p.holder.Type.Kind() != reflect.Ptr {
		return fmt.Errorf("marker holder %v has to be a pointer to struct", p.holder.Name)
	}
	p.fields = make([]*xunsafe.Field, len(p.index))
	for i := 0; i < holderType.NumField(); i++ {
		markerField := holderType.Field(i)
		pos, ok := p.index[markerField.Name]
		if !ok {
			if p.noStrict {
				continue
			}
			return fmt.Errorf("marker field: '%v' does not have corresponding struct field", markerField.Name)
		}
		if markerField.Type.Kind() != reflect.Bool {
			return fmt.Errorf("marker field: '%v' has to be bool, but had %v", markerField.Name, markerField.Type)
		}
		p.fields[pos] = xunsafe.NewField(markerField)
	}
	return nil
}

// NewMarker returns new struct field set marker
func NewMarker(t reflect.Type, opts ...MarkerOption) (*Marker, error) {
	if t = ensureStruct(t); t == nil {
		return nil, fmt.Errorf("supplied type is not struct")
	}
	numField := t.NumField()
	var result = &Marker{t: t, index: make(map[string]int, numField)}
	MarkerOptions(opts).Apply(result)
	hasIndex := len(result.index) > 0
	for i := 0; i < numField; i++ {
		field := t.Field(i)
		if !hasIndex {
			result.index[field.Name] = i
		}
		if IsSetMarker(field.Tag) {
			result.holder = xunsafe.NewField(field)
		}
	}
	return result, result.init()
}

// HasSetMarker returns true if struct declares a presence marker holder
func HasSetMarker(t reflect.Type) bool {
	if t = ensureStruct(t); t == nil {
		return false
	}
	for i := 0; i < t.NumField(); i++ {
		if IsSetMarker(t.Field(i).Tag) {
			return true
		}
	}
	return false
}

func ensureStruct(t reflect.Type) reflect.Type {
	switch t.Kind() {
	case reflect.Struct:
		return t
	case reflect.Ptr:
		return ensureStruct(t.Elem())
	}
	return nil
}
