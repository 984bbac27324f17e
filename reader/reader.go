package reader

import (
	"errors"
	"fmt"
	"reflect"
	"sort"
	"strconv"
	"time"
	"unsafe"

	"github.com/viant/structgraph"
)

// Reader walks object graphs and drives a structgraph.Writer.
// A Reader is safe for concurrent use; every Read call keeps its own reference registry.
type Reader struct {
	cache   *structgraph.Cache
	options Options
}

// New creates a reader, the default cache is used when cache is nil
func New(cache *structgraph.Cache, opts ...Option) *Reader {
	if cache == nil {
		cache = structgraph.Default()
	}
	options := resolveOptions(opts)
	if options.Namer == nil {
		options.Namer = cache.Namer()
	}
	return &Reader{cache: cache, options: options}
}

// Options returns reader options
func (r *Reader) Options() Options {
	return r.options
}

// Read emits value as operation stream to w
func (r *Reader) Read(value interface{}, w structgraph.Writer) error {
	s := &session{
		Reader:   r,
		w:        w,
		refs:     map[refKey]int{},
		visiting: map[refKey]bool{},
	}
	rValue := reflect.ValueOf(value)
	declared := r.options.DeclaredType
	if declared == nil && rValue.IsValid() {
		declared = rValue.Type()
	}
	return s.write(rValue, slot{declared: declared})
}

type refKey struct {
	ptr unsafe.Pointer
	t   reflect.Type
}

// slot describes the declared context of a written value
type slot struct {
	declared   reflect.Type
	typed      bool
	timeLayout string
}

type session struct {
	*Reader
	w        structgraph.Writer
	refs     map[refKey]int
	visiting map[refKey]bool
	counter  int
}

var genericMapType = reflect.TypeOf(map[string]interface{}{})

func (s *session) write(value reflect.Value, at slot) error {
	for value.IsValid() && value.Kind() == reflect.Interface {
		if value.IsNil() {
			return s.w.WriteNull()
		}
		value = value.Elem()
	}
	if !value.IsValid() {
		return s.w.WriteNull()
	}
	def, err := s.cache.Definition(value.Type())
	if err != nil {
		if errors.Is(err, structgraph.ErrUnsupportedType) {
			return fmt.Errorf("%w: %v", structgraph.ErrUnknownTypeCode, value.Type())
		}
		return err
	}
	switch def.Category() {
	case structgraph.CategoryNullable:
		if value.IsNil() {
			return s.w.WriteNull()
		}
		return s.write(value.Elem(), slot{declared: value.Type().Elem(), typed: at.typed, timeLayout: at.timeLayout})
	case structgraph.CategoryPrimitive:
		return s.writePrimitive(value, at)
	case structgraph.CategoryEnum:
		number := structgraph.EnumInt(value)
		if s.options.EnumEncoding == EnumAsName {
			return s.w.Write(def.Enum().Format(number))
		}
		return s.w.Write(float64(number))
	case structgraph.CategoryDictionary:
		if value.IsNil() {
			return s.w.WriteNull()
		}
		return s.writeDictionary(value, def, at)
	case structgraph.CategoryArray, structgraph.CategorySequence, structgraph.CategoryCollection:
		return s.writeSequence(value, def)
	case structgraph.CategoryStructure:
		return s.writeStructure(value, def, at)
	}
	return fmt.Errorf("%w: %v", structgraph.ErrUnknownTypeCode, value.Type())
}

func (s *session) writePrimitive(value reflect.Value, at slot) error {
	switch value.Kind() {
	case reflect.Bool:
		return s.w.Write(value.Bool())
	case reflect.String:
		return s.w.Write(value.String())
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return s.w.Write(float64(value.Int()))
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return s.w.Write(float64(value.Uint()))
	case reflect.Float32, reflect.Float64:
		return s.w.Write(value.Float())
	case reflect.Struct:
		layout := at.timeLayout
		if layout == "" {
			layout = s.options.TimeLayout
		}
		ts := value.Interface().(time.Time)
		return s.w.Write(ts.Format(layout))
	}
	return fmt.Errorf("%w: %v", structgraph.ErrUnknownTypeCode, value.Type())
}

func (s *session) writeSequence(value reflect.Value, def *structgraph.TypeDefinition) error {
	var items []reflect.Value
	switch def.Category() {
	case structgraph.CategoryCollection:
		if value.Kind() == reflect.Ptr && value.IsNil() {
			return s.w.WriteNull()
		}
		items = def.CollectionItems(value)
	case structgraph.CategorySequence:
		if value.IsNil() {
			if s.options.NilSlicePolicy == NilSliceAsEmptyArray {
				if err := s.w.BeginSequence(); err != nil {
					return err
				}
				return s.w.EndSequence()
			}
			return s.w.WriteNull()
		}
		if def.IsEntries() {
			return s.writeEntries(value, def)
		}
		fallthrough
	default:
		items = make([]reflect.Value, value.Len())
		for i := range items {
			items[i] = value.Index(i)
		}
	}
	if err := s.w.BeginSequence(); err != nil {
		return err
	}
	itemSlot := slot{declared: def.Elem().Type()}
	for i, item := range items {
		if err := s.write(item, itemSlot); err != nil {
			return structgraph.WrapPath(err, "", "["+strconv.Itoa(i)+"]")
		}
	}
	return s.w.EndSequence()
}

// writeEntries renders a map with non property name keys as a sequence of {Key, Value} structures
func (s *session) writeEntries(value reflect.Value, def *structgraph.TypeDefinition) error {
	if err := s.w.BeginSequence(); err != nil {
		return err
	}
	mapType := value.Type()
	keys := sortedKeys(value.MapKeys())
	for _, key := range keys {
		s.counter++
		if err := s.w.BeginStructure(""); err != nil {
			return err
		}
		if err := s.w.AddProperty("Key"); err != nil {
			return err
		}
		if err := s.write(key, slot{declared: mapType.Key()}); err != nil {
			return structgraph.WrapPath(err, "", "Key")
		}
		if err := s.w.AddProperty("Value"); err != nil {
			return err
		}
		if err := s.write(value.MapIndex(key), slot{declared: mapType.Elem()}); err != nil {
			return structgraph.WrapPath(err, "", fmt.Sprint(key.Interface()))
		}
		if err := s.w.EndStructure(); err != nil {
			return err
		}
	}
	return s.w.EndSequence()
}

func (s *session) writeDictionary(value reflect.Value, def *structgraph.TypeDefinition, at slot) error {
	ref := refKey{ptr: value.UnsafePointer(), t: value.Type()}
	if s.options.References == PreserveReferences {
		if index, ok := s.refs[ref]; ok {
			return s.w.WriteReference(index)
		}
		s.refs[ref] = s.counter
	} else {
		if s.visiting[ref] {
			return fmt.Errorf("%w: %v", structgraph.ErrCycle, value.Type())
		}
		s.visiting[ref] = true
		defer delete(s.visiting, ref)
	}
	typeID := ""
	if s.options.TypeIdentifiers != IdentifiersNever && at.declared != nil && at.declared != value.Type() && value.Type() != genericMapType {
		typeID = s.cache.Identifier(value.Type(), s.options.Namer)
	}
	s.counter++
	if err := s.w.BeginStructure(typeID); err != nil {
		return err
	}
	valueSlot := slot{declared: def.Elem().Type()}
	for _, key := range sortedKeys(value.MapKeys()) {
		name := keyString(key)
		if err := s.w.AddProperty(name); err != nil {
			return err
		}
		if err := s.write(value.MapIndex(key), valueSlot); err != nil {
			return structgraph.WrapPath(err, "", name)
		}
	}
	return s.w.EndStructure()
}

func (s *session) writeStructure(value reflect.Value, def *structgraph.TypeDefinition, at slot) error {
	var holder reflect.Value
	if value.Kind() == reflect.Ptr {
		if value.IsNil() {
			return s.w.WriteNull()
		}
		holder = value
		key := refKey{ptr: value.UnsafePointer(), t: value.Type()}
		if s.options.References == PreserveReferences {
			if index, ok := s.refs[key]; ok {
				return s.w.WriteReference(index)
			}
			s.refs[key] = s.counter
		} else {
			if s.visiting[key] {
				return fmt.Errorf("%w: %v", structgraph.ErrCycle, value.Type())
			}
			s.visiting[key] = true
			defer delete(s.visiting, key)
		}
	} else if value.CanAddr() {
		holder = value.Addr()
	} else {
		holder = reflect.New(value.Type())
		holder.Elem().Set(value)
	}
	s.counter++
	typeID := ""
	if s.needsIdentifier(value.Type(), at) {
		typeID = s.cache.Identifier(value.Type(), s.options.Namer)
	}
	if err := s.w.BeginStructure(typeID); err != nil {
		return err
	}
	typeName := def.StructType().Name()
	marker := def.Marker()
	for _, property := range def.Properties() {
		if !property.IsSerializable() {
			continue
		}
		if marker != nil && property.MarkerIndex() >= 0 && !marker.IsSet(holder.UnsafePointer(), property.MarkerIndex()) {
			continue
		}
		propertyValue := property.Get(holder)
		if (property.OmitEmpty || s.options.OmitEmpty) && isEmpty(propertyValue) {
			continue
		}
		if err := s.w.AddProperty(property.FormattedName(s.options.CaseFormat)); err != nil {
			return err
		}
		propertySlot := slot{declared: property.Type(), typed: property.Typed, timeLayout: property.TimeLayout}
		if err := s.write(propertyValue, propertySlot); err != nil {
			return structgraph.WrapPath(err, typeName, property.Name)
		}
	}
	return s.w.EndStructure()
}

func (s *session) needsIdentifier(runtime reflect.Type, at slot) bool {
	switch s.options.TypeIdentifiers {
	case IdentifiersNever:
		return false
	case IdentifiersAlways:
		return true
	}
	if at.typed {
		return true
	}
	return at.declared != nil && at.declared != runtime
}

func isEmpty(v reflect.Value) bool {
	switch v.Kind() {
	case reflect.Array, reflect.Map, reflect.Slice, reflect.String:
		return v.Len() == 0
	case reflect.Bool:
		return !v.Bool()
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return v.Int() == 0
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return v.Uint() == 0
	case reflect.Float32, reflect.Float64:
		return v.Float() == 0
	case reflect.Interface, reflect.Ptr:
		return v.IsNil()
	case reflect.Struct:
		if ts, ok := v.Interface().(time.Time); ok {
			return ts.IsZero()
		}
	}
	return false
}

func keyString(key reflect.Value) string {
	switch key.Kind() {
	case reflect.String:
		return key.String()
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return strconv.FormatInt(key.Int(), 10)
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return strconv.FormatUint(key.Uint(), 10)
	case reflect.Float32, reflect.Float64:
		return strconv.FormatFloat(key.Float(), 'g', -1, 64)
	}
	return fmt.Sprint(key.Interface())
}

// sortedKeys orders strings lexicographically and numbers numerically, other keys by their text
func sortedKeys(keys []reflect.Value) []reflect.Value {
	sort.Slice(keys, func(i, j int) bool {
		a, b := keys[i], keys[j]
		switch a.Kind() {
		case reflect.String:
			return a.String() < b.String()
		case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
			return a.Int() < b.Int()
		case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
			return a.Uint() < b.Uint()
		case reflect.Float32, reflect.Float64:
			return a.Float() < b.Float()
		}
		return fmt.Sprint(a.Interface()) < fmt.Sprint(b.Interface())
	})
	return keys
}
