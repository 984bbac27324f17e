package structgraph

import (
	"fmt"
	"reflect"
	"time"
)

// Category classifies how a type is decomposed and rebuilt.
type Category int

const (
	CategoryUnknown Category = iota
	CategoryPrimitive
	CategoryEnum
	CategoryNullable
	CategoryArray
	CategorySequence
	CategoryCollection
	CategoryDictionary
	CategoryStructure
)

func (c Category) String() string {
	switch c {
	case CategoryPrimitive:
		return "primitive"
	case CategoryEnum:
		return "enum"
	case CategoryNullable:
		return "nullable"
	case CategoryArray:
		return "array"
	case CategorySequence:
		return "sequence"
	case CategoryCollection:
		return "collection"
	case CategoryDictionary:
		return "dictionary"
	case CategoryStructure:
		return "structure"
	}
	return "unknown"
}

// IsContainer reports whether values of the category are emitted as sequences or structures.
func (c Category) IsContainer() bool {
	switch c {
	case CategoryArray, CategorySequence, CategoryCollection, CategoryDictionary, CategoryStructure:
		return true
	}
	return false
}

var timeType = reflect.TypeOf(time.Time{})

// detector fills def and reports whether it claimed the type.
type detector func(p *populator, def *TypeDefinition) (bool, error)

// detectors are ordered from the most general to the most specific rule;
// they are evaluated last to first so specific rules override general ones.
var detectors []detector

func init() {
	detectors = []detector{
		detectStructure,
		detectEnumerable,
		detectArray,
		detectCollection,
		detectDictionary,
		detectPrimitive,
		detectEnum,
		detectNullable,
	}
}

func detectNullable(p *populator, def *TypeDefinition) (bool, error) {
	t := def.rType
	if t.Kind() != reflect.Ptr || (t.Elem().Kind() == reflect.Struct && t.Elem() != timeType) {
		return false, nil
	}
	elem, err := p.definition(t.Elem())
	if err != nil {
		return false, err
	}
	def.category = CategoryNullable
	def.elem = elem
	return true, nil
}

func detectEnum(p *populator, def *TypeDefinition) (bool, error) {
	enum := p.cache.enum(def.rType)
	if enum == nil {
		return false, nil
	}
	def.category = CategoryEnum
	def.enum = enum
	return true, nil
}

func detectPrimitive(p *populator, def *TypeDefinition) (bool, error) {
	if !isPrimitive(def.rType) {
		return false, nil
	}
	def.category = CategoryPrimitive
	return true, nil
}

func isPrimitive(t reflect.Type) bool {
	if t == timeType {
		return true
	}
	switch t.Kind() {
	case reflect.Bool, reflect.String,
		reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64,
		reflect.Float32, reflect.Float64:
		return true
	}
	return false
}

// IsDictionaryKey reports whether t can be rendered as a JSON property name.
func IsDictionaryKey(t reflect.Type) bool {
	switch t.Kind() {
	case reflect.String,
		reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64,
		reflect.Float32, reflect.Float64:
		return true
	}
	return false
}

func detectDictionary(p *populator, def *TypeDefinition) (bool, error) {
	t := def.rType
	if t.Kind() != reflect.Map || !IsDictionaryKey(t.Key()) {
		return false, nil
	}
	key, err := p.definition(t.Key())
	if err != nil {
		return false, err
	}
	elem, err := p.definition(t.Elem())
	if err != nil {
		return false, err
	}
	def.category = CategoryDictionary
	def.key = key
	def.elem = elem
	return true, nil
}

func detectCollection(p *populator, def *TypeDefinition) (bool, error) {
	methods := collectionMethodsOf(def.rType)
	if methods == nil {
		return false, nil
	}
	elem, err := p.definition(methods.itemType)
	if err != nil {
		return false, err
	}
	def.category = CategoryCollection
	def.collection = methods
	def.elem = elem
	return true, nil
}

func detectArray(p *populator, def *TypeDefinition) (bool, error) {
	if def.rType.Kind() != reflect.Array {
		return false, nil
	}
	elem, err := p.definition(def.rType.Elem())
	if err != nil {
		return false, err
	}
	def.category = CategoryArray
	def.elem = elem
	return true, nil
}

func detectEnumerable(p *populator, def *TypeDefinition) (bool, error) {
	t := def.rType
	var itemType reflect.Type
	switch t.Kind() {
	case reflect.Slice:
		itemType = t.Elem()
	case reflect.Map:
		itemType = entryType(t)
		def.entries = true
	default:
		return false, nil
	}
	elem, err := p.definition(itemType)
	if err != nil {
		return false, err
	}
	def.category = CategorySequence
	def.elem = elem
	return true, nil
}

// entryType returns the {Key, Value} item type used for maps whose keys are not property names.
func entryType(mapType reflect.Type) reflect.Type {
	return reflect.StructOf([]reflect.StructField{
		{Name: "Key", Type: mapType.Key()},
		{Name: "Value", Type: mapType.Elem()},
	})
}

func detectStructure(p *populator, def *TypeDefinition) (bool, error) {
	t := def.rType
	switch t.Kind() {
	case reflect.Interface:
		def.category = CategoryStructure
		return true, nil
	case reflect.Struct:
		def.category = CategoryStructure
		return true, p.populateStructure(def)
	case reflect.Ptr:
		if t.Elem().Kind() != reflect.Struct {
			return false, nil
		}
		target, err := p.definition(t.Elem())
		if err != nil {
			return false, err
		}
		if target.structure == nil {
			return false, fmt.Errorf("%w: %v", ErrUnsupportedType, t)
		}
		def.category = CategoryStructure
		def.structure = target.structure
		def.elem = target
		return true, nil
	}
	return false, nil
}
