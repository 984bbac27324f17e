package structgraph

import (
	"reflect"
	"strings"
)

// TypeDefinition describes how values of one type are decomposed and rebuilt.
// It is immutable once published by a Cache.
type TypeDefinition struct {
	rType      reflect.Type
	identifier string
	category   Category
	elem       *TypeDefinition
	key        *TypeDefinition
	structure  *structure
	enum       *EnumDefinition
	collection *collectionMethods
	entries    bool
}

// structure holds members shared by a struct type and its pointer type.
type structure struct {
	rType        reflect.Type
	properties   []*Property
	byName       map[string]*Property
	byFoldedName map[string]*Property
	constructors []*Constructor
	preBuilds    []*PreBuild
	marker       *Marker
	zeroValue    bool
}

func (s *structure) addProperty(property *Property) {
	if _, ok := s.byName[property.Name]; ok {
		return
	}
	property.index = len(s.properties)
	s.properties = append(s.properties, property)
	s.byName[property.Name] = property
	folded := strings.ToLower(property.Name)
	if _, ok := s.byFoldedName[folded]; !ok {
		s.byFoldedName[folded] = property
	}
}

// Type returns the described type
func (d *TypeDefinition) Type() reflect.Type { return d.rType }

// Identifier returns the default serializable type identifier
func (d *TypeDefinition) Identifier() string { return d.identifier }

// Category returns type category
func (d *TypeDefinition) Category() Category { return d.category }

// Elem returns item, value, underlying or pointed-to struct definition
func (d *TypeDefinition) Elem() *TypeDefinition { return d.elem }

// Key returns dictionary key definition
func (d *TypeDefinition) Key() *TypeDefinition { return d.key }

// Enum returns enum names, or nil for non enum types
func (d *TypeDefinition) Enum() *EnumDefinition { return d.enum }

// IsEntries returns true for maps rendered as a sequence of {Key, Value} entries
func (d *TypeDefinition) IsEntries() bool { return d.entries }

// IsPointer returns true for pointer to struct definitions
func (d *TypeDefinition) IsPointer() bool {
	return d.category == CategoryStructure && d.rType.Kind() == reflect.Ptr
}

// IsAbstract returns true for interface types
func (d *TypeDefinition) IsAbstract() bool {
	return d.rType.Kind() == reflect.Interface
}

// StructType returns the struct type backing a structure definition
func (d *TypeDefinition) StructType() reflect.Type {
	if d.structure == nil {
		return nil
	}
	return d.structure.rType
}

// Properties returns structure properties in declaration order
func (d *TypeDefinition) Properties() []*Property {
	if d.structure == nil {
		return nil
	}
	return d.structure.properties
}

// Property returns a property matched by name, falling back to case-insensitive match
func (d *TypeDefinition) Property(name string) *Property {
	if d.structure == nil {
		return nil
	}
	if ret, ok := d.structure.byName[name]; ok {
		return ret
	}
	return d.structure.byFoldedName[strings.ToLower(name)]
}

// Constructors returns registered constructors in registration order
func (d *TypeDefinition) Constructors() []*Constructor {
	if d.structure == nil {
		return nil
	}
	return d.structure.constructors
}

// CanZeroConstruct returns true if a zero value is a valid starting instance
func (d *TypeDefinition) CanZeroConstruct() bool {
	return d.structure != nil && d.structure.zeroValue
}

// Marker returns presence marker or nil
func (d *TypeDefinition) Marker() *Marker {
	if d.structure == nil {
		return nil
	}
	return d.structure.marker
}

// PreBuilds returns all prebuild registrations
func (d *TypeDefinition) PreBuilds() []*PreBuild {
	if d.structure == nil {
		return nil
	}
	return d.structure.preBuilds
}

// PreBuild returns the registration applicable to the source and raw context type, or nil
func (d *TypeDefinition) PreBuild(source Source, raw reflect.Type) *PreBuild {
	for _, candidate := range d.PreBuilds() {
		if candidate.Raw != raw {
			continue
		}
		if candidate.Source == SourceAny || candidate.Source == source {
			return candidate
		}
	}
	return nil
}

// IsSerializable returns true if values can be read
func (d *TypeDefinition) IsSerializable() bool {
	return !d.IsAbstract()
}

// IsDeserializable returns true if values can be built
func (d *TypeDefinition) IsDeserializable() bool {
	if d.IsAbstract() {
		return false
	}
	if d.category != CategoryStructure {
		return true
	}
	return d.structure.zeroValue || len(d.structure.constructors) > 0
}

// CollectionAdd appends item to a collection addressed by holder (a pointer when the adder uses pointer receiver)
func (d *TypeDefinition) CollectionAdd(collection reflect.Value, item reflect.Value) {
	d.collection.add(collection, item)
}

// CollectionItems returns collection items in iteration order
func (d *TypeDefinition) CollectionItems(collection reflect.Value) []reflect.Value {
	return d.collection.items(collection)
}

// NewCollection allocates an empty collection, returning an addressable value
func (d *TypeDefinition) NewCollection() reflect.Value {
	return d.collection.newCollection(d.rType)
}
