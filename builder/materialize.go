package builder

import (
	"fmt"
	"math"
	"reflect"
	"strconv"

	"github.com/viant/structgraph"
	"github.com/viant/structgraph/conv"
)

// Value materializes the root value as the builder target type
func (b *Builder) Value() (interface{}, error) {
	value, err := b.materializeRoot(b.target)
	if err != nil {
		return nil, err
	}
	if !value.IsValid() {
		return nil, nil
	}
	return value.Interface(), nil
}

// Into materializes the root value into dest pointer; a root structure built without
// constructors is populated in place of *dest
func (b *Builder) Into(dest interface{}) error {
	destValue := reflect.ValueOf(dest)
	if destValue.Kind() != reflect.Ptr || destValue.IsNil() {
		return fmt.Errorf("%w: destination has to be a non nil pointer, but had %T", structgraph.ErrUnsupportedOperation, dest)
	}
	destType := destValue.Type().Elem()
	if root, ok := b.root.(*structNode); ok && root.state == statePending && len(root.def.Constructors()) == 0 {
		switch {
		case root.def.Type() == destType:
			root.instance = destValue
		case destType.Kind() == reflect.Ptr && destType.Elem() == root.def.Type() && !destValue.Elem().IsNil():
			root.instance = destValue.Elem()
		}
	}
	value, err := b.materializeRoot(destType)
	if err != nil {
		return err
	}
	destValue.Elem().Set(value)
	return nil
}

// Build materializes the root value of a builder created for T
func Build[T any](b *Builder) (T, error) {
	var result T
	err := b.Into(&result)
	return result, err
}

func (b *Builder) materializeRoot(t reflect.Type) (reflect.Value, error) {
	if len(b.stack) > 0 {
		return reflect.Value{}, fmt.Errorf("%w: %v containers were not completed", structgraph.ErrUnsupportedOperation, len(b.stack))
	}
	if !b.done {
		return reflect.Value{}, fmt.Errorf("%w: no value was written", structgraph.ErrObjectNotInitialized)
	}
	if t == nil {
		t = interfaceType
	}
	value, err := b.materialize(b.root, t, "")
	if err != nil {
		return reflect.Value{}, err
	}
	fixups := b.fixups
	b.fixups = nil
	for _, fixup := range fixups {
		if err = fixup(); err != nil {
			return reflect.Value{}, err
		}
	}
	return value, nil
}

func (b *Builder) materialize(n node, t reflect.Type, layout string) (reflect.Value, error) {
	if t == nil {
		t = interfaceType
	}
	switch actual := n.(type) {
	case *valueNode:
		return b.scalar(actual.value, t, layout)
	case *structNode:
		instance, err := b.structure(actual)
		if err != nil {
			return reflect.Value{}, err
		}
		if !instance.IsValid() {
			return reflect.Value{}, fmt.Errorf("%w: %v is referenced before its constructor completed", structgraph.ErrCycle, actual.def.Type())
		}
		value, err := as(instance, actual.pointer, t)
		if err == nil && actual.deferred && !shared(value) && n != b.root {
			return reflect.Value{}, fmt.Errorf("%w: %v refers to a structure under construction and can not be copied as %v", structgraph.ErrCycle, actual.def.Type(), t)
		}
		return value, err
	case *dictNode:
		retyped, err := b.retype(actual, t)
		if err != nil {
			return reflect.Value{}, err
		}
		if retyped != nil {
			return b.materialize(retyped, t, layout)
		}
		value, err := b.dictionary(actual)
		if err != nil {
			return reflect.Value{}, err
		}
		return adapt(value, t)
	case *sequenceNode:
		if retyped := b.retypeSequence(actual, t); retyped != nil {
			actual = retyped
		}
		value, err := b.sequence(actual)
		if err != nil {
			return reflect.Value{}, err
		}
		return adapt(value, t)
	case *referenceNode:
		return b.materialize(b.arena[actual.index], t, layout)
	case *resolvedNode:
		return as(actual.value, actual.pointer, t)
	case *placeholderNode:
		return reflect.Value{}, fmt.Errorf("%w: structure %v was not buffered", structgraph.ErrInvalidReference, actual.index)
	}
	return reflect.Value{}, fmt.Errorf("%w: unexpected node %T", structgraph.ErrUnsupportedOperation, n)
}

// pending returns the structure a node refers to when it is still waiting for its constructor
func (b *Builder) pending(n node) *structNode {
	if ref, ok := n.(*referenceNode); ok {
		n = b.arena[ref.index]
	}
	if target, ok := n.(*structNode); ok && target.state == stateConstructing {
		return target
	}
	return nil
}

func (b *Builder) converter(layout string) *conv.Converter {
	if layout == "" {
		layout = b.options.TimeLayout
	}
	ret, ok := b.converters[layout]
	if !ok {
		ret = conv.NewConverter(conv.Options{TimeLayout: layout, Strict: b.options.Mode == ModeStrict})
		b.options.register(ret)
		b.converters[layout] = ret
	}
	return ret
}

func (b *Builder) scalar(value interface{}, t reflect.Type, layout string) (reflect.Value, error) {
	if value == nil {
		if nillable(t) || b.options.NullPolicy == CompatNulls {
			return reflect.Zero(t), nil
		}
		return reflect.Value{}, fmt.Errorf("%w: null can not be assigned to %v", structgraph.ErrPropertyTypeMismatch, t)
	}
	if t == interfaceType {
		result := reflect.New(t).Elem()
		result.Set(reflect.ValueOf(value))
		return result, nil
	}
	if b.options.conversion(value, t) {
		result, err := b.converter(layout).ConvertValue(reflect.ValueOf(value), t)
		if err != nil {
			return reflect.Value{}, fmt.Errorf("%w: %w", structgraph.ErrPropertyTypeMismatch, err)
		}
		return result, nil
	}
	def, err := b.cache.Definition(t)
	if err != nil {
		return reflect.Value{}, err
	}
	switch def.Category() {
	case structgraph.CategoryNullable:
		elem, err := b.scalar(value, t.Elem(), layout)
		if err != nil {
			return reflect.Value{}, err
		}
		ptr := reflect.New(t.Elem())
		ptr.Elem().Set(elem)
		return ptr, nil
	case structgraph.CategoryEnum:
		var number int64
		switch actual := value.(type) {
		case string:
			if number, err = def.Enum().Parse(actual); err != nil {
				return reflect.Value{}, fmt.Errorf("%w: %v: %w", structgraph.ErrPropertyTypeMismatch, t, err)
			}
		case float64:
			if actual != math.Trunc(actual) {
				return reflect.Value{}, fmt.Errorf("%w: %v is not a valid %v", structgraph.ErrPropertyTypeMismatch, actual, t)
			}
			number = int64(actual)
		default:
			return reflect.Value{}, fmt.Errorf("%w: %T can not be assigned to %v", structgraph.ErrPropertyTypeMismatch, value, t)
		}
		result := reflect.New(t).Elem()
		structgraph.SetEnumInt(result, number)
		return result, nil
	case structgraph.CategoryPrimitive:
		result, err := b.converter(layout).ConvertValue(reflect.ValueOf(value), t)
		if err != nil {
			return reflect.Value{}, fmt.Errorf("%w: %w", structgraph.ErrPropertyTypeMismatch, err)
		}
		return result, nil
	case structgraph.CategoryStructure:
		if def.IsAbstract() && reflect.TypeOf(value).Implements(t) {
			result := reflect.New(t).Elem()
			result.Set(reflect.ValueOf(value))
			return result, nil
		}
	}
	return reflect.Value{}, fmt.Errorf("%w: %T can not be assigned to %v", structgraph.ErrPropertyTypeMismatch, value, t)
}

// structure returns the instance pointer of n, constructing and populating it on first use;
// an invalid value is returned while n waits for its constructor
func (b *Builder) structure(n *structNode) (reflect.Value, error) {
	switch n.state {
	case stateConstructing:
		return reflect.Value{}, nil
	case statePopulating, stateDone:
		return n.instance, nil
	}
	consumed := make([]bool, len(n.names))
	if !n.instance.IsValid() {
		n.state = stateConstructing
		instance, err := b.construct(n, consumed)
		if err != nil {
			return reflect.Value{}, err
		}
		n.instance = instance
	}
	if marker := n.def.Marker(); marker != nil {
		marker.EnsureHolder(n.instance.UnsafePointer())
	}
	n.state = statePopulating
	for i, name := range n.names {
		if consumed[i] {
			continue
		}
		if err := b.assign(n, name, n.values[i]); err != nil {
			return reflect.Value{}, err
		}
	}
	n.state = stateDone
	return n.instance, nil
}

// construct invokes the first constructor satisfied by buffered properties,
// falling back to zero value when permitted
func (b *Builder) construct(n *structNode, consumed []bool) (reflect.Value, error) {
	def := n.def
	for _, constructor := range def.Constructors() {
		positions, ok := b.match(n, constructor)
		if !ok {
			continue
		}
		b.options.Logger.Debug("selected constructor", "constructor", constructor.String())
		args := make([]reflect.Value, len(constructor.Parameters))
		for i, param := range constructor.Parameters {
			position := positions[i]
			if position < 0 {
				args[i] = reflect.Zero(param.Type)
				continue
			}
			consumed[position] = true
			child := n.values[position]
			if target := b.pending(child); target != nil {
				if err := b.deferParameter(n, param, target); err != nil {
					return reflect.Value{}, err
				}
				args[i] = reflect.Zero(param.Type)
				continue
			}
			value, err := b.materialize(child, param.Type, "")
			if err != nil {
				return reflect.Value{}, structgraph.WrapPath(err, n.typeName(), param.Name)
			}
			args[i] = value
		}
		instance, err := constructor.Invoke(args)
		if err != nil {
			return reflect.Value{}, fmt.Errorf("%v: %w", constructor, err)
		}
		return instance, nil
	}
	if def.CanZeroConstruct() {
		return reflect.New(def.Type()), nil
	}
	return reflect.Value{}, fmt.Errorf("%w: %v offered %v", structgraph.ErrNoMatchingConstructor, def.Type(), n.offered())
}

// match returns buffered value positions per constructor parameter, -1 for omitted nillable parameters
func (b *Builder) match(n *structNode, constructor *structgraph.Constructor) ([]int, bool) {
	positions := make([]int, len(constructor.Parameters))
	for i, param := range constructor.Parameters {
		position := n.lookup(param.Name, b.options.CaseFormat)
		positions[i] = position
		if position < 0 {
			if !param.IsNillable() {
				return nil, false
			}
			continue
		}
		if !b.compatible(n.values[position], param.Type) {
			return nil, false
		}
	}
	return positions, true
}

// compatible reports whether n can be materialized as t
func (b *Builder) compatible(n node, t reflect.Type) bool {
	switch actual := n.(type) {
	case *valueNode:
		_, err := b.scalar(actual.value, t, "")
		return err == nil
	case *referenceNode:
		return b.compatible(b.arena[actual.index], t)
	case *structNode:
		return adaptable(reflect.PointerTo(actual.def.Type()), t)
	case *dictNode:
		if def, err := b.retypeDefinition(actual, t); err == nil && def != nil {
			return adaptable(instanceType(def), t)
		}
		return adaptable(actual.def.Type(), t)
	case *sequenceNode:
		if retyped := b.retypeSequence(actual, t); retyped != nil {
			return adaptable(retyped.def.Type(), t)
		}
		return adaptable(actual.def.Type(), t)
	case *resolvedNode:
		return adaptable(actual.value.Type(), t)
	}
	return false
}

// deferParameter assigns a constructor parameter referring to a structure under construction
// through the matching property once the root is materialized
func (b *Builder) deferParameter(n *structNode, param *structgraph.Parameter, target *structNode) error {
	property := n.def.Lookup(param.Name, b.options.CaseFormat)
	if !param.IsNillable() || property == nil || !property.CanSet() {
		return structgraph.WrapPath(fmt.Errorf("%w: %v can not be passed before its constructor completed", structgraph.ErrCycle, target.def.Type()), n.typeName(), param.Name)
	}
	n.deferred = true
	b.fixups = append(b.fixups, func() error {
		return b.setDeferred(n, property, target)
	})
	return nil
}

func (b *Builder) setDeferred(n *structNode, property *structgraph.Property, target *structNode) error {
	value, err := as(target.instance, target.pointer, property.Type())
	if err == nil {
		err = property.Set(n.instance, value)
	}
	if err != nil {
		return structgraph.WrapPath(err, n.typeName(), property.Name)
	}
	b.mark(n, property)
	return nil
}

// assign sets a buffered property that was not consumed by the constructor
func (b *Builder) assign(n *structNode, name string, child node) error {
	property := n.def.Lookup(name, b.options.CaseFormat)
	if property == nil {
		if b.options.UnknownFieldPolicy == ErrorOnUnknown {
			return structgraph.WrapPath(fmt.Errorf("%w: %v", structgraph.ErrUnknownProperty, name), n.typeName(), name)
		}
		return nil
	}
	if !property.CanSet() {
		return b.populate(n, property, child)
	}
	if target := b.pending(child); target != nil {
		n.deferred = true
		b.fixups = append(b.fixups, func() error {
			return b.setDeferred(n, property, target)
		})
		return nil
	}
	value, err := b.materialize(child, property.Type(), property.TimeLayout)
	if err == nil {
		err = property.Set(n.instance, value)
	}
	if err != nil {
		return structgraph.WrapPath(err, n.typeName(), property.Name)
	}
	b.mark(n, property)
	return nil
}

// populate fills collection or dictionary returned by a getter without a setter
func (b *Builder) populate(n *structNode, property *structgraph.Property, child node) error {
	if null, ok := child.(*valueNode); ok && null.value == nil {
		return nil
	}
	current := property.Get(n.instance)
	def := property.Definition()
	for def.Category() == structgraph.CategoryNullable {
		def = def.Elem()
	}
	var err error
	switch actual := child.(type) {
	case *sequenceNode:
		if def.Category() != structgraph.CategoryCollection || (current.Kind() == reflect.Ptr && current.IsNil()) {
			break
		}
		itemType := def.Elem().Type()
		for i, item := range actual.items {
			value, itemErr := b.materialize(item, itemType, "")
			if itemErr != nil {
				err = structgraph.WrapPath(itemErr, "", "["+strconv.Itoa(i)+"]")
				break
			}
			def.CollectionAdd(current, value)
		}
		return structgraph.WrapPath(err, n.typeName(), property.Name)
	case *dictNode:
		if def.Category() != structgraph.CategoryDictionary || current.IsNil() {
			break
		}
		return structgraph.WrapPath(b.fill(current, actual), n.typeName(), property.Name)
	}
	if b.options.UnknownFieldPolicy == ErrorOnUnknown {
		return structgraph.WrapPath(fmt.Errorf("%w: property is read-only", structgraph.ErrUnsupportedOperation), n.typeName(), property.Name)
	}
	return nil
}

func (b *Builder) mark(n *structNode, property *structgraph.Property) {
	marker := n.def.Marker()
	if marker == nil || property.MarkerIndex() < 0 {
		return
	}
	ptr := n.instance.UnsafePointer()
	marker.EnsureHolder(ptr)
	_ = marker.Set(ptr, property.MarkerIndex(), true)
}

func (b *Builder) dictionary(n *dictNode) (reflect.Value, error) {
	if n.instance.IsValid() {
		return n.instance, nil
	}
	n.instance = reflect.MakeMapWithSize(n.def.Type(), len(n.names))
	if err := b.fill(n.instance, n); err != nil {
		return reflect.Value{}, err
	}
	return n.instance, nil
}

// fill sets dictionary entries of n into map m
func (b *Builder) fill(m reflect.Value, n *dictNode) error {
	keyType, elemType := m.Type().Key(), m.Type().Elem()
	for i, name := range n.names {
		key, err := b.keys.ConvertValue(reflect.ValueOf(name), keyType)
		if err != nil {
			return structgraph.WrapPath(fmt.Errorf("%w: %w", structgraph.ErrPropertyTypeMismatch, err), "", name)
		}
		if target := b.pending(n.values[i]); target != nil {
			b.fixups = append(b.fixups, func() error {
				value, err := as(target.instance, target.pointer, elemType)
				if err != nil {
					return structgraph.WrapPath(err, "", name)
				}
				m.SetMapIndex(key, value)
				return nil
			})
			continue
		}
		value, err := b.materialize(n.values[i], elemType, "")
		if err != nil {
			return structgraph.WrapPath(err, "", name)
		}
		m.SetMapIndex(key, value)
	}
	return nil
}

func (b *Builder) sequence(n *sequenceNode) (reflect.Value, error) {
	def := n.def
	t := def.Type()
	switch def.Category() {
	case structgraph.CategoryArray:
		if len(n.items) > t.Len() {
			return reflect.Value{}, fmt.Errorf("%w: %v can not hold %v items", structgraph.ErrPropertyTypeMismatch, t, len(n.items))
		}
		result := reflect.New(t).Elem()
		for i, item := range n.items {
			value, err := b.materialize(item, t.Elem(), "")
			if err != nil {
				return reflect.Value{}, structgraph.WrapPath(err, "", "["+strconv.Itoa(i)+"]")
			}
			result.Index(i).Set(value)
		}
		return result, nil
	case structgraph.CategoryCollection:
		result := def.NewCollection()
		itemType := def.Elem().Type()
		for i, item := range n.items {
			value, err := b.materialize(item, itemType, "")
			if err != nil {
				return reflect.Value{}, structgraph.WrapPath(err, "", "["+strconv.Itoa(i)+"]")
			}
			def.CollectionAdd(result, value)
		}
		return result, nil
	}
	if def.IsEntries() {
		return b.entries(n)
	}
	result := reflect.MakeSlice(t, len(n.items), len(n.items))
	for i, item := range n.items {
		slot := result.Index(i)
		if target := b.pending(item); target != nil {
			b.fixups = append(b.fixups, func() error {
				value, err := as(target.instance, target.pointer, slot.Type())
				if err != nil {
					return err
				}
				slot.Set(value)
				return nil
			})
			continue
		}
		value, err := b.materialize(item, t.Elem(), "")
		if err != nil {
			return reflect.Value{}, structgraph.WrapPath(err, "", "["+strconv.Itoa(i)+"]")
		}
		slot.Set(value)
	}
	return result, nil
}

// entries rebuilds a map from a sequence of {Key, Value} structures
func (b *Builder) entries(n *sequenceNode) (reflect.Value, error) {
	t := n.def.Type()
	entryType := n.def.Elem().Type()
	result := reflect.MakeMapWithSize(t, len(n.items))
	for i, item := range n.items {
		entry, err := b.materialize(item, entryType, "")
		if err != nil {
			return reflect.Value{}, structgraph.WrapPath(err, "", "["+strconv.Itoa(i)+"]")
		}
		result.SetMapIndex(entry.Field(0), entry.Field(1))
	}
	return result, nil
}

// as presents structure instance pointer as t, pointer prefers the pointer for interfaces
func as(instance reflect.Value, pointer bool, t reflect.Type) (reflect.Value, error) {
	switch {
	case instance.Type() == t:
		return instance, nil
	case instance.Type().Elem() == t:
		return instance.Elem(), nil
	case t.Kind() == reflect.Interface:
		candidates := []reflect.Value{instance.Elem(), instance}
		if pointer {
			candidates[0], candidates[1] = instance, instance.Elem()
		}
		for _, candidate := range candidates {
			if candidate.Type().Implements(t) {
				result := reflect.New(t).Elem()
				result.Set(candidate)
				return result, nil
			}
		}
	}
	return reflect.Value{}, fmt.Errorf("%w: %v can not be assigned to %v", structgraph.ErrPropertyTypeMismatch, instance.Type(), t)
}

// shared reports whether value still points to the instance it was presented from
func shared(value reflect.Value) bool {
	if value.Kind() == reflect.Interface {
		value = value.Elem()
	}
	return value.Kind() == reflect.Ptr
}

// retype rebuilds a generic dictionary buffered for an ignored property as the structure
// or dictionary requested by t; the arena slot is replaced so later references share the result
func (b *Builder) retype(n *dictNode, t reflect.Type) (node, error) {
	def, err := b.retypeDefinition(n, t)
	if err != nil || def == nil {
		return nil, err
	}
	var result node
	if def.Category() == structgraph.CategoryDictionary {
		result = &dictNode{index: n.index, def: def, names: n.names, values: n.values}
	} else {
		structDef, pointer := def, false
		if def.IsPointer() {
			structDef, pointer = def.Elem(), true
		}
		result = &structNode{index: n.index, def: structDef, pointer: pointer, names: n.names, values: n.values}
	}
	b.arena[n.index] = result
	return result, nil
}

// retypeDefinition returns the definition n has to be rebuilt as to be presented as t, nil keeps n generic
func (b *Builder) retypeDefinition(n *dictNode, t reflect.Type) (*structgraph.TypeDefinition, error) {
	if n.def.Type() != genericMapType || n.instance.IsValid() || adaptable(genericMapType, t) {
		return nil, nil
	}
	var def *structgraph.TypeDefinition
	var err error
	if n.typeID != "" {
		def, err = b.cache.Lookup(n.typeID, b.options.Namer)
	} else {
		def, err = b.cache.Definition(t)
	}
	if err != nil {
		return nil, err
	}
	for def.Category() == structgraph.CategoryNullable {
		def = def.Elem()
	}
	switch def.Category() {
	case structgraph.CategoryDictionary:
		return def, nil
	case structgraph.CategoryStructure:
		if !def.IsAbstract() {
			return def, nil
		}
	}
	return nil, nil
}

// retypeSequence rebuilds a generic sequence buffered for an ignored property as t, nil keeps n generic
func (b *Builder) retypeSequence(n *sequenceNode, t reflect.Type) *sequenceNode {
	if n.def.Type() != genericSeqType || adaptable(genericSeqType, t) {
		return nil
	}
	def, err := b.cache.Definition(t)
	if err != nil {
		return nil
	}
	for def.Category() == structgraph.CategoryNullable {
		def = def.Elem()
	}
	switch def.Category() {
	case structgraph.CategoryArray, structgraph.CategorySequence, structgraph.CategoryCollection:
		return &sequenceNode{def: def, items: n.items}
	}
	return nil
}

// instanceType returns the type a node built for def is presented from
func instanceType(def *structgraph.TypeDefinition) reflect.Type {
	if def.Category() == structgraph.CategoryStructure && !def.IsPointer() {
		return reflect.PointerTo(def.Type())
	}
	return def.Type()
}

// adapt presents value as t
func adapt(value reflect.Value, t reflect.Type) (reflect.Value, error) {
	switch {
	case value.Type() == t:
		return value, nil
	case value.Type().AssignableTo(t):
		result := reflect.New(t).Elem()
		result.Set(value)
		return result, nil
	case t.Kind() == reflect.Ptr && value.Type().AssignableTo(t.Elem()):
		ptr := reflect.New(t.Elem())
		ptr.Elem().Set(value)
		return ptr, nil
	case value.Kind() == reflect.Ptr && value.Type().Elem() == t:
		return value.Elem(), nil
	}
	return reflect.Value{}, fmt.Errorf("%w: %v can not be assigned to %v", structgraph.ErrPropertyTypeMismatch, value.Type(), t)
}

func nillable(t reflect.Type) bool {
	switch t.Kind() {
	case reflect.Ptr, reflect.Interface, reflect.Map, reflect.Slice:
		return true
	}
	return false
}
