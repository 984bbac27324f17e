package builder

import (
	"fmt"
	"reflect"

	"github.com/viant/structgraph"
	"github.com/viant/structgraph/conv"
)

var (
	interfaceType  = reflect.TypeOf((*interface{})(nil)).Elem()
	genericMapType = reflect.TypeOf(map[string]interface{}{})
	genericSeqType = reflect.TypeOf([]interface{}{})
)

// Builder reconstructs typed values from an operation stream.
// Incoming structures are buffered and instantiated when the value is requested,
// so that constructor parameters can be matched against every supplied property.
// A Builder serves a single conversion and is not safe for concurrent use.
type Builder struct {
	cache      *structgraph.Cache
	options    Options
	target     reflect.Type
	converters map[string]*conv.Converter
	keys       *conv.Converter
	stack      []*frame
	arena      []node
	root       node
	done       bool
	fixups     []func() error
	// skipPreBuild suppresses hooks for the root of a replayed prebuild result
	skipPreBuild bool
}

type frameKind int

const (
	structureFrame frameKind = iota
	dictionaryFrame
	sequenceFrame
	preBuildFrame
)

type frame struct {
	kind       frameKind
	structure  *structNode
	dictionary *dictNode
	sequence   *sequenceNode
	redirect   *redirect
	name       string
	named      bool
	depth      int
	// ignored frames buffer values of unknown properties so that later references can resolve them
	ignored bool
	// detached frames are not attached to their parent
	detached bool
}

// New creates a builder for target type, a nil target requires the root structure to carry a type identifier
func New(cache *structgraph.Cache, target reflect.Type, opts ...Option) *Builder {
	if cache == nil {
		cache = structgraph.Default()
	}
	options := resolveOptions(opts)
	if options.Namer == nil {
		options.Namer = cache.Namer()
	}
	if options.Logger == nil {
		options.Logger = cache.Logger()
	}
	keys := conv.NewConverter(conv.Options{TimeLayout: options.TimeLayout})
	options.register(keys)
	return &Builder{
		cache:      cache,
		options:    options,
		target:     target,
		converters: map[string]*conv.Converter{},
		keys:       keys,
	}
}

// Options returns builder options
func (b *Builder) Options() Options {
	return b.options
}

func (b *Builder) top() *frame {
	if len(b.stack) == 0 {
		return nil
	}
	return b.stack[len(b.stack)-1]
}

func (b *Builder) push(f *frame) {
	b.stack = append(b.stack, f)
}

func (b *Builder) pop() {
	b.stack = b.stack[:len(b.stack)-1]
}

// reserve consumes an arena slot for a structure that is not buffered
func (b *Builder) reserve() {
	b.arena = append(b.arena, &placeholderNode{index: len(b.arena)})
}

// WriteNull writes null value
func (b *Builder) WriteNull() error {
	return b.writeValue(nil)
}

// Write writes bool, float64 or string value
func (b *Builder) Write(value interface{}) error {
	return b.writeValue(value)
}

func (b *Builder) writeValue(value interface{}) error {
	if top := b.top(); top != nil && top.kind == preBuildFrame {
		if value == nil {
			return top.redirect.writer.WriteNull()
		}
		return top.redirect.writer.Write(value)
	}
	if _, skip, err := b.slot(); err != nil || skip {
		return err
	}
	return b.attach(&valueNode{value: value})
}

// BeginStructure starts a structure, typeID overrides the declared type
func (b *Builder) BeginStructure(typeID string) error {
	if top := b.top(); top != nil && top.kind == preBuildFrame {
		top.depth++
		b.reserve()
		return top.redirect.writer.BeginStructure(typeID)
	}
	declared, skip, err := b.slot()
	if err != nil {
		return err
	}
	if skip || b.ignoring() {
		def, err := b.cache.Definition(genericMapType)
		if err != nil {
			return err
		}
		n := &dictNode{index: len(b.arena), def: def, typeID: typeID}
		b.arena = append(b.arena, n)
		b.push(&frame{kind: dictionaryFrame, dictionary: n, ignored: true, detached: skip})
		return nil
	}
	def, err := b.resolve(typeID, declared, genericMapType)
	if err != nil {
		return b.wrap(err)
	}
	switch def.Category() {
	case structgraph.CategoryDictionary:
		n := &dictNode{index: len(b.arena), def: def}
		b.arena = append(b.arena, n)
		b.push(&frame{kind: dictionaryFrame, dictionary: n})
		return nil
	case structgraph.CategoryStructure:
		if def.IsAbstract() {
			break
		}
		structDef, pointer := def, false
		if def.IsPointer() {
			structDef, pointer = def.Elem(), true
		}
		if hook := b.preBuild(structDef); hook != nil {
			return b.redirect(hook, structDef, pointer)
		}
		n := &structNode{index: len(b.arena), def: structDef, pointer: pointer}
		b.arena = append(b.arena, n)
		b.push(&frame{kind: structureFrame, structure: n})
		return nil
	}
	return b.wrap(fmt.Errorf("%w: %v can not be built from a structure", structgraph.ErrPropertyTypeMismatch, def.Type()))
}

// AddProperty sets name of the next value
func (b *Builder) AddProperty(name string) error {
	top := b.top()
	if top == nil {
		return fmt.Errorf("%w: property %v outside of a structure", structgraph.ErrObjectNotInitialized, name)
	}
	switch top.kind {
	case preBuildFrame:
		return top.redirect.writer.AddProperty(name)
	case sequenceFrame:
		return fmt.Errorf("%w: property %v inside a sequence", structgraph.ErrUnsupportedOperation, name)
	}
	if top.named {
		return fmt.Errorf("%w: property %v has no value", structgraph.ErrUnsupportedOperation, top.name)
	}
	top.name, top.named = name, true
	return nil
}

// EndStructure completes the current structure
func (b *Builder) EndStructure() error {
	top := b.top()
	if top == nil {
		return fmt.Errorf("%w: structure end without begin", structgraph.ErrObjectNotInitialized)
	}
	switch top.kind {
	case preBuildFrame:
		if err := top.redirect.writer.EndStructure(); err != nil {
			return err
		}
		if top.depth--; top.depth > 0 {
			return nil
		}
		b.pop()
		return b.complete(top.redirect)
	case sequenceFrame:
		return fmt.Errorf("%w: structure end inside a sequence", structgraph.ErrUnsupportedOperation)
	}
	if top.named {
		return fmt.Errorf("%w: property %v has no value", structgraph.ErrUnsupportedOperation, top.name)
	}
	b.pop()
	if top.detached {
		return nil
	}
	if top.kind == dictionaryFrame {
		return b.attach(top.dictionary)
	}
	return b.attach(top.structure)
}

// BeginSequence starts a sequence
func (b *Builder) BeginSequence() error {
	if top := b.top(); top != nil && top.kind == preBuildFrame {
		top.depth++
		return top.redirect.writer.BeginSequence()
	}
	declared, skip, err := b.slot()
	if err != nil {
		return err
	}
	if skip || b.ignoring() {
		def, err := b.cache.Definition(genericSeqType)
		if err != nil {
			return err
		}
		b.push(&frame{kind: sequenceFrame, sequence: &sequenceNode{def: def}, ignored: true, detached: skip})
		return nil
	}
	def, err := b.resolve("", declared, genericSeqType)
	if err != nil {
		return b.wrap(err)
	}
	switch def.Category() {
	case structgraph.CategoryArray, structgraph.CategorySequence, structgraph.CategoryCollection:
		b.push(&frame{kind: sequenceFrame, sequence: &sequenceNode{def: def}})
		return nil
	}
	return b.wrap(fmt.Errorf("%w: %v can not be built from a sequence", structgraph.ErrPropertyTypeMismatch, def.Type()))
}

// EndSequence completes the current sequence
func (b *Builder) EndSequence() error {
	top := b.top()
	if top == nil {
		return fmt.Errorf("%w: sequence end without begin", structgraph.ErrObjectNotInitialized)
	}
	switch top.kind {
	case preBuildFrame:
		top.depth--
		return top.redirect.writer.EndSequence()
	case sequenceFrame:
		b.pop()
		if top.detached {
			return nil
		}
		return b.attach(top.sequence)
	}
	return fmt.Errorf("%w: sequence end inside a structure", structgraph.ErrUnsupportedOperation)
}

// WriteReference writes back-reference to the structure started as index-th
func (b *Builder) WriteReference(index int) error {
	if top := b.top(); top != nil && top.kind == preBuildFrame {
		if index < top.redirect.index {
			return fmt.Errorf("%w: %v points outside of %v prebuild", structgraph.ErrInvalidReference, index, top.redirect.def.Type())
		}
		return top.redirect.writer.WriteReference(index - top.redirect.index)
	}
	if index < 0 || index >= len(b.arena) {
		return fmt.Errorf("%w: %v, known structures: %v", structgraph.ErrInvalidReference, index, len(b.arena))
	}
	if _, skip, err := b.slot(); err != nil || skip {
		return err
	}
	return b.attach(&referenceNode{index: index})
}

// slot returns declared type of the next value, skip is set for ignored unknown properties
func (b *Builder) slot() (reflect.Type, bool, error) {
	top := b.top()
	if top == nil {
		if b.done {
			return nil, false, fmt.Errorf("%w: root value was already written", structgraph.ErrUnsupportedOperation)
		}
		return b.target, false, nil
	}
	switch top.kind {
	case sequenceFrame:
		return top.sequence.itemType(), false, nil
	case dictionaryFrame:
		if !top.named {
			return nil, false, fmt.Errorf("%w: dictionary value without key", structgraph.ErrUnsupportedOperation)
		}
		return top.dictionary.def.Elem().Type(), false, nil
	}
	if !top.named {
		return nil, false, fmt.Errorf("%w: %v value without property name", structgraph.ErrUnsupportedOperation, top.structure.def.Type())
	}
	if t := top.structure.propertyType(top.name, b.options.CaseFormat); t != nil {
		return t, false, nil
	}
	if b.options.UnknownFieldPolicy == ErrorOnUnknown {
		return nil, false, b.wrap(fmt.Errorf("%w: %v", structgraph.ErrUnknownProperty, top.name))
	}
	b.options.Logger.Debug("ignoring unknown property", "type", top.structure.def.Type().String(), "property", top.name)
	top.named = false
	return nil, true, nil
}

// ignoring reports whether values are written inside an ignored property
func (b *Builder) ignoring() bool {
	top := b.top()
	return top != nil && top.ignored
}

func (b *Builder) attach(n node) error {
	top := b.top()
	if top == nil {
		b.root = n
		b.done = true
		return nil
	}
	switch top.kind {
	case structureFrame:
		top.structure.add(top.name, n)
	case dictionaryFrame:
		top.dictionary.add(top.name, n)
	case sequenceFrame:
		top.sequence.items = append(top.sequence.items, n)
		return nil
	}
	top.name, top.named = "", false
	return nil
}

// resolve returns definition for type identifier or declared type, generic is used for empty interfaces
func (b *Builder) resolve(typeID string, declared reflect.Type, generic reflect.Type) (*structgraph.TypeDefinition, error) {
	if typeID != "" {
		def, err := b.cache.Lookup(typeID, b.options.Namer)
		if err != nil {
			return nil, err
		}
		if declared != nil && !adaptable(def.Type(), declared) {
			return nil, fmt.Errorf("%w: %v is not assignable to %v", structgraph.ErrPropertyTypeMismatch, def.Type(), declared)
		}
		return def, nil
	}
	if declared == nil {
		return nil, fmt.Errorf("%w: type was not provided", structgraph.ErrObjectNotInitialized)
	}
	def, err := b.cache.Definition(declared)
	if err != nil {
		return nil, err
	}
	for def.Category() == structgraph.CategoryNullable {
		def = def.Elem()
	}
	if def.IsAbstract() {
		if def.Type().NumMethod() > 0 {
			return nil, fmt.Errorf("%w: %v requires a type identifier", structgraph.ErrObjectNotInitialized, def.Type())
		}
		return b.cache.Definition(generic)
	}
	return def, nil
}

// wrap appends the enclosing structure property to err
func (b *Builder) wrap(err error) error {
	top := b.top()
	if top == nil || !top.named {
		return err
	}
	switch top.kind {
	case structureFrame:
		return structgraph.WrapPath(err, top.structure.typeName(), top.name)
	case dictionaryFrame:
		return structgraph.WrapPath(err, "", top.name)
	}
	return err
}

// adaptable reports whether a value of src can be presented as dst
func adaptable(src, dst reflect.Type) bool {
	if src == dst || src.AssignableTo(dst) {
		return true
	}
	if dst.Kind() == reflect.Ptr && src.AssignableTo(dst.Elem()) {
		return true
	}
	if src.Kind() == reflect.Ptr && src.Elem() == dst {
		return true
	}
	if dst.Kind() == reflect.Interface && src.Kind() != reflect.Ptr {
		return reflect.PointerTo(src).Implements(dst)
	}
	return false
}
