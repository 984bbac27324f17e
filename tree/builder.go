package tree

import (
	"fmt"

	"github.com/viant/structgraph"
)

const (
	// TypeKey holds structure type identifier
	TypeKey = "$type"
	// RefKey holds back-reference index
	RefKey = "$ref"
)

// Option mutates tree builder options.
type Option func(b *Builder)

// WithKeepReferences renders back-references as {"$ref": index} instead of the referenced map
func WithKeepReferences() Option {
	return func(b *Builder) {
		b.keepReferences = true
	}
}

// Builder renders an operation stream as map[string]interface{}, []interface{} and scalars.
type Builder struct {
	stack          []*container
	structures     []map[string]interface{}
	root           interface{}
	done           bool
	keepReferences bool
}

type container struct {
	object map[string]interface{}
	array  []interface{}
	name   string
	named  bool
}

// New creates a tree builder
func New(opts ...Option) *Builder {
	ret := &Builder{}
	for _, opt := range opts {
		opt(ret)
	}
	return ret
}

// Value returns built tree
func (b *Builder) Value() (interface{}, error) {
	if len(b.stack) > 0 {
		return nil, fmt.Errorf("%w: %v containers were not completed", structgraph.ErrUnsupportedOperation, len(b.stack))
	}
	if !b.done {
		return nil, fmt.Errorf("%w: no value was written", structgraph.ErrObjectNotInitialized)
	}
	return b.root, nil
}

func (b *Builder) WriteNull() error {
	return b.attach(nil)
}

func (b *Builder) Write(value interface{}) error {
	return b.attach(value)
}

func (b *Builder) BeginStructure(typeID string) error {
	if err := b.expectValue(); err != nil {
		return err
	}
	object := map[string]interface{}{}
	if typeID != "" {
		object[TypeKey] = typeID
	}
	b.structures = append(b.structures, object)
	b.stack = append(b.stack, &container{object: object})
	return nil
}

func (b *Builder) AddProperty(name string) error {
	top := b.top()
	if top == nil || top.object == nil {
		return fmt.Errorf("%w: property %v outside of a structure", structgraph.ErrUnsupportedOperation, name)
	}
	if top.named {
		return fmt.Errorf("%w: property %v has no value", structgraph.ErrUnsupportedOperation, top.name)
	}
	top.name, top.named = name, true
	return nil
}

func (b *Builder) EndStructure() error {
	top := b.top()
	if top == nil || top.object == nil {
		return fmt.Errorf("%w: structure end without begin", structgraph.ErrUnsupportedOperation)
	}
	if top.named {
		return fmt.Errorf("%w: property %v has no value", structgraph.ErrUnsupportedOperation, top.name)
	}
	b.stack = b.stack[:len(b.stack)-1]
	return b.attach(top.object)
}

func (b *Builder) BeginSequence() error {
	if err := b.expectValue(); err != nil {
		return err
	}
	b.stack = append(b.stack, &container{array: []interface{}{}})
	return nil
}

func (b *Builder) EndSequence() error {
	top := b.top()
	if top == nil || top.object != nil {
		return fmt.Errorf("%w: sequence end without begin", structgraph.ErrUnsupportedOperation)
	}
	b.stack = b.stack[:len(b.stack)-1]
	return b.attach(top.array)
}

func (b *Builder) WriteReference(index int) error {
	if index < 0 || index >= len(b.structures) {
		return fmt.Errorf("%w: %v, known structures: %v", structgraph.ErrInvalidReference, index, len(b.structures))
	}
	if b.keepReferences {
		return b.attach(map[string]interface{}{RefKey: float64(index)})
	}
	return b.attach(b.structures[index])
}

func (b *Builder) top() *container {
	if len(b.stack) == 0 {
		return nil
	}
	return b.stack[len(b.stack)-1]
}

func (b *Builder) expectValue() error {
	top := b.top()
	if top == nil {
		if b.done {
			return fmt.Errorf("%w: root value was already written", structgraph.ErrUnsupportedOperation)
		}
		return nil
	}
	if top.object != nil && !top.named {
		return fmt.Errorf("%w: value without property name", structgraph.ErrUnsupportedOperation)
	}
	return nil
}

func (b *Builder) attach(value interface{}) error {
	if err := b.expectValue(); err != nil {
		return err
	}
	top := b.top()
	if top == nil {
		b.root = value
		b.done = true
		return nil
	}
	if top.object != nil {
		top.object[top.name] = value
		top.name, top.named = "", false
		return nil
	}
	top.array = append(top.array, value)
	return nil
}
