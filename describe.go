package structgraph

import (
	"fmt"
	"reflect"
)

type (
	description struct {
		constructors []constructorSpec
		getters      []string
		preBuilds    []preBuildSpec
		typeName     string
		zeroValue    bool
	}

	constructorSpec struct {
		fn    interface{}
		names []string
	}

	preBuildSpec struct {
		source Source
		fn     interface{}
	}

	// TypeOption describes how a type is built and named
	TypeOption func(d *description)
)

// WithConstructor registers constructor function returning T or *T (optionally with error),
// names list parameter names in declaration order
func WithConstructor(fn interface{}, names ...string) TypeOption {
	return func(d *description) {
		d.constructors = append(d.constructors, constructorSpec{fn: fn, names: names})
	}
}

// WithGetter exposes niladic methods as read-only properties
func WithGetter(names ...string) TypeOption {
	return func(d *description) {
		d.getters = append(d.getters, names...)
	}
}

// WithPreBuild registers raw structure transform, fn has to be func(C) C or func(C) (C, error)
// where C is map[string]interface{} or jsontext.Value
func WithPreBuild(source Source, fn interface{}) TypeOption {
	return func(d *description) {
		d.preBuilds = append(d.preBuilds, preBuildSpec{source: source, fn: fn})
	}
}

// WithTypeName overrides type identifier for every namer
func WithTypeName(name string) TypeOption {
	return func(d *description) {
		d.typeName = name
	}
}

// WithZeroValue allows zero value construction even when constructors are registered
func WithZeroValue() TypeOption {
	return func(d *description) {
		d.zeroValue = true
	}
}

// Describe supplies construction and naming policies for struct type t (or *t),
// it has to be called before the type is first populated
func (c *Cache) Describe(t reflect.Type, opts ...TypeOption) error {
	if t == nil {
		return fmt.Errorf("%w: nil type", ErrUnsupportedType)
	}
	c.mux.Lock()
	defer c.mux.Unlock()
	if t.Kind() == reflect.Ptr && t.Elem().Kind() == reflect.Struct {
		t = t.Elem()
	}
	if _, ok := c.definitions[t]; ok {
		return fmt.Errorf("%w: %v", ErrTypeSealed, t)
	}
	desc, ok := c.descriptions[t]
	if !ok {
		desc = &description{}
		c.descriptions[t] = desc
	}
	for _, opt := range opts {
		opt(desc)
	}
	return nil
}
