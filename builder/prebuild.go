package builder

import (
	"bytes"
	"fmt"
	"reflect"

	"github.com/go-json-experiment/json/jsontext"
	"github.com/viant/structgraph"
	"github.com/viant/structgraph/encoding/json/marshal"
	"github.com/viant/structgraph/encoding/json/unmarshal"
	"github.com/viant/structgraph/tree"
)

// redirect collects the raw representation of a structure handled by a prebuild hook
type redirect struct {
	hook    *structgraph.PreBuild
	def     *structgraph.TypeDefinition
	pointer bool
	index   int
	writer  structgraph.Writer
	tree    *tree.Builder
	buffer  *bytes.Buffer
}

// preBuild returns hook applicable to the builder source, exact source match takes precedence
func (b *Builder) preBuild(def *structgraph.TypeDefinition) *structgraph.PreBuild {
	if b.skipPreBuild {
		b.skipPreBuild = false
		return nil
	}
	var fallback *structgraph.PreBuild
	for _, candidate := range def.PreBuilds() {
		if candidate.Source == b.options.Source && candidate.Source != structgraph.SourceAny {
			return candidate
		}
		if candidate.Source == structgraph.SourceAny && fallback == nil {
			fallback = candidate
		}
	}
	return fallback
}

func (b *Builder) redirect(hook *structgraph.PreBuild, def *structgraph.TypeDefinition, pointer bool) error {
	r := &redirect{hook: hook, def: def, pointer: pointer, index: len(b.arena)}
	b.reserve()
	if hook.Raw == structgraph.RawJSONType {
		r.buffer = &bytes.Buffer{}
		r.writer = marshal.New(r.buffer)
	} else {
		r.tree = tree.New()
		r.writer = r.tree
	}
	b.push(&frame{kind: preBuildFrame, redirect: r, depth: 1})
	return r.writer.BeginStructure("")
}

// complete applies the hook to the collected raw value and builds the result with a fresh typed pass
func (b *Builder) complete(r *redirect) error {
	var raw interface{}
	if r.tree != nil {
		value, err := r.tree.Value()
		if err != nil {
			return err
		}
		raw = value
	} else {
		raw = jsontext.Value(bytes.TrimSpace(r.buffer.Bytes()))
	}
	b.options.Logger.Debug("applying prebuild", "hook", r.hook.Name)
	transformed, err := r.hook.Apply(raw)
	if err != nil {
		return b.wrap(fmt.Errorf("prebuild %v: %w", r.hook.Name, err))
	}
	nested := &Builder{
		cache:        b.cache,
		options:      b.options,
		target:       reflect.PointerTo(r.def.Type()),
		converters:   b.converters,
		keys:         b.keys,
		skipPreBuild: true,
	}
	switch actual := transformed.(type) {
	case jsontext.Value:
		err = unmarshal.Replay(actual, nested)
	default:
		err = tree.Replay(actual, nested)
	}
	if err != nil {
		return b.wrap(err)
	}
	value, err := nested.materializeRoot(nested.target)
	if err != nil {
		return b.wrap(err)
	}
	if value.IsNil() {
		return b.wrap(fmt.Errorf("%w: prebuild %v produced null", structgraph.ErrPropertyTypeMismatch, r.hook.Name))
	}
	resolved := &resolvedNode{value: value, pointer: r.pointer}
	b.arena[r.index] = resolved
	return b.attach(resolved)
}
