package reader

import (
	"reflect"
	"time"

	"github.com/viant/structgraph"
	"github.com/viant/tagly/format/text"
)

// TypeIdentifierPolicy controls when structures carry a type identifier.
type TypeIdentifierPolicy int

const (
	// IdentifiersWhenNeeded emits identifiers when the runtime type differs from the declared type
	IdentifiersWhenNeeded TypeIdentifierPolicy = iota
	// IdentifiersAlways emits identifiers for every structure
	IdentifiersAlways
	// IdentifiersNever never emits identifiers
	IdentifiersNever
)

// ReferencePolicy controls handling of shared instances.
type ReferencePolicy int

const (
	// PreserveReferences emits a back-reference for every repeated visit of the same instance
	PreserveReferences ReferencePolicy = iota
	// CollapseReferences duplicates shared instances and fails on cycles
	CollapseReferences
)

// EnumEncoding controls enum rendering.
type EnumEncoding int

const (
	// EnumAsNumber renders enums as numbers
	EnumAsNumber EnumEncoding = iota
	// EnumAsName renders enums as member names
	EnumAsName
)

// NilSlicePolicy controls output for nil slices.
type NilSlicePolicy int

const (
	NilSliceAsNull NilSlicePolicy = iota
	NilSliceAsEmptyArray
)

// Option mutates reader options.
type Option interface{ apply(*Options) }

type optionFn func(*Options)

func (o optionFn) apply(opts *Options) { o(opts) }

// Options defines reader behavior.
type Options struct {
	TypeIdentifiers TypeIdentifierPolicy
	References      ReferencePolicy
	EnumEncoding    EnumEncoding
	NilSlicePolicy  NilSlicePolicy
	Namer           structgraph.TypeNamer
	DeclaredType    reflect.Type
	TimeLayout      string
	OmitEmpty       bool
	CaseFormat      text.CaseFormat
}

func WithTypeIdentifiers(policy TypeIdentifierPolicy) Option {
	return optionFn(func(o *Options) { o.TypeIdentifiers = policy })
}

func WithReferences(policy ReferencePolicy) Option {
	return optionFn(func(o *Options) { o.References = policy })
}

func WithEnumEncoding(encoding EnumEncoding) Option {
	return optionFn(func(o *Options) { o.EnumEncoding = encoding })
}

func WithNilSlicePolicy(policy NilSlicePolicy) Option {
	return optionFn(func(o *Options) { o.NilSlicePolicy = policy })
}

// WithNamer sets identifier namer, cache namer is used by default
func WithNamer(namer structgraph.TypeNamer) Option {
	return optionFn(func(o *Options) { o.Namer = namer })
}

// WithDeclaredType sets static type of the root value, root identifier is emitted when it differs from the runtime type
func WithDeclaredType(t reflect.Type) Option {
	return optionFn(func(o *Options) { o.DeclaredType = t })
}

func WithTimeLayout(layout string) Option {
	return optionFn(func(o *Options) { o.TimeLayout = layout })
}

func WithOmitEmpty(enabled bool) Option {
	return optionFn(func(o *Options) { o.OmitEmpty = enabled })
}

// WithCaseFormat renders property names without explicit tag name in caseFormat
func WithCaseFormat(caseFormat text.CaseFormat) Option {
	return optionFn(func(o *Options) { o.CaseFormat = caseFormat })
}

func defaultOptions() Options {
	return Options{
		TypeIdentifiers: IdentifiersWhenNeeded,
		References:      PreserveReferences,
		EnumEncoding:    EnumAsNumber,
		NilSlicePolicy:  NilSliceAsNull,
		TimeLayout:      time.RFC3339Nano,
		CaseFormat:      text.CaseFormatUndefined,
	}
}

func resolveOptions(opts []Option) Options {
	result := defaultOptions()
	for _, opt := range opts {
		if opt == nil {
			continue
		}
		opt.apply(&result)
	}
	if result.TimeLayout == "" {
		result.TimeLayout = time.RFC3339Nano
	}
	return result
}
