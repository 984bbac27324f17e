package json

import (
	"context"
	"log/slog"
	"reflect"
	"time"

	"github.com/go-json-experiment/json/jsontext"
	"github.com/viant/structgraph"
	"github.com/viant/structgraph/builder"
	"github.com/viant/structgraph/conv"
	"github.com/viant/structgraph/reader"
	"github.com/viant/tagly/format/text"
)

type (
	TypeIdentifierPolicy = reader.TypeIdentifierPolicy
	ReferencePolicy      = reader.ReferencePolicy
	EnumEncoding         = reader.EnumEncoding
	NilSlicePolicy       = reader.NilSlicePolicy
	Mode                 = builder.Mode
	UnknownFieldPolicy   = builder.UnknownFieldPolicy
	NullPolicy           = builder.NullPolicy
)

const (
	IdentifiersWhenNeeded = reader.IdentifiersWhenNeeded
	IdentifiersAlways     = reader.IdentifiersAlways
	IdentifiersNever      = reader.IdentifiersNever
	PreserveReferences    = reader.PreserveReferences
	CollapseReferences    = reader.CollapseReferences
	EnumAsNumber          = reader.EnumAsNumber
	EnumAsName            = reader.EnumAsName
	NilSliceAsNull        = reader.NilSliceAsNull
	NilSliceAsEmptyArray  = reader.NilSliceAsEmptyArray
	ModeCompat            = builder.ModeCompat
	ModeStrict            = builder.ModeStrict
	IgnoreUnknown         = builder.IgnoreUnknown
	ErrorOnUnknown        = builder.ErrorOnUnknown
	CompatNulls           = builder.CompatNulls
	StrictNulls           = builder.StrictNulls
)

// Option mutates conversion options.
type Option interface{ apply(*Options) }

type optionFn func(*Options)

func (o optionFn) apply(opts *Options) { o(opts) }

// Options defines conversion behavior for both directions.
type Options struct {
	Ctx                context.Context
	Cache              *structgraph.Cache
	Namer              structgraph.TypeNamer
	TypeIdentifiers    TypeIdentifierPolicy
	References         ReferencePolicy
	EnumEncoding       EnumEncoding
	NilSlicePolicy     NilSlicePolicy
	DeclaredType       reflect.Type
	OmitEmpty          bool
	Indent             string
	Mode               Mode
	UnknownFieldPolicy UnknownFieldPolicy
	NullPolicy         NullPolicy
	TimeLayout         string
	CaseFormat         text.CaseFormat
	Logger             *slog.Logger
	Conversions        []builder.Conversion

	setUnknownFieldPolicy bool
	setNullPolicy         bool
}

func WithContext(ctx context.Context) Option {
	return optionFn(func(o *Options) { o.Ctx = ctx })
}

// WithCache sets type definition cache, structgraph.Default() is used otherwise
func WithCache(cache *structgraph.Cache) Option {
	return optionFn(func(o *Options) { o.Cache = cache })
}

func WithNamer(namer structgraph.TypeNamer) Option {
	return optionFn(func(o *Options) { o.Namer = namer })
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

// WithDeclaredType sets static type of the marshaled root
func WithDeclaredType(t reflect.Type) Option {
	return optionFn(func(o *Options) { o.DeclaredType = t })
}

func WithOmitEmpty(enabled bool) Option {
	return optionFn(func(o *Options) { o.OmitEmpty = enabled })
}

// WithIndent renders multiline JSON with indent per nesting level
func WithIndent(indent string) Option {
	return optionFn(func(o *Options) { o.Indent = indent })
}

func WithMode(mode Mode) Option {
	return optionFn(func(o *Options) { o.Mode = mode })
}

func WithUnknownFieldPolicy(policy UnknownFieldPolicy) Option {
	return optionFn(func(o *Options) {
		o.UnknownFieldPolicy = policy
		o.setUnknownFieldPolicy = true
	})
}

func WithNullPolicy(policy NullPolicy) Option {
	return optionFn(func(o *Options) {
		o.NullPolicy = policy
		o.setNullPolicy = true
	})
}

func WithTimeLayout(layout string) Option {
	return optionFn(func(o *Options) { o.TimeLayout = layout })
}

func WithCaseFormat(caseFormat text.CaseFormat) Option {
	return optionFn(func(o *Options) { o.CaseFormat = caseFormat })
}

func WithLogger(logger *slog.Logger) Option {
	return optionFn(func(o *Options) { o.Logger = logger })
}

// WithConversion decodes JSON scalars of source type into target type with fn
func WithConversion(source, target reflect.Type, fn conv.ConversionFunc) Option {
	return optionFn(func(o *Options) {
		o.Conversions = append(o.Conversions, builder.Conversion{Source: source, Target: target, Fn: fn})
	})
}

func defaultOptions() Options {
	return Options{
		TypeIdentifiers:    IdentifiersWhenNeeded,
		References:         PreserveReferences,
		EnumEncoding:       EnumAsNumber,
		NilSlicePolicy:     NilSliceAsNull,
		Mode:               ModeCompat,
		UnknownFieldPolicy: IgnoreUnknown,
		NullPolicy:         CompatNulls,
		TimeLayout:         time.RFC3339Nano,
		CaseFormat:         text.CaseFormatUndefined,
	}
}

func resolveOptions(ctx context.Context, opts []Option) Options {
	result := defaultOptions()
	result.Ctx = ctx
	for _, opt := range opts {
		if opt == nil {
			continue
		}
		opt.apply(&result)
	}
	if result.Ctx == nil {
		result.Ctx = context.Background()
	}
	if result.Cache == nil {
		result.Cache = structgraph.Default()
	}
	return result
}

func (o *Options) readerOptions() []reader.Option {
	return []reader.Option{
		reader.WithTypeIdentifiers(o.TypeIdentifiers),
		reader.WithReferences(o.References),
		reader.WithEnumEncoding(o.EnumEncoding),
		reader.WithNilSlicePolicy(o.NilSlicePolicy),
		reader.WithNamer(o.Namer),
		reader.WithDeclaredType(o.DeclaredType),
		reader.WithOmitEmpty(o.OmitEmpty),
		reader.WithTimeLayout(o.TimeLayout),
		reader.WithCaseFormat(o.CaseFormat),
	}
}

func (o *Options) builderOptions(source structgraph.Source) []builder.Option {
	ret := []builder.Option{
		builder.WithSource(source),
		builder.WithNamer(o.Namer),
		builder.WithMode(o.Mode),
		builder.WithTimeLayout(o.TimeLayout),
		builder.WithCaseFormat(o.CaseFormat),
		builder.WithLogger(o.Logger),
	}
	if o.setUnknownFieldPolicy {
		ret = append(ret, builder.WithUnknownFieldPolicy(o.UnknownFieldPolicy))
	}
	if o.setNullPolicy {
		ret = append(ret, builder.WithNullPolicy(o.NullPolicy))
	}
	for _, conversion := range o.Conversions {
		ret = append(ret, builder.WithConversion(conversion.Source, conversion.Target, conversion.Fn))
	}
	return ret
}

func (o *Options) encoderOptions() []jsontext.Options {
	if o.Indent == "" {
		return nil
	}
	return []jsontext.Options{jsontext.WithIndent(o.Indent)}
}
