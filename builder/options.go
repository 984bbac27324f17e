package builder

import (
	"log/slog"
	"reflect"
	"time"

	"github.com/viant/structgraph"
	"github.com/viant/structgraph/conv"
	"github.com/viant/tagly/format/text"
)

// Mode controls compatibility vs strict behavior.
type Mode int

const (
	ModeCompat Mode = iota
	ModeStrict
)

// UnknownFieldPolicy controls unknown property handling.
type UnknownFieldPolicy int

const (
	IgnoreUnknown UnknownFieldPolicy = iota
	ErrorOnUnknown
)

// NullPolicy controls null assignment behavior.
type NullPolicy int

const (
	// CompatNulls assigns zero value when null targets a non nillable type
	CompatNulls NullPolicy = iota
	// StrictNulls rejects null for non nillable types
	StrictNulls
)

// Option mutates builder options.
type Option interface{ apply(*Options) }

type optionFn func(*Options)

func (o optionFn) apply(opts *Options) { o(opts) }

// Options defines builder behavior.
type Options struct {
	Namer              structgraph.TypeNamer
	Source             structgraph.Source
	Mode               Mode
	UnknownFieldPolicy UnknownFieldPolicy
	NullPolicy         NullPolicy
	TimeLayout         string
	CaseFormat         text.CaseFormat
	Logger             *slog.Logger
	Conversions        []Conversion

	setUnknownFieldPolicy bool
	setNullPolicy         bool
}

// Conversion coerces scalars of Source type into Target type
type Conversion struct {
	Source reflect.Type
	Target reflect.Type
	Fn     conv.ConversionFunc
}

// WithNamer sets namer used to resolve type identifiers, cache namer is used by default
func WithNamer(namer structgraph.TypeNamer) Option {
	return optionFn(func(o *Options) { o.Namer = namer })
}

// WithSource sets the producer of the operation stream, used to select prebuild hooks
func WithSource(source structgraph.Source) Option {
	return optionFn(func(o *Options) { o.Source = source })
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

// WithCaseFormat matches incoming property names rendered in caseFormat
func WithCaseFormat(caseFormat text.CaseFormat) Option {
	return optionFn(func(o *Options) { o.CaseFormat = caseFormat })
}

func WithLogger(logger *slog.Logger) Option {
	return optionFn(func(o *Options) { o.Logger = logger })
}

// WithConversion converts scalar values of source type assigned to target type with fn,
// target can be any type including structures and dictionary keys
func WithConversion(source, target reflect.Type, fn conv.ConversionFunc) Option {
	return optionFn(func(o *Options) {
		o.Conversions = append(o.Conversions, Conversion{Source: source, Target: target, Fn: fn})
	})
}

func defaultOptions() Options {
	return Options{
		Source:             structgraph.SourceAny,
		Mode:               ModeCompat,
		UnknownFieldPolicy: IgnoreUnknown,
		NullPolicy:         CompatNulls,
		TimeLayout:         time.RFC3339Nano,
		CaseFormat:         text.CaseFormatUndefined,
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
	if result.Mode == ModeStrict {
		if !result.setUnknownFieldPolicy {
			result.UnknownFieldPolicy = ErrorOnUnknown
		}
		if !result.setNullPolicy {
			result.NullPolicy = StrictNulls
		}
	}
	return result
}

func (o *Options) register(converter *conv.Converter) {
	for _, conversion := range o.Conversions {
		converter.RegisterConversion(conversion.Source, conversion.Target, conversion.Fn)
	}
}

// conversion reports whether a custom conversion of value into t was registered
func (o *Options) conversion(value interface{}, t reflect.Type) bool {
	source := reflect.TypeOf(value)
	for _, conversion := range o.Conversions {
		if conversion.Source != source {
			continue
		}
		if conversion.Target == t || (t.Kind() == reflect.Ptr && conversion.Target == t.Elem()) {
			return true
		}
	}
	return false
}
