package conv

import (
	"errors"
	"fmt"
	"math"
	"reflect"
	"strconv"
	"strings"
	"sync"
	"time"
)

// DefaultTimeLayout is the default layout used for time parsing and formatting
const DefaultTimeLayout = time.RFC3339Nano

// ErrNotConvertible is returned when a value cannot be coerced into the requested type
var ErrNotConvertible = errors.New("not convertible")

// Options contains configuration for the converter
type Options struct {
	// TimeLayout specifies the layout for time parsing
	TimeLayout string
	// Strict disables parsing across strings, bools and numbers and rejects lossy numeric conversions
	Strict bool
}

// DefaultOptions returns default conversion options
func DefaultOptions() Options {
	return Options{
		TimeLayout: DefaultTimeLayout,
	}
}

// Converter coerces scalar values produced by readers and text drivers into declared types
type Converter struct {
	options       Options
	customConvMap sync.Map // map[typeKey]ConversionFunc
}

// ConversionFunc defines a custom conversion function
type ConversionFunc func(src interface{}, dest interface{}, opts Options) error

type typeKey struct {
	srcType  reflect.Type
	destType reflect.Type
}

// NewConverter creates a new type converter with the provided options
func NewConverter(options Options) *Converter {
	if options.TimeLayout == "" {
		options.TimeLayout = DefaultTimeLayout
	}
	return &Converter{
		options: options,
	}
}

// Options returns converter options
func (c *Converter) Options() Options {
	return c.options
}

// RegisterConversion registers a custom conversion function between source and destination types
func (c *Converter) RegisterConversion(srcType, destType reflect.Type, fn ConversionFunc) {
	c.customConvMap.Store(typeKey{srcType, destType}, fn)
}

// ConvertValue returns src converted to destType
func (c *Converter) ConvertValue(src reflect.Value, destType reflect.Type) (reflect.Value, error) {
	if src.IsValid() && src.Type().AssignableTo(destType) {
		return src, nil
	}
	src = indirect(src)
	if !src.IsValid() {
		return reflect.Zero(destType), nil
	}
	srcType := src.Type()
	if v, ok := c.customConvMap.Load(typeKey{srcType, destType}); ok {
		dest := reflect.New(destType)
		if err := v.(ConversionFunc)(src.Interface(), dest.Interface(), c.options); err != nil {
			return reflect.Value{}, err
		}
		return dest.Elem(), nil
	}
	if srcType.AssignableTo(destType) {
		return src, nil
	}
	if destType.Kind() == reflect.Ptr {
		elem, err := c.ConvertValue(src, destType.Elem())
		if err != nil {
			return reflect.Value{}, err
		}
		ptr := reflect.New(destType.Elem())
		ptr.Elem().Set(elem)
		return ptr, nil
	}
	if destType.Kind() == reflect.Interface {
		if srcType.Implements(destType) {
			result := reflect.New(destType).Elem()
			result.Set(src)
			return result, nil
		}
		return reflect.Value{}, c.notConvertible(srcType, destType)
	}

	dest := reflect.New(destType).Elem()
	var err error
	switch destType.Kind() {
	case reflect.String:
		err = c.convertToString(dest, src)
	case reflect.Bool:
		err = c.convertToBool(dest, src)
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		err = c.convertToInt(dest, src)
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		err = c.convertToUint(dest, src)
	case reflect.Float32, reflect.Float64:
		err = c.convertToFloat(dest, src)
	case reflect.Struct:
		if destType != timeType {
			return reflect.Value{}, c.notConvertible(srcType, destType)
		}
		err = c.convertToTime(dest, src)
	default:
		if !c.options.Strict && srcType.ConvertibleTo(destType) {
			return src.Convert(destType), nil
		}
		return reflect.Value{}, c.notConvertible(srcType, destType)
	}
	if err != nil {
		return reflect.Value{}, err
	}
	return dest, nil
}

var timeType = reflect.TypeOf(time.Time{})

func (c *Converter) notConvertible(srcType, destType reflect.Type) error {
	return fmt.Errorf("%w: %v to %v", ErrNotConvertible, srcType, destType)
}

func (c *Converter) convertToString(dest, src reflect.Value) error {
	var result string
	switch src.Kind() {
	case reflect.String:
		result = src.String()
	case reflect.Bool:
		if c.options.Strict {
			return c.notConvertible(src.Type(), dest.Type())
		}
		result = strconv.FormatBool(src.Bool())
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		if c.options.Strict {
			return c.notConvertible(src.Type(), dest.Type())
		}
		result = strconv.FormatInt(src.Int(), 10)
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		if c.options.Strict {
			return c.notConvertible(src.Type(), dest.Type())
		}
		result = strconv.FormatUint(src.Uint(), 10)
	case reflect.Float32:
		if c.options.Strict {
			return c.notConvertible(src.Type(), dest.Type())
		}
		result = strconv.FormatFloat(src.Float(), 'f', -1, 32)
	case reflect.Float64:
		if c.options.Strict {
			return c.notConvertible(src.Type(), dest.Type())
		}
		result = strconv.FormatFloat(src.Float(), 'f', -1, 64)
	case reflect.Slice:
		if src.Type().Elem().Kind() != reflect.Uint8 {
			return c.notConvertible(src.Type(), dest.Type())
		}
		result = string(src.Bytes())
	case reflect.Struct:
		if src.Type() != timeType {
			return c.notConvertible(src.Type(), dest.Type())
		}
		result = src.Interface().(time.Time).Format(c.options.TimeLayout)
	default:
		return c.notConvertible(src.Type(), dest.Type())
	}
	dest.SetString(result)
	return nil
}

func (c *Converter) convertToBool(dest, src reflect.Value) error {
	var result bool
	switch src.Kind() {
	case reflect.Bool:
		result = src.Bool()
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		if c.options.Strict {
			return c.notConvertible(src.Type(), dest.Type())
		}
		result = src.Int() != 0
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		if c.options.Strict {
			return c.notConvertible(src.Type(), dest.Type())
		}
		result = src.Uint() != 0
	case reflect.Float32, reflect.Float64:
		if c.options.Strict {
			return c.notConvertible(src.Type(), dest.Type())
		}
		result = src.Float() != 0
	case reflect.String:
		if c.options.Strict {
			return c.notConvertible(src.Type(), dest.Type())
		}
		var err error
		result, err = strconv.ParseBool(src.String())
		if err != nil {
			if f, err := strconv.ParseFloat(src.String(), 64); err == nil {
				result = f != 0
				break
			}
			return err
		}
	default:
		return c.notConvertible(src.Type(), dest.Type())
	}
	dest.SetBool(result)
	return nil
}

func (c *Converter) convertToInt(dest, src reflect.Value) error {
	var result int64
	switch src.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		result = src.Int()
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		v := src.Uint()
		if v > math.MaxInt64 {
			return fmt.Errorf("%w: %d overflows %v", ErrNotConvertible, v, dest.Type())
		}
		result = int64(v)
	case reflect.Float32, reflect.Float64:
		f := src.Float()
		if c.options.Strict && (f != math.Trunc(f) || math.IsInf(f, 0) || math.IsNaN(f)) {
			return fmt.Errorf("%w: %v is not integral", ErrNotConvertible, f)
		}
		result = int64(f)
	case reflect.Bool:
		if c.options.Strict {
			return c.notConvertible(src.Type(), dest.Type())
		}
		if src.Bool() {
			result = 1
		}
	case reflect.String:
		if c.options.Strict {
			return c.notConvertible(src.Type(), dest.Type())
		}
		var err error
		if strings.Contains(src.String(), ".") {
			var f float64
			f, err = strconv.ParseFloat(src.String(), 64)
			result = int64(f)
		} else {
			result, err = strconv.ParseInt(src.String(), 0, 64)
		}
		if err != nil {
			return err
		}
	default:
		return c.notConvertible(src.Type(), dest.Type())
	}
	if dest.OverflowInt(result) {
		return fmt.Errorf("%w: %d overflows %v", ErrNotConvertible, result, dest.Type())
	}
	dest.SetInt(result)
	return nil
}

func (c *Converter) convertToUint(dest, src reflect.Value) error {
	var result uint64
	switch src.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		v := src.Int()
		if v < 0 {
			return fmt.Errorf("%w: negative value %d to unsigned int", ErrNotConvertible, v)
		}
		result = uint64(v)
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		result = src.Uint()
	case reflect.Float32, reflect.Float64:
		v := src.Float()
		if v < 0 {
			return fmt.Errorf("%w: negative value %f to unsigned int", ErrNotConvertible, v)
		}
		if c.options.Strict && v != math.Trunc(v) {
			return fmt.Errorf("%w: %v is not integral", ErrNotConvertible, v)
		}
		result = uint64(v)
	case reflect.Bool:
		if c.options.Strict {
			return c.notConvertible(src.Type(), dest.Type())
		}
		if src.Bool() {
			result = 1
		}
	case reflect.String:
		if c.options.Strict {
			return c.notConvertible(src.Type(), dest.Type())
		}
		var err error
		if strings.Contains(src.String(), ".") {
			var f float64
			f, err = strconv.ParseFloat(src.String(), 64)
			if f < 0 {
				return fmt.Errorf("%w: negative value %f to unsigned int", ErrNotConvertible, f)
			}
			result = uint64(f)
		} else {
			result, err = strconv.ParseUint(src.String(), 0, 64)
		}
		if err != nil {
			return err
		}
	default:
		return c.notConvertible(src.Type(), dest.Type())
	}
	if dest.OverflowUint(result) {
		return fmt.Errorf("%w: %d overflows %v", ErrNotConvertible, result, dest.Type())
	}
	dest.SetUint(result)
	return nil
}

func (c *Converter) convertToFloat(dest, src reflect.Value) error {
	var result float64
	switch src.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		result = float64(src.Int())
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		result = float64(src.Uint())
	case reflect.Float32, reflect.Float64:
		result = src.Float()
	case reflect.Bool:
		if c.options.Strict {
			return c.notConvertible(src.Type(), dest.Type())
		}
		if src.Bool() {
			result = 1
		}
	case reflect.String:
		if c.options.Strict {
			return c.notConvertible(src.Type(), dest.Type())
		}
		var err error
		result, err = strconv.ParseFloat(src.String(), 64)
		if err != nil {
			return err
		}
	default:
		return c.notConvertible(src.Type(), dest.Type())
	}
	dest.SetFloat(result)
	return nil
}

func (c *Converter) convertToTime(dest, src reflect.Value) error {
	var t time.Time
	var err error
	switch src.Kind() {
	case reflect.String:
		if t, err = c.parseTime(src.String()); err != nil {
			return err
		}
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		unixTime := src.Int()
		if unixTime > 1e10 { // nanoseconds
			t = time.Unix(0, unixTime)
		} else {
			t = time.Unix(unixTime, 0)
		}
	case reflect.Float32, reflect.Float64:
		if c.options.Strict {
			return c.notConvertible(src.Type(), dest.Type())
		}
		unixTime := int64(src.Float())
		fractional := src.Float() - float64(unixTime)
		t = time.Unix(unixTime, int64(fractional*1e9))
	default:
		return c.notConvertible(src.Type(), dest.Type())
	}
	dest.Set(reflect.ValueOf(t))
	return nil
}

func (c *Converter) parseTime(value string) (time.Time, error) {
	t, err := time.Parse(c.options.TimeLayout, value)
	if err == nil {
		return t, nil
	}
	for _, layout := range []string{time.RFC3339Nano, time.RFC3339, "2006-01-02T15:04:05", "2006-01-02 15:04:05", "2006-01-02"} {
		if t, err = time.Parse(layout, value); err == nil {
			return t, nil
		}
	}
	return t, fmt.Errorf("cannot parse time string '%s': %w", value, err)
}

func indirect(v reflect.Value) reflect.Value {
	for v.IsValid() && (v.Kind() == reflect.Ptr || v.Kind() == reflect.Interface) {
		if v.IsNil() {
			return reflect.Value{}
		}
		v = v.Elem()
	}
	return v
}
