package conv

import (
	"reflect"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type Level int

func TestConvertToString(t *testing.T) {
	converter := NewConverter(DefaultOptions())

	testCases := []struct {
		name     string
		src      interface{}
		expected string
	}{
		{"string", "hello", "hello"},
		{"int", 123, "123"},
		{"bool true", true, "true"},
		{"float", 123.456, "123.456"},
		{"bytes", []byte("hello"), "hello"},
		{"time", time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC), "2024-01-02T03:04:05Z"},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			actual, err := converter.ConvertValue(reflect.ValueOf(tc.src), reflect.TypeOf(""))
			require.NoError(t, err)
			assert.Equal(t, tc.expected, actual.Interface())
		})
	}
}

func TestConvertToInt(t *testing.T) {
	testCases := []struct {
		name     string
		strict   bool
		src      interface{}
		dest     reflect.Type
		expected interface{}
		hasError bool
	}{
		{name: "float to int", src: 5.0, dest: reflect.TypeOf(0), expected: 5},
		{name: "float to int8", src: 12.0, dest: reflect.TypeOf(int8(0)), expected: int8(12)},
		{name: "float to named int", src: 2.0, dest: reflect.TypeOf(Level(0)), expected: Level(2)},
		{name: "string to int", src: "42", dest: reflect.TypeOf(0), expected: 42},
		{name: "overflow", src: 300.0, dest: reflect.TypeOf(int8(0)), hasError: true},
		{name: "strict string to int", strict: true, src: "42", dest: reflect.TypeOf(0), hasError: true},
		{name: "strict fraction", strict: true, src: 4.5, dest: reflect.TypeOf(0), hasError: true},
		{name: "strict integral float", strict: true, src: 4.0, dest: reflect.TypeOf(int64(0)), expected: int64(4)},
		{name: "negative to uint", src: -1.0, dest: reflect.TypeOf(uint(0)), hasError: true},
		{name: "float to uint16", src: 7.0, dest: reflect.TypeOf(uint16(0)), expected: uint16(7)},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			converter := NewConverter(Options{Strict: tc.strict})
			actual, err := converter.ConvertValue(reflect.ValueOf(tc.src), tc.dest)
			if tc.hasError {
				assert.ErrorIs(t, err, ErrNotConvertible)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.expected, actual.Interface())
		})
	}
}

func TestConvertToBool(t *testing.T) {
	converter := NewConverter(DefaultOptions())
	for _, tc := range []struct {
		src      interface{}
		expected bool
	}{
		{true, true},
		{"true", true},
		{"0", false},
		{1.0, true},
	} {
		actual, err := converter.ConvertValue(reflect.ValueOf(tc.src), reflect.TypeOf(false))
		require.NoError(t, err)
		assert.Equal(t, tc.expected, actual.Interface(), tc.src)
	}
	strict := NewConverter(Options{Strict: true})
	_, err := strict.ConvertValue(reflect.ValueOf("true"), reflect.TypeOf(false))
	assert.ErrorIs(t, err, ErrNotConvertible)
}

func TestConvertToTime(t *testing.T) {
	expected := time.Date(2023, 1, 15, 12, 30, 45, 0, time.UTC)
	testCases := []struct {
		name   string
		layout string
		src    interface{}
	}{
		{"rfc3339", "", "2023-01-15T12:30:45Z"},
		{"custom layout", "2006-01-02 15:04:05", "2023-01-15 12:30:45"},
		{"unix", "", expected.Unix()},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			converter := NewConverter(Options{TimeLayout: tc.layout})
			actual, err := converter.ConvertValue(reflect.ValueOf(tc.src), reflect.TypeOf(time.Time{}))
			require.NoError(t, err)
			result := actual.Interface().(time.Time)
			assert.True(t, expected.Equal(result), result.String())
		})
	}
}

func TestConvertToPointer(t *testing.T) {
	converter := NewConverter(Options{Strict: true})
	actual, err := converter.ConvertValue(reflect.ValueOf(3.0), reflect.TypeOf((*int)(nil)))
	require.NoError(t, err)
	require.False(t, actual.IsNil())
	assert.Equal(t, 3, *actual.Interface().(*int))

	actual, err = converter.ConvertValue(reflect.ValueOf("x"), reflect.TypeOf((*interface{})(nil)).Elem())
	require.NoError(t, err)
	assert.Equal(t, "x", actual.Interface())

	_, err = converter.ConvertValue(reflect.ValueOf("x"), reflect.TypeOf(struct{}{}))
	assert.ErrorIs(t, err, ErrNotConvertible)
}

func TestCustomConversion(t *testing.T) {
	converter := NewConverter(DefaultOptions())
	converter.RegisterConversion(reflect.TypeOf(""), reflect.TypeOf(Level(0)), func(src interface{}, dest interface{}, opts Options) error {
		switch src.(string) {
		case "high":
			*dest.(*Level) = 10
		default:
			*dest.(*Level) = 1
		}
		return nil
	})
	actual, err := converter.ConvertValue(reflect.ValueOf("high"), reflect.TypeOf(Level(0)))
	require.NoError(t, err)
	assert.Equal(t, Level(10), actual.Interface())
	actual, err = converter.ConvertValue(reflect.ValueOf("low"), reflect.TypeOf(Level(0)))
	require.NoError(t, err)
	assert.Equal(t, Level(1), actual.Interface())
}
