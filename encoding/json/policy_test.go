package json

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/viant/structgraph"
)

func TestNilSlicePolicy(t *testing.T) {
	type sample struct {
		Items []int
	}
	var nilSlice []int
	var testCases = []struct {
		description string
		value       interface{}
		options     []Option
		expect      string
	}{
		{description: "default is null", value: sample{}, expect: `{"Items":null}`},
		{description: "empty array override", value: sample{}, options: []Option{WithNilSlicePolicy(NilSliceAsEmptyArray)}, expect: `{"Items":[]}`},
		{description: "non nil empty with null policy", value: sample{Items: []int{}}, options: []Option{WithNilSlicePolicy(NilSliceAsNull)}, expect: `{"Items":[]}`},
		{description: "non nil empty with empty policy", value: sample{Items: []int{}}, options: []Option{WithNilSlicePolicy(NilSliceAsEmptyArray)}, expect: `{"Items":[]}`},
		{description: "top level default", value: nilSlice, expect: `null`},
		{description: "top level override", value: nilSlice, options: []Option{WithNilSlicePolicy(NilSliceAsEmptyArray)}, expect: `[]`},
	}
	for _, testCase := range testCases {
		data, err := Marshal(testCase.value, testCase.options...)
		if !assert.NoError(t, err, testCase.description) {
			continue
		}
		assertJSONEqual(t, testCase.expect, string(data))
	}
}

func TestStrictMode_DefaultPolicies(t *testing.T) {
	opts := resolveOptions(context.Background(), []Option{WithMode(ModeStrict)})
	assert.Equal(t, ModeStrict, opts.Mode)
	assert.False(t, opts.setUnknownFieldPolicy)
	assert.False(t, opts.setNullPolicy)

	opts = resolveOptions(context.Background(), []Option{WithMode(ModeStrict), WithNullPolicy(CompatNulls)})
	assert.True(t, opts.setNullPolicy)
	assert.Equal(t, CompatNulls, opts.NullPolicy)
}

func TestStrictMode_Unmarshal(t *testing.T) {
	type sample struct {
		ID int
	}
	var testCases = []struct {
		description string
		data        string
		options     []Option
		expect      sample
		expectErr   error
	}{
		{description: "unknown field ignored", data: `{"ID":1,"Unknown":2}`, expect: sample{ID: 1}},
		{description: "unknown field", data: `{"ID":1,"Unknown":2}`, options: []Option{WithMode(ModeStrict)}, expectErr: structgraph.ErrUnknownProperty},
		{description: "unknown field override", data: `{"ID":1,"Unknown":2}`, options: []Option{WithMode(ModeStrict), WithUnknownFieldPolicy(IgnoreUnknown)}, expect: sample{ID: 1}},
		{description: "unknown field policy", data: `{"Unknown":2}`, options: []Option{WithUnknownFieldPolicy(ErrorOnUnknown)}, expectErr: structgraph.ErrUnknownProperty},
		{description: "non integral number", data: `{"ID":1.5}`, options: []Option{WithMode(ModeStrict)}, expectErr: structgraph.ErrPropertyTypeMismatch},
		{description: "numeric text", data: `{"ID":"7"}`, expect: sample{ID: 7}},
		{description: "numeric text in strict mode", data: `{"ID":"7"}`, options: []Option{WithMode(ModeStrict)}, expectErr: structgraph.ErrPropertyTypeMismatch},
		{description: "null to non nullable", data: `{"ID":null}`, expect: sample{}},
		{description: "strict null to non nullable", data: `{"ID":null}`, options: []Option{WithMode(ModeStrict)}, expectErr: structgraph.ErrPropertyTypeMismatch},
		{description: "strict nulls", data: `{"ID":null}`, options: []Option{WithNullPolicy(StrictNulls)}, expectErr: structgraph.ErrPropertyTypeMismatch},
	}
	for _, testCase := range testCases {
		var out sample
		err := Unmarshal([]byte(testCase.data), &out, testCase.options...)
		if testCase.expectErr != nil {
			assert.ErrorIs(t, err, testCase.expectErr, testCase.description)
			continue
		}
		if !assert.NoError(t, err, testCase.description) {
			continue
		}
		assert.Equal(t, testCase.expect, out, testCase.description)
	}
}

func TestUnmarshal_MalformedInput(t *testing.T) {
	type sample struct {
		ID int
	}
	var testCases = []struct {
		description string
		data        string
		dest        func() interface{}
	}{
		{description: "duplicate field", data: `{"ID":1,"ID":2}`, dest: func() interface{} { return &sample{} }},
		{description: "duplicate map key", data: `{"k":1,"k":2}`, dest: func() interface{} { return &map[string]int{} }},
		{description: "trailing comma", data: `{"ID":1,}`, dest: func() interface{} { return &sample{} }},
		{description: "trailing comma array", data: `[1,2,]`, dest: func() interface{} { return &[]int{} }},
		{description: "empty input", data: ``, dest: func() interface{} { return &sample{} }},
	}
	for _, testCase := range testCases {
		assert.Error(t, Unmarshal([]byte(testCase.data), testCase.dest()), testCase.description)
	}
}

func TestUnmarshal_ReplacesSlices(t *testing.T) {
	type payload struct {
		Ints  []int
		F64   *[]float64
		Flags []bool
	}
	f64 := []float64{9}
	out := payload{
		Ints:  []int{7, 8, 9, 10},
		F64:   &f64,
		Flags: make([]bool, 0, 8),
	}
	data := []byte(`{"Ints":[1,2,3],"F64":[1.5,2.5],"Flags":[true,false,true]}`)
	require.NoError(t, Unmarshal(data, &out))
	assert.Equal(t, []int{1, 2, 3}, out.Ints)
	require.NotNil(t, out.F64)
	assert.Equal(t, []float64{1.5, 2.5}, *out.F64)
	assert.Equal(t, []bool{true, false, true}, out.Flags)
	assert.Equal(t, []float64{9}, f64)
}
