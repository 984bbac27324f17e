package json

import (
	stdjson "encoding/json"
	"reflect"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/viant/tagly/format/text"
)

type aliasInt int
type aliasString string
type aliasSlice []int
type aliasArray [3]int
type aliasInner struct {
	Name string
}
type aliasStruct aliasInner

type aliasPayload struct {
	I  aliasInt
	S  aliasString
	Sl aliasSlice
	Ar aliasArray
	St aliasStruct
}

func TestCompatDataDriven_Marshal(t *testing.T) {
	type eventType struct {
		Id   int
		Type string
	}
	type primitive struct {
		Int     int
		Int8    int8
		Uint8   uint8
		Int16   int16
		Uint16  uint16
		Int32   int32
		Uint32  uint32
		Int64   int64
		Uint64  uint64
		String  string
		Float32 float32
		Float64 float64
		Bool    bool
	}
	type primitivePtr struct {
		Int     *int
		Uint64  *uint64
		String  *string
		Float64 *float64
		Bool    *bool
	}
	type event struct {
		Int       int
		String    string
		Float64   float64
		EventType *eventType
	}
	type withCase struct {
		ID       int
		Quantity float64
		TimePtr  *time.Time `json:"time_ptr,omitempty"`
	}
	type inlineBody struct {
		Name  string `json:"name"`
		Price float64
	}
	type inline struct {
		ID   int        `json:"id"`
		Body inlineBody `jsonx:"inline"`
	}

	i, u64, s, f64, bl := 1, uint64(9), "string", 11.5, true
	tm := time.Date(2012, 7, 12, 0, 0, 0, 0, time.UTC)

	cases := []struct {
		name   string
		value  interface{}
		expect string
		opts   []Option
	}{
		{
			name: "primitive",
			value: primitive{
				Int: 1, Int8: 2, Uint8: 3, Int16: 4, Uint16: 5, Int32: 6, Uint32: 7,
				Int64: 8, Uint64: 9, String: "string", Float32: 5.5, Float64: 11.5, Bool: true,
			},
			expect: `{"Int":1,"Int8":2,"Uint8":3,"Int16":4,"Uint16":5,"Int32":6,"Uint32":7,"Int64":8,"Uint64":9,"String":"string","Float32":5.5,"Float64":11.5,"Bool":true}`,
		},
		{
			name:   "primitive pointers",
			value:  primitivePtr{Int: &i, Uint64: &u64, String: &s, Float64: &f64, Bool: &bl},
			expect: `{"Int":1,"Uint64":9,"String":"string","Float64":11.5,"Bool":true}`,
		},
		{
			name:   "nil pointers",
			value:  primitivePtr{},
			expect: `{"Int":null,"Uint64":null,"String":null,"Float64":null,"Bool":null}`,
		},
		{
			name: "relations",
			value: event{
				Int: 100, String: "abc", Float64: 0,
				EventType: &eventType{Id: 200, Type: "event-type-1"},
			},
			expect: `{"Int":100,"String":"abc","Float64":0,"EventType":{"Id":200,"Type":"event-type-1"}}`,
		},
		{
			name:   "case format",
			value:  []withCase{{ID: 1, Quantity: 125.5, TimePtr: &tm}},
			expect: `[{"id":1,"quantity":125.5,"time_ptr":"2012-07-12T00:00:00Z"}]`,
			opts:   []Option{WithCaseFormat(text.CaseFormatLowerUnderscore)},
		},
		{
			name:   "inline",
			value:  inline{ID: 12, Body: inlineBody{Name: "Foo name", Price: 125.567}},
			expect: `{"id":12,"name":"Foo name","price":125.567}`,
			opts:   []Option{WithCaseFormat(text.CaseFormatLowerCamel)},
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			data, err := Marshal(tc.value, tc.opts...)
			if err != nil {
				t.Fatalf("marshal error: %v", err)
			}
			assertJSONEqual(t, tc.expect, string(data))
		})
	}
}

func TestCompatDataDriven_Unmarshal(t *testing.T) {
	type eventType struct {
		Id   int
		Type string
	}
	type sample struct {
		Int       int
		String    string
		Float64   float64
		EventType *eventType
		Tags      []string
	}

	cases := []struct {
		name    string
		input   string
		checkFn func(t *testing.T, got sample)
	}{
		{
			name:  "basic",
			input: `{"Int":100,"String":"abc","Float64":0.5,"EventType":{"Id":200,"Type":"event-type-1"},"Tags":["x","y"]}`,
			checkFn: func(t *testing.T, got sample) {
				if got.Int != 100 || got.String != "abc" || got.Float64 != 0.5 {
					t.Fatalf("unexpected primitive fields: %+v", got)
				}
				if got.EventType == nil || got.EventType.Id != 200 || got.EventType.Type != "event-type-1" {
					t.Fatalf("unexpected nested struct: %+v", got.EventType)
				}
				if !reflect.DeepEqual(got.Tags, []string{"x", "y"}) {
					t.Fatalf("unexpected tags: %#v", got.Tags)
				}
			},
		},
		{
			name:  "case insensitive keys",
			input: `{"int":10,"STRING":"A","eventtype":{"id":2,"type":"T"},"tags":["k"]}`,
			checkFn: func(t *testing.T, got sample) {
				if got.Int != 10 || got.String != "A" {
					t.Fatalf("unexpected primitive fields: %+v", got)
				}
				if got.EventType == nil || got.EventType.Id != 2 || got.EventType.Type != "T" {
					t.Fatalf("unexpected nested struct: %+v", got.EventType)
				}
			},
		},
		{
			name:  "numbers as text",
			input: `{"Int":"12","Float64":"2.5"}`,
			checkFn: func(t *testing.T, got sample) {
				if got.Int != 12 || got.Float64 != 2.5 {
					t.Fatalf("unexpected numbers: %+v", got)
				}
			},
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			var out sample
			if err := Unmarshal([]byte(tc.input), &out); err != nil {
				t.Fatalf("unmarshal error: %v", err)
			}
			tc.checkFn(t, out)
		})
	}
}

func TestCompat_DatlyUnmarshalCorpus(t *testing.T) {
	type Foo struct {
		ID   int
		Name string
	}

	t.Run("invalid conversion object to slice", func(t *testing.T) {
		out := []*Foo{}
		if err := Unmarshal([]byte(`{"Name":"Foo","ID":1}`), &out); err == nil {
			t.Fatalf("expected error for object to slice conversion")
		}
	})

	t.Run("invalid conversion slice to object", func(t *testing.T) {
		var out Foo
		if err := Unmarshal([]byte(`[{"Name":"Foo","ID":1}]`), &out); err == nil {
			t.Fatalf("expected error for slice to object conversion")
		}
	})

	t.Run("missing comma", func(t *testing.T) {
		var out Foo
		if err := Unmarshal([]byte(`{"Name":"Foo" "ID":2}`), &out); err == nil {
			t.Fatalf("expected syntax error")
		}
	})

	t.Run("trailing data", func(t *testing.T) {
		var out Foo
		if err := Unmarshal([]byte(`{"Name":"Foo"} {}`), &out); err == nil {
			t.Fatalf("expected error for trailing data")
		}
	})

	t.Run("primitive slice", func(t *testing.T) {
		var out []int
		if err := Unmarshal([]byte(`[1,2,3,4,5]`), &out); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(out) != 5 || out[0] != 1 || out[4] != 5 {
			t.Fatalf("unexpected slice: %#v", out)
		}
	})

	t.Run("null pointers", func(t *testing.T) {
		type Bar struct {
			ID   *int
			Name *string
		}
		var out Bar
		if err := Unmarshal([]byte(`{"ID":null,"Name":null}`), &out); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if out.ID != nil || out.Name != nil {
			t.Fatalf("expected nil pointers, got: %#v", out)
		}
	})

	t.Run("presence marker with omitted fields", func(t *testing.T) {
		rType := reflect.TypeOf(struct {
			Id       int
			Name     *string `json:",omitempty"`
			Quantity *int    `json:",omitempty"`
			Has      *struct {
				Id       bool
				Name     bool
				Quantity bool
			} `setMarker:"true" json:"-"`
		}{})
		out := reflect.New(rType).Interface()
		if err := Unmarshal([]byte(`{"Name":"017_"}`), out); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		data, err := Marshal(out)
		if err != nil {
			t.Fatalf("marshal error: %v", err)
		}
		assertJSONEqual(t, `{"Name":"017_"}`, string(data))
	})

	t.Run("null nested holder", func(t *testing.T) {
		rType := reflect.TypeOf(struct {
			Data *struct {
				Id  int
				Has *struct {
					Id bool
				} `setMarker:"true" json:"-"`
			} `json:"data"`
		}{})
		out := reflect.New(rType).Interface()
		if err := Unmarshal([]byte(`{"data":null}`), out); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		data, err := Marshal(out)
		if err != nil {
			t.Fatalf("marshal error: %v", err)
		}
		assertJSONEqual(t, `{"data":null}`, string(data))
	})
}

func TestAliasTypes_Marshal(t *testing.T) {
	in := aliasPayload{
		I:  7,
		S:  "abc",
		Sl: aliasSlice{1, 2, 3},
		Ar: aliasArray{4, 5, 6},
		St: aliasStruct{Name: "inner"},
	}
	data, err := Marshal(in)
	require.NoError(t, err)
	assertJSONEqual(t, `{"I":7,"S":"abc","Sl":[1,2,3],"Ar":[4,5,6],"St":{"Name":"inner"}}`, string(data))
}

func TestAliasTypes_Unmarshal(t *testing.T) {
	var out aliasPayload
	data := []byte(`{"I":7,"S":"abc","Sl":[1,2,3],"Ar":[4,5,6],"St":{"Name":"inner"}}`)
	require.NoError(t, Unmarshal(data, &out))
	require.Equal(t, aliasPayload{
		I:  7,
		S:  "abc",
		Sl: aliasSlice{1, 2, 3},
		Ar: aliasArray{4, 5, 6},
		St: aliasStruct{Name: "inner"},
	}, out)
}

func TestUnmarshal_StringEscapes_Parity(t *testing.T) {
	type payload struct {
		S string
	}
	cases := []string{
		`{"S":"line1\nline2"}`,
		`{"S":"tab\tsep"}`,
		`{"S":"quote:\"ok\""}`,
		`{"S":"slash:\/"}`,
		`{"S":"backslash:\\\\"}`,
		`{"S":"music:♫"}`,
		`{"S":"emoji:😀"}`,
		`{"S":"combo:\\\\\"end"}`,
	}
	for _, input := range cases {
		var got payload
		if err := Unmarshal([]byte(input), &got); err != nil {
			t.Fatalf("unmarshal failed for %s: %v", input, err)
		}
		var want payload
		if err := stdjson.Unmarshal([]byte(input), &want); err != nil {
			t.Fatalf("stdlib unmarshal failed for %s: %v", input, err)
		}
		if got != want {
			t.Fatalf("mismatch for %s: got=%q want=%q", input, got.S, want.S)
		}
	}
}

func TestUnmarshal_StringEscapes_Invalid(t *testing.T) {
	type payload struct {
		S string
	}
	cases := []string{
		`{"S":"\x"}`,
		`{"S":"\u12"}`,
		"{\"S\":\"unterminated}",
	}
	for _, input := range cases {
		var got payload
		if err := Unmarshal([]byte(input), &got); err == nil {
			t.Fatalf("expected error for invalid input %s", input)
		}
	}
}

func assertJSONEqual(t *testing.T, expect, actual string) {
	t.Helper()
	var e interface{}
	var a interface{}
	if err := stdjson.Unmarshal([]byte(expect), &e); err != nil {
		t.Fatalf("invalid expected JSON: %v", err)
	}
	if err := stdjson.Unmarshal([]byte(actual), &a); err != nil {
		t.Fatalf("invalid actual JSON: %v\nactual=%s", err, actual)
	}
	if !reflect.DeepEqual(e, a) {
		t.Fatalf("json mismatch\nexpect=%s\nactual=%s", expect, actual)
	}
}

func TestUnmarshal_StringsDoNotAliasInput(t *testing.T) {
	type payload struct {
		S       string
		Tags    []string
		Payload map[string]string
		Any     interface{}
	}
	data := []byte(`{"S":"hello","Tags":["x","y"],"Payload":{"k1":"v1"},"Any":{"k":"world"}}`)
	var out payload
	require.NoError(t, Unmarshal(data, &out))
	for i := range data {
		data[i] = ' '
	}
	require.Equal(t, "hello", out.S)
	require.Equal(t, []string{"x", "y"}, out.Tags)
	require.Equal(t, map[string]string{"k1": "v1"}, out.Payload)
	require.Equal(t, map[string]interface{}{"k": "world"}, out.Any)
}
