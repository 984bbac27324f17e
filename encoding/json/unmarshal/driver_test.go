package unmarshal

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strconv"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/viant/structgraph"
)

type recorder struct {
	ops []string
}

func (r *recorder) add(op string) error {
	r.ops = append(r.ops, op)
	return nil
}

func (r *recorder) WriteNull() error { return r.add("null") }

func (r *recorder) Write(value interface{}) error {
	if text, ok := value.(string); ok {
		return r.add(strconv.Quote(text))
	}
	return r.add(fmt.Sprint(value))
}

func (r *recorder) BeginStructure(typeID string) error { return r.add("{" + typeID) }
func (r *recorder) AddProperty(name string) error      { return r.add(name + ":") }
func (r *recorder) EndStructure() error                { return r.add("}") }
func (r *recorder) BeginSequence() error               { return r.add("[") }
func (r *recorder) EndSequence() error                 { return r.add("]") }
func (r *recorder) WriteReference(index int) error     { return r.add("$ref:" + strconv.Itoa(index)) }

func TestReplay(t *testing.T) {
	var testCases = []struct {
		description string
		data        string
		expect      []string
	}{
		{description: "scalars", data: `[1,1.5,"a",true,false,null]`, expect: []string{"[", "1", "1.5", `"a"`, "true", "false", "null", "]"}},
		{description: "empty object", data: `{}`, expect: []string{"{", "}"}},
		{description: "empty array", data: `[]`, expect: []string{"[", "]"}},
		{description: "members", data: `{"A":1,"B":{"C":"x"}}`, expect: []string{"{", "A:", "1", "B:", "{", "C:", `"x"`, "}", "}"}},
		{description: "type identifier", data: `{"$type":"main.Circle","R":2}`, expect: []string{"{main.Circle", "R:", "2", "}"}},
		{description: "type identifier only", data: `{"$type":"main.Circle"}`, expect: []string{"{main.Circle", "}"}},
		{description: "type member not first", data: `{"R":2,"$type":"main.Circle"}`, expect: []string{"{", "R:", "2", "$type:", `"main.Circle"`, "}"}},
		{description: "reference", data: `{"A":{"B":1},"C":{"$ref":1}}`, expect: []string{"{", "A:", "{", "B:", "1", "}", "C:", "$ref:1", "}"}},
		{description: "reference member not first", data: `{"B":1,"$ref":0}`, expect: []string{"{", "B:", "1", "$ref:", "0", "}"}},
	}
	for _, testCase := range testCases {
		w := &recorder{}
		if !assert.NoError(t, Replay([]byte(testCase.data), w), testCase.description) {
			continue
		}
		if diff := cmp.Diff(testCase.expect, w.ops); diff != "" {
			t.Errorf("%v: ops mismatch (-want +got):\n%s", testCase.description, diff)
		}
	}
}

func TestReplay_Errors(t *testing.T) {
	var testCases = []struct {
		description string
		data        string
		expectErr   error
	}{
		{description: "reference with other members", data: `{"$ref":0,"B":1}`, expectErr: structgraph.ErrInvalidReference},
		{description: "reference not a number", data: `{"$ref":"0"}`, expectErr: structgraph.ErrInvalidReference},
		{description: "type not a string", data: `{"$type":1}`, expectErr: structgraph.ErrUnresolvableType},
		{description: "missing comma", data: `{"A":1 "B":2}`},
		{description: "trailing comma", data: `[1,]`},
		{description: "duplicate member", data: `{"A":1,"A":2}`},
		{description: "truncated", data: `{"A":`},
		{description: "empty", data: ``},
	}
	for _, testCase := range testCases {
		err := Replay([]byte(testCase.data), &recorder{})
		if testCase.expectErr != nil {
			assert.ErrorIs(t, err, testCase.expectErr, testCase.description)
			continue
		}
		assert.Error(t, err, testCase.description)
	}
}

func TestDriver_Path(t *testing.T) {
	err := Replay([]byte(`{"Items":[1,{"$ref":"x"}]}`), &recorder{})
	var pathErr *structgraph.PathError
	if assert.True(t, errors.As(err, &pathErr)) {
		assert.Contains(t, pathErr.Path(), "Items")
		assert.Contains(t, pathErr.Path(), "[1]")
	}
}

func TestDriver_Finish(t *testing.T) {
	driver := New(context.Background(), bytes.NewReader([]byte(`{"A":1} `)))
	assert.NoError(t, driver.Drive(&recorder{}))
	assert.NoError(t, driver.Finish())

	driver = New(context.Background(), bytes.NewReader([]byte(`{"A":1} {"A":2}`)))
	assert.NoError(t, driver.Drive(&recorder{}))
	assert.Error(t, driver.Finish())
}

func TestDriver_Context(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := New(ctx, bytes.NewReader([]byte(`{"A":1}`))).Drive(&recorder{})
	assert.ErrorIs(t, err, context.Canceled)
}
