package marshal

import (
	"bytes"
	"strings"
	"testing"

	"github.com/go-json-experiment/json/jsontext"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/viant/structgraph"
)

func TestWriter(t *testing.T) {
	var testCases = []struct {
		description string
		emit        func(w *Writer) error
		expect      string
	}{
		{
			description: "scalars",
			emit: func(w *Writer) error {
				return sequence(w, func() error {
					for _, value := range []interface{}{1.5, float64(2), "a", true, nil, 3, int64(4), float32(0.5)} {
						if err := w.Write(value); err != nil {
							return err
						}
					}
					return w.WriteNull()
				})
			},
			expect: `[1.5,2,"a",true,null,3,4,0.5,null]`,
		},
		{
			description: "structure with identifier",
			emit: func(w *Writer) error {
				if err := w.BeginStructure("main.Circle"); err != nil {
					return err
				}
				if err := w.AddProperty("R"); err != nil {
					return err
				}
				if err := w.Write(2.0); err != nil {
					return err
				}
				return w.EndStructure()
			},
			expect: `{"$type":"main.Circle","R":2}`,
		},
		{
			description: "reference",
			emit: func(w *Writer) error {
				if err := w.BeginStructure(""); err != nil {
					return err
				}
				if err := w.AddProperty("Next"); err != nil {
					return err
				}
				if err := w.WriteReference(0); err != nil {
					return err
				}
				return w.EndStructure()
			},
			expect: `{"Next":{"$ref":0}}`,
		},
		{
			description: "escaped text",
			emit: func(w *Writer) error {
				return w.Write("a\"b\n")
			},
			expect: `"a\"b\n"`,
		},
	}
	for _, testCase := range testCases {
		buffer := &bytes.Buffer{}
		w := New(buffer)
		if !assert.NoError(t, testCase.emit(w), testCase.description) {
			continue
		}
		assert.Equal(t, testCase.expect, strings.TrimSpace(buffer.String()), testCase.description)
	}
}

func TestWriter_Errors(t *testing.T) {
	w := New(&bytes.Buffer{})
	assert.ErrorIs(t, w.Write(struct{}{}), structgraph.ErrUnknownTypeCode)

	w = New(&bytes.Buffer{})
	require.NoError(t, w.BeginStructure(""))
	assert.Error(t, w.Write(1.0), "value without a member name")

	w = New(&bytes.Buffer{})
	assert.Error(t, w.EndSequence())
}

func TestWriter_Indent(t *testing.T) {
	buffer := &bytes.Buffer{}
	w := New(buffer, jsontext.WithIndent("  "))
	require.NoError(t, w.BeginStructure(""))
	require.NoError(t, w.AddProperty("A"))
	require.NoError(t, w.Write(1.0))
	require.NoError(t, w.EndStructure())
	assert.Equal(t, "{\n  \"A\": 1\n}", strings.TrimSpace(buffer.String()))
}

func sequence(w *Writer, items func() error) error {
	if err := w.BeginSequence(); err != nil {
		return err
	}
	if err := items(); err != nil {
		return err
	}
	return w.EndSequence()
}
