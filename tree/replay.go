package tree

import (
	"fmt"
	"reflect"
	"sort"
	"unsafe"

	"github.com/viant/structgraph"
)

// Replay emits tree value to w; a map visited more than once is written as a back-reference,
// $type member becomes structure identifier, a single member {"$ref": n} map becomes a back-reference
func Replay(value interface{}, w structgraph.Writer) error {
	r := &replayer{w: w, seen: map[unsafe.Pointer]int{}}
	return r.value(value)
}

type replayer struct {
	w       structgraph.Writer
	seen    map[unsafe.Pointer]int
	counter int
}

func (r *replayer) value(value interface{}) error {
	switch actual := value.(type) {
	case nil:
		return r.w.WriteNull()
	case bool, float64, string:
		return r.w.Write(actual)
	case map[string]interface{}:
		if actual == nil {
			return r.w.WriteNull()
		}
		return r.object(actual)
	case []interface{}:
		if actual == nil {
			return r.w.WriteNull()
		}
		if err := r.w.BeginSequence(); err != nil {
			return err
		}
		for i, item := range actual {
			if err := r.value(item); err != nil {
				return structgraph.WrapPath(err, "", fmt.Sprintf("[%d]", i))
			}
		}
		return r.w.EndSequence()
	}
	rValue := reflect.ValueOf(value)
	switch rValue.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return r.w.Write(float64(rValue.Int()))
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return r.w.Write(float64(rValue.Uint()))
	case reflect.Float32:
		return r.w.Write(rValue.Float())
	}
	return fmt.Errorf("%w: %T", structgraph.ErrUnknownTypeCode, value)
}

func (r *replayer) object(object map[string]interface{}) error {
	if len(object) == 1 {
		if index, ok := object[RefKey].(float64); ok {
			return r.w.WriteReference(int(index))
		}
	}
	ptr := reflect.ValueOf(object).UnsafePointer()
	if index, ok := r.seen[ptr]; ok {
		return r.w.WriteReference(index)
	}
	r.seen[ptr] = r.counter
	r.counter++
	typeID, _ := object[TypeKey].(string)
	if err := r.w.BeginStructure(typeID); err != nil {
		return err
	}
	names := make([]string, 0, len(object))
	for name := range object {
		if name == TypeKey && typeID != "" {
			continue
		}
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		if err := r.w.AddProperty(name); err != nil {
			return err
		}
		if err := r.value(object[name]); err != nil {
			return structgraph.WrapPath(err, "", name)
		}
	}
	return r.w.EndStructure()
}
