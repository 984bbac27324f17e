package structgraph

import (
	"fmt"
	"reflect"
	"strconv"
	"strings"
	"time"

	"github.com/viant/parsly"
	"github.com/viant/parsly/matcher"
)

// TypeNamer names defined (named) types; composite identifiers such as
// *T, []T, [N]T and map[K]V are composed by the Cache around these names.
type TypeNamer interface {
	Name(t reflect.Type) string
}

// FullNamer names types as package path qualified names, i.e. github.com/acme/model.Order
type FullNamer struct{}

// Name returns package path qualified type name
func (FullNamer) Name(t reflect.Type) string {
	return t.PkgPath() + "." + t.Name()
}

// ShortNamer names types as package name qualified names, i.e. model.Order
type ShortNamer struct{}

// Name returns package qualified type name
func (ShortNamer) Name(t reflect.Type) string {
	return t.String()
}

// NamerFunc adapts a function to TypeNamer
type NamerFunc func(t reflect.Type) string

// Name returns type name
func (f NamerFunc) Name(t reflect.Type) string {
	return f(t)
}

func namerKey(namer TypeNamer) string {
	if fn, ok := namer.(NamerFunc); ok {
		return fmt.Sprintf("%T@%x", namer, reflect.ValueOf(fn).Pointer())
	}
	return fmt.Sprintf("%T:%v", namer, namer)
}

var builtinTypes = map[string]reflect.Type{
	"bool":         reflect.TypeOf(false),
	"string":       reflect.TypeOf(""),
	"int":          reflect.TypeOf(int(0)),
	"int8":         reflect.TypeOf(int8(0)),
	"int16":        reflect.TypeOf(int16(0)),
	"int32":        reflect.TypeOf(int32(0)),
	"int64":        reflect.TypeOf(int64(0)),
	"uint":         reflect.TypeOf(uint(0)),
	"uint8":        reflect.TypeOf(uint8(0)),
	"uint16":       reflect.TypeOf(uint16(0)),
	"uint32":       reflect.TypeOf(uint32(0)),
	"uint64":       reflect.TypeOf(uint64(0)),
	"float32":      reflect.TypeOf(float32(0)),
	"float64":      reflect.TypeOf(float64(0)),
	"interface {}": reflect.TypeOf((*interface{})(nil)).Elem(),
	"any":          reflect.TypeOf((*interface{})(nil)).Elem(),
	"time.Time":    reflect.TypeOf(time.Time{}),
}

const bracketBlockToken = iota

var bracketBlockMatcher = parsly.NewToken(bracketBlockToken, "[ .... ]", matcher.NewBlock('[', ']', '\\'))

// compose renders identifier of t using namer for defined types
func (c *Cache) compose(t reflect.Type, namer TypeNamer) string {
	c.mux.RLock()
	defer c.mux.RUnlock()
	return c.composeLocked(t, namer)
}

// composite renders pointer, slice, array and map identifiers around elem names
func composite(t reflect.Type, name func(elem reflect.Type) string) string {
	switch t.Kind() {
	case reflect.Ptr:
		return "*" + name(t.Elem())
	case reflect.Slice:
		return "[]" + name(t.Elem())
	case reflect.Array:
		return "[" + strconv.Itoa(t.Len()) + "]" + name(t.Elem())
	case reflect.Map:
		return "map[" + name(t.Key()) + "]" + name(t.Elem())
	}
	return t.String()
}

// resolve returns type for identifier, composite identifiers are memoized
func (c *Cache) resolve(id string, namer TypeNamer) (reflect.Type, error) {
	if t, ok := builtinTypes[id]; ok {
		return t, nil
	}
	if def := c.indexed(id, namer); def != nil {
		return def.rType, nil
	}
	key := namerKey(namer) + "|" + id
	if t, ok := c.composites.Get(key); ok {
		return t, nil
	}
	t, err := c.parse(id, namer)
	if err != nil {
		return nil, err
	}
	c.composites.Set(key, t)
	return t, nil
}

func (c *Cache) parse(id string, namer TypeNamer) (reflect.Type, error) {
	if id == "" {
		return nil, fmt.Errorf("%w: empty identifier", ErrUnresolvableType)
	}
	switch {
	case id[0] == '*':
		elem, err := c.resolve(id[1:], namer)
		if err != nil {
			return nil, err
		}
		return reflect.PointerTo(elem), nil
	case id[0] == '[':
		cursor := parsly.NewCursor("", []byte(id), 0)
		bounds, ok := matchBrackets(cursor)
		if !ok {
			return nil, fmt.Errorf("%w: %q", ErrUnresolvableType, id)
		}
		elem, err := c.resolve(id[cursor.Pos:], namer)
		if err != nil {
			return nil, err
		}
		if bounds == "" {
			return reflect.SliceOf(elem), nil
		}
		size, err := strconv.Atoi(bounds)
		if err != nil || size < 0 {
			return nil, fmt.Errorf("%w: invalid array length in %q", ErrUnresolvableType, id)
		}
		return reflect.ArrayOf(size, elem), nil
	case strings.HasPrefix(id, "map["):
		cursor := parsly.NewCursor("", []byte(id), 0)
		cursor.Pos = len("map")
		keyID, ok := matchBrackets(cursor)
		if !ok {
			return nil, fmt.Errorf("%w: %q", ErrUnresolvableType, id)
		}
		key, err := c.resolve(keyID, namer)
		if err != nil {
			return nil, err
		}
		if !key.Comparable() {
			return nil, fmt.Errorf("%w: invalid map key %v in %q", ErrUnresolvableType, key, id)
		}
		elem, err := c.resolve(id[cursor.Pos:], namer)
		if err != nil {
			return nil, err
		}
		return reflect.MapOf(key, elem), nil
	}
	return nil, fmt.Errorf("%w: %q", ErrUnresolvableType, id)
}

func matchBrackets(cursor *parsly.Cursor) (string, bool) {
	match := cursor.MatchAny(bracketBlockMatcher)
	if match.Code != bracketBlockToken {
		return "", false
	}
	text := match.Text(cursor)
	return text[1 : len(text)-1], true
}
