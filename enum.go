package structgraph

import (
	"fmt"
	"reflect"
	"sort"
	"strconv"
	"strings"
)

// FlagSeparator joins names of flag enum members
const FlagSeparator = ", "

// Integer constrains types that can be registered as enums
type Integer interface {
	~int | ~int8 | ~int16 | ~int32 | ~int64 | ~uint | ~uint8 | ~uint16 | ~uint32 | ~uint64
}

// EnumValue represents named enum member
type EnumValue struct {
	Name  string
	Value int64
}

// EnumDefinition maps enum members to names, flag enums combine members bitwise
type EnumDefinition struct {
	Flags  bool
	values []EnumValue
	byName map[string]int64
	byVal  map[int64]string
}

// Values returns enum members ordered by value
func (e *EnumDefinition) Values() []EnumValue { return e.values }

// Format returns member name, flag enums join member names with FlagSeparator,
// values without a name are rendered as decimal
func (e *EnumDefinition) Format(value int64) string {
	if name, ok := e.byVal[value]; ok {
		return name
	}
	if !e.Flags || value == 0 {
		return strconv.FormatInt(value, 10)
	}
	remaining := value
	var names []string
	for _, member := range e.values {
		if member.Value == 0 || member.Value&remaining != member.Value {
			continue
		}
		names = append(names, member.Name)
		remaining &^= member.Value
	}
	if remaining != 0 || len(names) == 0 {
		return strconv.FormatInt(value, 10)
	}
	return strings.Join(names, FlagSeparator)
}

// Parse returns member value for name, flag enums split names on FlagSeparator
func (e *EnumDefinition) Parse(text string) (int64, error) {
	if value, ok := e.byName[text]; ok {
		return value, nil
	}
	if !e.Flags {
		return e.parseMember(text)
	}
	var result int64
	for _, name := range strings.Split(text, FlagSeparator) {
		value, err := e.parseMember(name)
		if err != nil {
			return 0, err
		}
		result |= value
	}
	return result, nil
}

func (e *EnumDefinition) parseMember(name string) (int64, error) {
	if value, ok := e.byName[name]; ok {
		return value, nil
	}
	value, err := strconv.ParseInt(strings.TrimSpace(name), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("unknown enum member: %q", name)
	}
	return value, nil
}

func newEnumDefinition(values map[int64]string, flags bool) *EnumDefinition {
	ret := &EnumDefinition{Flags: flags, byName: make(map[string]int64, len(values)), byVal: make(map[int64]string, len(values))}
	for value, name := range values {
		ret.values = append(ret.values, EnumValue{Name: name, Value: value})
		ret.byName[name] = value
		ret.byVal[value] = name
	}
	sort.Slice(ret.values, func(i, j int) bool { return ret.values[i].Value < ret.values[j].Value })
	return ret
}

// RegisterEnum registers enum member names for T; it has to be called before T is first described
func RegisterEnum[T Integer](c *Cache, names map[T]string, flags bool) error {
	values := make(map[int64]string, len(names))
	for value, name := range names {
		values[int64(value)] = name
	}
	return c.registerEnum(reflect.TypeOf(*new(T)), newEnumDefinition(values, flags))
}

// EnumInt returns integer value of an enum value
func EnumInt(value reflect.Value) int64 {
	switch value.Kind() {
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		return int64(value.Uint())
	}
	return value.Int()
}

// SetEnumInt assigns integer value to an addressable enum value
func SetEnumInt(value reflect.Value, v int64) {
	switch value.Kind() {
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		value.SetUint(uint64(v))
	default:
		value.SetInt(v)
	}
}
