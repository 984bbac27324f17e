package tags

import (
	"fmt"
	"reflect"
	"strings"
)

// TagName defines graph directive tag name
const TagName = "graph"

// Tag represents graph directives declared on a struct field, i.e. `graph:"typed,name=kind"`
type Tag struct {
	Name      string
	Typed     bool
	Ignore    bool
	OmitEmpty bool
	Setter    string
}

// Parse parses graph tag directives
func Parse(tag reflect.StructTag) (*Tag, error) {
	ret := &Tag{}
	literal, ok := tag.Lookup(TagName)
	if !ok {
		return ret, nil
	}
	if literal == "-" {
		ret.Ignore = true
		return ret, nil
	}
	err := Values(literal).MatchPairs(func(key, value string) error {
		switch strings.ToLower(key) {
		case "typed":
			ret.Typed = value == "" || strings.EqualFold(value, "true")
		case "name":
			ret.Name = value
		case "omitempty":
			ret.OmitEmpty = true
		case "ignore", "-":
			ret.Ignore = true
		case "setter":
			ret.Setter = value
		default:
			return fmt.Errorf("unsupported %s tag directive: %s", TagName, key)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return ret, nil
}
