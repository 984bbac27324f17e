package structgraph

import (
	"reflect"
	"strings"
)

const (
	//SetMarkerTag defines set marker tag
	SetMarkerTag = "presenceMarker"

	legacyMarkerTag = "setMarker"

	legacyTagFragment = "presence=true"
)

// IsSetMarker returns true if field tag marks a presence marker holder
func IsSetMarker(tag reflect.StructTag) bool {
	if _, ok := tag.Lookup(SetMarkerTag); ok {
		return true
	}
	if _, ok := tag.Lookup(legacyMarkerTag); ok {
		return true
	}
	return strings.Contains(string(tag), legacyTagFragment)
}
