package tagutil

import "strings"

// JSONTag represents encoding/json compatible field tag
type JSONTag struct {
	Name      string
	OmitEmpty bool
	Explicit  bool
	Transient bool
}

// ParseJSONTag parses json tag, defaultName is used when the tag does not name the field
func ParseJSONTag(defaultName string, raw string) JSONTag {
	if raw == "" {
		return JSONTag{Name: defaultName}
	}
	parts := strings.Split(raw, ",")
	name := parts[0]
	explicit := true
	if name == "" {
		name = defaultName
	}
	tag := JSONTag{
		Name:      name,
		Explicit:  explicit,
		Transient: name == "-",
	}
	for _, p := range parts[1:] {
		if p == "omitempty" {
			tag.OmitEmpty = true
			break
		}
	}
	return tag
}
