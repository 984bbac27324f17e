package builder

import (
	"fmt"
	"reflect"
	"strings"

	"github.com/viant/structgraph"
	"github.com/viant/tagly/format/text"
)

// node is a buffered fragment of the operation stream, materialized on demand.
type node interface{}

type (
	// valueNode holds a scalar, nil represents null
	valueNode struct {
		value interface{}
	}

	// referenceNode points to an arena slot
	referenceNode struct {
		index int
	}

	// placeholderNode occupies an arena slot that can not be referenced
	placeholderNode struct {
		index int
	}

	// resolvedNode holds a value produced outside of the buffered stream
	resolvedNode struct {
		value   reflect.Value
		pointer bool
	}

	sequenceNode struct {
		def   *structgraph.TypeDefinition
		items []node
	}

	dictNode struct {
		index    int
		def      *structgraph.TypeDefinition
		names    []string
		values   []node
		instance reflect.Value
		// typeID is kept for dictionaries buffered for ignored properties
		typeID string
	}

	structNode struct {
		index    int
		def      *structgraph.TypeDefinition
		pointer  bool
		names    []string
		values   []node
		instance reflect.Value
		state    state
		// deferred is set once a fixup writes into instance after the root is materialized
		deferred bool
	}
)

type state int

const (
	statePending state = iota
	stateConstructing
	statePopulating
	stateDone
)

func (n *sequenceNode) itemType() reflect.Type {
	return n.def.Elem().Type()
}

func (n *dictNode) add(name string, value node) {
	n.names = append(n.names, name)
	n.values = append(n.values, value)
}

func (n *structNode) add(name string, value node) {
	n.names = append(n.names, name)
	n.values = append(n.values, value)
}

func (n *structNode) typeName() string {
	return n.def.Type().Name()
}

// propertyType returns declared type of a property or constructor parameter, nil if unknown
func (n *structNode) propertyType(name string, caseFormat text.CaseFormat) reflect.Type {
	if property := n.def.Lookup(name, caseFormat); property != nil {
		return property.Type()
	}
	for _, constructor := range n.def.Constructors() {
		for _, param := range constructor.Parameters {
			if matchesName(param.Name, name, caseFormat) {
				return param.Type
			}
		}
	}
	return nil
}

// lookup returns position of the last value supplied for name, or -1
func (n *structNode) lookup(name string, caseFormat text.CaseFormat) int {
	for i := len(n.names) - 1; i >= 0; i-- {
		if matchesName(name, n.names[i], caseFormat) {
			return i
		}
	}
	return -1
}

// offered describes buffered properties for construction errors
func (n *structNode) offered() string {
	parts := make([]string, len(n.names))
	for i, name := range n.names {
		parts[i] = name + " " + describe(n.values[i])
	}
	return "{" + strings.Join(parts, ", ") + "}"
}

func matchesName(declared, name string, caseFormat text.CaseFormat) bool {
	if strings.EqualFold(declared, name) {
		return true
	}
	return caseFormat.IsDefined() && structgraph.FormatName(declared, caseFormat) == name
}

func describe(n node) string {
	switch actual := n.(type) {
	case *valueNode:
		if actual.value == nil {
			return "null"
		}
		return fmt.Sprintf("%T", actual.value)
	case *structNode:
		return actual.def.Type().String()
	case *dictNode:
		return actual.def.Type().String()
	case *sequenceNode:
		return actual.def.Type().String()
	case *resolvedNode:
		return actual.value.Type().String()
	case *referenceNode:
		return fmt.Sprintf("$ref(%d)", actual.index)
	}
	return "unknown"
}
