package structgraph

import (
	"fmt"
	"reflect"
	"strings"

	"github.com/viant/structgraph/internal/tagutil"
	"github.com/viant/xunsafe"
)

func (p *populator) populateStructure(def *TypeDefinition) error {
	t := def.rType
	s := &structure{rType: t, byName: map[string]*Property{}, byFoldedName: map[string]*Property{}}
	def.structure = s
	desc := p.cache.description(t)
	if desc == nil {
		desc = &description{}
	}
	if err := p.addFields(s, t, nil, map[string]bool{}, map[reflect.Type]bool{t: true}); err != nil {
		return err
	}
	if HasSetMarker(t) {
		// promoted fields of inlined structs are tracked next to own fields
		index := make(map[string]int, len(s.properties))
		for _, property := range s.properties {
			if _, ok := index[property.FieldName]; !ok {
				index[property.FieldName] = len(index)
			}
		}
		marker, err := NewMarker(t, WithIndex(index))
		if err != nil {
			return fmt.Errorf("invalid %v presence marker: %w", t, err)
		}
		s.marker = marker
		for _, property := range s.properties {
			property.markerIndex = marker.Index(property.FieldName)
		}
	}
	for _, spec := range desc.constructors {
		constructor, err := p.newConstructor(t, spec.fn, spec.names)
		if err != nil {
			return err
		}
		s.constructors = append(s.constructors, constructor)
	}
	if err := p.addMethodProperties(s, desc); err != nil {
		return err
	}
	for i, spec := range desc.preBuilds {
		preBuild, err := newPreBuild(fmt.Sprintf("%v.prebuild[%d]", t.Name(), i), spec.source, reflect.ValueOf(spec.fn), reflect.Value{})
		if err != nil {
			return err
		}
		s.preBuilds = append(s.preBuilds, preBuild)
	}
	preBuilds, err := methodPreBuilds(t)
	if err != nil {
		return err
	}
	s.preBuilds = append(s.preBuilds, preBuilds...)
	s.zeroValue = len(s.constructors) == 0 || desc.zeroValue
	return nil
}

// addFields flattens exported fields of t, inline embedded structs are expanded in place;
// names declared at shallower depth shadow embedded ones
func (p *populator) addFields(s *structure, t reflect.Type, path []*xunsafe.Field, shadowed map[string]bool, visiting map[reflect.Type]bool) error {
	numField := t.NumField()
	fieldTags := make([]tagutil.ResolvedFieldTag, numField)
	levelNames := make(map[string]bool, len(shadowed)+numField)
	for name := range shadowed {
		levelNames[name] = true
	}
	for i := 0; i < numField; i++ {
		field := t.Field(i)
		tag, err := tagutil.ResolveFieldTag(field)
		if err != nil {
			return WrapPath(err, t.Name(), field.Name)
		}
		fieldTags[i] = tag
		if !isInlined(field, tag) && field.IsExported() && !tag.Ignore {
			levelNames[tag.Name] = true
		}
	}
	for i := 0; i < numField; i++ {
		field := t.Field(i)
		tag := fieldTags[i]
		if tag.Ignore || IsSetMarker(field.Tag) {
			continue
		}
		if isInlined(field, tag) {
			embedded := ensureStruct(field.Type)
			if visiting[embedded] {
				continue
			}
			visiting[embedded] = true
			err := p.addFields(s, embedded, appendPath(path, xunsafe.NewField(field)), levelNames, visiting)
			delete(visiting, embedded)
			if err != nil {
				return err
			}
			continue
		}
		if !field.IsExported() || shadowed[tag.Name] {
			continue
		}
		property := &Property{
			Name:        tag.Name,
			FieldName:   field.Name,
			Explicit:    tag.Explicit,
			Typed:       tag.Typed,
			OmitEmpty:   tag.OmitEmpty,
			TimeLayout:  tag.Format.TimeLayout,
			rType:       field.Type,
			fields:      appendPath(path, xunsafe.NewField(field)),
			getter:      -1,
			setter:      -1,
			markerIndex: -1,
		}
		definition, err := p.definition(field.Type)
		if err != nil {
			return WrapPath(err, t.Name(), field.Name)
		}
		property.definition = definition
		if tag.Setter != "" {
			method, hasError, ok := setterMethod(reflect.PointerTo(s.rType), tag.Setter, field.Type)
			if !ok {
				return fmt.Errorf("%w: invalid setter %v for %v.%v", ErrUnsupportedOperation, tag.Setter, t.Name(), field.Name)
			}
			property.setter = method.Index
			property.setterError = hasError
		}
		s.addProperty(property)
	}
	return nil
}

func isInlined(field reflect.StructField, tag tagutil.ResolvedFieldTag) bool {
	if !tag.Inline {
		return false
	}
	embedded := ensureStruct(field.Type)
	if embedded == nil || embedded == timeType {
		return false
	}
	return field.Type.Kind() == reflect.Struct || field.Type.Elem().Kind() == reflect.Struct
}

func appendPath(path []*xunsafe.Field, field *xunsafe.Field) []*xunsafe.Field {
	ret := make([]*xunsafe.Field, len(path)+1)
	copy(ret, path)
	ret[len(path)] = field
	return ret
}

// addMethodProperties exposes getters named by constructor parameters or explicitly listed getters
func (p *populator) addMethodProperties(s *structure, desc *description) error {
	var candidates []string
	required := map[string]bool{}
	for _, constructor := range s.constructors {
		for _, param := range constructor.Parameters {
			candidates = append(candidates, param.Name)
		}
	}
	for _, name := range desc.getters {
		candidates = append(candidates, name)
		required[strings.ToLower(name)] = true
	}
	ptrType := reflect.PointerTo(s.rType)
	for _, name := range candidates {
		folded := strings.ToLower(name)
		if _, ok := s.byFoldedName[folded]; ok {
			continue
		}
		method, ok := getterMethod(ptrType, name)
		if !ok {
			if required[folded] {
				return fmt.Errorf("%w: %v has no getter %v", ErrUnsupportedOperation, s.rType, name)
			}
			continue
		}
		valueType := method.Type.Out(0)
		property := &Property{
			Name:        method.Name,
			FieldName:   method.Name,
			rType:       valueType,
			getter:      method.Index,
			setter:      -1,
			markerIndex: -1,
		}
		if setter, hasError, ok := setterMethod(ptrType, "Set"+method.Name, valueType); ok {
			property.setter = setter.Index
			property.setterError = hasError
		}
		definition, err := p.definition(valueType)
		if err != nil {
			return WrapPath(err, s.rType.Name(), method.Name)
		}
		property.definition = definition
		s.addProperty(property)
	}
	return nil
}

func getterMethod(ptrType reflect.Type, name string) (reflect.Method, bool) {
	for i := 0; i < ptrType.NumMethod(); i++ {
		method := ptrType.Method(i)
		if !strings.EqualFold(method.Name, name) {
			continue
		}
		if method.Type.NumIn() == 1 && method.Type.NumOut() == 1 {
			return method, true
		}
	}
	return reflect.Method{}, false
}
