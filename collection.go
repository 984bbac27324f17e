package structgraph

import (
	"reflect"
)

// collectionMethods binds Add(E) and All() iter.Seq[E] methods of a collection type.
type collectionMethods struct {
	itemType  reflect.Type
	addIndex  int
	allIndex  int
	onPointer bool
}

func collectionMethodsOf(t reflect.Type) *collectionMethods {
	if t.Kind() == reflect.Interface {
		return nil
	}
	owners := []reflect.Type{t}
	if t.Kind() != reflect.Ptr {
		owners = append(owners, reflect.PointerTo(t))
	}
	for i, owner := range owners {
		add, ok := owner.MethodByName("Add")
		if !ok {
			continue
		}
		all, ok := owner.MethodByName("All")
		if !ok {
			continue
		}
		itemType := seqItemType(all.Type)
		if itemType == nil {
			continue
		}
		if add.Type.NumIn() != 2 || add.Type.NumOut() != 0 || add.Type.In(1) != itemType {
			continue
		}
		return &collectionMethods{itemType: itemType, addIndex: add.Index, allIndex: all.Index, onPointer: i == 1}
	}
	return nil
}

// seqItemType returns E for a method of shape func(recv) iter.Seq[E]
func seqItemType(method reflect.Type) reflect.Type {
	if method.NumIn() != 1 || method.NumOut() != 1 {
		return nil
	}
	seq := method.Out(0)
	if seq.Kind() != reflect.Func || seq.NumIn() != 1 || seq.NumOut() != 0 {
		return nil
	}
	yield := seq.In(0)
	if yield.Kind() != reflect.Func || yield.NumIn() != 1 || yield.NumOut() != 1 || yield.Out(0).Kind() != reflect.Bool {
		return nil
	}
	return yield.In(0)
}

func (m *collectionMethods) receiver(collection reflect.Value) reflect.Value {
	if !m.onPointer {
		return collection
	}
	if collection.CanAddr() {
		return collection.Addr()
	}
	ptr := reflect.New(collection.Type())
	ptr.Elem().Set(collection)
	return ptr
}

func (m *collectionMethods) add(collection reflect.Value, item reflect.Value) {
	m.receiver(collection).Method(m.addIndex).Call([]reflect.Value{item})
}

func (m *collectionMethods) items(collection reflect.Value) []reflect.Value {
	recv := m.receiver(collection)
	if recv.Kind() == reflect.Ptr && recv.IsNil() {
		return nil
	}
	seq := recv.Method(m.allIndex).Call(nil)[0]
	if seq.IsNil() {
		return nil
	}
	var result []reflect.Value
	yield := reflect.MakeFunc(seq.Type().In(0), func(args []reflect.Value) []reflect.Value {
		result = append(result, args[0])
		return []reflect.Value{reflect.ValueOf(true)}
	})
	seq.Call([]reflect.Value{yield})
	return result
}

func (m *collectionMethods) newCollection(t reflect.Type) reflect.Value {
	if t.Kind() == reflect.Ptr {
		return reflect.New(t.Elem())
	}
	return reflect.New(t).Elem()
}
