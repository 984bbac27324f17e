package structgraph

import (
	"fmt"
	"log/slog"
	"reflect"
	"sync"

	"github.com/viant/structgraph/internal/lru"
)

// Cache classifies types into TypeDefinitions and resolves type identifiers.
// It is safe for concurrent use; definitions are published once fully populated.
type Cache struct {
	mux          sync.RWMutex
	definitions  map[reflect.Type]*TypeDefinition
	indexes      map[string]*identifierIndex
	descriptions map[reflect.Type]*description
	enums        map[reflect.Type]*EnumDefinition
	composites   *lru.Cache[string, reflect.Type]
	namer        TypeNamer
	logger       *slog.Logger
}

type identifierIndex struct {
	namer TypeNamer
	byID  map[string]*TypeDefinition
}

// CacheOption represents cache option
type CacheOption func(c *Cache)

// WithNamer sets default type namer
func WithNamer(namer TypeNamer) CacheOption {
	return func(c *Cache) {
		if namer != nil {
			c.namer = namer
		}
	}
}

// WithLogger sets population logger
func WithLogger(logger *slog.Logger) CacheOption {
	return func(c *Cache) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithCompositeCacheSize sets max number of memoized composite identifiers
func WithCompositeCacheSize(size int) CacheOption {
	return func(c *Cache) {
		c.composites = lru.New[string, reflect.Type](size)
	}
}

var defaultCache = NewCache()

// Default returns process wide cache
func Default() *Cache {
	return defaultCache
}

// NewCache creates a cache
func NewCache(opts ...CacheOption) *Cache {
	ret := &Cache{
		definitions:  map[reflect.Type]*TypeDefinition{},
		indexes:      map[string]*identifierIndex{},
		descriptions: map[reflect.Type]*description{},
		enums:        map[reflect.Type]*EnumDefinition{},
		namer:        FullNamer{},
		logger:       slog.New(slog.DiscardHandler),
	}
	for _, opt := range opts {
		opt(ret)
	}
	if ret.composites == nil {
		ret.composites = lru.New[string, reflect.Type](0)
	}
	return ret
}

// Namer returns default namer
func (c *Cache) Namer() TypeNamer {
	return c.namer
}

// Logger returns cache logger
func (c *Cache) Logger() *slog.Logger {
	return c.logger
}

// Definition returns type definition, populating it on first encounter
func (c *Cache) Definition(t reflect.Type) (*TypeDefinition, error) {
	if t == nil {
		return nil, fmt.Errorf("%w: nil type", ErrUnsupportedType)
	}
	if def := c.lookup(t); def != nil {
		return def, nil
	}
	p := &populator{cache: c, pending: map[reflect.Type]*TypeDefinition{}}
	if _, err := p.definition(t); err != nil {
		return nil, err
	}
	c.publish(p)
	return c.lookup(t), nil
}

// Identifier returns type identifier composed with namer, or the cache namer if nil
func (c *Cache) Identifier(t reflect.Type, namer TypeNamer) string {
	if namer == nil {
		namer = c.namer
	}
	return c.compose(t, namer)
}

// Lookup returns definition for type identifier produced with namer, or the cache namer if nil
func (c *Cache) Lookup(id string, namer TypeNamer) (*TypeDefinition, error) {
	if namer == nil {
		namer = c.namer
	}
	if def := c.indexed(id, namer); def != nil {
		return def, nil
	}
	t, err := c.resolve(id, namer)
	if err != nil {
		return nil, err
	}
	return c.Definition(t)
}

// Register populates types of supplied samples, so that their identifiers can be resolved
func (c *Cache) Register(samples ...interface{}) error {
	for _, sample := range samples {
		if sample == nil {
			continue
		}
		if err := c.RegisterType(reflect.TypeOf(sample)); err != nil {
			return err
		}
	}
	return nil
}

// RegisterType populates supplied types
func (c *Cache) RegisterType(types ...reflect.Type) error {
	for _, t := range types {
		if _, err := c.Definition(t); err != nil {
			return err
		}
	}
	return nil
}

func (c *Cache) lookup(t reflect.Type) *TypeDefinition {
	c.mux.RLock()
	defer c.mux.RUnlock()
	return c.definitions[t]
}

func (c *Cache) indexed(id string, namer TypeNamer) *TypeDefinition {
	key := namerKey(namer)
	c.mux.RLock()
	index, ok := c.indexes[key]
	if ok {
		def := index.byID[id]
		c.mux.RUnlock()
		return def
	}
	c.mux.RUnlock()

	c.mux.Lock()
	defer c.mux.Unlock()
	if index, ok = c.indexes[key]; !ok {
		index = &identifierIndex{namer: namer, byID: make(map[string]*TypeDefinition, len(c.definitions))}
		for t, def := range c.definitions {
			index.byID[c.composeLocked(t, namer)] = def
		}
		c.indexes[key] = index
	}
	return index.byID[id]
}

func (c *Cache) publish(p *populator) {
	c.mux.Lock()
	defer c.mux.Unlock()
	for _, def := range p.order {
		if _, ok := c.definitions[def.rType]; ok {
			continue
		}
		c.definitions[def.rType] = def
		for _, index := range c.indexes {
			index.byID[c.composeLocked(def.rType, index.namer)] = def
		}
		c.logger.Debug("populated type", "type", def.identifier, "category", def.category.String())
	}
}

func (c *Cache) typeName(t reflect.Type) (string, bool) {
	c.mux.RLock()
	defer c.mux.RUnlock()
	return c.typeNameLocked(t)
}

func (c *Cache) typeNameLocked(t reflect.Type) (string, bool) {
	desc, ok := c.descriptions[t]
	if !ok || desc.typeName == "" {
		return "", false
	}
	return desc.typeName, true
}

// composeLocked mirrors compose for callers holding the cache lock
func (c *Cache) composeLocked(t reflect.Type, namer TypeNamer) string {
	if t.Name() != "" {
		if name, ok := c.typeNameLocked(t); ok {
			return name
		}
		if t.PkgPath() == "" {
			return t.Name()
		}
		return namer.Name(t)
	}
	switch t.Kind() {
	case reflect.Ptr, reflect.Slice, reflect.Array, reflect.Map:
		return composite(t, func(elem reflect.Type) string { return c.composeLocked(elem, namer) })
	}
	return t.String()
}

func (c *Cache) description(t reflect.Type) *description {
	c.mux.RLock()
	defer c.mux.RUnlock()
	return c.descriptions[t]
}

func (c *Cache) enum(t reflect.Type) *EnumDefinition {
	c.mux.RLock()
	defer c.mux.RUnlock()
	return c.enums[t]
}

func (c *Cache) registerEnum(t reflect.Type, enum *EnumDefinition) error {
	c.mux.Lock()
	defer c.mux.Unlock()
	if _, ok := c.definitions[t]; ok {
		return fmt.Errorf("%w: %v", ErrTypeSealed, t)
	}
	c.enums[t] = enum
	return nil
}

// populator classifies a graph of types; definitions stay local until the whole graph is populated
type populator struct {
	cache   *Cache
	pending map[reflect.Type]*TypeDefinition
	order   []*TypeDefinition
}

func (p *populator) definition(t reflect.Type) (*TypeDefinition, error) {
	if def := p.cache.lookup(t); def != nil {
		return def, nil
	}
	if def, ok := p.pending[t]; ok {
		return def, nil
	}
	def := &TypeDefinition{rType: t, identifier: p.cache.Identifier(t, nil)}
	p.pending[t] = def
	p.order = append(p.order, def)
	for i := len(detectors) - 1; i >= 0; i-- {
		matched, err := detectors[i](p, def)
		if err != nil {
			return nil, err
		}
		if matched {
			return def, nil
		}
	}
	return nil, fmt.Errorf("%w: %v", ErrUnsupportedType, t)
}
