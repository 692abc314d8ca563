package model

import (
	"github.com/san-kum/spatialsim/internal/dynamo"
)

type entity interface {
	ID() string
	Name() string
}

// Collection is an ordered set of entities indexed by name.
type Collection[T entity] struct {
	kind   string
	items  []T
	byName map[string]int
}

func newCollection[T entity](kind string) Collection[T] {
	return Collection[T]{kind: kind, byName: make(map[string]int)}
}

// Len returns the number of entities.
func (c *Collection[T]) Len() int {
	return len(c.items)
}

// Items returns the entities in insertion order.
func (c *Collection[T]) Items() []T {
	out := make([]T, len(c.items))
	copy(out, c.items)
	return out
}

// At returns the entity at index i. Negative indices count from the end.
func (c *Collection[T]) At(i int) (T, error) {
	var zero T
	n := len(c.items)
	if i < 0 {
		i += n
	}
	if i < 0 || i >= n {
		return zero, dynamo.InvalidArgument("%s index out of range", c.kind)
	}
	return c.items[i], nil
}

// Get returns the entity with the given name.
func (c *Collection[T]) Get(name string) (T, error) {
	var zero T
	i, ok := c.byName[name]
	if !ok {
		return zero, dynamo.InvalidArgument("%s '%s' not found", c.kind, name)
	}
	return c.items[i], nil
}

// ByID returns the entity with the given ID.
func (c *Collection[T]) ByID(id string) (T, bool) {
	for _, it := range c.items {
		if it.ID() == id {
			return it, true
		}
	}
	var zero T
	return zero, false
}

// Names returns the entity names in order.
func (c *Collection[T]) Names() []string {
	out := make([]string, len(c.items))
	for i, it := range c.items {
		out[i] = it.Name()
	}
	return out
}

// IDs returns the entity IDs in order.
func (c *Collection[T]) IDs() []string {
	out := make([]string, len(c.items))
	for i, it := range c.items {
		out[i] = it.ID()
	}
	return out
}

func (c *Collection[T]) checkNewName(name string) error {
	if name == "" {
		return dynamo.InvalidArgument("%s name cannot be empty", c.kind)
	}
	if _, ok := c.byName[name]; ok {
		return dynamo.InvalidArgument("%s '%s' already exists", c.kind, name)
	}
	return nil
}

func (c *Collection[T]) add(it T) {
	c.byName[it.Name()] = len(c.items)
	c.items = append(c.items, it)
}

// rename must be called after checkNewName succeeded.
func (c *Collection[T]) rename(oldName, newName string) {
	i := c.byName[oldName]
	delete(c.byName, oldName)
	c.byName[newName] = i
}

func (c *Collection[T]) remove(id string) (T, bool) {
	var zero T
	for i, it := range c.items {
		if it.ID() != id {
			continue
		}
		c.items = append(c.items[:i], c.items[i+1:]...)
		c.reindex()
		return it, true
	}
	return zero, false
}

func (c *Collection[T]) reindex() {
	clear(c.byName)
	for i, it := range c.items {
		c.byName[it.Name()] = i
	}
}
