package util

import (
	"fmt"
	"sync"
)

// EnumSet is an alphabet mapping string values to dense indices. Indices are
// handed out in insertion order; a frozen set only answers lookups.
type EnumSet struct {
	mu     sync.RWMutex
	Enum   map[string]int
	Index  []string
	Frozen bool
}

func (e *EnumSet) RebuildIndex() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.rebuildIndex()
}

func (e *EnumSet) rebuildIndex() {
	e.Index = make([]string, len(e.Enum))
	for k, v := range e.Enum {
		e.Index[v] = k
	}
}

func (e *EnumSet) Add(value string) (int, bool) {
	if e.Frozen {
		panic("Cannot add value to frozen enum set")
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	enum, exists := e.Enum[value]
	if exists {
		return enum, false
	}
	enum = len(e.Index)
	e.Enum[value] = enum
	e.Index = append(e.Index, value)
	return enum, true
}

// Lookup adds value unless the set is frozen, in which case only known values
// resolve.
func (e *EnumSet) Lookup(value string) (int, bool) {
	if e.Frozen {
		return e.IndexOf(value)
	}
	enum, _ := e.Add(value)
	return enum, true
}

func (e *EnumSet) IndexOf(value string) (int, bool) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	enum, exists := e.Enum[value]
	return enum, exists
}

func (e *EnumSet) ValueOf(index int) string {
	if index < 0 {
		panic("Negative index requested")
	}
	e.mu.RLock()
	if len(e.Index) != len(e.Enum) {
		e.mu.RUnlock()
		e.RebuildIndex()
		e.mu.RLock()
	}
	defer e.mu.RUnlock()
	if len(e.Index) <= index {
		panic("Unknown index requested: " + fmt.Sprintf("%v of %v", index, len(e.Index)))
	}
	return e.Index[index]
}

func (e *EnumSet) Len() int {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return len(e.Index)
}

// Equal compares contents, not frozen state.
func (e *EnumSet) Equal(other *EnumSet) bool {
	if other == nil {
		return false
	}
	e.mu.RLock()
	defer e.mu.RUnlock()
	other.mu.RLock()
	defer other.mu.RUnlock()
	if len(e.Index) != len(other.Index) {
		return false
	}
	for i, v := range e.Index {
		if other.Index[i] != v {
			return false
		}
	}
	return true
}

func NewEnumSet(capacity int) *EnumSet {
	e := &EnumSet{
		Enum:  make(map[string]int, capacity),
		Index: make([]string, 0, capacity),
	}
	return e
}

// NewEnumSetOf builds a set holding values in order.
func NewEnumSetOf(values ...string) *EnumSet {
	e := NewEnumSet(len(values))
	for _, v := range values {
		e.Add(v)
	}
	return e
}
