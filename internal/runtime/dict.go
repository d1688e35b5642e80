package runtime

import (
	"strings"

	orderedmap "github.com/wk8/go-ordered-map/v2"
)

// Reserved dict method keys. User code cannot define fields with these names.
var reservedDictKeys = map[string]bool{
	"keys":    true,
	"values":  true,
	"entries": true,
}

// IsReservedDictKey reports whether the key collides with a dict method.
func IsReservedDictKey(key string) bool {
	return reservedDictKeys[key]
}

// DictValue is a string-keyed mapping with insertion order preserved. Dicts
// are immutable: With and Without return new dicts.
type DictValue struct {
	entries *orderedmap.OrderedMap[string, Value]
}

// NewDict creates an empty dict.
func NewDict() *DictValue {
	return &DictValue{entries: orderedmap.New[string, Value]()}
}

func (d *DictValue) Type() string { return TypeDict }

func (d *DictValue) String() string {
	if d.Len() == 0 {
		return "[:]"
	}
	var parts []string
	for pair := d.entries.Oldest(); pair != nil; pair = pair.Next() {
		parts = append(parts, pair.Key+": "+displayElement(pair.Value))
	}
	return "[" + strings.Join(parts, ", ") + "]"
}

// Len returns the number of entries.
func (d *DictValue) Len() int {
	return d.entries.Len()
}

// Get returns the value for a key.
func (d *DictValue) Get(key string) (Value, bool) {
	return d.entries.Get(key)
}

// Keys returns the keys in insertion order.
func (d *DictValue) Keys() []string {
	keys := make([]string, 0, d.Len())
	for pair := d.entries.Oldest(); pair != nil; pair = pair.Next() {
		keys = append(keys, pair.Key)
	}
	return keys
}

// Values returns the values in insertion order.
func (d *DictValue) Values() []Value {
	values := make([]Value, 0, d.Len())
	for pair := d.entries.Oldest(); pair != nil; pair = pair.Next() {
		values = append(values, pair.Value)
	}
	return values
}

// With returns a copy of the dict with one entry set. Insertion order is
// preserved; an existing key keeps its position.
func (d *DictValue) With(key string, value Value) *DictValue {
	next := NewDict()
	replaced := false
	for pair := d.entries.Oldest(); pair != nil; pair = pair.Next() {
		if pair.Key == key {
			next.entries.Set(key, value)
			replaced = true
		} else {
			next.entries.Set(pair.Key, pair.Value)
		}
	}
	if !replaced {
		next.entries.Set(key, value)
	}
	return next
}

// Without returns a copy of the dict with one key removed.
func (d *DictValue) Without(key string) *DictValue {
	next := NewDict()
	for pair := d.entries.Oldest(); pair != nil; pair = pair.Next() {
		if pair.Key != key {
			next.entries.Set(pair.Key, pair.Value)
		}
	}
	return next
}

// Merge returns a dict with the other dict's entries layered on top.
func (d *DictValue) Merge(other *DictValue) *DictValue {
	next := NewDict()
	for pair := d.entries.Oldest(); pair != nil; pair = pair.Next() {
		next.entries.Set(pair.Key, pair.Value)
	}
	for pair := other.entries.Oldest(); pair != nil; pair = pair.Next() {
		next.entries.Set(pair.Key, pair.Value)
	}
	return next
}

// set writes an entry in place. Only dict construction uses it; dicts are
// immutable once visible to scripts.
func (d *DictValue) set(key string, value Value) {
	d.entries.Set(key, value)
}

// SetEntry writes an entry during construction.
func (d *DictValue) SetEntry(key string, value Value) {
	d.set(key, value)
}

// IsIterator reports whether the dict has the userland iterator shape:
// `done: Bool`, `next: Callable`, and (when not done) `value`.
func (d *DictValue) IsIterator() bool {
	done, ok := d.Get("done")
	if !ok {
		return false
	}
	if _, ok := done.(*BoolValue); !ok {
		return false
	}
	next, ok := d.Get("next")
	if !ok {
		return false
	}
	return IsCallable(next)
}
