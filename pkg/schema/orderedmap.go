package schema

import "gopkg.in/yaml.v3"

// OrderedMap is a map that remembers insertion order. The Template Engine's
// deepEvaluate (spec.md §4.1) and the $forEach structural operator
// (spec.md §9 open question 1) both need to preserve the order keys
// appeared in the source document — something a plain Go map cannot do —
// so every document body decoded by the Config Loader (C3) uses OrderedMap
// rather than map[string]any until the final hand-off to a plugin, at
// which point ToMap discards order (plugins only ever see an opaque spec
// value; Go map order was never observable to them anyway).
type OrderedMap struct {
	keys []string
	vals map[string]any
}

// NewOrderedMap returns an empty OrderedMap.
func NewOrderedMap() *OrderedMap {
	return &OrderedMap{vals: make(map[string]any)}
}

// Set inserts or updates key. Re-setting an existing key updates its value
// in place without moving it to the end, matching ordinary map semantics
// and the teacher's "ordinary keys win, in their original position"
// $merge overlay behavior.
func (m *OrderedMap) Set(key string, value any) {
	if _, exists := m.vals[key]; !exists {
		m.keys = append(m.keys, key)
	}
	m.vals[key] = value
}

// Get returns key's value and whether it was present.
func (m *OrderedMap) Get(key string) (any, bool) {
	v, ok := m.vals[key]
	return v, ok
}

// Delete removes key, preserving the relative order of the remaining keys.
func (m *OrderedMap) Delete(key string) {
	if _, ok := m.vals[key]; !ok {
		return
	}
	delete(m.vals, key)
	for i, k := range m.keys {
		if k == key {
			m.keys = append(m.keys[:i], m.keys[i+1:]...)
			break
		}
	}
}

// Keys returns the keys in insertion order.
func (m *OrderedMap) Keys() []string {
	out := make([]string, len(m.keys))
	copy(out, m.keys)
	return out
}

// Len returns the number of entries.
func (m *OrderedMap) Len() int { return len(m.keys) }

// Clone returns a deep-enough copy: the key order and top-level value slots
// are copied, but nested OrderedMap/[]any values are not recursively
// cloned (callers that mutate nested values should clone those
// explicitly).
func (m *OrderedMap) Clone() *OrderedMap {
	out := NewOrderedMap()
	for _, k := range m.keys {
		out.Set(k, m.vals[k])
	}
	return out
}

// ToMap flattens to a plain map[string]any, recursively flattening any
// nested OrderedMap/[]any values too. Intended for the final hand-off to a
// plugin, after all template evaluation is complete.
func (m *OrderedMap) ToMap() map[string]any {
	out := make(map[string]any, len(m.keys))
	for _, k := range m.keys {
		out[k] = Flatten(m.vals[k])
	}
	return out
}

// Flatten recursively converts any OrderedMap values found in tree into
// plain map[string]any, leaving everything else unchanged.
func Flatten(tree any) any {
	switch v := tree.(type) {
	case *OrderedMap:
		return v.ToMap()
	case []any:
		out := make([]any, len(v))
		for i, e := range v {
			out[i] = Flatten(e)
		}
		return out
	default:
		return tree
	}
}

// DecodeOrdered decodes a yaml.Node into a tree of *OrderedMap / []any /
// scalar values, preserving mapping key order — gopkg.in/yaml.v3 exposes
// exactly enough of its Node API (MappingNode.Content alternates key,
// value in document order) to do this without a custom YAML parser.
func DecodeOrdered(node *yaml.Node) (any, error) {
	switch node.Kind {
	case yaml.DocumentNode:
		if len(node.Content) == 0 {
			return nil, nil
		}
		return DecodeOrdered(node.Content[0])
	case yaml.MappingNode:
		om := NewOrderedMap()
		for i := 0; i+1 < len(node.Content); i += 2 {
			keyNode, valNode := node.Content[i], node.Content[i+1]
			var key string
			if err := keyNode.Decode(&key); err != nil {
				return nil, err
			}
			val, err := DecodeOrdered(valNode)
			if err != nil {
				return nil, err
			}
			om.Set(key, val)
		}
		return om, nil
	case yaml.SequenceNode:
		out := make([]any, len(node.Content))
		for i, item := range node.Content {
			val, err := DecodeOrdered(item)
			if err != nil {
				return nil, err
			}
			out[i] = val
		}
		return out, nil
	default:
		var v any
		if err := node.Decode(&v); err != nil {
			return nil, err
		}
		return v, nil
	}
}
