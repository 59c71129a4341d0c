package cache

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// KeySeparator defines the delimiter used between cache key segments.
const KeySeparator = "::"

// Key is the canonical address of one cached resource. Type names the
// resource kind ("product", "wishlist", "order-list", ...) and Params
// carries the identifying parameters already reduced to strings.
//
// Two semantically identical requests always canonicalize to the same
// key string: params are sorted by name and empty values are dropped,
// so a default and an explicit-default request collide intentionally.
type Key struct {
	Type   string
	Params map[string]string
}

// MakeKey builds a Key from a resource type and raw parameter values.
// Values are stringified deterministically; nil and empty-string values
// are omitted. A value without a stable string form (maps, slices,
// structs, funcs) is a programming error and returns ErrKeyParam.
func MakeKey(resourceType string, params map[string]any) (Key, error) {
	if resourceType == "" {
		return Key{}, fmt.Errorf("%w: empty resource type", ErrKeyParam)
	}

	k := Key{Type: resourceType}
	if len(params) == 0 {
		return k, nil
	}

	k.Params = make(map[string]string, len(params))
	for name, value := range params {
		if value == nil {
			continue
		}
		s, err := stringifyParam(value)
		if err != nil {
			return Key{}, fmt.Errorf("param %q: %w", name, err)
		}
		if s == "" {
			continue
		}
		k.Params[name] = s
	}
	return k, nil
}

// MustKey is MakeKey for call sites with statically known parameters.
// It panics on a serialization error, which is always a programming bug.
func MustKey(resourceType string, params map[string]any) Key {
	k, err := MakeKey(resourceType, params)
	if err != nil {
		panic(err)
	}
	return k
}

// String renders the canonical storage address. Params are joined in
// sorted order so the same request always produces the same string.
// Format: type::name=value::name=value
func (k Key) String() string {
	if len(k.Params) == 0 {
		return k.Type
	}

	names := make([]string, 0, len(k.Params))
	for name := range k.Params {
		names = append(names, name)
	}
	sort.Strings(names)

	parts := make([]string, 0, len(names)+1)
	parts = append(parts, k.Type)
	for _, name := range names {
		parts = append(parts, name+"="+k.Params[name])
	}
	return strings.Join(parts, KeySeparator)
}

// stringifyParam converts a single parameter value to its canonical
// string form. Only scalar types have one; everything else fails fast.
func stringifyParam(v any) (string, error) {
	switch t := v.(type) {
	case string:
		return t, nil
	case bool:
		return strconv.FormatBool(t), nil
	case int:
		return strconv.Itoa(t), nil
	case int8, int16, int32, int64:
		return fmt.Sprintf("%d", t), nil
	case uint, uint8, uint16, uint32, uint64:
		return fmt.Sprintf("%d", t), nil
	case float32:
		return strconv.FormatFloat(float64(t), 'g', -1, 32), nil
	case float64:
		return strconv.FormatFloat(t, 'g', -1, 64), nil
	case fmt.Stringer:
		return t.String(), nil
	default:
		return "", fmt.Errorf("%w: %T has no stable string form", ErrKeyParam, v)
	}
}

// Pattern selects a set of keys for invalidation. A zero Params pattern
// matches every key of its Type; a pattern with Params matches keys
// whose params contain every listed name/value pair.
type Pattern struct {
	Type   string
	Params map[string]string
}

// ByType returns a pattern matching every key of the given resource type.
func ByType(resourceType string) Pattern {
	return Pattern{Type: resourceType}
}

// ByID returns a pattern matching keys of the given type whose "id"
// param equals id, the common shape for item-level invalidation.
func ByID(resourceType, id string) Pattern {
	return Pattern{Type: resourceType, Params: map[string]string{"id": id}}
}

// Matches reports whether the key falls inside the pattern.
func (p Pattern) Matches(k Key) bool {
	if p.Type != k.Type {
		return false
	}
	for name, want := range p.Params {
		if got, ok := k.Params[name]; !ok || got != want {
			return false
		}
	}
	return true
}
