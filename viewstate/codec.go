// Package viewstate serializes list-view state (filters, sort,
// pagination) to and from its canonical query-string form and derives
// the query cache key for the view. The URL is the only persisted form
// of this state: what the codec encodes is what lands in the address
// bar, and bookmarked URLs stay stable across releases because default
// values are never emitted.
package viewstate

import (
	"errors"
	"fmt"
	"net/url"
	"strconv"

	"github.com/goliatone/go-storefront-cache/cache"
)

// Reserved query parameter names; everything else is a filter.
const (
	paramSort     = "sort"
	paramPage     = "page"
	paramPageSize = "per_page"
)

// ErrBadQuery indicates a query string that cannot be decoded into a
// view parameter state.
var ErrBadQuery = errors.New("viewstate: malformed query string")

// State is one list view's parameterization. Filters holds only
// non-default, non-empty entries; Sort, Page and PageSize are always
// populated. Transient UI state (open drawers, hover) never lives here,
// so it can never leak into cache keys.
type State struct {
	Filters  map[string]string
	Sort     string
	Page     int
	PageSize int
}

// Filter returns the effective value for a filter name, falling back to
// the codec's declared default when the state does not carry it.
func (c *Codec) Filter(s State, name string) string {
	name = toSnake(name)
	if v, ok := s.Filters[name]; ok {
		return v
	}
	return c.defaults.Filters[name]
}

// Defaults declares a view's default sort, page size and filter values.
// A state equal to its defaults encodes to the empty query string.
type Defaults struct {
	Sort     string
	PageSize int
	Filters  map[string]string
}

// Codec encodes and decodes one view's parameter state. resource is the
// cache key type its lists are stored under ("product-list", ...).
type Codec struct {
	resource string
	defaults Defaults
}

// NewCodec creates a codec for the given list resource type.
func NewCodec(resource string, defaults Defaults) *Codec {
	if defaults.PageSize <= 0 {
		defaults.PageSize = 20
	}
	normalized := make(map[string]string, len(defaults.Filters))
	for name, v := range defaults.Filters {
		if v != "" {
			normalized[toSnake(name)] = v
		}
	}
	defaults.Filters = normalized
	return &Codec{resource: resource, defaults: defaults}
}

// Default returns the state representing the view with no parameters.
func (c *Codec) Default() State {
	return State{
		Sort:     c.defaults.Sort,
		Page:     1,
		PageSize: c.defaults.PageSize,
	}
}

// Decode parses a raw query string into a canonical State. Decoding
// then re-encoding is idempotent: defaults are filled in, filter names
// normalized, and default-valued or empty filters dropped, so absent
// and explicit-default parameters produce the same state.
func (c *Codec) Decode(rawQuery string) (State, error) {
	values, err := url.ParseQuery(rawQuery)
	if err != nil {
		return State{}, fmt.Errorf("%w: %v", ErrBadQuery, err)
	}

	s := c.Default()
	for name := range values {
		v := values.Get(name)
		switch name {
		case paramSort:
			if v != "" {
				s.Sort = v
			}
		case paramPage:
			page, err := strconv.Atoi(v)
			if err != nil || page < 1 {
				return State{}, fmt.Errorf("%w: page %q", ErrBadQuery, v)
			}
			s.Page = page
		case paramPageSize:
			size, err := strconv.Atoi(v)
			if err != nil || size < 1 {
				return State{}, fmt.Errorf("%w: per_page %q", ErrBadQuery, v)
			}
			s.PageSize = size
		default:
			if v == "" {
				continue
			}
			if s.Filters == nil {
				s.Filters = make(map[string]string)
			}
			s.Filters[toSnake(name)] = v
		}
	}
	return c.Canonicalize(s), nil
}

// Encode renders the state in canonical minimal form: parameters equal
// to their declared defaults are omitted, names are sorted, and a
// default state yields the empty string.
func (c *Codec) Encode(s State) string {
	s = c.Canonicalize(s)

	values := url.Values{}
	for name, v := range s.Filters {
		values.Set(name, v)
	}
	if s.Sort != c.defaults.Sort {
		values.Set(paramSort, s.Sort)
	}
	if s.Page > 1 {
		values.Set(paramPage, strconv.Itoa(s.Page))
	}
	if s.PageSize != c.defaults.PageSize {
		values.Set(paramPageSize, strconv.Itoa(s.PageSize))
	}
	// url.Values.Encode writes keys in sorted order.
	return values.Encode()
}

// Canonicalize normalizes filter names, drops empty and default-valued
// filters, and fills missing sort/pagination fields from the defaults.
func (c *Codec) Canonicalize(s State) State {
	out := State{
		Sort:     s.Sort,
		Page:     s.Page,
		PageSize: s.PageSize,
	}
	if out.Sort == "" {
		out.Sort = c.defaults.Sort
	}
	if out.Page < 1 {
		out.Page = 1
	}
	if out.PageSize < 1 {
		out.PageSize = c.defaults.PageSize
	}
	for name, v := range s.Filters {
		name = toSnake(name)
		if v == "" || v == c.defaults.Filters[name] {
			continue
		}
		if out.Filters == nil {
			out.Filters = make(map[string]string)
		}
		out.Filters[name] = v
	}
	return out
}

// Key derives the query cache key for the list view the state
// describes. Any filter, sort or page change changes the key; fields
// equal to their defaults are dropped by canonicalization first, so the
// default and the explicit-default view share one cache entry.
func (c *Codec) Key(s State) (cache.Key, error) {
	s = c.Canonicalize(s)

	params := make(map[string]any, len(s.Filters)+3)
	for name, v := range s.Filters {
		params[name] = v
	}
	if s.Sort != c.defaults.Sort {
		params[paramSort] = s.Sort
	}
	if s.Page > 1 {
		params[paramPage] = s.Page
	}
	if s.PageSize != c.defaults.PageSize {
		params[paramPageSize] = s.PageSize
	}
	return cache.MakeKey(c.resource, params)
}
