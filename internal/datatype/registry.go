package datatype

import (
	"errors"
	"fmt"
	"regexp"
	"sort"
	"strings"

	"github.com/metaschema-go/metaschema/internal/metapath/item"
)

// Data type names
const (
	String               = "string"
	Token                = "token"
	Boolean              = "boolean"
	Integer              = "integer"
	PositiveInteger      = "positive-integer"
	NonNegativeInteger   = "non-negative-integer"
	Decimal              = "decimal"
	Date                 = "date"
	DateWithTimezone     = "date-with-timezone"
	DateTime             = "date-time"
	DateTimeWithTimezone = "date-time-with-timezone"
	URI                  = "uri"
	URIReference         = "uri-reference"
	UUID                 = "uuid"
	EmailAddress         = "email-address"
)

var (
	stringPattern = regexp.MustCompile(`^\S(.*\S)?$`)
	tokenPattern  = regexp.MustCompile(`^(\p{L}|_)(\p{L}|\p{N}|[.\-_])*$`)
	emailPattern  = regexp.MustCompile(`^[^\s@]+@[^\s@]+$`)
)

var (
	errNotPositive = errors.New("must be greater than zero")
	errNegative    = errors.New("must not be negative")
	errNoTimezone  = errors.New("a timezone is required")
	errNotAbsolute = errors.New("must be an absolute URI")
)

// Registry is an immutable table of adapters keyed by data type name
type Registry struct {
	adapters map[string]*Adapter
}

// NewRegistry creates a registry holding adapters. Later adapters replace
// earlier ones with the same name.
func NewRegistry(adapters ...*Adapter) *Registry {
	r := &Registry{adapters: make(map[string]*Adapter, len(adapters))}
	for _, a := range adapters {
		r.adapters[a.name] = a
	}
	return r
}

// Lookup returns the adapter for name
func (r *Registry) Lookup(name string) (*Adapter, bool) {
	a, ok := r.adapters[name]
	return a, ok
}

// MustLookup returns the adapter for name and panics if it is not registered
func (r *Registry) MustLookup(name string) *Adapter {
	a, ok := r.Lookup(name)
	if !ok {
		panic(fmt.Sprintf("datatype: unknown data type %q", name))
	}
	return a
}

// Names returns the registered data type names in sorted order
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.adapters))
	for name := range r.adapters {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Suggest lists the registered names as a comma separated string, for
// error messages
func (r *Registry) Suggest() string {
	return strings.Join(r.Names(), ", ")
}

var defaultRegistry = NewRegistry(
	&Adapter{name: String, itemType: item.TypeString, jsonValueKey: "STRVALUE", pattern: stringPattern},
	&Adapter{name: Token, itemType: item.TypeString, jsonValueKey: "STRVALUE", pattern: tokenPattern},
	&Adapter{name: Boolean, itemType: item.TypeBoolean, jsonValueKey: "value"},
	&Adapter{name: Integer, itemType: item.TypeInteger, jsonValueKey: "value"},
	&Adapter{name: PositiveInteger, itemType: item.TypeInteger, jsonValueKey: "value", check: positive},
	&Adapter{name: NonNegativeInteger, itemType: item.TypeInteger, jsonValueKey: "value", check: nonNegative},
	&Adapter{name: Decimal, itemType: item.TypeDecimal, jsonValueKey: "value"},
	&Adapter{name: Date, itemType: item.TypeDate, jsonValueKey: "date"},
	&Adapter{name: DateWithTimezone, itemType: item.TypeDate, jsonValueKey: "date", check: requireTimezone},
	&Adapter{name: DateTime, itemType: item.TypeDateTime, jsonValueKey: "date-time"},
	&Adapter{name: DateTimeWithTimezone, itemType: item.TypeDateTime, jsonValueKey: "date-time", check: requireTimezone},
	&Adapter{name: URI, itemType: item.TypeAnyURI, jsonValueKey: "uri", check: absoluteURI},
	&Adapter{name: URIReference, itemType: item.TypeAnyURI, jsonValueKey: "uri"},
	&Adapter{name: UUID, itemType: item.TypeUUID, jsonValueKey: "STRVALUE"},
	&Adapter{name: EmailAddress, itemType: item.TypeString, jsonValueKey: "STRVALUE", pattern: emailPattern},
)

// Default returns the registry of built-in data types
func Default() *Registry {
	return defaultRegistry
}

func positive(a item.AtomicItem) error {
	d, _ := item.NumericValue(a)
	if d.Sign() <= 0 {
		return errNotPositive
	}
	return nil
}

func nonNegative(a item.AtomicItem) error {
	d, _ := item.NumericValue(a)
	if d.Sign() < 0 {
		return errNegative
	}
	return nil
}

func requireTimezone(a item.AtomicItem) error {
	switch v := a.(type) {
	case item.DateItem:
		if v.HasTimezone() {
			return nil
		}
	case item.DateTimeItem:
		if v.HasTimezone() {
			return nil
		}
	}
	return errNoTimezone
}

func absoluteURI(a item.AtomicItem) error {
	if !a.(item.AnyURIItem).URL().IsAbs() {
		return errNotAbsolute
	}
	return nil
}
