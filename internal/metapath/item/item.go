// Package item defines the values produced by Metapath evaluation: atomic
// items, node items and the sequences that carry them.
package item

import (
	"net/url"
	"time"

	"github.com/cockroachdb/apd/v3"
	"github.com/google/uuid"
)

// Item is any value a Metapath expression can produce. The set of
// implementations is closed: the atomic item types in this package and the
// Node implementations of the node-item tree.
type Item interface {
	item()
}

// AtomicType identifies the scalar type of an AtomicItem.
type AtomicType int

const (
	TypeString AtomicType = iota
	TypeBoolean
	TypeInteger
	TypeDecimal
	TypeDate
	TypeDateTime
	TypeAnyURI
	TypeUUID
)

var atomicTypeNames = map[AtomicType]string{
	TypeString:   "string",
	TypeBoolean:  "boolean",
	TypeInteger:  "integer",
	TypeDecimal:  "decimal",
	TypeDate:     "date",
	TypeDateTime: "date-time",
	TypeAnyURI:   "uri",
	TypeUUID:     "uuid",
}

// String returns the Metapath name of the type
func (t AtomicType) String() string {
	if name, ok := atomicTypeNames[t]; ok {
		return name
	}
	return "unknown"
}

// LookupType returns the atomic type with the given Metapath name
func LookupType(name string) (AtomicType, bool) {
	for t, n := range atomicTypeNames {
		if n == name {
			return t, true
		}
	}
	return 0, false
}

// IsNumeric reports whether values of the type take part in arithmetic
func (t AtomicType) IsNumeric() bool {
	return t == TypeInteger || t == TypeDecimal
}

// IsStringLike reports whether values of the type compare as strings
func (t AtomicType) IsStringLike() bool {
	return t == TypeString || t == TypeAnyURI || t == TypeUUID
}

// IsTemporal reports whether values of the type are dates or date-times
func (t AtomicType) IsTemporal() bool {
	return t == TypeDate || t == TypeDateTime
}

// AtomicItem is a single scalar value.
type AtomicItem interface {
	Item
	Type() AtomicType
	// String returns the lexical form of the value.
	String() string
}

// StringItem is a string value
type StringItem struct {
	value string
}

// NewString creates a string item
func NewString(value string) StringItem {
	return StringItem{value: value}
}

func (StringItem) item()            {}
func (StringItem) Type() AtomicType { return TypeString }
func (s StringItem) String() string { return s.value }
func (s StringItem) Value() string  { return s.value }

// BooleanItem is a boolean value
type BooleanItem struct {
	value bool
}

var (
	True  = BooleanItem{value: true}
	False = BooleanItem{value: false}
)

// NewBoolean returns the boolean item for value
func NewBoolean(value bool) BooleanItem {
	if value {
		return True
	}
	return False
}

func (BooleanItem) item()            {}
func (BooleanItem) Type() AtomicType { return TypeBoolean }
func (b BooleanItem) Value() bool    { return b.value }

func (b BooleanItem) String() string {
	if b.value {
		return "true"
	}
	return "false"
}

// IntegerItem is an arbitrary precision integer. The wrapped decimal always
// has a zero exponent and is never mutated after construction.
type IntegerItem struct {
	value *apd.Decimal
}

// NewInteger creates an integer item from an int64
func NewInteger(value int64) IntegerItem {
	return IntegerItem{value: apd.New(value, 0)}
}

func (IntegerItem) item()            {}
func (IntegerItem) Type() AtomicType { return TypeInteger }
func (i IntegerItem) String() string { return i.value.Text('f') }

// Decimal returns the integer as a decimal
func (i IntegerItem) Decimal() *apd.Decimal { return i.value }

// Int64 returns the value as an int64 if it fits
func (i IntegerItem) Int64() (int64, error) { return i.value.Int64() }

// DecimalItem is an arbitrary precision decimal number
type DecimalItem struct {
	value *apd.Decimal
}

// NewDecimal wraps d as a decimal item. The caller must not mutate d afterwards.
func NewDecimal(d *apd.Decimal) DecimalItem {
	return DecimalItem{value: d}
}

func (DecimalItem) item()                   {}
func (DecimalItem) Type() AtomicType        { return TypeDecimal }
func (d DecimalItem) String() string        { return d.value.Text('f') }
func (d DecimalItem) Decimal() *apd.Decimal { return d.value }

// DateItem is a calendar date with an optional timezone
type DateItem struct {
	value       time.Time
	hasTimezone bool
}

// NewDate creates a date item. Dates without a timezone are held in UTC.
func NewDate(value time.Time, hasTimezone bool) DateItem {
	y, m, d := value.Date()
	return DateItem{value: time.Date(y, m, d, 0, 0, 0, 0, value.Location()), hasTimezone: hasTimezone}
}

func (DateItem) item()               {}
func (DateItem) Type() AtomicType    { return TypeDate }
func (d DateItem) Time() time.Time   { return d.value }
func (d DateItem) HasTimezone() bool { return d.hasTimezone }

func (d DateItem) String() string {
	if d.hasTimezone {
		return d.value.Format(dateLayoutTZ)
	}
	return d.value.Format(dateLayout)
}

// DateTimeItem is a date and time of day with an optional timezone
type DateTimeItem struct {
	value       time.Time
	hasTimezone bool
}

// NewDateTime creates a date-time item. Values without a timezone are held in UTC.
func NewDateTime(value time.Time, hasTimezone bool) DateTimeItem {
	return DateTimeItem{value: value, hasTimezone: hasTimezone}
}

func (DateTimeItem) item()               {}
func (DateTimeItem) Type() AtomicType    { return TypeDateTime }
func (d DateTimeItem) Time() time.Time   { return d.value }
func (d DateTimeItem) HasTimezone() bool { return d.hasTimezone }

func (d DateTimeItem) String() string {
	if d.hasTimezone {
		return d.value.Format(dateTimeFormatTZ)
	}
	return d.value.Format(dateTimeFormat)
}

// AnyURIItem is a URI reference
type AnyURIItem struct {
	value *url.URL
}

// NewAnyURI wraps u as a URI item
func NewAnyURI(u *url.URL) AnyURIItem {
	return AnyURIItem{value: u}
}

func (AnyURIItem) item()            {}
func (AnyURIItem) Type() AtomicType { return TypeAnyURI }
func (u AnyURIItem) String() string { return u.value.String() }
func (u AnyURIItem) URL() *url.URL  { return u.value }

// UUIDItem is a UUID value
type UUIDItem struct {
	value uuid.UUID
}

// NewUUID wraps id as a UUID item
func NewUUID(id uuid.UUID) UUIDItem {
	return UUIDItem{value: id}
}

func (UUIDItem) item()             {}
func (UUIDItem) Type() AtomicType  { return TypeUUID }
func (u UUIDItem) String() string  { return u.value.String() }
func (u UUIDItem) UUID() uuid.UUID { return u.value }

// NumericValue returns the decimal value of a numeric item
func NumericValue(a AtomicItem) (*apd.Decimal, bool) {
	switch v := a.(type) {
	case IntegerItem:
		return v.value, true
	case DecimalItem:
		return v.value, true
	}
	return nil, false
}
