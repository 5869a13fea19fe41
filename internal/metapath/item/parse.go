package item

import (
	"fmt"
	"net/url"
	"regexp"
	"strings"
	"time"

	"github.com/cockroachdb/apd/v3"
	"github.com/google/uuid"
)

const (
	dateLayout       = "2006-01-02"
	dateLayoutTZ     = "2006-01-02Z07:00"
	dateTimeLayout   = "2006-01-02T15:04:05"
	dateTimeLayoutTZ = "2006-01-02T15:04:05Z07:00"
	dateTimeFormat   = "2006-01-02T15:04:05.999999999"
	dateTimeFormatTZ = "2006-01-02T15:04:05.999999999Z07:00"
)

var (
	timezoneSuffix = regexp.MustCompile(`(Z|[+-]\d{2}:\d{2})$`)
	integerPattern = regexp.MustCompile(`^[+-]?\d+$`)
	decimalPattern = regexp.MustCompile(`^[+-]?(\d+(\.\d*)?|\.\d+)$`)
)

// ParseBoolean parses true, false, 1 or 0
func ParseBoolean(s string) (BooleanItem, error) {
	switch strings.TrimSpace(s) {
	case "true", "1":
		return True, nil
	case "false", "0":
		return False, nil
	}
	return False, fmt.Errorf("%w: %q is not a boolean", ErrInvalidCast, s)
}

// ParseInteger parses a decimal integer of any size
func ParseInteger(s string) (IntegerItem, error) {
	s = strings.TrimSpace(s)
	if !integerPattern.MatchString(s) {
		return IntegerItem{}, fmt.Errorf("%w: %q is not an integer", ErrInvalidCast, s)
	}
	d, _, err := apd.NewFromString(strings.TrimPrefix(s, "+"))
	if err != nil {
		return IntegerItem{}, fmt.Errorf("%w: %v", ErrInvalidCast, err)
	}
	return IntegerItem{value: d}, nil
}

// ParseDecimal parses a decimal number
func ParseDecimal(s string) (DecimalItem, error) {
	s = strings.TrimSpace(s)
	if !decimalPattern.MatchString(s) {
		return DecimalItem{}, fmt.Errorf("%w: %q is not a decimal", ErrInvalidCast, s)
	}
	d, _, err := apd.NewFromString(strings.TrimPrefix(s, "+"))
	if err != nil {
		return DecimalItem{}, fmt.Errorf("%w: %v", ErrInvalidCast, err)
	}
	return DecimalItem{value: d}, nil
}

// ParseNumericLiteral parses a numeric literal of an expression. Unlike the
// decimal lexical space, literals may use exponent notation.
func ParseNumericLiteral(s string) (DecimalItem, error) {
	d, _, err := apd.NewFromString(s)
	if err != nil {
		return DecimalItem{}, fmt.Errorf("%w: %q is not a number: %v", ErrInvalidCast, s, err)
	}
	return DecimalItem{value: d}, nil
}

// ParseDate parses an ISO 8601 calendar date with an optional timezone
func ParseDate(s string) (DateItem, error) {
	s = strings.TrimSpace(s)
	layout := dateLayout
	hasTZ := timezoneSuffix.MatchString(s)
	if hasTZ {
		layout = dateLayoutTZ
	}
	t, err := time.Parse(layout, s)
	if err != nil {
		return DateItem{}, fmt.Errorf("%w: %q is not a date", ErrInvalidCast, s)
	}
	return NewDate(t, hasTZ), nil
}

// ParseDateTime parses an ISO 8601 date-time with optional fractional
// seconds and an optional timezone
func ParseDateTime(s string) (DateTimeItem, error) {
	s = strings.TrimSpace(s)
	layout := dateTimeLayout
	hasTZ := timezoneSuffix.MatchString(s)
	if hasTZ {
		layout = dateTimeLayoutTZ
	}
	t, err := time.Parse(layout, s)
	if err != nil {
		return DateTimeItem{}, fmt.Errorf("%w: %q is not a date-time", ErrInvalidCast, s)
	}
	return NewDateTime(t, hasTZ), nil
}

// ParseAnyURI parses a URI reference
func ParseAnyURI(s string) (AnyURIItem, error) {
	u, err := url.Parse(strings.TrimSpace(s))
	if err != nil {
		return AnyURIItem{}, fmt.Errorf("%w: %q is not a URI: %v", ErrInvalidCast, s, err)
	}
	return NewAnyURI(u), nil
}

// ParseUUID parses the canonical textual form of a UUID
func ParseUUID(s string) (UUIDItem, error) {
	id, err := uuid.Parse(strings.TrimSpace(s))
	if err != nil {
		return UUIDItem{}, fmt.Errorf("%w: %q is not a UUID", ErrInvalidCast, s)
	}
	return NewUUID(id), nil
}

// Parse parses s as a value of type t
func Parse(t AtomicType, s string) (AtomicItem, error) {
	switch t {
	case TypeString:
		return NewString(s), nil
	case TypeBoolean:
		return ParseBoolean(s)
	case TypeInteger:
		return ParseInteger(s)
	case TypeDecimal:
		return ParseDecimal(s)
	case TypeDate:
		return ParseDate(s)
	case TypeDateTime:
		return ParseDateTime(s)
	case TypeAnyURI:
		return ParseAnyURI(s)
	case TypeUUID:
		return ParseUUID(s)
	}
	return nil, fmt.Errorf("%w: unknown type %s", ErrInvalidCast, t)
}

// Cast converts a to type t
func Cast(a AtomicItem, t AtomicType) (AtomicItem, error) {
	if a.Type() == t {
		return a, nil
	}
	switch t {
	case TypeString:
		return NewString(a.String()), nil
	case TypeBoolean:
		if d, ok := NumericValue(a); ok {
			return NewBoolean(!d.IsZero()), nil
		}
	case TypeInteger:
		switch v := a.(type) {
		case DecimalItem:
			return truncate(v.value)
		case BooleanItem:
			if v.value {
				return NewInteger(1), nil
			}
			return NewInteger(0), nil
		}
	case TypeDecimal:
		switch v := a.(type) {
		case IntegerItem:
			return DecimalItem{value: v.value}, nil
		case BooleanItem:
			if v.value {
				return DecimalItem{value: apd.New(1, 0)}, nil
			}
			return DecimalItem{value: apd.New(0, 0)}, nil
		}
	case TypeDate:
		if v, ok := a.(DateTimeItem); ok {
			return NewDate(v.value, v.hasTimezone), nil
		}
	case TypeDateTime:
		if v, ok := a.(DateItem); ok {
			return NewDateTime(v.value, v.hasTimezone), nil
		}
	}
	if a.Type().IsStringLike() {
		return Parse(t, a.String())
	}
	return nil, fmt.Errorf("%w: cannot cast %s to %s", ErrInvalidCast, a.Type(), t)
}

func truncate(d *apd.Decimal) (IntegerItem, error) {
	result := new(apd.Decimal)
	if _, err := integerContext(d).QuoInteger(result, d, apd.New(1, 0)); err != nil {
		return IntegerItem{}, fmt.Errorf("%w: %v", ErrInvalidCast, err)
	}
	return IntegerItem{value: result}, nil
}
