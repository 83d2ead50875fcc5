package reading

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
)

// Field error codes.
const (
	CodeRequired = "required"
	CodeNull     = "null"
	CodeBlank    = "blank"
	CodeInvalid  = "invalid"
	CodeDigits   = "max_whole_digits"
	CodePlaces   = "max_decimal_places"
)

const datetimeFormatHint = "Datetime has wrong format. Use one of these formats instead: " +
	"YYYY-MM-DDThh:mm[:ss[.uuuuuu]][+HH:MM|-HH:MM|Z]."

var datetimeLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02T15:04",
	"2006-01-02 15:04:05Z07:00",
	"2006-01-02 15:04:05",
}

// Decoder reads a vendor JSON object field by field. Every bad field adds
// one FieldError and decoding carries on, so a caller sees all problems of a
// payload at once. Nested decoders share their parent's error list.
type Decoder struct {
	values map[string]json.RawMessage
	errs   *[]FieldError
}

// NewDecoder parses payload, which must be a JSON object.
func NewDecoder(payload []byte) (*Decoder, error) {
	var values map[string]json.RawMessage
	if err := json.Unmarshal(payload, &values); err != nil {
		return nil, fmt.Errorf("%w: %s", ErrMalformedPayload, err.Error())
	}
	if values == nil {
		return nil, ErrMalformedPayload
	}
	return &Decoder{values: values, errs: &[]FieldError{}}, nil
}

// Errors returns the field errors collected so far.
func (d *Decoder) Errors() []FieldError {
	return *d.errs
}

// Nested returns a decoder over the object stored under key. A missing or
// null key yields an empty decoder, so the fields read from it are reported
// as missing under their own names.
func (d *Decoder) Nested(key string) *Decoder {
	child := &Decoder{values: map[string]json.RawMessage{}, errs: d.errs}

	raw, ok := d.values[key]
	if !ok || isNull(raw) {
		return child
	}

	var values map[string]json.RawMessage
	if err := json.Unmarshal(raw, &values); err != nil || values == nil {
		d.fail(key, CodeInvalid, "Expected a dictionary of items.")
		return child
	}
	child.values = values
	return child
}

// String reads a required, non-blank string. Surrounding whitespace is trimmed.
func (d *Decoder) String(key string) string {
	raw, ok := d.lookup(key)
	if !ok {
		return ""
	}

	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		d.fail(key, CodeInvalid, "Not a valid string.")
		return ""
	}

	s = strings.TrimSpace(s)
	if s == "" {
		d.fail(key, CodeBlank, "This field may not be blank.")
		return ""
	}
	return s
}

// Float reads a required number. Numeric strings are accepted.
func (d *Decoder) Float(key string) float64 {
	raw, ok := d.lookup(key)
	if !ok {
		return 0
	}

	v, ok := parseNumber(raw)
	if !ok {
		d.fail(key, CodeInvalid, "A valid number is required.")
		return 0
	}
	return v
}

// Decimal reads a required number that must fit a fixed-point column with
// maxDigits total digits, places of them after the decimal point.
func (d *Decoder) Decimal(key string, maxDigits, places int) float64 {
	raw, ok := d.lookup(key)
	if !ok {
		return 0
	}

	v, ok := parseNumber(raw)
	if !ok {
		d.fail(key, CodeInvalid, "A valid number is required.")
		return 0
	}

	scaled := v * math.Pow10(places)
	if math.Abs(scaled-math.Round(scaled)) > 1e-6 {
		d.fail(key, CodePlaces, fmt.Sprintf("Ensure that there are no more than %d decimal places.", places))
		return 0
	}

	v = Round(v, places)
	whole := maxDigits - places
	if math.Abs(v) >= math.Pow10(whole) {
		d.fail(key, CodeDigits, fmt.Sprintf("Ensure that there are no more than %d digits before the decimal point.", whole))
		return 0
	}
	return v
}

// Int reads a required integer. Integral numbers and numeric strings are accepted.
func (d *Decoder) Int(key string) int {
	raw, ok := d.lookup(key)
	if !ok {
		return 0
	}

	v, ok := parseNumber(raw)
	if !ok || v != math.Trunc(v) || math.Abs(v) > math.MaxInt32 {
		d.fail(key, CodeInvalid, "A valid integer is required.")
		return 0
	}
	return int(v)
}

// Time reads a required ISO 8601 datetime. Values without an offset are UTC.
func (d *Decoder) Time(key string) time.Time {
	raw, ok := d.lookup(key)
	if !ok {
		return time.Time{}
	}

	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		d.fail(key, CodeInvalid, datetimeFormatHint)
		return time.Time{}
	}

	s = strings.TrimSpace(s)
	for _, layout := range datetimeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC()
		}
	}

	d.fail(key, CodeInvalid, datetimeFormatHint)
	return time.Time{}
}

func (d *Decoder) lookup(key string) (json.RawMessage, bool) {
	raw, ok := d.values[key]
	if !ok {
		d.fail(key, CodeRequired, "This field is required.")
		return nil, false
	}
	if isNull(raw) {
		d.fail(key, CodeNull, "This field may not be null.")
		return nil, false
	}
	return raw, true
}

func (d *Decoder) fail(field, code, message string) {
	*d.errs = append(*d.errs, FieldError{Field: field, Message: message, Code: code})
}

func isNull(raw json.RawMessage) bool {
	return strings.TrimSpace(string(raw)) == "null"
}

func parseNumber(raw json.RawMessage) (float64, bool) {
	var v interface{}
	if err := json.Unmarshal(raw, &v); err != nil {
		return 0, false
	}

	var f float64
	switch t := v.(type) {
	case float64:
		f = t
	case string:
		parsed, err := strconv.ParseFloat(strings.TrimSpace(t), 64)
		if err != nil {
			return 0, false
		}
		f = parsed
	default:
		return 0, false
	}

	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}
