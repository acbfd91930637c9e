package place

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"reflect"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
)

const (
	msgRequired  = "This field is required."
	msgNull      = "This field may not be null."
	msgBlank     = "This field may not be blank."
	msgString    = "Not a valid string."
	msgNumber    = "A valid number is required."
	msgInteger   = "A valid integer is required."
	msgTagItem   = "All list items must be of string type."
	msgTagString = "Invalid json list. A tag list submitted in string form must be valid json."
	msgNullChar  = "Null characters are not allowed."
)

// NonFieldErrors is the key used for errors that concern the body as a whole.
const NonFieldErrors = "non_field_errors"

// fieldRules holds the value constraints checked once a field has the right
// shape.
var fieldRules = map[string]string{
	FieldAddress: "max=100",
	FieldCode:    "required,max=20",
	FieldLat:     "min=-90,max=90",
	FieldLon:     "min=-180,max=180",
	FieldName:    "max=50",
	FieldReward:  "min=-2147483648,max=2147483647",
	FieldTags:    "dive,max=100",
	FieldType:    "required,max=50",
}

var validate = validator.New()

// ValidationErrors maps a field name to every message raised for it.
type ValidationErrors map[string][]string

func (v ValidationErrors) Error() string {
	fields := make([]string, 0, len(v))
	for field := range v {
		fields = append(fields, field)
	}
	sort.Strings(fields)
	return "invalid fields: " + strings.Join(fields, ", ")
}

func (v ValidationErrors) add(field, msg string) {
	v[field] = append(v[field], msg)
}

// ParseError reports a request body that is not valid JSON.
type ParseError struct {
	Err error
}

func (e *ParseError) Error() string {
	return "JSON parse error - " + e.Err.Error()
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

// DecodePlace checks a create or update body and converts it into Changes.
// Shape errors (wrong JSON types, missing or null fields) are collected first;
// value rules run only on fields that decoded cleanly. All problems are
// reported together as ValidationErrors. With partial set, missing fields are
// not an error. Any "id" in the body is ignored.
func DecodePlace(body []byte, partial bool) (Changes, error) {
	obj, err := decodeObject(body)
	if err != nil {
		return Changes{}, err
	}

	d := &decoder{partial: partial, errs: ValidationErrors{}}
	var c Changes

	if v, ok := d.lookup(obj, FieldAddress, FieldAddress, false); ok {
		if s, ok := d.optionalString(FieldAddress, v); ok {
			c.Address = s
			c.mark(FieldAddress)
		}
	}
	if v, ok := d.lookup(obj, FieldCode, FieldCode, true); ok {
		if s, ok := d.requiredString(FieldCode, v); ok {
			c.Code = s
			c.mark(FieldCode)
		}
	}
	if v, ok := d.lookup(obj, "location", "location", true); ok {
		d.location(&c, v)
	}
	if v, ok := d.lookup(obj, FieldName, FieldName, false); ok {
		if s, ok := d.optionalString(FieldName, v); ok {
			c.Name = s
			c.mark(FieldName)
		}
	}
	if v, ok := d.lookup(obj, FieldReward, FieldReward, true); ok {
		if n, ok := d.integer(FieldReward, v); ok && d.check(FieldReward, n) {
			c.RewardCheckinPoints = int(n)
			c.mark(FieldReward)
		}
	}
	if v, ok := d.lookup(obj, FieldTags, FieldTags, false); ok {
		if tags, ok := d.tags(v); ok && d.check(FieldTags, tags) {
			c.Tags = tags
			c.mark(FieldTags)
		}
	}
	if v, ok := d.lookup(obj, FieldType, FieldType, true); ok {
		if s, ok := d.requiredString(FieldType, v); ok {
			c.Type = s
			c.mark(FieldType)
		}
	}

	if len(d.errs) > 0 {
		return Changes{}, d.errs
	}
	if c.Tags == nil {
		c.Tags = []string{}
	}
	return c, nil
}

func decodeObject(body []byte) (map[string]any, error) {
	if len(bytes.TrimSpace(body)) == 0 {
		return map[string]any{}, nil
	}

	dec := json.NewDecoder(bytes.NewReader(body))
	dec.UseNumber()
	var raw any
	if err := dec.Decode(&raw); err != nil {
		return nil, &ParseError{Err: err}
	}
	if dec.More() {
		return nil, &ParseError{Err: errors.New("unexpected data after top-level value")}
	}

	obj, ok := raw.(map[string]any)
	if !ok {
		return nil, ValidationErrors{
			NonFieldErrors: {fmt.Sprintf("Invalid data. Expected a dictionary, but got %s.", jsonType(raw))},
		}
	}
	return obj, nil
}

type decoder struct {
	partial bool
	errs    ValidationErrors
}

// lookup returns obj[key]. A missing required key is recorded under errKey
// unless the decode is partial.
func (d *decoder) lookup(obj map[string]any, key, errKey string, required bool) (any, bool) {
	v, ok := obj[key]
	if !ok && required && !d.partial {
		d.errs.add(errKey, msgRequired)
	}
	return v, ok
}

func (d *decoder) location(c *Changes, v any) {
	if v == nil {
		d.errs.add("location", msgNull)
		return
	}
	loc, ok := v.(map[string]any)
	if !ok {
		d.errs.add("location", fmt.Sprintf("Invalid data. Expected a dictionary, but got %s.", jsonType(v)))
		return
	}

	if lat, ok := d.lookup(loc, "lat", FieldLat, true); ok {
		if f, ok := d.number(FieldLat, lat); ok && d.check(FieldLat, f) {
			c.Lat = f
			c.mark(FieldLat)
		}
	}
	if lon, ok := d.lookup(loc, "lon", FieldLon, true); ok {
		if f, ok := d.number(FieldLon, lon); ok && d.check(FieldLon, f) {
			c.Lon = f
			c.mark(FieldLon)
		}
	}
}

func (d *decoder) str(field string, v any) (string, bool) {
	switch t := v.(type) {
	case string:
		if strings.ContainsRune(t, 0) {
			d.errs.add(field, msgNullChar)
			return "", false
		}
		return strings.TrimSpace(t), true
	case json.Number:
		return t.String(), true
	default:
		d.errs.add(field, msgString)
		return "", false
	}
}

func (d *decoder) requiredString(field string, v any) (string, bool) {
	if v == nil {
		d.errs.add(field, msgNull)
		return "", false
	}
	s, ok := d.str(field, v)
	if !ok || !d.check(field, s) {
		return "", false
	}
	return s, true
}

// optionalString maps null and blank values to nil.
func (d *decoder) optionalString(field string, v any) (*string, bool) {
	if v == nil {
		return nil, true
	}
	s, ok := d.str(field, v)
	if !ok || !d.check(field, s) {
		return nil, false
	}
	if s == "" {
		return nil, true
	}
	return &s, true
}

func (d *decoder) number(field string, v any) (float64, bool) {
	var (
		f   float64
		err error
	)
	switch t := v.(type) {
	case json.Number:
		f, err = t.Float64()
	case string:
		f, err = strconv.ParseFloat(strings.TrimSpace(t), 64)
	default:
		err = errors.New("not a number")
	}
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		d.errs.add(field, msgNumber)
		return 0, false
	}
	return f, true
}

// zeroFraction matches a trailing ".0", ".00" and so on.
var zeroFraction = regexp.MustCompile(`\.0*\s*$`)

// integer accepts integral JSON numbers and decimal digit strings. A string
// may carry a zero fraction such as "5.0" but not an exponent.
func (d *decoder) integer(field string, v any) (int64, bool) {
	switch t := v.(type) {
	case json.Number:
		if n, err := t.Int64(); err == nil {
			return n, true
		}
		f, err := t.Float64()
		if err != nil || f != math.Trunc(f) || math.Abs(f) > 1<<53 {
			break
		}
		return int64(f), true
	case string:
		s := zeroFraction.ReplaceAllString(strings.TrimSpace(t), "")
		if n, err := strconv.ParseInt(s, 10, 64); err == nil {
			return n, true
		}
	}
	d.errs.add(field, msgInteger)
	return 0, false
}

// tags accepts a list of strings, null, or a JSON encoded list in string form.
func (d *decoder) tags(v any) ([]string, bool) {
	if v == nil {
		return []string{}, true
	}
	if s, ok := v.(string); ok {
		dec := json.NewDecoder(strings.NewReader(s))
		dec.UseNumber()
		var inner any
		if err := dec.Decode(&inner); err != nil {
			d.errs.add(FieldTags, msgTagString)
			return nil, false
		}
		v = inner
	}

	items, ok := v.([]any)
	if !ok {
		d.errs.add(FieldTags, fmt.Sprintf("Expected a list of items but got type %q.", jsonType(v)))
		return nil, false
	}
	tags := make([]string, 0, len(items))
	for _, item := range items {
		s, ok := item.(string)
		if !ok {
			d.errs.add(FieldTags, msgTagItem)
			return nil, false
		}
		if strings.ContainsRune(s, 0) {
			d.errs.add(FieldTags, msgNullChar)
			return nil, false
		}
		tags = append(tags, s)
	}
	return NormalizeTags(tags), true
}

// check runs the field's rule set and records one message per failure.
func (d *decoder) check(field string, value any) bool {
	rule, ok := fieldRules[field]
	if !ok {
		return true
	}
	err := validate.Var(value, rule)
	if err == nil {
		return true
	}
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		d.errs.add(field, err.Error())
		return false
	}
	for _, fe := range fieldErrs {
		d.errs.add(field, ruleMessage(fe))
	}
	return false
}

func ruleMessage(fe validator.FieldError) string {
	isString := fe.Kind() == reflect.String
	switch fe.Tag() {
	case "required":
		return msgBlank
	case "max":
		if isString {
			return fmt.Sprintf("Ensure this field has no more than %s characters.", fe.Param())
		}
		return fmt.Sprintf("Ensure this value is less than or equal to %s.", fe.Param())
	case "min":
		if isString {
			return fmt.Sprintf("Ensure this field has at least %s characters.", fe.Param())
		}
		return fmt.Sprintf("Ensure this value is greater than or equal to %s.", fe.Param())
	}
	return fmt.Sprintf("Failed the %q rule.", fe.Tag())
}

func jsonType(v any) string {
	switch v.(type) {
	case nil:
		return "null"
	case bool:
		return "boolean"
	case json.Number, float64:
		return "number"
	case string:
		return "string"
	case []any:
		return "array"
	case map[string]any:
		return "object"
	}
	return fmt.Sprintf("%T", v)
}
