package place

import (
	"errors"
	"reflect"
	"strings"
	"testing"
)

func decodeErrors(t *testing.T, body string, partial bool) ValidationErrors {
	t.Helper()
	_, err := DecodePlace([]byte(body), partial)
	var errs ValidationErrors
	if !errors.As(err, &errs) {
		t.Fatalf("expected validation errors for %s, got %v", body, err)
	}
	return errs
}

func TestDecodePlaceValid(t *testing.T) {
	c, err := DecodePlace([]byte(`{
		"address": "athens",
		"code": "000000A",
		"location": {"lat": 37.978693, "lon": 23.712884},
		"name": null,
		"reward_checkin_points": 1,
		"type": "office",
		"tags": ["b", " a ", "b"]
	}`), false)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if c.Address == nil || *c.Address != "athens" || c.Name != nil {
		t.Fatalf("unexpected nullable fields %+v", c.Place)
	}
	if c.Code != "000000A" || c.Type != "office" || c.RewardCheckinPoints != 1 {
		t.Fatalf("unexpected scalars %+v", c.Place)
	}
	if c.Lat != 37.978693 || c.Lon != 23.712884 {
		t.Fatalf("unexpected location %v %v", c.Lat, c.Lon)
	}
	if !reflect.DeepEqual(c.Tags, []string{"a", "b"}) {
		t.Fatalf("unexpected tags %v", c.Tags)
	}
}

func TestDecodePlaceOmittedOptionals(t *testing.T) {
	c, err := DecodePlace([]byte(`{"code":"X","location":{"lat":0,"lon":0},"reward_checkin_points":0,"type":"t"}`), false)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if c.Address != nil || c.Name != nil {
		t.Fatalf("omitted optionals must be null")
	}
	if c.Tags == nil || len(c.Tags) != 0 {
		t.Fatalf("omitted tags must be an empty list, got %#v", c.Tags)
	}
	if c.Has(FieldTags) || c.Has(FieldAddress) {
		t.Fatalf("omitted fields must not be marked")
	}
}

func TestDecodePlaceMissingRequired(t *testing.T) {
	errs := decodeErrors(t, `{}`, false)
	for _, field := range []string{FieldCode, "location", FieldReward, FieldType} {
		if !reflect.DeepEqual(errs[field], []string{msgRequired}) {
			t.Fatalf("expected required error for %s, got %v", field, errs)
		}
	}
	if len(errs) != 4 {
		t.Fatalf("unexpected errors %v", errs)
	}
}

func TestDecodePlaceEmptyBody(t *testing.T) {
	errs := decodeErrors(t, "  ", false)
	if _, ok := errs[FieldCode]; !ok {
		t.Fatalf("expected code error for empty body, got %v", errs)
	}

	if _, err := DecodePlace(nil, true); err != nil {
		t.Fatalf("empty partial body should be valid: %v", err)
	}
}

func TestDecodePlaceMissingCoordinates(t *testing.T) {
	errs := decodeErrors(t, `{"code":"X","location":{},"reward_checkin_points":1,"type":"t"}`, false)
	if !reflect.DeepEqual(errs[FieldLat], []string{msgRequired}) || !reflect.DeepEqual(errs[FieldLon], []string{msgRequired}) {
		t.Fatalf("expected coordinate errors, got %v", errs)
	}
}

func TestDecodePlaceFieldErrors(t *testing.T) {
	base := `"location":{"lat":1,"lon":2},"reward_checkin_points":1,"type":"t"`
	cases := []struct {
		name  string
		body  string
		field string
		msg   string
	}{
		{"code too long", `{"code":"` + strings.Repeat("x", 21) + `",` + base + `}`, FieldCode, "Ensure this field has no more than 20 characters."},
		{"code blank", `{"code":"   ",` + base + `}`, FieldCode, msgBlank},
		{"code null", `{"code":null,` + base + `}`, FieldCode, msgNull},
		{"code object", `{"code":{},` + base + `}`, FieldCode, msgString},
		{"address too long", `{"code":"X","address":"` + strings.Repeat("a", 101) + `",` + base + `}`, FieldAddress, "Ensure this field has no more than 100 characters."},
		{"name too long", `{"code":"X","name":"` + strings.Repeat("n", 51) + `",` + base + `}`, FieldName, "Ensure this field has no more than 50 characters."},
		{"type too long", `{"code":"X","location":{"lat":1,"lon":2},"reward_checkin_points":1,"type":"` + strings.Repeat("t", 51) + `"}`, FieldType, "Ensure this field has no more than 50 characters."},
		{"lat text", `{"code":"X","location":{"lat":"north","lon":2},"reward_checkin_points":1,"type":"t"}`, FieldLat, msgNumber},
		{"lat range", `{"code":"X","location":{"lat":91,"lon":2},"reward_checkin_points":1,"type":"t"}`, FieldLat, "Ensure this value is less than or equal to 90."},
		{"lon range", `{"code":"X","location":{"lat":1,"lon":-181},"reward_checkin_points":1,"type":"t"}`, FieldLon, "Ensure this value is greater than or equal to -180."},
		{"location null", `{"code":"X","location":null,"reward_checkin_points":1,"type":"t"}`, "location", msgNull},
		{"location list", `{"code":"X","location":[1,2],"reward_checkin_points":1,"type":"t"}`, "location", "Invalid data. Expected a dictionary, but got array."},
		{"reward fraction", `{"code":"X","location":{"lat":1,"lon":2},"reward_checkin_points":1.5,"type":"t"}`, FieldReward, msgInteger},
		{"reward bool", `{"code":"X","location":{"lat":1,"lon":2},"reward_checkin_points":true,"type":"t"}`, FieldReward, msgInteger},
		{"reward overflow", `{"code":"X","location":{"lat":1,"lon":2},"reward_checkin_points":2147483648,"type":"t"}`, FieldReward, "Ensure this value is less than or equal to 2147483647."},
		{"tags item", `{"code":"X",` + base + `,"tags":["a",1]}`, FieldTags, msgTagItem},
		{"tags object", `{"code":"X",` + base + `,"tags":{}}`, FieldTags, `Expected a list of items but got type "object".`},
		{"tags bad string", `{"code":"X",` + base + `,"tags":"not json"}`, FieldTags, msgTagString},
		{"code null char", `{"code":"a\u0000b",` + base + `}`, FieldCode, msgNullChar},
		{"name null char", `{"code":"X","name":"\u0000",` + base + `}`, FieldName, msgNullChar},
		{"address null char", `{"code":"X","address":"ath\u0000ens",` + base + `}`, FieldAddress, msgNullChar},
		{"tag null char", `{"code":"X",` + base + `,"tags":["ok","b\u0000d"]}`, FieldTags, msgNullChar},
		{"reward exponent string", `{"code":"X","location":{"lat":1,"lon":2},"reward_checkin_points":"1e3","type":"t"}`, FieldReward, msgInteger},
		{"reward fraction string", `{"code":"X","location":{"lat":1,"lon":2},"reward_checkin_points":"2.5","type":"t"}`, FieldReward, msgInteger},
		{"tag too long", `{"code":"X",` + base + `,"tags":["` + strings.Repeat("g", 101) + `"]}`, FieldTags, "Ensure this field has no more than 100 characters."},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			errs := decodeErrors(t, tc.body, false)
			if !reflect.DeepEqual(errs[tc.field], []string{tc.msg}) {
				t.Fatalf("expected %s: %q, got %v", tc.field, tc.msg, errs)
			}
		})
	}
}

func TestDecodePlaceCollectsAllErrors(t *testing.T) {
	errs := decodeErrors(t, `{"code":"`+strings.Repeat("x", 21)+`","location":{"lat":100,"lon":2},"reward_checkin_points":"many","type":""}`, false)
	for _, field := range []string{FieldCode, FieldLat, FieldReward, FieldType} {
		if len(errs[field]) == 0 {
			t.Fatalf("expected error for %s, got %v", field, errs)
		}
	}
}

func TestDecodePlaceCoercion(t *testing.T) {
	c, err := DecodePlace([]byte(`{
		"address": "  ",
		"code": 42,
		"location": {"lat": "37.5", "lon": "-23"},
		"reward_checkin_points": "5.0",
		"type": " office ",
		"tags": "[\"b\", \"a\"]"
	}`), false)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if c.Address != nil {
		t.Fatalf("blank address must become null")
	}
	if c.Code != "42" || c.Type != "office" {
		t.Fatalf("unexpected strings %q %q", c.Code, c.Type)
	}
	if c.Lat != 37.5 || c.Lon != -23 || c.RewardCheckinPoints != 5 {
		t.Fatalf("unexpected numbers %+v", c.Place)
	}
	if !reflect.DeepEqual(c.Tags, []string{"a", "b"}) {
		t.Fatalf("unexpected tags %v", c.Tags)
	}
}

func TestDecodePlaceNullTags(t *testing.T) {
	c, err := DecodePlace([]byte(`{"tags": null}`), true)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !c.Has(FieldTags) || c.Tags == nil || len(c.Tags) != 0 {
		t.Fatalf("null tags must clear the list, got %#v", c.Tags)
	}
}

func TestDecodePlacePartial(t *testing.T) {
	c, err := DecodePlace([]byte(`{"name":"Syntagma","location":{"lat":10}}`), true)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !c.Has(FieldName) || !c.Has(FieldLat) {
		t.Fatalf("expected supplied fields marked")
	}
	if c.Has(FieldLon) || c.Has(FieldCode) || c.Has(FieldTags) {
		t.Fatalf("unexpected fields marked")
	}

	errs := decodeErrors(t, `{"code":""}`, true)
	if !reflect.DeepEqual(errs[FieldCode], []string{msgBlank}) {
		t.Fatalf("supplied fields are still validated, got %v", errs)
	}
}

func TestDecodePlaceNotAnObject(t *testing.T) {
	errs := decodeErrors(t, `[1, 2]`, false)
	want := []string{"Invalid data. Expected a dictionary, but got array."}
	if !reflect.DeepEqual(errs[NonFieldErrors], want) {
		t.Fatalf("unexpected errors %v", errs)
	}
}

func TestDecodePlaceParseError(t *testing.T) {
	for _, body := range []string{`{"code":`, `{} {}`} {
		_, err := DecodePlace([]byte(body), false)
		var parseErr *ParseError
		if !errors.As(err, &parseErr) {
			t.Fatalf("expected parse error for %q, got %v", body, err)
		}
		if !strings.HasPrefix(err.Error(), "JSON parse error - ") {
			t.Fatalf("unexpected message %q", err.Error())
		}
	}
}

func TestValidationErrorsMessage(t *testing.T) {
	errs := ValidationErrors{"type": {msgRequired}, "code": {msgBlank}}
	if got := errs.Error(); got != "invalid fields: code, type" {
		t.Fatalf("unexpected message %q", got)
	}
}

func TestDecodePlaceIntegerForms(t *testing.T) {
	cases := map[string]int{
		`"7"`:      7,
		`" 7.00 "`: 7,
		`"-3."`:    -3,
		`7.0`:      7,
		`1e3`:      1000,
	}
	for raw, want := range cases {
		c, err := DecodePlace([]byte(`{"reward_checkin_points":`+raw+`}`), true)
		if err != nil {
			t.Fatalf("decode %s: %v", raw, err)
		}
		if c.RewardCheckinPoints != want {
			t.Fatalf("decode %s: got %d, want %d", raw, c.RewardCheckinPoints, want)
		}
	}
}
