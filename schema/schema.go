// Package schema validates product request bodies against JSON Schemas.
package schema

import (
	"encoding/json"
	"fmt"
	"net/url"
	"reflect"
	"slices"
	"sort"
	"strings"
)

// Validate checks a decoded JSON document against a JSON Schema
// (draft-07 subset). Returns nil if validation passes or the schema is nil.
//
// Supported JSON Schema keywords:
//   - type (a name or a list of names: string, number, integer, boolean,
//     object, array, null)
//   - properties, required
//   - additionalProperties (false, or a schema applied to every extra key)
//   - minimum, maximum
//   - minLength
//   - format: uri (absolute http or https URL with a host)
func Validate(schema map[string]any, doc any) error {
	if schema == nil {
		return nil
	}
	return validateValue(schema, doc, "$")
}

func validateValue(schema map[string]any, value any, path string) error {
	if t, ok := schema["type"]; ok {
		if err := checkType(typeNames(t), value, path); err != nil {
			return err
		}
	}

	switch v := value.(type) {
	case map[string]any:
		return validateObject(schema, v, path)
	case string:
		return validateString(schema, v, path)
	case float64:
		return validateNumber(schema, v, path)
	case json.Number:
		f, _ := v.Float64()
		return validateNumber(schema, f, path)
	}
	return nil
}

func typeNames(t any) []string {
	switch tt := t.(type) {
	case string:
		return []string{tt}
	case []string:
		return tt
	case []any:
		names := make([]string, 0, len(tt))
		for _, n := range tt {
			if s, ok := n.(string); ok {
				names = append(names, s)
			}
		}
		return names
	}
	return nil
}

func checkType(expected []string, value any, path string) error {
	if len(expected) == 0 {
		return nil
	}
	actual := jsonType(value)
	for _, e := range expected {
		switch {
		case e == actual:
			return nil
		case e == "number" && actual == "integer":
			return nil
		case e == "integer" && actual == "number":
			// Accept float64 values that are whole numbers
			if f, ok := value.(float64); ok && f == float64(int64(f)) {
				return nil
			}
		}
	}
	if len(expected) == 1 {
		return fmt.Errorf("%s: expected type %q, got %q", path, expected[0], actual)
	}
	return fmt.Errorf("%s: expected one of types %v, got %q", path, expected, actual)
}

func jsonType(v any) string {
	if v == nil {
		return "null"
	}
	switch v.(type) {
	case map[string]any:
		return "object"
	case []any:
		return "array"
	case string:
		return "string"
	case bool:
		return "boolean"
	case float64, json.Number:
		return "number"
	case int, int64:
		return "integer"
	default:
		return reflect.TypeOf(v).String()
	}
}

func validateObject(schema map[string]any, obj map[string]any, path string) error {
	if req, ok := schema["required"]; ok {
		for _, field := range stringList(req) {
			if _, exists := obj[field]; !exists {
				return fmt.Errorf("%s: missing required field %q", path, field)
			}
		}
	}

	props, _ := schema["properties"].(map[string]any)
	// Sorted so the first reported error is stable.
	fields := make([]string, 0, len(obj))
	for field := range obj {
		fields = append(fields, field)
	}
	sort.Strings(fields)

	var extra []string
	for _, field := range fields {
		val := obj[field]
		if ps, ok := props[field].(map[string]any); ok {
			if err := validateValue(ps, val, path+"."+field); err != nil {
				return err
			}
			continue
		}
		if _, declared := props[field]; declared {
			continue
		}
		switch ap := schema["additionalProperties"].(type) {
		case bool:
			if !ap {
				extra = append(extra, field)
			}
		case map[string]any:
			if err := validateValue(ap, val, path+"."+field); err != nil {
				return err
			}
		}
	}
	if len(extra) > 0 {
		return fmt.Errorf("%s: additional properties not allowed: %s", path, strings.Join(extra, ", "))
	}
	return nil
}

func stringList(v any) []string {
	switch l := v.(type) {
	case []string:
		return l
	case []any:
		out := make([]string, 0, len(l))
		for _, s := range l {
			if str, ok := s.(string); ok {
				out = append(out, str)
			}
		}
		return out
	}
	return nil
}

func validateString(schema map[string]any, s string, path string) error {
	if v, ok := toFloat(schema["minLength"]); ok {
		if float64(len([]rune(s))) < v {
			return fmt.Errorf("%s: string length %d is less than minLength %v", path, len([]rune(s)), v)
		}
	}
	if f, ok := schema["format"].(string); ok && f == "uri" {
		if !isHTTPURL(s) {
			return fmt.Errorf("%s: %q is not a valid http(s) URL", path, s)
		}
	}
	return nil
}

func isHTTPURL(s string) bool {
	u, err := url.Parse(s)
	if err != nil {
		return false
	}
	return slices.Contains([]string{"http", "https"}, strings.ToLower(u.Scheme)) && u.Host != ""
}

func validateNumber(schema map[string]any, n float64, path string) error {
	if v, ok := toFloat(schema["minimum"]); ok {
		if n < v {
			return fmt.Errorf("%s: %v is less than minimum %v", path, n, v)
		}
	}
	if v, ok := toFloat(schema["maximum"]); ok {
		if n > v {
			return fmt.Errorf("%s: %v is greater than maximum %v", path, n, v)
		}
	}
	return nil
}

func toFloat(v any) (float64, bool) {
	if v == nil {
		return 0, false
	}
	switch n := v.(type) {
	case float64:
		return n, true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case json.Number:
		f, err := n.Float64()
		return f, err == nil
	}
	return 0, false
}
