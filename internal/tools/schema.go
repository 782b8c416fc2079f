package tools

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"sort"
)

// validateAgainstSchema checks value against the JSON Schema subset used by
// the builtin tools: type, required, properties, additionalProperties,
// items, minimum and maximum. Other keywords are ignored.
func validateAgainstSchema(value any, schema json.RawMessage) error {
	if len(schema) == 0 {
		return nil
	}
	var s map[string]any
	if err := json.Unmarshal(schema, &s); err != nil {
		return err
	}
	return validate(value, s, "")
}

func validate(value any, s map[string]any, path string) error {
	label := func() string {
		if path == "" {
			return "arguments"
		}
		return path
	}
	typ, _ := s["type"].(string)
	switch typ {
	case "object", "":
		obj, ok := value.(map[string]any)
		if !ok {
			return fmt.Errorf("%s must be an object", label())
		}
		if req, ok := s["required"].([]any); ok {
			for _, r := range req {
				if name, ok := r.(string); ok {
					if v, present := obj[name]; !present || v == nil {
						return errors.New(join(path, name) + " is required")
					}
				}
			}
		}
		props, _ := s["properties"].(map[string]any)
		keys := make([]string, 0, len(obj))
		for k := range obj {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			if sub, ok := props[k].(map[string]any); ok {
				if obj[k] == nil {
					continue
				}
				if err := validate(obj[k], sub, join(path, k)); err != nil {
					return err
				}
				continue
			}
			if ap, ok := s["additionalProperties"].(bool); ok && !ap {
				return fmt.Errorf("unexpected argument %s", join(path, k))
			}
		}
		return nil
	case "array":
		arr, ok := value.([]any)
		if !ok {
			return fmt.Errorf("%s must be an array", label())
		}
		if lo, ok := s["minItems"].(float64); ok && float64(len(arr)) < lo {
			return fmt.Errorf("%s must have at least %g items", label(), lo)
		}
		if items, ok := s["items"].(map[string]any); ok {
			for i, elem := range arr {
				if err := validate(elem, items, fmt.Sprintf("%s[%d]", label(), i)); err != nil {
					return err
				}
			}
		}
		return nil
	case "string":
		if _, ok := value.(string); !ok {
			return fmt.Errorf("%s must be a string", label())
		}
		return nil
	case "integer", "number":
		f, ok := value.(float64)
		if !ok || (typ == "integer" && f != math.Trunc(f)) {
			if typ == "integer" {
				return fmt.Errorf("%s must be an integer", label())
			}
			return fmt.Errorf("%s must be a number", label())
		}
		if lo, ok := s["minimum"].(float64); ok && f < lo {
			return fmt.Errorf("%s must be >= %g", label(), lo)
		}
		if hi, ok := s["maximum"].(float64); ok && f > hi {
			return fmt.Errorf("%s must be <= %g", label(), hi)
		}
		return nil
	case "boolean":
		if _, ok := value.(bool); !ok {
			return fmt.Errorf("%s must be a boolean", label())
		}
		return nil
	default:
		return nil
	}
}

func join(path, key string) string {
	if path == "" {
		return key
	}
	return path + "." + key
}
