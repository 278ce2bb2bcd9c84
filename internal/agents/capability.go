package agents

import (
	"fmt"

	"foreman/internal/analysis"
	"foreman/internal/providers"
)

// Param is one field of a capability's argument schema.
type Param struct {
	Name     string
	Type     string // "number", "int", "number_list", "item_list", "string"
	Required bool
}

// Capability binds an operation name to its argument schema and the
// analysis function that serves it.
type Capability struct {
	Name        string
	Description string
	Params      []Param
	Invoke      func(args map[string]interface{}) (interface{}, error)
}

// Call validates args against the schema and invokes the bound function.
// Schema violations are domain errors: the operation was asked to run on
// inputs it cannot accept.
func (c Capability) Call(args map[string]interface{}) (interface{}, error) {
	if args == nil {
		args = map[string]interface{}{}
	}
	for _, p := range c.Params {
		v, present := args[p.Name]
		if !present {
			if p.Required {
				return nil, &analysis.DomainError{Op: c.Name, Reason: fmt.Sprintf("missing required argument %q", p.Name)}
			}
			continue
		}
		if err := checkType(p, v); err != nil {
			return nil, &analysis.DomainError{Op: c.Name, Reason: err.Error()}
		}
	}
	return c.Invoke(args)
}

// tool renders the capability as a model tool definition.
func (c Capability) tool() providers.Tool {
	properties := map[string]interface{}{}
	var required []string

	for _, p := range c.Params {
		jsonType := "number"
		switch p.Type {
		case "string":
			jsonType = "string"
		case "int":
			jsonType = "integer"
		case "number_list", "item_list":
			jsonType = "array"
		}
		properties[p.Name] = map[string]interface{}{"type": jsonType}
		if p.Required {
			required = append(required, p.Name)
		}
	}

	return providers.Tool{
		Name:        c.Name,
		Description: c.Description,
		Parameters: map[string]interface{}{
			"type":       "object",
			"properties": properties,
			"required":   required,
		},
	}
}

func checkType(p Param, v interface{}) error {
	switch p.Type {
	case "number":
		if _, err := toFloat(v); err != nil {
			return fmt.Errorf("argument %q must be a number", p.Name)
		}
	case "int":
		if _, err := toInt(v); err != nil {
			return fmt.Errorf("argument %q must be an integer", p.Name)
		}
	case "number_list":
		if _, err := toFloatSlice(v); err != nil {
			return fmt.Errorf("argument %q must be a list of numbers", p.Name)
		}
	case "item_list":
		if _, err := toItems(v); err != nil {
			return fmt.Errorf("argument %q must be a list of {id, value} items", p.Name)
		}
	case "string":
		if _, ok := v.(string); !ok {
			return fmt.Errorf("argument %q must be a string", p.Name)
		}
	}
	return nil
}

// Argument coercion. JSON decoding hands numbers over as float64; direct
// callers may pass native Go types.

func toFloat(v interface{}) (float64, error) {
	switch n := v.(type) {
	case float64:
		return n, nil
	case float32:
		return float64(n), nil
	case int:
		return float64(n), nil
	case int64:
		return float64(n), nil
	}
	return 0, fmt.Errorf("not a number: %T", v)
}

func toInt(v interface{}) (int, error) {
	switch n := v.(type) {
	case int:
		return n, nil
	case int64:
		return int(n), nil
	case float64:
		if n == float64(int(n)) {
			return int(n), nil
		}
	}
	return 0, fmt.Errorf("not an integer: %T", v)
}

func toFloatSlice(v interface{}) ([]float64, error) {
	switch s := v.(type) {
	case []float64:
		return s, nil
	case []interface{}:
		out := make([]float64, len(s))
		for i, item := range s {
			f, err := toFloat(item)
			if err != nil {
				return nil, err
			}
			out[i] = f
		}
		return out, nil
	}
	return nil, fmt.Errorf("not a number list: %T", v)
}

func toItems(v interface{}) ([]analysis.Item, error) {
	switch s := v.(type) {
	case []analysis.Item:
		return s, nil
	case []interface{}:
		out := make([]analysis.Item, len(s))
		for i, raw := range s {
			m, ok := raw.(map[string]interface{})
			if !ok {
				return nil, fmt.Errorf("item %d is not an object", i)
			}
			id, _ := m["id"].(string)
			if id == "" {
				id = fmt.Sprintf("item-%d", i+1)
			}
			value, present := m["value"]
			if !present {
				value, present = m["metric"]
			}
			if !present {
				return nil, fmt.Errorf("item %d has no value or metric field", i)
			}
			f, err := toFloat(value)
			if err != nil {
				return nil, fmt.Errorf("item %d: %w", i, err)
			}
			out[i] = analysis.Item{ID: id, Value: f}
		}
		return out, nil
	}
	return nil, fmt.Errorf("not an item list: %T", v)
}

// floatArg fetches a required-by-schema numeric argument. Validation has
// already run, so failures here mean a schema/invoke mismatch.
func floatArg(args map[string]interface{}, name string) float64 {
	f, _ := toFloat(args[name])
	return f
}

func floatArgDefault(args map[string]interface{}, name string, fallback float64) float64 {
	v, present := args[name]
	if !present {
		return fallback
	}
	f, err := toFloat(v)
	if err != nil {
		return fallback
	}
	return f
}

func intArg(args map[string]interface{}, name string) int {
	n, _ := toInt(args[name])
	return n
}

func floatSliceArg(args map[string]interface{}, name string) []float64 {
	s, _ := toFloatSlice(args[name])
	return s
}

func itemsArg(args map[string]interface{}, name string) []analysis.Item {
	items, _ := toItems(args[name])
	return items
}
