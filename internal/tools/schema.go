package tools

import (
	"fmt"
	"math"
	"slices"
	"sort"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
)

// Property describes one tool argument.
type Property struct {
	Type        string // string, integer, number, boolean
	Format      string // uuid, date
	Description string
	MinLength   int
	MaxLength   int
	Minimum     *float64
	Maximum     *float64
	Enum        []string
}

// Schema is the parameter declaration of a tool.
type Schema struct {
	Properties map[string]Property
	Required   []string
}

func bound(v float64) *float64 { return &v }

// JSON renders the schema as a JSON Schema object for the providers.
func (s Schema) JSON() map[string]any {
	props := make(map[string]any, len(s.Properties))
	for name, p := range s.Properties {
		m := map[string]any{"type": p.Type}
		if p.Description != "" {
			m["description"] = p.Description
		}
		if p.Format != "" {
			m["format"] = p.Format
		}
		if p.MinLength > 0 {
			m["minLength"] = p.MinLength
		}
		if p.MaxLength > 0 {
			m["maxLength"] = p.MaxLength
		}
		if p.Minimum != nil {
			m["minimum"] = *p.Minimum
		}
		if p.Maximum != nil {
			m["maximum"] = *p.Maximum
		}
		if len(p.Enum) > 0 {
			m["enum"] = p.Enum
		}
		props[name] = m
	}
	required := s.Required
	if required == nil {
		required = []string{}
	}
	return map[string]any{
		"type":       "object",
		"properties": props,
		"required":   required,
	}
}

// Validate checks args against the schema without coercing values. A JSON
// null on an optional field counts as absent.
func (s Schema) Validate(tool string, args map[string]any) error {
	fail := func(field, format string, a ...any) error {
		return &ValidationError{Tool: tool, Field: field, Reason: fmt.Sprintf(format, a...)}
	}

	names := make([]string, 0, len(args))
	for name := range args {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		if _, ok := s.Properties[name]; !ok {
			return fail(name, "unknown field")
		}
	}

	for _, name := range s.Required {
		if v, ok := args[name]; !ok || v == nil {
			return fail(name, "is required")
		}
	}

	for _, name := range names {
		v := args[name]
		if v == nil {
			continue
		}
		p := s.Properties[name]
		switch p.Type {
		case "string":
			str, ok := v.(string)
			if !ok {
				return fail(name, "must be a string")
			}
			n := utf8.RuneCountInString(str)
			if p.MinLength > 0 && n < p.MinLength {
				return fail(name, "must be at least %d characters", p.MinLength)
			}
			if p.MaxLength > 0 && n > p.MaxLength {
				return fail(name, "must be at most %d characters", p.MaxLength)
			}
			if len(p.Enum) > 0 && !slices.Contains(p.Enum, str) {
				return fail(name, "must be one of %v", p.Enum)
			}
			switch p.Format {
			case "uuid":
				if _, err := uuid.Parse(str); err != nil {
					return fail(name, "must be a UUID")
				}
			case "date":
				if _, err := time.Parse("2006-01-02", str); err != nil {
					return fail(name, "must be a YYYY-MM-DD date")
				}
			}
		case "integer", "number":
			f, ok := v.(float64)
			if !ok {
				return fail(name, "must be a number")
			}
			if p.Type == "integer" && f != math.Trunc(f) {
				return fail(name, "must be an integer")
			}
			if p.Minimum != nil && f < *p.Minimum {
				return fail(name, "must be at least %v", *p.Minimum)
			}
			if p.Maximum != nil && f > *p.Maximum {
				return fail(name, "must be at most %v", *p.Maximum)
			}
		case "boolean":
			if _, ok := v.(bool); !ok {
				return fail(name, "must be a boolean")
			}
		default:
			return fail(name, "has unsupported type %q", p.Type)
		}
	}
	return nil
}
