package tools

import (
	"encoding/json"
	"strings"
)

// Args are decoded tool arguments. Accessors assume the schema has already
// validated types.
type Args map[string]any

// ParseArgs decodes the raw JSON arguments of a tool call. An empty string
// is an empty argument set.
func ParseArgs(tool, raw string) (Args, error) {
	args := Args{}
	if strings.TrimSpace(raw) == "" {
		return args, nil
	}
	if err := json.Unmarshal([]byte(raw), &args); err != nil {
		return nil, &ValidationError{Tool: tool, Reason: "arguments are not a JSON object"}
	}
	if args == nil {
		// JSON null
		args = Args{}
	}
	return args, nil
}

func (a Args) String(key string) string {
	s, _ := a[key].(string)
	return s
}

func (a Args) Int(key string) int {
	f, _ := a[key].(float64)
	return int(f)
}

func (a Args) Bool(key string) bool {
	b, _ := a[key].(bool)
	return b
}
