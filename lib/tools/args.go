package tools

import (
	"fmt"
)

// Tool arguments arrive as generic JSON values; numbers are float64 and
// arrays are []interface{}.

func intSliceArg(args map[string]interface{}, key string) ([]int, error) {
	raw, ok := args[key]
	if !ok {
		return nil, fmt.Errorf("missing required argument %q", key)
	}

	list, ok := raw.([]interface{})
	if !ok {
		return nil, fmt.Errorf("argument %q must be an array of channel numbers", key)
	}

	out := make([]int, 0, len(list))
	for _, v := range list {
		n, ok := v.(float64)
		if !ok {
			return nil, fmt.Errorf("argument %q must contain only numbers", key)
		}
		out = append(out, int(n))
	}

	return out, nil
}

func floatArg(args map[string]interface{}, key string) (float64, error) {
	raw, ok := args[key]
	if !ok {
		return 0, fmt.Errorf("missing required argument %q", key)
	}
	n, ok := raw.(float64)
	if !ok {
		return 0, fmt.Errorf("argument %q must be a number", key)
	}
	return n, nil
}

func intArg(args map[string]interface{}, key string, def int) int {
	if n, ok := args[key].(float64); ok {
		return int(n)
	}
	return def
}

func stringArg(args map[string]interface{}, key string) string {
	if s, ok := args[key].(string); ok {
		return s
	}
	return ""
}

func optFloatArg(args map[string]interface{}, key string) *float64 {
	if n, ok := args[key].(float64); ok {
		return &n
	}
	return nil
}
