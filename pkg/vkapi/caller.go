package vkapi

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// Params holds request parameters for a VK API method call.
type Params map[string]interface{}

// Caller is the narrow remote-call interface the rest of the archiver is
// written against: one generic entry point taking a dot-qualified method name
// such as "photos.get" and returning the raw "response" payload.
type Caller interface {
	Call(ctx context.Context, method string, params Params) (json.RawMessage, error)
}

// encode renders params as VK query string values.
func (p Params) encode() map[string]string {
	out := make(map[string]string, len(p))
	for k, v := range p {
		switch val := v.(type) {
		case string:
			out[k] = val
		case bool:
			if val {
				out[k] = "1"
			} else {
				out[k] = "0"
			}
		case int:
			out[k] = strconv.Itoa(val)
		case int64:
			out[k] = strconv.FormatInt(val, 10)
		case float64:
			out[k] = strconv.FormatFloat(val, 'f', -1, 64)
		case []string:
			out[k] = strings.Join(val, ",")
		case []int:
			parts := make([]string, len(val))
			for i, n := range val {
				parts[i] = strconv.Itoa(n)
			}
			out[k] = strings.Join(parts, ",")
		default:
			out[k] = fmt.Sprintf("%v", val)
		}
	}
	return out
}
