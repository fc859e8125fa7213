package profiles

import (
	"encoding/json"
	"math"
	"strings"
)

// Truthy replica la noción de "truthy" de los clientes JS que consumen la API:
// nil, false, 0, NaN y "" son falsy; todo lo demás (incluidos {} y []) es truthy.
func Truthy(v any) bool {
	switch t := v.(type) {
	case nil:
		return false
	case bool:
		return t
	case string:
		return t != ""
	case json.Number:
		f, err := t.Float64()
		if err != nil {
			return strings.TrimSpace(t.String()) != ""
		}
		return f != 0
	case float64:
		return t != 0 && !math.IsNaN(t)
	case float32:
		return t != 0 && !math.IsNaN(float64(t))
	case int:
		return t != 0
	case int32:
		return t != 0
	case int64:
		return t != 0
	default:
		return true
	}
}

// normalize convierte json.Number a int64 (si entra) o float64, recursivamente.
// Los drivers (BSON/JSONB) no deben recibir json.Number: lo guardarían como string.
func normalize(v any) any {
	switch t := v.(type) {
	case json.Number:
		if i, err := t.Int64(); err == nil {
			return i
		}
		if f, err := t.Float64(); err == nil {
			return f
		}
		return t.String()
	case map[string]any:
		out := make(map[string]any, len(t))
		for k, val := range t {
			out[k] = normalize(val)
		}
		return out
	case []any:
		out := make([]any, len(t))
		for i, val := range t {
			out[i] = normalize(val)
		}
		return out
	default:
		return v
	}
}
