package value

import (
	"fmt"
	"reflect"
	"time"
)

// FromGo converts a Go value to a Value. Maps must have string keys; other
// maps, structs and unknown types fall back to their fmt representation.
func FromGo(v any) Value {
	if v == nil {
		return None{}
	}
	switch t := v.(type) {
	case Value:
		return t
	case string:
		return String(t)
	case bool:
		return Bool(t)
	case int:
		return Int(int64(t))
	case int8:
		return Int(int64(t))
	case int16:
		return Int(int64(t))
	case int32:
		return Int(int64(t))
	case int64:
		return Int(t)
	case uint:
		return Int(int64(t))
	case uint8:
		return Int(int64(t))
	case uint16:
		return Int(int64(t))
	case uint32:
		return Int(int64(t))
	case uint64:
		return Int(int64(t))
	case float32:
		return Float(float64(t))
	case float64:
		return Float(t)
	case []byte:
		return String(string(t))
	case time.Time:
		return String(t.Format(time.RFC3339))
	case *time.Time:
		if t == nil {
			return None{}
		}
		return String(t.Format(time.RFC3339))
	case map[string]any:
		out := make(Dict, len(t))
		for k, vv := range t {
			out[k] = FromGo(vv)
		}
		return out
	case []any:
		out := make(List, len(t))
		for i, vv := range t {
			out[i] = FromGo(vv)
		}
		return out
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Slice, reflect.Array:
		n := rv.Len()
		out := make(List, 0, n)
		for i := 0; i < n; i++ {
			out = append(out, FromGo(rv.Index(i).Interface()))
		}
		return out
	case reflect.Map:
		if rv.Type().Key().Kind() == reflect.String {
			out := Dict{}
			it := rv.MapRange()
			for it.Next() {
				out[it.Key().String()] = FromGo(it.Value().Interface())
			}
			return out
		}
	case reflect.Pointer, reflect.Interface:
		if rv.IsNil() {
			return None{}
		}
		return FromGo(rv.Elem().Interface())
	}
	return String(fmt.Sprintf("%v", v))
}
