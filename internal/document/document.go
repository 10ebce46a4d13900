// Package document turns AWS SDK response values into plain JSON-like
// trees (map[string]any, []any and scalars) and normalizes the timestamps
// embedded in them, so payloads can travel over a wire format that has no
// native time type.
package document

import (
	"fmt"
	"reflect"
	"time"
)

// TimeLayout is the textual form every timestamp is converted to
const TimeLayout = time.RFC3339Nano

var (
	timeType   = reflect.TypeOf(time.Time{})
	stringType = reflect.TypeOf("")
)

// skippedFields are SDK bookkeeping fields that carry no resource data
var skippedFields = map[string]bool{
	"ResultMetadata": true,
}

// FromValue converts v into a document tree. Structs become maps keyed by
// field name, pointers are dereferenced, enum-like named strings become
// plain strings. Nil pointers, slices and maps as well as empty enums are
// dropped from structs the same way an absent field would be. time.Time leaves are kept as-is; run
// ConvertTimestamps on the result to render them.
func FromValue(v any) any {
	if v == nil {
		return nil
	}
	return fromReflect(reflect.ValueOf(v))
}

func fromReflect(v reflect.Value) any {
	if !v.IsValid() {
		return nil
	}

	if v.Type() == timeType {
		return v.Interface().(time.Time)
	}

	switch v.Kind() {
	case reflect.Pointer, reflect.Interface:
		if v.IsNil() {
			return nil
		}
		return fromReflect(v.Elem())

	case reflect.Struct:
		out := make(map[string]any, v.NumField())
		t := v.Type()
		for i := 0; i < v.NumField(); i++ {
			field := t.Field(i)
			if !field.IsExported() || skippedFields[field.Name] {
				continue
			}
			fv := v.Field(i)
			if isNilish(fv) || isUnsetEnum(fv) {
				continue
			}
			out[field.Name] = fromReflect(fv)
		}
		return out

	case reflect.Map:
		if v.IsNil() {
			return nil
		}
		out := make(map[string]any, v.Len())
		iter := v.MapRange()
		for iter.Next() {
			out[mapKey(iter.Key())] = fromReflect(iter.Value())
		}
		return out

	case reflect.Slice:
		if v.IsNil() {
			return nil
		}
		if v.Type().Elem().Kind() == reflect.Uint8 {
			return v.Bytes()
		}
		fallthrough
	case reflect.Array:
		out := make([]any, v.Len())
		for i := 0; i < v.Len(); i++ {
			out[i] = fromReflect(v.Index(i))
		}
		return out

	case reflect.String:
		return v.String()
	case reflect.Bool:
		return v.Bool()
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return v.Int()
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return v.Uint()
	case reflect.Float32, reflect.Float64:
		return v.Float()
	}

	return fmt.Sprint(v.Interface())
}

func isNilish(v reflect.Value) bool {
	switch v.Kind() {
	case reflect.Pointer, reflect.Interface, reflect.Map, reflect.Slice:
		return v.IsNil()
	}
	return false
}

// isUnsetEnum reports a zero SDK enum value. The SDK models enums as named
// string types whose empty value means the service did not send the field.
func isUnsetEnum(v reflect.Value) bool {
	return v.Kind() == reflect.String && v.Type() != stringType && v.Len() == 0
}

func mapKey(k reflect.Value) string {
	if k.Kind() == reflect.String {
		return k.String()
	}
	return fmt.Sprint(k.Interface())
}

// ConvertTimestamps returns a copy of v with every time.Time (or *time.Time)
// leaf replaced by its TimeLayout text, recursing through maps and slices of
// any depth. Other leaves are returned untouched. Converting an already
// converted tree is a no-op.
func ConvertTimestamps(v any) any {
	switch val := v.(type) {
	case time.Time:
		return val.Format(TimeLayout)
	case *time.Time:
		if val == nil {
			return nil
		}
		return val.Format(TimeLayout)
	case map[string]any:
		out := make(map[string]any, len(val))
		for k, item := range val {
			out[k] = ConvertTimestamps(item)
		}
		return out
	case []any:
		out := make([]any, len(val))
		for i, item := range val {
			out[i] = ConvertTimestamps(item)
		}
		return out
	case []map[string]any:
		out := make([]any, len(val))
		for i, item := range val {
			out[i] = ConvertTimestamps(item)
		}
		return out
	default:
		return v
	}
}

// Convert is FromValue followed by ConvertTimestamps
func Convert(v any) any {
	return ConvertTimestamps(FromValue(v))
}
