package sql

import (
	"encoding/json"
	"fmt"
	"reflect"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/syssam/polystore"
	"github.com/syssam/polystore/schema/field"
)

// Values maps logical attribute and property names to values.
type Values map[string]any

// isNull reports whether v is nil or a nil pointer.
func isNull(v any) bool {
	if v == nil {
		return true
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Pointer, reflect.Map, reflect.Slice, reflect.Interface:
		return rv.IsNil()
	}
	return false
}

// deref returns the value a non-nil pointer points to.
func deref(v any) any {
	rv := reflect.ValueOf(v)
	for rv.Kind() == reflect.Pointer && !rv.IsNil() {
		rv = rv.Elem()
	}
	return rv.Interface()
}

// EncodeValue converts a caller value to the representation bound for the
// attribute: JSON text, fixed-layout date text, enum name or ordinal, or a
// canonical guid string. Other values pass through.
func EncodeValue(a *field.Descriptor, v any) (any, error) {
	if isNull(v) {
		return nil, nil
	}
	if a.StoredAsJSON {
		buf, err := json.Marshal(v)
		if err != nil {
			return nil, invalidValue(a, v, err.Error())
		}
		return string(buf), nil
	}
	v = deref(v)
	switch {
	case a.StoredAsString:
		t, err := toTime(v)
		if err != nil {
			return nil, invalidValue(a, v, err.Error())
		}
		return t.UTC().Format(DateLayout), nil
	case a.Type == field.TypeEnum:
		return encodeEnum(a, v)
	case a.Type == field.TypeUUID:
		switch u := v.(type) {
		case uuid.UUID:
			return u.String(), nil
		case string:
			id, err := uuid.Parse(u)
			if err != nil {
				return nil, invalidValue(a, v, err.Error())
			}
			return id.String(), nil
		default:
			return nil, invalidValue(a, v, "expect uuid.UUID or string")
		}
	case a.Type == field.TypeInt32:
		n, ok := toInt64(v)
		if !ok {
			return nil, invalidValue(a, v, "expect an integer")
		}
		return int32(n), nil
	case a.Type == field.TypeInt64:
		n, ok := toInt64(v)
		if !ok {
			return nil, invalidValue(a, v, "expect an integer")
		}
		return n, nil
	}
	return v, nil
}

func encodeEnum(a *field.Descriptor, v any) (any, error) {
	if s, ok := v.(fmt.Stringer); ok {
		v = s.String()
	}
	if s, ok := v.(string); ok {
		i, ok := a.EnumIndex(s)
		if !ok {
			return nil, invalidValue(a, v, "unknown enum value")
		}
		if a.EnumString {
			return s, nil
		}
		return int32(i), nil
	}
	n, ok := toInt64(v)
	if !ok || n < 0 || int(n) >= len(a.Enums) {
		return nil, invalidValue(a, v, "enum ordinal out of range")
	}
	if a.EnumString {
		return a.Enums[n], nil
	}
	return int32(n), nil
}

// DecodeValue converts a scanned driver value back to the caller
// representation of the attribute. It is the inverse of EncodeValue modulo
// the JSON encoding of StoredAsJSON attributes.
func DecodeValue(a *field.Descriptor, v any) (any, error) {
	if v == nil {
		return nil, nil
	}
	if b, ok := v.([]byte); ok && a.Type != field.TypeBytes {
		v = string(b)
	}
	switch {
	case a.StoredAsJSON:
		s, ok := v.(string)
		if !ok {
			return nil, invalidValue(a, v, "expect JSON text")
		}
		var out any
		if err := json.Unmarshal([]byte(s), &out); err != nil {
			return nil, invalidValue(a, v, err.Error())
		}
		return out, nil
	case a.StoredAsString:
		s, ok := v.(string)
		if !ok {
			return nil, invalidValue(a, v, "expect date text")
		}
		t, err := time.ParseInLocation(DateLayout, strings.TrimSpace(s), time.UTC)
		if err != nil {
			return nil, invalidValue(a, v, err.Error())
		}
		return t, nil
	case a.Type == field.TypeEnum:
		if s, ok := v.(string); ok {
			s = strings.TrimSpace(s)
			if n, err := strconv.Atoi(s); err == nil && !a.EnumString {
				v = int64(n)
			} else {
				return s, nil
			}
		}
		n, ok := toInt64(v)
		if !ok || n < 0 || int(n) >= len(a.Enums) {
			return nil, invalidValue(a, v, "enum ordinal out of range")
		}
		return a.Enums[n], nil
	case a.Type == field.TypeBool:
		switch b := v.(type) {
		case bool:
			return b, nil
		case string:
			return b == "1" || strings.EqualFold(b, "true"), nil
		}
		n, ok := toInt64(v)
		if !ok {
			return nil, invalidValue(a, v, "expect a boolean")
		}
		return n != 0, nil
	case a.Type == field.TypeInt32:
		n, ok := toInt64(v)
		if !ok {
			return nil, invalidValue(a, v, "expect an integer")
		}
		return int32(n), nil
	case a.Type == field.TypeInt64:
		n, ok := toInt64(v)
		if !ok {
			return nil, invalidValue(a, v, "expect an integer")
		}
		return n, nil
	case a.Type == field.TypeUUID:
		switch u := v.(type) {
		case string:
			id, err := uuid.Parse(strings.TrimSpace(u))
			if err != nil {
				return nil, invalidValue(a, v, err.Error())
			}
			return id.String(), nil
		case []byte:
			id, err := uuid.FromBytes(u)
			if err != nil {
				return nil, invalidValue(a, v, err.Error())
			}
			return id.String(), nil
		}
	case a.Type == field.TypeString:
		if s, ok := v.(string); ok && a.IdentifierShaped() {
			return strings.TrimRight(s, " "), nil
		}
	}
	return v, nil
}

func toTime(v any) (time.Time, error) {
	switch t := v.(type) {
	case time.Time:
		return t, nil
	case string:
		for _, layout := range []string{DateLayout, time.RFC3339Nano, time.DateTime, time.DateOnly} {
			if p, err := time.Parse(layout, t); err == nil {
				return p, nil
			}
		}
		return time.Time{}, fmt.Errorf("unrecognized date %q", t)
	default:
		return time.Time{}, fmt.Errorf("expect time.Time, got %T", v)
	}
}

func toInt64(v any) (int64, bool) {
	switch n := v.(type) {
	case int:
		return int64(n), true
	case int8:
		return int64(n), true
	case int16:
		return int64(n), true
	case int32:
		return int64(n), true
	case int64:
		return n, true
	case uint8:
		return int64(n), true
	case uint16:
		return int64(n), true
	case uint32:
		return int64(n), true
	case uint64:
		return int64(n), true
	case uint:
		return int64(n), true
	case float64:
		if n == float64(int64(n)) {
			return int64(n), true
		}
	case string:
		i, err := strconv.ParseInt(strings.TrimSpace(n), 10, 64)
		return i, err == nil
	}
	return 0, false
}

func invalidValue(a *field.Descriptor, v any, reason string) error {
	return polystore.NewConfigurationError("", a.Name, "invalid value %v (%T): %s", v, v, reason)
}
