// Copyright (c) 2025 Seedfast
// Licensed under the MIT License. See LICENSE file in the project root for details.

package statement

import (
	"encoding/json"
	"fmt"
	"reflect"
	"strconv"
	"strings"
	"time"
)

const dateLayout = "2006-01-02"

// slashes mirrors addslashes: backslash, both quote kinds and NUL.
var slashes = strings.NewReplacer(`\`, `\\`, `'`, `\'`, `"`, `\"`, "\x00", `\0`)

// Format renders a bound value as the literal the remote API expects.
//
// Booleans and numbers are never quoted. With quote set, every other value is
// wrapped in single quotes for inline interpolation into a query string; without
// it the bare value is returned for structured request bodies. A nil value is the
// empty string unquoted and the null literal quoted.
func Format(value any, typ SemanticType, quote bool) string {
	if value == nil {
		if quote {
			return "null"
		}
		return ""
	}

	var ret string
	switch typ {
	case Boolean:
		if toBool(value) {
			return "true"
		}
		return "false"
	case Integer:
		return strconv.FormatInt(toInt(value), 10)
	case Float:
		return strconv.FormatFloat(toFloat(value), 'f', -1, 64)
	case DateTime:
		ret = strings.TrimSpace(formatTime(value, time.RFC3339))
	case Date:
		ret = strings.TrimSpace(formatTime(value, dateLayout))
	case String:
		ret = strings.TrimSpace(stringify(value))
		if quote {
			ret = slashes.Replace(ret)
		}
	default:
		ret = slashes.Replace(strings.TrimSpace(stringify(value)))
	}

	if quote {
		return "'" + ret + "'"
	}
	return ret
}

// Literal returns the JSON-ready native form of a bound value: bool for
// booleans, int64 for integers, float64 for floats and the unquoted Format
// string for everything else.
func Literal(value any, typ SemanticType) any {
	if value == nil {
		return nil
	}
	switch typ {
	case Boolean:
		return toBool(value)
	case Integer:
		return toInt(value)
	case Float:
		return toFloat(value)
	default:
		return Format(value, typ, false)
	}
}

func stringify(value any) string {
	switch v := value.(type) {
	case string:
		return v
	case []byte:
		return string(v)
	case time.Time:
		return v.Format(time.RFC3339)
	case fmt.Stringer:
		return v.String()
	default:
		return fmt.Sprint(v)
	}
}

func formatTime(value any, layout string) string {
	switch v := value.(type) {
	case time.Time:
		if layout == time.RFC3339 {
			return v.UTC().Format(layout)
		}
		return v.Format(layout)
	case *time.Time:
		if v == nil {
			return ""
		}
		return formatTime(*v, layout)
	default:
		return stringify(value)
	}
}

func toBool(value any) bool {
	switch v := value.(type) {
	case bool:
		return v
	case string:
		s := strings.TrimSpace(v)
		if b, err := strconv.ParseBool(s); err == nil {
			return b
		}
		return s != "" && s != "0"
	case json.Number:
		f, err := v.Float64()
		return err == nil && f != 0
	}
	rv := reflect.ValueOf(value)
	switch rv.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return rv.Int() != 0
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return rv.Uint() != 0
	case reflect.Float32, reflect.Float64:
		return rv.Float() != 0
	}
	return true
}

func toInt(value any) int64 {
	switch v := value.(type) {
	case bool:
		if v {
			return 1
		}
		return 0
	case string:
		s := strings.TrimSpace(v)
		if n, err := strconv.ParseInt(s, 10, 64); err == nil {
			return n
		}
		if f, err := strconv.ParseFloat(s, 64); err == nil {
			return int64(f)
		}
		return 0
	case json.Number:
		if n, err := v.Int64(); err == nil {
			return n
		}
		f, _ := v.Float64()
		return int64(f)
	}
	rv := reflect.ValueOf(value)
	switch rv.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return rv.Int()
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return int64(rv.Uint())
	case reflect.Float32, reflect.Float64:
		return int64(rv.Float())
	}
	return 0
}

func toFloat(value any) float64 {
	switch v := value.(type) {
	case bool:
		if v {
			return 1
		}
		return 0
	case string:
		f, _ := strconv.ParseFloat(strings.TrimSpace(v), 64)
		return f
	case json.Number:
		f, _ := v.Float64()
		return f
	}
	rv := reflect.ValueOf(value)
	switch rv.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return float64(rv.Int())
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return float64(rv.Uint())
	case reflect.Float32, reflect.Float64:
		return rv.Float()
	}
	return 0
}
