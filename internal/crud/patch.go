package crud

import (
	"reflect"
	"strconv"
	"strings"

	"gorm.io/gorm/schema"
)

// Patcher lets a payload compute its own patch set.
type Patcher interface {
	PatchFields() map[string]any
}

var naming = schema.NamingStrategy{}

// PatchFields returns the column → value pairs of v that were explicitly set
// and differ from their default:
//
//   - a nil pointer field is unset and omitted; a non-nil one is set and its
//     pointee is used as the value;
//   - a non-pointer field is omitted while it holds its zero value;
//   - a `default:"..."` tag declares the default of a field; set values equal
//     to it are omitted;
//   - `patch:"-"` excludes a field and `patch:"col"` renames it.
//
// Keys default to the GORM column name of the field (`gorm:"column:..."` or
// snake_case of the field name). v must be a struct or a pointer to one;
// anything else yields an empty map.
func PatchFields(v any) map[string]any {
	if p, ok := v.(Patcher); ok {
		return p.PatchFields()
	}

	fields := make(map[string]any)

	rv := reflect.ValueOf(v)
	for rv.Kind() == reflect.Pointer {
		if rv.IsNil() {
			return fields
		}
		rv = rv.Elem()
	}
	if rv.Kind() != reflect.Struct {
		return fields
	}

	rt := rv.Type()
	for i := 0; i < rt.NumField(); i++ {
		sf := rt.Field(i)
		if !sf.IsExported() {
			continue
		}
		name, ok := columnName(sf)
		if !ok {
			continue
		}

		fv := rv.Field(i)
		if fv.Kind() == reflect.Pointer {
			if fv.IsNil() {
				continue
			}
			fv = fv.Elem()
		} else if fv.IsZero() {
			continue
		}

		if def, ok := sf.Tag.Lookup("default"); ok && equalsDefault(fv, def) {
			continue
		}
		fields[name] = fv.Interface()
	}
	return fields
}

func columnName(sf reflect.StructField) (string, bool) {
	if tag, ok := sf.Tag.Lookup("patch"); ok {
		if tag == "-" {
			return "", false
		}
		if tag != "" {
			return tag, true
		}
	}
	settings := schema.ParseTagSetting(sf.Tag.Get("gorm"), ";")
	if col := settings["COLUMN"]; col != "" {
		return col, true
	}
	return naming.ColumnName("", sf.Name), true
}

// equalsDefault compares v with the textual default of its field.
func equalsDefault(v reflect.Value, def string) bool {
	switch v.Kind() {
	case reflect.String:
		return v.String() == def
	case reflect.Bool:
		b, err := strconv.ParseBool(def)
		return err == nil && v.Bool() == b
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		n, err := strconv.ParseInt(def, 10, 64)
		return err == nil && v.Int() == n
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		n, err := strconv.ParseUint(def, 10, 64)
		return err == nil && v.Uint() == n
	case reflect.Float32, reflect.Float64:
		f, err := strconv.ParseFloat(def, 64)
		return err == nil && v.Float() == f
	default:
		return strings.TrimSpace(def) == "" && v.IsZero()
	}
}
