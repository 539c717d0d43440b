package config

import (
	"reflect"

	"github.com/ejustice-portal/bootstrap/pkg/config/secrets"
	"github.com/pkg/errors"
)

// expandVariables recursively traverses val and replaces every settable string
// that is a whole ${prefix:key} reference with its resolved value.
// It handles nested structs, pointers to structs, slices, and maps.
func expandVariables(val reflect.Value, registry *secrets.Registry) error {
	switch val.Kind() {
	case reflect.String:
		if !val.CanSet() {
			return nil
		}
		expanded, err := registry.Expand(val.String())
		if err != nil {
			return errors.Wrap(err, "error resolving property")
		}
		val.SetString(expanded)
	case reflect.Struct:
		for i := 0; i < val.NumField(); i++ {
			if err := expandVariables(val.Field(i), registry); err != nil {
				return err
			}
		}
	case reflect.Ptr:
		if !val.IsNil() {
			return expandVariables(val.Elem(), registry)
		}
	case reflect.Slice:
		for j := 0; j < val.Len(); j++ {
			if err := expandVariables(val.Index(j), registry); err != nil {
				return err
			}
		}
	case reflect.Map:
		for _, key := range val.MapKeys() {
			mapVal := val.MapIndex(key)
			// Map values are not addressable; expand a copy and store it back.
			newVal := reflect.New(mapVal.Type()).Elem()
			newVal.Set(mapVal)
			if err := expandVariables(newVal, registry); err != nil {
				return err
			}
			val.SetMapIndex(key, newVal)
		}
	}
	return nil
}
