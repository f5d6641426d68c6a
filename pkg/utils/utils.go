package utils

import (
	"errors"
	"fmt"
	"reflect"
	"strconv"
	"strings"
)

// MapToStruct populates a struct with values from a map using json tags.
// target must be a pointer to a struct. Only string, bool and integer fields
// are supported, which covers directory attribute records. Blank strings leave
// non-string fields at their zero value.
func MapToStruct(data map[string]interface{}, target interface{}) error {
	targetValue := reflect.ValueOf(target)
	if targetValue.Kind() != reflect.Ptr {
		return errors.New("target must be a pointer to a struct")
	}

	targetValue = targetValue.Elem()
	if targetValue.Kind() != reflect.Struct {
		return errors.New("target must point to a struct")
	}

	targetType := targetValue.Type()

	for i := 0; i < targetType.NumField(); i++ {
		field := targetType.Field(i)
		fieldValue := targetValue.Field(i)

		if !fieldValue.CanSet() {
			continue
		}

		tag := field.Tag.Get("json")
		if tag == "" || tag == "-" {
			continue
		}
		if idx := strings.Index(tag, ","); idx != -1 {
			tag = tag[:idx]
		}

		value, ok := data[tag]
		if !ok {
			continue
		}

		if err := setField(fieldValue, value); err != nil {
			return fmt.Errorf("error setting field %s: %w", field.Name, err)
		}
	}

	return nil
}

func setField(field reflect.Value, value interface{}) error {
	if value == nil {
		return nil
	}

	switch field.Kind() {
	case reflect.String:
		field.SetString(fmt.Sprintf("%v", value))
		return nil
	case reflect.Bool:
		return setBool(field, value)
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return setInt(field, value)
	}

	return fmt.Errorf("unsupported type: %s", field.Kind())
}

func setBool(field reflect.Value, value interface{}) error {
	switch v := value.(type) {
	case bool:
		field.SetBool(v)
		return nil
	case string:
		if strings.TrimSpace(v) == "" {
			return nil
		}
		b, err := strconv.ParseBool(strings.TrimSpace(v))
		if err != nil {
			return err
		}
		field.SetBool(b)
		return nil
	}
	return fmt.Errorf("cannot convert %T to bool", value)
}

func setInt(field reflect.Value, value interface{}) error {
	var intValue int64

	switch v := value.(type) {
	case int:
		intValue = int64(v)
	case int32:
		intValue = int64(v)
	case int64:
		intValue = v
	case float64:
		intValue = int64(v)
	case string:
		if strings.TrimSpace(v) == "" {
			return nil
		}
		var err error
		intValue, err = strconv.ParseInt(strings.TrimSpace(v), 10, 64)
		if err != nil {
			return err
		}
	default:
		return fmt.Errorf("cannot convert %T to int", value)
	}

	if field.OverflowInt(intValue) {
		return fmt.Errorf("value %d overflows %s", intValue, field.Kind())
	}
	field.SetInt(intValue)
	return nil
}
