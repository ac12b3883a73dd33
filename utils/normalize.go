package utils

import (
	"reflect"
	"strings"
)

// NormalizeDTO trims string and *string fields on a pointer-to-struct DTO.
// Blank *string fields become nil so optional references are stored as NULL.
func NormalizeDTO(dto any) {
	v := reflect.ValueOf(dto)
	if v.Kind() != reflect.Ptr || v.IsNil() {
		return
	}
	s := v.Elem()
	if s.Kind() != reflect.Struct {
		return
	}
	for i := 0; i < s.NumField(); i++ {
		f := s.Field(i)
		if !f.CanSet() {
			continue
		}
		switch f.Kind() {
		case reflect.String:
			f.SetString(strings.TrimSpace(f.String()))
		case reflect.Ptr:
			if f.IsNil() || f.Elem().Kind() != reflect.String {
				continue
			}
			trimmed := strings.TrimSpace(f.Elem().String())
			if trimmed == "" {
				f.Set(reflect.Zero(f.Type()))
				continue
			}
			f.Elem().SetString(trimmed)
		}
	}
}
