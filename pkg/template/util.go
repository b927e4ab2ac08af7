package template

import (
	"reflect"
	"strconv"
)

func itoa(n int) string { return strconv.Itoa(n) }

func parseFloat(s string) (float64, error) {
	return strconv.ParseFloat(s, 64)
}

// equalValues compares two evaluated template values for `==`/`!=`.
// Numbers, strings and booleans compare by value; everything else
// (arrays, objects, nil) falls back to reflect.DeepEqual.
func equalValues(a, b any) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	af, aIsNum := a.(float64)
	bf, bIsNum := b.(float64)
	if aIsNum && bIsNum {
		return af == bf
	}
	return reflect.DeepEqual(a, b)
}
