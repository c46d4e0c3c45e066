package ir

import (
	"fmt"
	"strconv"
)

// Equal reports whether a and b are structurally equal.
// IRInt and IRFloat never compare equal to each other, even for the same
// numeric value; a nil interface equals IRNull.
func Equal(a, b IRValue) bool {
	if isNull(a) || isNull(b) {
		return isNull(a) && isNull(b)
	}

	switch av := a.(type) {
	case IRString:
		bv, ok := b.(IRString)
		return ok && av == bv
	case IRInt:
		bv, ok := b.(IRInt)
		return ok && av == bv
	case IRFloat:
		bv, ok := b.(IRFloat)
		return ok && av == bv
	case IRBool:
		bv, ok := b.(IRBool)
		return ok && av == bv
	case IRArray:
		bv, ok := b.(IRArray)
		if !ok || len(av) != len(bv) {
			return false
		}
		for i := range av {
			if !Equal(av[i], bv[i]) {
				return false
			}
		}
		return true
	case IRObject:
		bv, ok := b.(IRObject)
		if !ok || len(av) != len(bv) {
			return false
		}
		for k, v := range av {
			other, present := bv[k]
			if !present || !Equal(v, other) {
				return false
			}
		}
		return true
	default:
		return false
	}
}

func isNull(v IRValue) bool {
	if v == nil {
		return true
	}
	_, ok := v.(IRNull)
	return ok
}

// KeyOf converts an id value into the string key used by keyed collections.
// Strings are used verbatim, integers in decimal. Other kinds cannot key a
// record.
func KeyOf(id IRValue) (string, error) {
	switch v := id.(type) {
	case IRString:
		return string(v), nil
	case IRInt:
		return strconv.FormatInt(int64(v), 10), nil
	default:
		return "", fmt.Errorf("%s cannot be used as a record key", KindOf(id))
	}
}
