package changes

// IndexOf returns the position of target in elements, or -1. Identity-bearing
// objects match on id; everything else must be structurally equal.
func IndexOf(elements []any, target any) int {
	if id, ok := identityOf(target); ok {
		for i, element := range elements {
			if elementID, hasID := identityOf(element); hasID && elementID == id {
				return i
			}
		}
		return -1
	}
	for i, element := range elements {
		if structurallyEqual(element, target) {
			return i
		}
	}
	return -1
}

// AsArray exposes a value's elements when it is an array.
func AsArray(v any) ([]any, bool) {
	return asSlice(v)
}
