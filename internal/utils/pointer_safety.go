package utils

// Value dereferences v, returning the zero value for nil. Optional YAML scalars are
// decoded into pointers so that an absent key can be told apart from a zero value.
func Value[T any](v *T) T {
	if v == nil {
		return *new(T)
	}
	return *v
}

func Ptr[T any](v T) *T {
	return &v
}
