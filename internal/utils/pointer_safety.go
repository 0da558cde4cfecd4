package utils

// Ptr returns a pointer to a copy of v, for optional fields built from literals.
func Ptr[T any](v T) *T {
	return &v
}
