package utils

// SafeDeref safely dereferences a string pointer and returns empty string if nil
func SafeDeref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

// SafeInt32 dereferences an int32 pointer as an int, 0 if nil
func SafeInt32(n *int32) int {
	if n == nil {
		return 0
	}
	return int(*n)
}
