package store

// Helpers that build a new backing array on every change. A snapshot taken
// before the change keeps its own array.

func appended[T any](s []T, v T) []T {
	out := make([]T, len(s), len(s)+1)
	copy(out, s)
	return append(out, v)
}

func without[T any](s []T, match func(T) bool) []T {
	out := make([]T, 0, len(s))
	for _, v := range s {
		if !match(v) {
			out = append(out, v)
		}
	}
	return out
}

func replaced[T any](s []T, match func(T) bool, v T) []T {
	out := make([]T, len(s))
	copy(out, s)
	for i := range out {
		if match(out[i]) {
			out[i] = v
		}
	}
	return out
}

func indexOf[T any](s []T, match func(T) bool) int {
	for i, v := range s {
		if match(v) {
			return i
		}
	}
	return -1
}

func nonNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}
