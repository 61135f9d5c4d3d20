// internal/parser/cascade.go
package parser

// tier is one step of a field cascade. Tiers are tried in order and the
// first one that yields a value wins.
type tier[T any] struct {
	name    string
	extract func(*input) (T, bool)
}

// cascade runs tiers in order and returns the value with the winning tier's
// name. ok is false only when every tier declined.
func cascade[T any](in *input, tiers []tier[T]) (value T, source string, ok bool) {
	for _, t := range tiers {
		if v, ok := t.extract(in); ok {
			return v, t.name, true
		}
	}
	var zero T
	return zero, "", false
}

// always builds a terminal tier that never declines.
func always[T any](name string, fn func(*input) T) tier[T] {
	return tier[T]{name: name, extract: func(in *input) (T, bool) { return fn(in), true }}
}
