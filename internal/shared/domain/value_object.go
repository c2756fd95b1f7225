package domain

// ValueObject represents an immutable domain concept defined by its
// attributes rather than an identity.
type ValueObject interface {
	Equals(other ValueObject) bool
}
