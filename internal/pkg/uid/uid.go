// Package uid generates identifiers: snowflake numbers for persisted rows and
// UUIDv7 strings for message ids and tokens.
package uid

// NumberID generates sortable 64-bit identifiers.
type NumberID interface {
	Generate() int64
}

// StringID generates opaque string identifiers.
type StringID interface {
	Generate() string
}
