// Package sanitizer normalizes user supplied text before validation and storage.
//
// All functions are idempotent: applying them twice yields the same result.
// Invalid input never produces an error; it collapses to an empty value and is
// rejected later by the validator.
package sanitizer
