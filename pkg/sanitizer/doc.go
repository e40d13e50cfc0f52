// Package sanitizer normalizes free-form booking input before validation and storage.
//
// All functions are idempotent: applying them more than once yields the same
// result. Invalid input is cleaned rather than rejected; rejecting is the
// validator's job.
//
// Normalization includes:
//   - Identifiers: trim surrounding whitespace
//   - Notes: drop control characters, collapse whitespace, trim
//   - Time and date strings: trim surrounding whitespace
package sanitizer
