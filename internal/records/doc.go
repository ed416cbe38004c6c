// Package records holds the client-side attendance event model and the
// in-memory store that keeps events deduplicated by id and ordered newest
// first, regardless of arrival order.
package records
