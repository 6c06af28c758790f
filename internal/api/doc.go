// Package api implements the HTTP handlers for the utility operations.
// Handlers validate request fields, build a job via the matching service,
// submit it to the bounded runner, and stream the resulting artifact back,
// invoking its deferred cleanup on every exit path.
package api
