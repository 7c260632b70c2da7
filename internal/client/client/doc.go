// Package client talks to the locker controller's HTTP API.
//
// HTTPClient keeps the bearer token returned by Login and attaches it to the
// owner-only calls (deposit, unlock, return). Server replies are mapped back
// onto the shared error taxonomy so callers can use errors.Is:
//
//	400 -> common.ErrValidation
//	401 -> common.ErrUnauthenticated
//	403 -> common.ErrForbidden
//	503 -> common.ErrHardwareFault
//	other non-2xx -> common.ErrInternal
//
// Transport failures (connection refused, timeouts) are reported as
// ErrUnavailable.
//
// Locker ids on the wire are zero-based.
package client
