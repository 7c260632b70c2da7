package common

const (
	// AuthorizationHeaderName carries the bearer token on API requests.
	AuthorizationHeaderName = "Authorization"

	// BearerPrefix precedes the token inside the Authorization header.
	BearerPrefix = "Bearer "

	// PinLength is the number of digits in a locker access code.
	PinLength = 4
)
