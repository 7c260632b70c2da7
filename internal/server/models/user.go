package models

// User is an account. Password and PinCode hold whatever the configured
// credential scheme sealed; with the plain scheme that is the literal value.
type User struct {
	ID       int64
	UserName string
	Password string
	PinCode  string
	Token    string
}
