package client

import (
	"context"
)

// Locker is a row of the locker listing.
type Locker struct {
	ID           int    `json:"id"`
	Status       string `json:"status"`
	Occupied     bool   `json:"occupied"`
	Closed       bool   `json:"closed"`
	SensorClosed bool   `json:"sensor_closed"`
	OwnerID      *int64 `json:"owner_id"`
	Phase        string `json:"phase"`
}

type Client interface {
	Register(ctx context.Context, username, password, code string) error
	Login(ctx context.Context, username, password string) error
	Logout()
	LoggedIn() bool
	Ping(ctx context.Context) error
	ListLockers(ctx context.Context) ([]Locker, error)
	Deposit(ctx context.Context, lockerID int) (string, error)
	Unlock(ctx context.Context, lockerID int) (string, error)
	Return(ctx context.Context, lockerID int) (string, error)
	Lock(ctx context.Context, lockerID int) (string, error)
}
