// Package models defines the locker controller's data model: lockers as held
// by the registry, their persisted records and user accounts.
package models

import "fmt"

// LockState is the intended actuator position of a locker latch.
type LockState int

const (
	Locked LockState = iota
	Unlocked
)

func (s LockState) String() string {
	if s == Unlocked {
		return "unlocked"
	}
	return "locked"
}

// ParseLockState accepts the persisted status strings.
func ParseLockState(s string) (LockState, error) {
	switch s {
	case "locked":
		return Locked, nil
	case "unlocked":
		return Unlocked, nil
	}
	return Locked, fmt.Errorf("unknown lock status %q", s)
}

// Phase is where a locker is in its current actuation.
type Phase int32

const (
	PhaseIdle Phase = iota
	PhaseActuating
	PhaseSettling
)

func (p Phase) String() string {
	switch p {
	case PhaseActuating:
		return "actuating"
	case PhaseSettling:
		return "settling"
	}
	return "idle"
}

// LockerRecord is the durable form of a locker: its hardware wiring plus the
// mutable fields mirrored after every registry mutation.
type LockerRecord struct {
	ID            int
	ServoChannel  int
	SensorChannel int
	Status        LockState
	Occupied      bool

	// Closed is the logical closed flag: true after a lock, false after an unlock.
	Closed  bool
	OwnerID *int64
}

// LockerView is a read-only snapshot of one locker.
type LockerView struct {
	ID            int
	ServoChannel  int
	SensorChannel int
	Status        LockState
	Occupied      bool
	Closed        bool
	DoorClosed    bool
	OwnerID       *int64
	Phase         Phase
}

// Record drops the telemetry fields of a view.
func (v LockerView) Record() LockerRecord {
	return LockerRecord{
		ID:            v.ID,
		ServoChannel:  v.ServoChannel,
		SensorChannel: v.SensorChannel,
		Status:        v.Status,
		Occupied:      v.Occupied,
		Closed:        v.Closed,
		OwnerID:       v.OwnerID,
	}
}
