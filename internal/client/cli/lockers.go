package cli

import (
	"context"
	"fmt"
	"log"
	"strconv"

	"github.com/dmitrijs2005/gophlocker/internal/client/client"
	"github.com/dmitrijs2005/gophlocker/internal/common"
)

// List prints one line per locker.
func (a *App) List(ctx context.Context) error {
	lockers, err := a.api.ListLockers(ctx)
	if err != nil {
		log.Println(client.Message(err))
		return err
	}

	for _, l := range lockers {
		owner := "-"
		if l.OwnerID != nil {
			owner = strconv.FormatInt(*l.OwnerID, 10)
		}
		door := "open"
		if l.SensorClosed {
			door = "closed"
		}
		fmt.Fprintf(a.out, "Locker %d: %s, occupied=%t, door %s, owner %s, %s\n",
			l.ID+1, l.Status, l.Occupied, door, owner, l.Phase)
	}
	return nil
}

func (a *App) Deposit(ctx context.Context, arg string) error {
	return a.lockerAction(ctx, arg, a.api.Deposit)
}

func (a *App) Open(ctx context.Context, arg string) error {
	return a.lockerAction(ctx, arg, a.api.Unlock)
}

func (a *App) Return(ctx context.Context, arg string) error {
	return a.lockerAction(ctx, arg, a.api.Return)
}

func (a *App) Close(ctx context.Context, arg string) error {
	return a.lockerAction(ctx, arg, a.api.Lock)
}

func (a *App) lockerAction(ctx context.Context, arg string, call func(context.Context, int) (string, error)) error {
	n, err := strconv.Atoi(arg)
	if err != nil || n < 1 {
		fmt.Fprintf(a.out, "Bad locker number %q\n", arg)
		return fmt.Errorf("locker number %q: %w", arg, common.ErrValidation)
	}

	msg, err := call(ctx, n-1)
	if err != nil {
		fmt.Fprintln(a.out, "Error:", client.Message(err))
		return err
	}
	fmt.Fprintln(a.out, msg)
	return nil
}
