package cli

import (
	"context"
	"fmt"
	"log"

	"github.com/dmitrijs2005/gophlocker/internal/client/client"
	"github.com/dmitrijs2005/gophlocker/internal/common"
)

// getSimpleText, getPassword and getCode are indirections used to facilitate testing.
// They point to interactive input helpers and can be swapped in tests.
var getSimpleText = GetSimpleText
var getPassword = GetPassword
var getCode = GetCode

// Register prompts for a user name, password and the 4-digit keypad code,
// then creates the account. The code is checked locally before the request
// is sent.
func (a *App) Register(ctx context.Context) error {
	userName, err := getSimpleText(a.reader, "Enter user name", a.out)
	if err != nil {
		return err
	}

	password, err := getPassword(a.out)
	if err != nil {
		return err
	}

	code, err := getCode(a.out)
	if err != nil {
		return err
	}
	if !common.IsPin(code) {
		fmt.Fprintln(a.out, "Code must be exactly 4 digits")
		return fmt.Errorf("bad code: %w", common.ErrValidation)
	}

	if err := a.api.Register(ctx, userName, password, code); err != nil {
		log.Printf("Registration failed: %s", client.Message(err))
		return err
	}

	fmt.Fprintln(a.out, "Success!")
	return nil
}

// Login prompts for credentials and authenticates. On success the token is
// kept by the API client and the prompt shows the user name.
func (a *App) Login(ctx context.Context) error {
	userName, err := getSimpleText(a.reader, "Enter user name", a.out)
	if err != nil {
		return err
	}

	password, err := getPassword(a.out)
	if err != nil {
		return err
	}

	if err := a.api.Login(ctx, userName, password); err != nil {
		log.Printf("Login unsuccessful: %s", client.Message(err))
		return err
	}

	log.Printf("Login successful")
	a.userName = userName
	a.setMode(ModeOnline)
	return nil
}

// Logout forgets the token.
func (a *App) Logout(_ context.Context) error {
	a.api.Logout()
	a.userName = ""
	return nil
}
