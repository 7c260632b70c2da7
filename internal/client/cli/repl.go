package cli

import (
	"bufio"
	"context"
	"fmt"
	"strings"
)

// printlnFn is a test seam for user-facing output. In tests, replace it with a stub.
var printlnFn = fmt.Println

// execIface defines the minimal command surface the REPL needs to operate.
// The real App type satisfies this interface; tests can provide a lightweight stub.
type execIface interface {
	isLoggedIn() bool
	Register(ctx context.Context) error
	Login(ctx context.Context) error
	List(ctx context.Context) error
	Deposit(ctx context.Context, arg string) error
	Open(ctx context.Context, arg string) error
	Return(ctx context.Context, arg string) error
	Close(ctx context.Context, arg string) error
	Logout(ctx context.Context) error
}

// runREPL starts a simple read-eval-print loop for the locker CLI.
//
// It reads a line from the provided scanner, parses the first token as the
// command, and dispatches to methods on 'a'. The loop exits on scanner EOF
// or when the user types "exit" or "quit".
//
// Commands
//
//	Always:
//	  - help                 show available commands
//	  - (l)ist               show every locker
//	  - close <n>            lock locker n
//	  - exit | quit          leave the program
//
//	Not logged in:
//	  - register, login
//
//	Logged in:
//	  - deposit <n>          reserve locker n and open it
//	  - open <n>             open your locker n
//	  - return <n>           open locker n and give it back
//	  - logout
//
// Errors returned by command handlers are ignored here; handlers report
// their own failures.
func runREPL(ctx context.Context, a execIface, statusFn func() string, scanner *bufio.Scanner) {
	for {
		printlnFn(fmt.Sprintf("locker %s> ", statusFn()))
		if !scanner.Scan() {
			return
		}
		parts := strings.Fields(scanner.Text())
		if len(parts) == 0 {
			continue
		}
		cmd, args := parts[0], parts[1:]

		switch cmd {
		case "help":
			if a.isLoggedIn() {
				printlnFn("Available commands: (l)ist, deposit <n>, open <n>, return <n>, close <n>, logout, exit")
			} else {
				printlnFn("Available commands: register, login, (l)ist, close <n>, exit")
			}

		case "register":
			_ = a.Register(ctx)

		case "login":
			_ = a.Login(ctx)

		case "l", "list":
			_ = a.List(ctx)

		case "deposit", "open", "return", "close":
			if len(args) != 1 {
				printlnFn(fmt.Sprintf("Usage: %s <locker number>", cmd))
				continue
			}
			if cmd != "close" && !a.isLoggedIn() {
				printlnFn("Please login first")
				continue
			}
			switch cmd {
			case "deposit":
				_ = a.Deposit(ctx, args[0])
			case "open":
				_ = a.Open(ctx, args[0])
			case "return":
				_ = a.Return(ctx, args[0])
			case "close":
				_ = a.Close(ctx, args[0])
			}

		case "logout":
			_ = a.Logout(ctx)

		case "exit", "quit":
			printlnFn("Bye!")
			return

		default:
			printlnFn("Unknown command:", cmd)
		}
	}
}
