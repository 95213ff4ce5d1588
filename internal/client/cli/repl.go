package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
)

// printlnFn is a test seam for REPL output.
var printlnFn = fmt.Println

// execIface is the command surface the REPL drives. *App satisfies it.
type execIface interface {
	Status(ctx context.Context, args []string) error
	Migrate(ctx context.Context) error
	Login(ctx context.Context) error
	WhoAmI(ctx context.Context) error
	Logout(ctx context.Context) error
	Flags(ctx context.Context) error
	Metrics(ctx context.Context, args []string) error
	Timeseries(ctx context.Context, args []string) error
	Stats(ctx context.Context) error
	Health(ctx context.Context) error
}

var errUnknownCommand = errors.New("unknown command")

const helpText = "Available commands: status [email], migrate, login, whoami, logout, flags, metrics [detailed], timeseries [hours], stats, health, exit"

// dispatch runs one command. quit is true for exit/quit.
func dispatch(ctx context.Context, a execIface, cmd string, args []string) (quit bool, err error) {
	switch cmd {
	case "help":
		printlnFn(helpText)
	case "status":
		err = a.Status(ctx, args)
	case "migrate":
		err = a.Migrate(ctx)
	case "login":
		err = a.Login(ctx)
	case "whoami":
		err = a.WhoAmI(ctx)
	case "logout":
		err = a.Logout(ctx)
	case "flags":
		err = a.Flags(ctx)
	case "metrics":
		err = a.Metrics(ctx, args)
	case "timeseries":
		err = a.Timeseries(ctx, args)
	case "stats":
		err = a.Stats(ctx)
	case "health":
		err = a.Health(ctx)
	case "exit", "quit":
		return true, nil
	default:
		err = fmt.Errorf("%w: %s", errUnknownCommand, cmd)
	}
	return false, err
}

// runREPL reads commands from reader until EOF or exit. Command errors are
// printed and the loop goes on.
func runREPL(ctx context.Context, a execIface, statusFn func() string, reader *bufio.Reader) {
	for {
		printlnFn(fmt.Sprintf("authctl (%s) > ", statusFn()))
		line, err := reader.ReadString('\n')
		if err != nil && (!errors.Is(err, io.EOF) || line == "") {
			return
		}

		parts := strings.Fields(line)
		if len(parts) == 0 {
			continue
		}

		quit, cerr := dispatch(ctx, a, parts[0], parts[1:])
		if cerr != nil {
			printlnFn("error:", cerr)
		}
		if quit {
			printlnFn("Bye!")
			return
		}
	}
}
