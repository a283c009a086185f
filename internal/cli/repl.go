package cli

import (
	"bufio"
	"context"
	"fmt"
	"strings"
)

// printlnFn is a test seam for user-facing output. In tests, replace it with a stub.
var printlnFn = fmt.Println

const helpText = `Available commands:
  consents                          list consents
  toggle <type>                     enable or disable a category
  set <type> <field> <value>        field: granularity|retention|background|enabled
  reset                             restore default consents
  perm [fg|bg on|off]               show or change simulated OS permissions
  fix <lat> <lon> [accuracy]        push a location fix
  visit <url> [title]               open a page
  end                               close the open page
  record <domain> <url> <seconds> [title]
  status                            tracker status
  stats [days]                      collection statistics
  unsynced                          points waiting for sync
  sync                              run one sync cycle
  export <file>                     write a passphrase-protected export
  logout                            wipe consents and collected data
  exit | quit                       leave the program`

// execIface is the command surface the REPL dispatches to. Console
// satisfies it; tests provide a lightweight stub.
type execIface interface {
	Consents(ctx context.Context, args []string) error
	Toggle(ctx context.Context, args []string) error
	Set(ctx context.Context, args []string) error
	Reset(ctx context.Context, args []string) error
	Perm(ctx context.Context, args []string) error
	Fix(ctx context.Context, args []string) error
	Visit(ctx context.Context, args []string) error
	End(ctx context.Context, args []string) error
	Record(ctx context.Context, args []string) error
	Status(ctx context.Context, args []string) error
	Stats(ctx context.Context, args []string) error
	Unsynced(ctx context.Context, args []string) error
	Sync(ctx context.Context, args []string) error
	Export(ctx context.Context, args []string) error
	Logout(ctx context.Context, args []string) error
}

// runREPL reads commands from scanner until EOF, "exit" or "quit", or until
// ctx is cancelled. Command errors are printed and the loop continues.
func runREPL(ctx context.Context, a execIface, statusFn func() string, scanner *bufio.Scanner) {
	commands := map[string]func(context.Context, []string) error{
		"consents": a.Consents,
		"toggle":   a.Toggle,
		"set":      a.Set,
		"reset":    a.Reset,
		"perm":     a.Perm,
		"fix":      a.Fix,
		"visit":    a.Visit,
		"end":      a.End,
		"record":   a.Record,
		"status":   a.Status,
		"stats":    a.Stats,
		"unsynced": a.Unsynced,
		"sync":     a.Sync,
		"export":   a.Export,
		"logout":   a.Logout,
	}

	for {
		if ctx.Err() != nil {
			return
		}
		printlnFn(fmt.Sprintf("vault %s> ", statusFn()))
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
			printlnFn(helpText)
			continue
		case "exit", "quit":
			printlnFn("Bye!")
			return
		}

		fn, ok := commands[cmd]
		if !ok {
			printlnFn("Unknown command:", cmd)
			continue
		}
		if err := fn(ctx, args); err != nil {
			printlnFn("Error:", err)
		}
	}
}
