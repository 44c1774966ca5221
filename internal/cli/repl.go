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
	Capture(ctx context.Context, path string) error
	Save(ctx context.Context) error
	Discard(ctx context.Context) error
	Retake(ctx context.Context) error
	Abandon(ctx context.Context) error
	Flash(ctx context.Context) error
	Facing(ctx context.Context) error
	Status(ctx context.Context) error
	Recent(ctx context.Context) error
	List(ctx context.Context) error
	Week(ctx context.Context) error
	Month(ctx context.Context) error
	Range(ctx context.Context, start, end string) error
	Show(ctx context.Context, id string) error
	Delete(ctx context.Context, id string) error
	Import(ctx context.Context, path string) error
	Export(ctx context.Context, path string) error
}

const helpText = `Available commands:
  capture <file>      take a photo from an image file
  save | discard      keep or drop an outdoor photo
  retake | abandon    leave a decided photo
  flash | facing      change camera settings
  status              show the session state
  recent | (l)ist     latest entries / all entries
  week | month        entries of the current week / month
  range <from> <to>   entries between two dates (YYYY-MM-DD)
  show <id>           show an entry
  delete <id>         delete an entry
  import <file>       add entries from a JSON export
  export <file>       write all entries as JSON
  exit                leave the program`

// runREPL starts a simple read–eval–print loop for the GoOutside CLI.
//
// It reads a line from the provided scanner, parses the first token as the
// command, and dispatches to methods on 'a'. Missing arguments print a usage
// line, unknown commands are reported back to the user. The loop exits on
// scanner EOF, when ctx is done, or when the user types "exit" or "quit".
//
// Any errors returned by command handlers are ignored here; handlers report
// their own errors.
func runREPL(ctx context.Context, a execIface, statusFn func() string, scanner *bufio.Scanner) {
	for {
		if ctx.Err() != nil {
			return
		}
		printlnFn(fmt.Sprintf("go> %s > ", statusFn()))
		if !scanner.Scan() {
			return
		}
		parts := strings.Fields(scanner.Text())
		if len(parts) == 0 {
			continue
		}
		cmd, args := strings.ToLower(parts[0]), parts[1:]

		switch cmd {
		case "help":
			printlnFn(helpText)

		case "capture", "c":
			if len(args) != 1 {
				printlnFn("Usage: capture <file>")
				continue
			}
			_ = a.Capture(ctx, args[0])

		case "save":
			_ = a.Save(ctx)

		case "discard":
			_ = a.Discard(ctx)

		case "retake":
			_ = a.Retake(ctx)

		case "abandon":
			_ = a.Abandon(ctx)

		case "flash":
			_ = a.Flash(ctx)

		case "facing":
			_ = a.Facing(ctx)

		case "status":
			_ = a.Status(ctx)

		case "recent":
			_ = a.Recent(ctx)

		case "l", "list":
			_ = a.List(ctx)

		case "week":
			_ = a.Week(ctx)

		case "month":
			_ = a.Month(ctx)

		case "range":
			if len(args) != 2 {
				printlnFn("Usage: range <from> <to>")
				continue
			}
			_ = a.Range(ctx, args[0], args[1])

		case "show":
			if len(args) != 1 {
				printlnFn("Usage: show <id>")
				continue
			}
			_ = a.Show(ctx, args[0])

		case "delete":
			if len(args) != 1 {
				printlnFn("Usage: delete <id>")
				continue
			}
			_ = a.Delete(ctx, args[0])

		case "import":
			if len(args) != 1 {
				printlnFn("Usage: import <file>")
				continue
			}
			_ = a.Import(ctx, args[0])

		case "export":
			if len(args) != 1 {
				printlnFn("Usage: export <file>")
				continue
			}
			_ = a.Export(ctx, args[0])

		case "exit", "quit":
			printlnFn("Bye!")
			return

		default:
			printlnFn("Unknown command:", cmd)
		}
	}
}
