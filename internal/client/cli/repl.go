package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
)

// printlnFn is a test seam for user-facing output. In tests, replace it with a stub.
var printlnFn = fmt.Println

// execIface defines the command surface the REPL dispatches to. The real App
// type satisfies it; tests can provide a lightweight stub.
type execIface interface {
	isLoggedIn() bool
	Register(ctx context.Context) error
	Login(ctx context.Context) error
	Logout(ctx context.Context) error
	Profile(ctx context.Context, handle string) error
	About(ctx context.Context) error
	Organization(ctx context.Context) error
	Interests(ctx context.Context) error
	Picture(ctx context.Context) error
	Docs(ctx context.Context) error
	Next(ctx context.Context) error
	Prev(ctx context.Context) error
	AddDocument(ctx context.Context) error
	EditDocument(ctx context.Context) error
	RemoveDocument(ctx context.Context) error
	SearchMode(ctx context.Context, mode string) error
	Find(ctx context.Context, query string) error
	ShowMode(ctx context.Context) error
}

const (
	helpAnonymous = "Available commands: register, login, profile <handle>, docs, next, prev, " +
		"search <users|projects>, find <query>, mode, exit"
	helpLoggedIn = "Available commands: profile <handle>, about, org, interests, picture, docs, next, prev, " +
		"adddoc, editdoc, rmdoc, search <users|projects>, find <query>, mode, logout, exit"
)

// runREPL reads commands line by line from r and dispatches them to a. The
// loop exits on EOF or when the user types "exit" or "quit".
//
// Errors returned by command handlers are ignored here; handlers report
// their own failures to the user.
func runREPL(ctx context.Context, a execIface, statusFn func() string, r *bufio.Reader) {
	for {
		printlnFn(fmt.Sprintf("resdex %s> ", statusFn()))

		line, err := r.ReadString('\n')
		if err != nil && (!errors.Is(err, io.EOF) || line == "") {
			return
		}

		parts := strings.Fields(line)
		if len(parts) == 0 {
			continue
		}
		cmd, args := parts[0], parts[1:]

		switch cmd {
		case "help":
			if a.isLoggedIn() {
				printlnFn(helpLoggedIn)
			} else {
				printlnFn(helpAnonymous)
			}

		case "register":
			_ = a.Register(ctx)

		case "login":
			_ = a.Login(ctx)

		case "logout":
			_ = a.Logout(ctx)

		case "profile":
			if len(args) != 1 {
				printlnFn("Usage: profile <handle>")
				continue
			}
			_ = a.Profile(ctx, args[0])

		case "about":
			_ = a.About(ctx)

		case "org":
			_ = a.Organization(ctx)

		case "interests":
			_ = a.Interests(ctx)

		case "picture":
			_ = a.Picture(ctx)

		case "docs":
			_ = a.Docs(ctx)

		case "next":
			_ = a.Next(ctx)

		case "prev":
			_ = a.Prev(ctx)

		case "adddoc":
			_ = a.AddDocument(ctx)

		case "editdoc":
			_ = a.EditDocument(ctx)

		case "rmdoc":
			_ = a.RemoveDocument(ctx)

		case "search":
			if len(args) != 1 {
				printlnFn("Usage: search <users|projects>")
				continue
			}
			_ = a.SearchMode(ctx, args[0])

		case "find":
			_ = a.Find(ctx, strings.Join(args, " "))

		case "mode":
			_ = a.ShowMode(ctx)

		case "exit", "quit":
			printlnFn("Bye!")
			return

		default:
			printlnFn("Unknown command:", cmd)
		}

		if err != nil {
			return
		}
	}
}
