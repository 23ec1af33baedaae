package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/geocoder89/wellnesshub/internal/editor"
)

const commandHelp = `commands:
  login <email> <password>     register <email> <password>     logout
  dashboard                    mine                            new
  edit <id>                    title <text>                    tags <a, b, c>
  url <json url>               save                            publish
  cancel                       dismiss                         show
  help                         quit
`

type repl struct {
	in  io.Reader
	out io.Writer

	// auto-save results arrive on a timer goroutine; mu keeps a render or a
	// notice together, outMu guards every single write to out.
	mu    sync.Mutex
	outMu sync.Mutex
	ed    *editor.Editor
}

func newREPL(in io.Reader, out io.Writer) *repl {
	return &repl{in: in, out: out}
}

func (r *repl) asyncUpdate() {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.ed == nil {
		return
	}
	if msg := r.ed.SuccessNotice(); msg != "" {
		r.print("\n[ok] %s\n", msg)
	}
	if msg := r.ed.ErrorNotice(); msg != "" {
		r.print("\n[error] %s\n", msg)
	}
}

func (r *repl) run(ctx context.Context, ed *editor.Editor) error {
	r.mu.Lock()
	r.ed = ed
	r.mu.Unlock()

	r.render()

	scanner := bufio.NewScanner(r.in)
	for {
		r.prompt()

		if !scanner.Scan() {
			return scanner.Err()
		}

		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		quit := r.exec(ctx, line)
		if quit {
			return nil
		}

		if ctx.Err() != nil {
			return nil
		}
	}
}

// exec runs one command line and reports whether the user asked to quit.
func (r *repl) exec(ctx context.Context, line string) bool {
	cmd, arg, _ := strings.Cut(line, " ")
	arg = strings.TrimSpace(arg)
	ed := r.ed

	var err error

	switch cmd {
	case "quit", "exit":
		return true
	case "help":
		r.print(commandHelp)
		return false
	case "login", "register":
		email, password, ok := strings.Cut(arg, " ")
		if !ok {
			r.print("usage: %s <email> <password>\n", cmd)
			return false
		}
		if cmd == "login" {
			err = ed.Login(ctx, email, strings.TrimSpace(password))
		} else {
			err = ed.Register(ctx, email, strings.TrimSpace(password))
		}
	case "logout":
		ed.Logout()
	case "dashboard":
		err = ed.Navigate(ctx, editor.PageDashboard)
	case "mine":
		err = ed.Navigate(ctx, editor.PageMySessions)
	case "new":
		err = ed.NewSession()
	case "edit":
		err = ed.EditByID(ctx, arg)
	case "title":
		ed.SetTitle(arg)
	case "tags":
		ed.SetTags(arg)
	case "url":
		ed.SetJSONURL(arg)
	case "save":
		err = ed.SaveDraft(ctx)
	case "publish":
		err = ed.Publish(ctx)
	case "cancel":
		ed.Cancel()
	case "dismiss":
		ed.DismissError()
	case "show":
	default:
		r.print("unknown command %q, try help\n", cmd)
		return false
	}

	if errors.Is(err, editor.ErrNotLoggedIn) {
		r.print("log in first\n")
	}

	r.render()
	return false
}

func (r *repl) render() {
	r.mu.Lock()
	defer r.mu.Unlock()

	ed := r.ed

	if creds, ok := ed.Credentials(); ok {
		r.print("Welcome, %s\n", creds.User.Email)
	}

	switch ed.Page() {
	case editor.PageAuth:
		r.print("== Login / Register ==\n")

	case editor.PageDashboard:
		r.print("== Published Sessions ==\n")
		items := ed.Published()
		if len(items) == 0 {
			r.print("No published sessions yet.\n")
		}
		for _, s := range items {
			r.print("- %s [%s] by %s, %s\n", s.Title, strings.Join(s.Tags, ", "), s.OwnerEmail, s.CreatedAt.Format("2006-01-02"))
			if s.JSONURL != "" {
				r.print("  %s\n", s.JSONURL)
			}
		}

	case editor.PageMySessions:
		r.print("== My Sessions ==\n")
		items := ed.Mine()
		if len(items) == 0 {
			r.print("You haven't created any sessions yet.\n")
		}
		for _, s := range items {
			r.print("- %s  %s (%s) [%s] updated %s\n", s.ID, s.Title, s.Status, strings.Join(s.Tags, ", "), s.UpdatedAt.Format("2006-01-02"))
		}

	case editor.PageEditor:
		d := ed.Draft()
		id := d.ID
		if id == "" {
			id = "(new)"
		}
		r.print("== Session Editor %s ==\n", id)
		r.print("title: %s\ntags:  %s\nurl:   %s\n", d.Title, d.Tags, d.JSONURL)
		if ed.AutoSavePending() {
			r.print("(auto-save pending)\n")
		}
	}

	if msg := ed.SuccessNotice(); msg != "" {
		r.print("[ok] %s\n", msg)
	}
	if msg := ed.ErrorNotice(); msg != "" {
		r.print("[error] %s  (dismiss to clear)\n", msg)
	}
}

func (r *repl) prompt() {
	r.print("> ")
}

func (r *repl) print(format string, args ...any) {
	r.outMu.Lock()
	defer r.outMu.Unlock()

	fmt.Fprintf(r.out, format, args...)
}
