// Package console is the terminal front end of the offline-first client.
// Each invocation runs one subcommand against the local stores; writes are
// pushed to the server in the background by the reconciler.
package console

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"sort"
	"strings"
	"sync"
	"time"

	"spendsync/internal/apiclient"
	"spendsync/internal/ledger"
	"spendsync/internal/netstatus"
)

// ErrUsage is returned for unknown subcommands and malformed arguments.
var ErrUsage = errors.New("usage error")

// Deps is everything a console session needs. Remote may be nil, in which
// case the remote subcommand is unavailable.
type Deps struct {
	Expenses   *ledger.ExpenseStore
	Budgets    *ledger.BudgetBook
	Alerts     *ledger.BudgetAlerts
	Session    *ledger.Session
	Reconciler *ledger.Reconciler
	Watcher    *netstatus.Watcher
	Remote     *apiclient.Client
	In         io.Reader
	Out        io.Writer
}

type App struct {
	Deps
	reader   *bufio.Reader
	password func(w io.Writer) (string, error)
	now      func() time.Time
	commands map[string]command

	outMu sync.Mutex
}

type command struct {
	usage string
	run   func(ctx context.Context, args []string) error
}

func New(d Deps) *App {
	a := &App{
		Deps:   d,
		reader: bufio.NewReader(d.In),
		now:    time.Now,
	}
	a.password = a.promptPassword
	a.commands = map[string]command{
		"add":        {"add [-category C] [-method M] [-date YYYY-MM-DD] AMOUNT", a.add},
		"list":       {"list [-month YYYY-MM] [-category C]", a.list},
		"day":        {"day [-date YYYY-MM-DD]", a.day},
		"month":      {"month [-month YYYY-MM]", a.month},
		"categories": {"categories [-month YYYY-MM] [-suggested]", a.categories},
		"update":     {"update ID AMOUNT", a.update},
		"delete":     {"delete ID", a.delete},
		"budget":     {"budget set|list|delete|status ...", a.budget},
		"sync":       {"sync", a.sync},
		"flush":      {"flush", a.flush},
		"status":     {"status", a.status},
		"remote":     {"remote day|month [DATE|MONTH]", a.remote},
		"login":      {"login -email E", a.login},
		"register":   {"register -email E -name N", a.register},
		"logout":     {"logout", a.logout},
		"whoami":     {"whoami", a.whoami},
		"watch":      {"watch", a.watch},
	}
	return a
}

// Run dispatches args[0] to its subcommand.
func (a *App) Run(ctx context.Context, args []string) error {
	if len(args) == 0 || args[0] == "help" || args[0] == "-h" || args[0] == "--help" {
		a.Usage()
		if len(args) == 0 {
			return ErrUsage
		}
		return nil
	}
	cmd, ok := a.commands[args[0]]
	if !ok {
		return fmt.Errorf("%w: unknown command %q", ErrUsage, args[0])
	}
	return cmd.run(ctx, args[1:])
}

// Usage prints the subcommand list.
func (a *App) Usage() {
	names := make([]string, 0, len(a.commands))
	for name := range a.commands {
		names = append(names, name)
	}
	sort.Strings(names)

	fmt.Fprintln(a.Out, "usage: spendsync <command> [flags] [args]")
	fmt.Fprintln(a.Out)
	for _, name := range names {
		fmt.Fprintf(a.Out, "  %s\n", a.commands[name].usage)
	}
}

func (a *App) flags(name string) *flag.FlagSet {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(a.Out)
	return fs
}

// parse wraps flag errors in ErrUsage and checks the positional count.
func parse(fs *flag.FlagSet, args []string, positional int) error {
	if err := fs.Parse(args); err != nil {
		return fmt.Errorf("%w: %v", ErrUsage, err)
	}
	if fs.NArg() != positional {
		return fmt.Errorf("%w: %s expects %d argument(s), got %d", ErrUsage, fs.Name(), positional, fs.NArg())
	}
	return nil
}

func (a *App) prompt(label string) (string, error) {
	fmt.Fprintf(a.Out, "%s: ", label)
	line, err := a.reader.ReadString('\n')
	if err != nil && !(errors.Is(err, io.EOF) && line != "") {
		return "", err
	}
	return strings.TrimSpace(line), nil
}
