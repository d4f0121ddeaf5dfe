package console

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"text/tabwriter"

	"golang.org/x/sync/errgroup"

	"spendsync/internal/core"
	"spendsync/internal/ledger"
)

const dateLayout = "2006-01-02"

func (a *App) add(ctx context.Context, args []string) error {
	fs := a.flags("add")
	category := fs.String("category", "", "expense category")
	method := fs.String("method", "", "payment method (default Cash)")
	date := fs.String("date", "", "expense date, YYYY-MM-DD (default today)")
	if err := parse(fs, args, 1); err != nil {
		return err
	}

	amount, err := core.ParseAmount(fs.Arg(0))
	if err != nil {
		return err
	}
	e := core.Expense{Amount: amount, Category: strings.TrimSpace(*category), PaymentMethod: *method}
	if *date != "" {
		if e.Date, err = core.ParseDay(*date); err != nil {
			return err
		}
	}

	e, err = a.Expenses.Create(ctx, e)
	if err != nil {
		return err
	}
	fmt.Fprintf(a.Out, "Added %s %s on %s (%s)\n", e.Amount, e.Category, e.Date.Format(dateLayout), e.ID)

	if a.Alerts != nil {
		a.Alerts.AfterExpense(ctx, e)
	}
	return nil
}

func (a *App) list(ctx context.Context, args []string) error {
	fs := a.flags("list")
	month := fs.String("month", "", "only expenses in YYYY-MM")
	category := fs.String("category", "", "only expenses in this category")
	if err := parse(fs, args, 0); err != nil {
		return err
	}

	expenses := a.Expenses.List(ctx)
	if *month != "" {
		if _, _, err := core.ParseMonth(*month); err != nil {
			return err
		}
		expenses = core.FilterMonth(expenses, *month)
	}
	if *category != "" {
		expenses = core.FilterCategory(expenses, *category)
	}
	a.printExpenses(expenses)
	fmt.Fprintf(a.Out, "Total: %s\n", core.Sum(expenses))
	return nil
}

func (a *App) day(ctx context.Context, args []string) error {
	fs := a.flags("day")
	date := fs.String("date", "", "day to summarise, YYYY-MM-DD (default today)")
	if err := parse(fs, args, 0); err != nil {
		return err
	}

	d := a.now()
	if *date != "" {
		var err error
		if d, err = core.ParseDay(*date); err != nil {
			return err
		}
	}
	sum := core.Summarize(a.Expenses.List(ctx), d.Format(dateLayout), d)
	a.printDaily(sum)
	return nil
}

func (a *App) month(ctx context.Context, args []string) error {
	fs := a.flags("month")
	month := fs.String("month", "", "month to summarise, YYYY-MM (default current)")
	if err := parse(fs, args, 0); err != nil {
		return err
	}

	m, err := a.monthOrCurrent(*month)
	if err != nil {
		return err
	}
	a.printMonthly(core.SummarizeMonth(a.Expenses.List(ctx), m))
	return nil
}

func (a *App) categories(ctx context.Context, args []string) error {
	fs := a.flags("categories")
	month := fs.String("month", "", "month to break down, YYYY-MM (default current)")
	suggested := fs.Bool("suggested", false, "print the suggested categories and payment methods")
	if err := parse(fs, args, 0); err != nil {
		return err
	}

	if *suggested {
		fmt.Fprintf(a.Out, "Categories: %s\n", strings.Join(core.SuggestedCategories, ", "))
		fmt.Fprintf(a.Out, "Payment methods: %s\n", strings.Join(core.PaymentMethods, ", "))
		return nil
	}

	m, err := a.monthOrCurrent(*month)
	if err != nil {
		return err
	}
	tw := tabwriter.NewWriter(a.Out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "CATEGORY\tAMOUNT")
	for _, c := range core.ByCategory(core.FilterMonth(a.Expenses.List(ctx), m)) {
		fmt.Fprintf(tw, "%s\t%s\n", c.Name, c.Amount)
	}
	return tw.Flush()
}

func (a *App) update(ctx context.Context, args []string) error {
	fs := a.flags("update")
	if err := parse(fs, args, 2); err != nil {
		return err
	}

	id := fs.Arg(0)
	if _, ok := a.Expenses.Get(ctx, id); !ok {
		return fmt.Errorf("expense %s: %w", id, core.ErrNotFound)
	}
	amount, err := core.ParseAmount(fs.Arg(1))
	if err != nil {
		return err
	}
	if err := a.Expenses.Update(ctx, id, amount); err != nil {
		return err
	}
	fmt.Fprintf(a.Out, "Updated %s to %s\n", id, amount)
	return nil
}

func (a *App) delete(ctx context.Context, args []string) error {
	fs := a.flags("delete")
	if err := parse(fs, args, 1); err != nil {
		return err
	}
	if err := a.Expenses.Delete(ctx, fs.Arg(0)); err != nil {
		return err
	}
	fmt.Fprintf(a.Out, "Deleted %s\n", fs.Arg(0))
	return nil
}

func (a *App) budget(ctx context.Context, args []string) error {
	if len(args) == 0 {
		return fmt.Errorf("%w: budget needs one of set, list, delete, status", ErrUsage)
	}
	switch args[0] {
	case "set":
		return a.budgetSet(ctx, args[1:])
	case "list":
		return a.budgetList(ctx, args[1:])
	case "delete":
		return a.budgetDelete(ctx, args[1:])
	case "status":
		return a.budgetStatus(ctx, args[1:])
	default:
		return fmt.Errorf("%w: unknown budget command %q", ErrUsage, args[0])
	}
}

func (a *App) budgetSet(ctx context.Context, args []string) error {
	fs := a.flags("budget set")
	month := fs.String("month", "", "YYYY-MM (default current)")
	if err := parse(fs, args, 2); err != nil {
		return err
	}

	amount, err := core.ParseAmount(fs.Arg(1))
	if err != nil {
		return err
	}
	bud, err := a.Budgets.Save(ctx, core.Budget{Category: fs.Arg(0), Amount: amount, Month: *month})
	if err != nil {
		return err
	}
	fmt.Fprintf(a.Out, "Budget for %s in %s set to %s\n", bud.Category, bud.Month, bud.Amount)
	return nil
}

func (a *App) budgetList(ctx context.Context, args []string) error {
	fs := a.flags("budget list")
	month := fs.String("month", "", "only budgets for YYYY-MM")
	if err := parse(fs, args, 0); err != nil {
		return err
	}

	budgets := a.Budgets.List(ctx)
	if *month != "" {
		budgets = a.Budgets.ForMonth(ctx, *month)
	}
	tw := tabwriter.NewWriter(a.Out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tMONTH\tCATEGORY\tAMOUNT")
	for _, b := range budgets {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", b.ID, b.Month, b.Category, b.Amount)
	}
	return tw.Flush()
}

func (a *App) budgetDelete(ctx context.Context, args []string) error {
	fs := a.flags("budget delete")
	if err := parse(fs, args, 1); err != nil {
		return err
	}
	if err := a.Budgets.Delete(ctx, fs.Arg(0)); err != nil {
		return err
	}
	fmt.Fprintf(a.Out, "Deleted budget %s\n", fs.Arg(0))
	return nil
}

func (a *App) budgetStatus(ctx context.Context, args []string) error {
	fs := a.flags("budget status")
	month := fs.String("month", "", "YYYY-MM (default current)")
	if err := parse(fs, args, 0); err != nil {
		return err
	}

	m, err := a.monthOrCurrent(*month)
	if err != nil {
		return err
	}
	tw := tabwriter.NewWriter(a.Out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "CATEGORY\tBUDGET\tSPENT\tREMAINING\tUSED")
	for _, b := range a.Budgets.ForMonth(ctx, m) {
		var st ledger.BudgetStatus
		if b.IsTotal() {
			st = a.Budgets.TotalStatus(ctx, m)
		} else {
			st = a.Budgets.Status(ctx, b.Category, m)
		}
		flag := ""
		if st.IsExceeded {
			flag = " !"
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%.0f%%%s\n",
			b.Category, b.Amount, st.Spending, st.Remaining, st.PercentageUsed, flag)
	}
	return tw.Flush()
}

func (a *App) sync(ctx context.Context, args []string) error {
	if err := parse(a.flags("sync"), args, 0); err != nil {
		return err
	}
	if err := a.Reconciler.PushAll(ctx); err != nil {
		if errors.Is(err, ledger.ErrOffline) {
			fmt.Fprintln(a.Out, "Offline: changes stay on this device until the server is reachable")
			return nil
		}
		return err
	}
	fmt.Fprintln(a.Out, a.describe(a.Reconciler.LastAttempt()))
	return nil
}

func (a *App) flush(ctx context.Context, args []string) error {
	if err := parse(a.flags("flush"), args, 0); err != nil {
		return err
	}
	if err := a.Reconciler.FlushPending(ctx); err != nil {
		if errors.Is(err, ledger.ErrOffline) {
			fmt.Fprintf(a.Out, "Offline: %d pending expense(s) kept\n", len(a.Reconciler.Pending(ctx)))
			return nil
		}
		return err
	}
	fmt.Fprintln(a.Out, a.describe(a.Reconciler.LastAttempt()))
	return nil
}

func (a *App) status(ctx context.Context, args []string) error {
	if err := parse(a.flags("status"), args, 0); err != nil {
		return err
	}

	online := "offline"
	if a.Watcher != nil && a.Watcher.Online(ctx) {
		online = "online"
	}
	user := "not logged in"
	if u, ok := a.Session.CurrentUser(ctx); ok {
		user = fmt.Sprintf("%s <%s>", u.Name, u.Email)
	}

	tw := tabwriter.NewWriter(a.Out, 0, 4, 2, ' ', 0)
	fmt.Fprintf(tw, "Server:\t%s\n", online)
	fmt.Fprintf(tw, "User:\t%s\n", user)
	fmt.Fprintf(tw, "Expenses:\t%d\n", len(a.Expenses.List(ctx)))
	fmt.Fprintf(tw, "Pending:\t%d\n", len(a.Reconciler.Pending(ctx)))
	fmt.Fprintf(tw, "Last sync:\t%s\n", a.describe(a.Reconciler.LastAttempt()))
	return tw.Flush()
}

func (a *App) remote(ctx context.Context, args []string) error {
	if a.Remote == nil {
		return errors.New("remote summaries need a configured server")
	}
	if len(args) == 0 || len(args) > 2 {
		return fmt.Errorf("%w: remote day|month [DATE|MONTH]", ErrUsage)
	}
	arg := ""
	if len(args) == 2 {
		arg = args[1]
	}

	switch args[0] {
	case "day":
		sum, err := a.Remote.Daily(ctx, arg)
		if err != nil {
			return err
		}
		a.printDaily(sum)
	case "month":
		sum, err := a.Remote.Monthly(ctx, arg)
		if err != nil {
			return err
		}
		a.printMonthly(sum)
	default:
		return fmt.Errorf("%w: unknown remote summary %q", ErrUsage, args[0])
	}
	return nil
}

func (a *App) login(ctx context.Context, args []string) error {
	fs := a.flags("login")
	email := fs.String("email", "", "account email")
	if err := parse(fs, args, 0); err != nil {
		return err
	}
	if *email == "" {
		var err error
		if *email, err = a.prompt("Email"); err != nil {
			return err
		}
	}
	pw, err := a.password(a.Out)
	if err != nil {
		return err
	}

	res, err := a.Session.Login(ctx, *email, pw)
	if err != nil {
		return err
	}
	a.printAuth("Logged in", res)
	return nil
}

func (a *App) register(ctx context.Context, args []string) error {
	fs := a.flags("register")
	email := fs.String("email", "", "account email")
	name := fs.String("name", "", "display name")
	if err := parse(fs, args, 0); err != nil {
		return err
	}
	var err error
	if *email == "" {
		if *email, err = a.prompt("Email"); err != nil {
			return err
		}
	}
	if *name == "" {
		if *name, err = a.prompt("Name"); err != nil {
			return err
		}
	}
	pw, err := a.password(a.Out)
	if err != nil {
		return err
	}

	res, err := a.Session.Register(ctx, *email, pw, *name)
	if err != nil {
		return err
	}
	a.printAuth("Registered", res)
	return nil
}

func (a *App) logout(ctx context.Context, args []string) error {
	if err := parse(a.flags("logout"), args, 0); err != nil {
		return err
	}
	if err := a.Session.Logout(ctx); err != nil {
		return err
	}
	fmt.Fprintln(a.Out, "Logged out")
	return nil
}

func (a *App) whoami(ctx context.Context, args []string) error {
	if err := parse(a.flags("whoami"), args, 0); err != nil {
		return err
	}
	u, ok := a.Session.CurrentUser(ctx)
	if !ok {
		fmt.Fprintln(a.Out, "Not logged in")
		return nil
	}
	fmt.Fprintf(a.Out, "%s <%s> (id %s)\n", u.Name, u.Email, u.ID)
	return nil
}

// watch keeps the process alive, probing the server and flushing the
// pending queue whenever connectivity returns, until ctx is cancelled.
func (a *App) watch(ctx context.Context, args []string) error {
	if err := parse(a.flags("watch"), args, 0); err != nil {
		return err
	}
	if a.Watcher == nil {
		return errors.New("watch needs a connectivity watcher")
	}

	a.Watcher.OnChange(func(online bool) {
		if online {
			a.notice("Server reachable")
			return
		}
		a.notice("Server unreachable, working offline")
	})
	if err := a.Reconciler.Start(ctx, a.Watcher.Restored()); err != nil {
		return err
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		a.Watcher.Run(gctx)
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		return a.Reconciler.Stop(context.WithoutCancel(gctx))
	})
	return g.Wait()
}

// ReportFlush announces a completed background flush. Pass it to
// ledger.WithFlushCallback.
func (a *App) ReportFlush() {
	a.notice("Pending expenses synced")
}

// notice prints a line from a background goroutine.
func (a *App) notice(msg string) {
	a.outMu.Lock()
	defer a.outMu.Unlock()
	fmt.Fprintln(a.Out, msg)
}

func (a *App) monthOrCurrent(m string) (string, error) {
	if m == "" {
		return core.MonthKey(a.now()), nil
	}
	if _, _, err := core.ParseMonth(m); err != nil {
		return "", err
	}
	return m, nil
}

func (a *App) describe(at ledger.Attempt) string {
	if at.At.IsZero() {
		return "never"
	}
	s := fmt.Sprintf("%s %s (%d expenses) at %s", at.Operation, at.State, at.Count, at.At.Format("2006-01-02 15:04:05"))
	if at.Err != nil {
		s += ": " + at.Err.Error()
	}
	return s
}

func (a *App) printAuth(verb string, res ledger.AuthResult) {
	suffix := ""
	if res.Offline {
		suffix = " (offline session)"
	}
	fmt.Fprintf(a.Out, "%s as %s <%s>%s\n", verb, res.User.Name, res.User.Email, suffix)
}

func (a *App) printExpenses(expenses []core.Expense) {
	tw := tabwriter.NewWriter(a.Out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tDATE\tCATEGORY\tMETHOD\tAMOUNT")
	for _, e := range expenses {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n", e.ID, e.Date.Format(dateLayout), e.Category, e.PaymentMethod, e.Amount)
	}
	tw.Flush()
}

func (a *App) printDaily(sum core.DailySummary) {
	fmt.Fprintf(a.Out, "%s: %s\n", sum.Date, sum.Total)
	if len(sum.Expenses) > 0 {
		a.printExpenses(sum.Expenses)
	}
}

func (a *App) printMonthly(sum core.MonthlySummary) {
	fmt.Fprintf(a.Out, "%s: %s\n", sum.Month, sum.Total)
	tw := tabwriter.NewWriter(a.Out, 0, 4, 2, ' ', 0)
	for _, c := range core.ByCategory(sum.Expenses) {
		fmt.Fprintf(tw, "  %s\t%s\n", c.Name, c.Amount)
	}
	tw.Flush()
}
