// Command reportctl generates and inspects monthly expense reports from the
// shell, and can queue generation requests for report-worker.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	"expensereport/internal/cli"
	"expensereport/internal/config"
	"expensereport/internal/core"
	applog "expensereport/internal/log"
)

const usage = `usage: reportctl <command> [flags]

commands:
  generate -user <id> [-at YYYY-MM-DD]   aggregate a month and store its report
  list     -user <id> [-limit N]         show the most recent reports
  request  -user <id> [-at YYYY-MM-DD]   queue a generation request for report-worker
  usage    -user <id> -budget Cat=amount [-budget ...] [-at YYYY-MM-DD]
                                         compare a month's spending with category limits
`

// Exit codes
const (
	exitOK      = 0
	exitFailure = 1
	exitUsage   = 2
)

var errUsage = errors.New("usage")

type reportService interface {
	GenerateReportAt(ctx context.Context, userID string, ref time.Time) (core.MonthlyReport, error)
	ListRecentReports(ctx context.Context, userID string, limit int) ([]core.MonthlyReport, error)
	CategoryUsage(ctx context.Context, userID string, ref time.Time, limits []core.CategoryLimit) ([]core.CategoryUsage, error)
}

type requestPublisher interface {
	PublishReportRequest(ctx context.Context, userID string, ref time.Time) error
}

// app is what the commands run against; main wires the real backend.
type app struct {
	reports  reportService
	requests requestPublisher
	now      func() time.Time
	stdout   io.Writer
	stderr   io.Writer
	location *time.Location
}

func main() {
	cli.LoadEnvFile()

	cfg := config.Load()
	level, _ := applog.ParseLevel(cfg.LogLevel)
	logger := applog.New(applog.Config{Level: level, Component: applog.ComponentCLI, Output: os.Stderr})
	applog.SetDefault(logger)

	if len(os.Args) < 2 {
		fmt.Fprint(os.Stderr, usage)
		os.Exit(exitUsage)
	}
	if err := cfg.Validate(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(exitFailure)
	}

	ctx := context.Background()
	result := cli.InitBackend(ctx, logger, cfg)
	svc, _ := cli.NewReportService(cfg, result, logger)

	a := &app{
		reports:  svc,
		now:      time.Now,
		stdout:   os.Stdout,
		stderr:   os.Stderr,
		location: time.Local,
	}
	if result.AMQP != nil {
		a.requests = result.AMQP
	}

	code := a.run(ctx, os.Args[1:])
	if err := result.Cleanup(); err != nil {
		logger.WarnContext(ctx, "Cleanup failed", applog.FieldError, err)
	}
	os.Exit(code)
}

func (a *app) run(ctx context.Context, args []string) int {
	if len(args) == 0 {
		fmt.Fprint(a.stderr, usage)
		return exitUsage
	}

	var err error
	switch args[0] {
	case "generate":
		err = a.generate(ctx, args[1:])
	case "list":
		err = a.list(ctx, args[1:])
	case "request":
		err = a.request(ctx, args[1:])
	case "usage":
		err = a.usage(ctx, args[1:])
	case "help", "-h", "--help":
		fmt.Fprint(a.stdout, usage)
		return exitOK
	default:
		fmt.Fprintf(a.stderr, "unknown command %q\n\n%s", args[0], usage)
		return exitUsage
	}

	switch {
	case err == nil:
		return exitOK
	case errors.Is(err, errUsage), errors.Is(err, flag.ErrHelp):
		return exitUsage
	default:
		fmt.Fprintf(a.stderr, "reportctl %s: %v\n", args[0], err)
		return exitFailure
	}
}

func (a *app) generate(ctx context.Context, args []string) error {
	fs := a.flagSet("generate")
	user := fs.String("user", "", "user identity (required)")
	at := fs.String("at", "", "any date inside the month to report, YYYY-MM-DD (default: today)")
	if err := a.parse(fs, args, user); err != nil {
		return err
	}

	ref, err := a.reference(*at)
	if err != nil {
		return err
	}

	report, err := a.reports.GenerateReportAt(ctx, *user, ref)
	if err != nil {
		return err
	}

	a.printReports([]core.MonthlyReport{report})
	if report.TotalSpent.IsZero() && report.TopCategory == "" {
		fmt.Fprintf(a.stdout, "no expenses recorded for %s\n", report.Month)
	}
	return nil
}

func (a *app) list(ctx context.Context, args []string) error {
	fs := a.flagSet("list")
	user := fs.String("user", "", "user identity (required)")
	limit := fs.Int("limit", core.DefaultRecentReports, "number of reports to show")
	if err := a.parse(fs, args, user); err != nil {
		return err
	}

	reports, err := a.reports.ListRecentReports(ctx, *user, *limit)
	if err != nil {
		return err
	}
	if len(reports) == 0 {
		fmt.Fprintf(a.stdout, "no reports for %s\n", *user)
		return nil
	}
	a.printReports(reports)
	return nil
}

func (a *app) request(ctx context.Context, args []string) error {
	fs := a.flagSet("request")
	user := fs.String("user", "", "user identity (required)")
	at := fs.String("at", "", "any date inside the month to report, YYYY-MM-DD (default: when processed)")
	if err := a.parse(fs, args, user); err != nil {
		return err
	}
	if a.requests == nil {
		return errors.New("AMQP is not configured or unreachable (set AMQP_URL)")
	}

	var ref time.Time
	if *at != "" {
		var err error
		if ref, err = a.reference(*at); err != nil {
			return err
		}
	}

	if err := a.requests.PublishReportRequest(ctx, *user, ref); err != nil {
		return err
	}
	fmt.Fprintf(a.stdout, "queued report request for %s\n", *user)
	return nil
}

func (a *app) usage(ctx context.Context, args []string) error {
	fs := a.flagSet("usage")
	user := fs.String("user", "", "user identity (required)")
	at := fs.String("at", "", "any date inside the month to check, YYYY-MM-DD (default: today)")
	var limits limitFlags
	fs.Var(&limits, "budget", "category limit as Category=amount, repeatable")
	if err := a.parse(fs, args, user); err != nil {
		return err
	}
	if len(limits) == 0 {
		fmt.Fprintln(a.stderr, "usage: at least one -budget is required")
		return errUsage
	}

	ref, err := a.reference(*at)
	if err != nil {
		return err
	}

	rows, err := a.reports.CategoryUsage(ctx, *user, ref, limits)
	if err != nil {
		return err
	}

	tw := tabwriter.NewWriter(a.stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "CATEGORY\tSPENT\tLIMIT\tUSED\tSTATUS")
	for _, u := range rows {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s%%\t%s\n", u.Category, core.FormatAmount(u.Spent), core.FormatAmount(u.Limit), u.Percentage.StringFixed(0), u.Status)
	}
	return tw.Flush()
}

// limitFlags collects repeated -budget Category=amount flags.
type limitFlags []core.CategoryLimit

func (l *limitFlags) String() string {
	parts := make([]string, 0, len(*l))
	for _, c := range *l {
		parts = append(parts, c.Category+"="+c.Limit.String())
	}
	return strings.Join(parts, ",")
}

func (l *limitFlags) Set(v string) error {
	category, amount, ok := strings.Cut(v, "=")
	if !ok {
		return fmt.Errorf("want Category=amount, got %q", v)
	}
	limit, err := core.ParseAmount(amount)
	if err != nil {
		return fmt.Errorf("limit for %q: %w", category, err)
	}
	c := core.CategoryLimit{Category: strings.TrimSpace(category), Limit: limit}
	if err := c.Validate(); err != nil {
		return err
	}
	*l = append(*l, c)
	return nil
}

func (a *app) flagSet(name string) *flag.FlagSet {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(a.stderr)
	return fs
}

func (a *app) parse(fs *flag.FlagSet, args []string, user *string) error {
	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return err
		}
		return fmt.Errorf("%w: %w", errUsage, err)
	}
	if *user == "" {
		fmt.Fprintf(a.stderr, "%s: -user is required\n", fs.Name())
		fs.PrintDefaults()
		return errUsage
	}
	return nil
}

// reference turns an optional -at date into the instant used to pick the month.
func (a *app) reference(at string) (time.Time, error) {
	if at == "" {
		return a.now(), nil
	}
	loc := a.location
	if loc == nil {
		loc = time.Local
	}
	t, err := time.ParseInLocation("2006-01-02", at, loc)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid -at %q: want YYYY-MM-DD", at)
	}
	return t, nil
}

func (a *app) printReports(reports []core.MonthlyReport) {
	tw := tabwriter.NewWriter(a.stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tMONTH\tTOTAL\tTOP CATEGORY\tOVERBUDGET")
	for _, r := range reports {
		top := r.TopCategory
		if top == "" {
			top = "-"
		}
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%s\n", r.ID, r.Month, core.FormatAmount(r.TotalSpent), top, r.OverbudgetCategories)
	}
	tw.Flush()
}
