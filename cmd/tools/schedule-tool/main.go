// cmd/tools/schedule-tool/main.go
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"time"

	"xtenda-workers/internal/applications"
	"xtenda-workers/internal/common/config"
	"xtenda-workers/internal/common/database"
	"xtenda-workers/internal/common/logger"
	"xtenda-workers/internal/repayment"
	"xtenda-workers/internal/schedule"
	"xtenda-workers/pkg/schedulefile"
)

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

func run(args []string, stdout, stderr io.Writer) int {
	if len(args) < 1 {
		help(stderr)
		return 1
	}

	var err error
	switch args[0] {
	case "validate":
		err = validateCmd(args[1:], stdout)
	case "quote":
		err = quoteCmd(args[1:], stdout)
	case "export-default":
		err = exportDefaultCmd(args[1:], stdout)
	case "import":
		err = importCmd(args[1:], stdout)
	case "help", "-h", "--help":
		help(stdout)
		return 0
	default:
		fmt.Fprintf(stderr, "unknown command %q\n\n", args[0])
		help(stderr)
		return 1
	}

	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}
	return 0
}

func validateCmd(args []string, out io.Writer) error {
	fs := flag.NewFlagSet("validate", flag.ContinueOnError)
	file := fs.String("file", "", "Path to schedule JSON file")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *file == "" {
		return fmt.Errorf("-file is required")
	}

	f, err := schedulefile.Load(*file)
	if err != nil {
		return err
	}
	if err := f.Validate(); err != nil {
		return err
	}

	fmt.Fprintf(out, "Schedule valid: %d rows, tenures %v\n", len(f.Entries), f.EffectiveTenures())
	for _, w := range f.Warnings() {
		fmt.Fprintf(out, "Warning: %d month installment drops from %s at %s to %s at %s\n",
			w.TenureMonths,
			applications.FormatKwacha(w.LowerValue), applications.FormatKwacha(w.LowerAmount),
			applications.FormatKwacha(w.UpperValue), applications.FormatKwacha(w.UpperAmount))
	}
	return nil
}

func quoteCmd(args []string, out io.Writer) error {
	fs := flag.NewFlagSet("quote", flag.ContinueOnError)
	file := fs.String("file", "", "Schedule JSON file (default: built-in schedule)")
	amount := fs.Float64("amount", 2500, "Loan amount in Kwacha")
	tenure := fs.Int("tenure", 3, "Repayment period in months")
	if err := fs.Parse(args); err != nil {
		return err
	}

	table := repayment.DefaultSchedule()
	tenures := repayment.SupportedTenures
	if *file != "" {
		f, err := schedulefile.Load(*file)
		if err != nil {
			return err
		}
		table, tenures = f.Entries, f.EffectiveTenures()
	}
	if !repayment.IsSupportedTenure(*tenure, tenures) {
		return fmt.Errorf("unsupported tenure %d, supported: %v", *tenure, tenures)
	}

	q := repayment.ComputeLoanQuote(table, *amount, *tenure)
	if !q.Quotable() {
		fmt.Fprintf(out, "No quote for %s over %d months\n", applications.FormatKwacha(*amount), *tenure)
		return nil
	}
	fmt.Fprintf(out, "Amount:          %s\n", applications.FormatKwacha(q.Amount))
	fmt.Fprintf(out, "Tenure:          %d months\n", q.TenureMonths)
	fmt.Fprintf(out, "Monthly payment: %s\n", applications.FormatKwacha(q.MonthlyInstallment))
	fmt.Fprintf(out, "Total repayment: %s\n", applications.FormatKwacha(q.TotalRepayment))
	fmt.Fprintf(out, "Cost of credit:  %s\n", applications.FormatKwacha(q.TotalCost))
	return nil
}

func exportDefaultCmd(args []string, out io.Writer) error {
	fs := flag.NewFlagSet("export-default", flag.ContinueOnError)
	file := fs.String("file", "", "Destination JSON file")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *file == "" {
		return fmt.Errorf("-file is required")
	}

	f := schedulefile.New(repayment.DefaultSchedule(), repayment.SupportedTenures, time.Now())
	if err := schedulefile.Write(*file, f); err != nil {
		return fmt.Errorf("write %s: %w", *file, err)
	}
	fmt.Fprintf(out, "Wrote %d rows to %s\n", len(f.Entries), *file)
	return nil
}

func importCmd(args []string, out io.Writer) error {
	fs := flag.NewFlagSet("import", flag.ContinueOnError)
	file := fs.String("file", "", "Schedule JSON file to store")
	by := fs.String("by", "", "Administrator recorded in the audit log")
	configPath := fs.String("config", "", "Config file (default: configs/config.yaml discovery)")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *file == "" || *by == "" {
		return fmt.Errorf("-file and -by are required")
	}

	f, err := schedulefile.Load(*file)
	if err != nil {
		return err
	}
	if err := f.Validate(); err != nil {
		return err
	}

	var cfg *config.Config
	if *configPath != "" {
		cfg, err = config.LoadFromFile(*configPath)
	} else {
		cfg, err = config.Load()
	}
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	pg, err := database.NewPostgres(cfg.Database.Postgres)
	if err != nil {
		return err
	}
	defer pg.Close()
	if err := pg.Ping(ctx); err != nil {
		return fmt.Errorf("postgres: %w", err)
	}

	rdb, err := database.NewRedis(cfg.Database.Redis)
	if err != nil {
		return err
	}
	defer rdb.Close()

	log := logger.NewStructured(cfg.Logging.Level, "console")
	repo := schedule.NewRepository(pg.DB, rdb.Client, schedule.Options{
		CacheKey: cfg.Loan.ScheduleCacheKey,
		CacheTTL: config.GetDuration(cfg.Loan.ScheduleCacheTTL),
		Tenures:  f.EffectiveTenures(),
	}, log)

	at, err := repo.Save(ctx, f.Entries, *by)
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "Imported %d rows at %s\n", len(f.Entries), at.Format(time.RFC3339))
	return nil
}

func help(w io.Writer) {
	fmt.Fprintln(w, "Usage: schedule-tool <command> [flags]")
	fmt.Fprintln(w, "")
	fmt.Fprintln(w, "Commands:")
	fmt.Fprintln(w, "  validate        -file <path>")
	fmt.Fprintln(w, "  quote           [-file <path>] -amount <kwacha> -tenure <months>")
	fmt.Fprintln(w, "  export-default  -file <path>")
	fmt.Fprintln(w, "  import          -file <path> -by <admin> [-config <path>]")
}
