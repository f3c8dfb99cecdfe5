// capicheck lists the functions of a C header that a source tree never uses
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/fatih/color"
	"github.com/go-pkgz/lgr"
	"github.com/jessevdk/go-flags"
	"github.com/olekukonko/tablewriter"

	"github.com/vfunc-dev/duckdb-vfunc-go/internal/capi"
)

type options struct {
	Header     string `long:"header" env:"CAPICHECK_HEADER" description:"C header to read declarations from" required:"true"`
	Src        string `long:"src" env:"CAPICHECK_SRC" description:"glob of source files, ~ and ** allowed" required:"true"`
	Prefix     string `long:"prefix" env:"CAPICHECK_PREFIX" description:"only functions with this prefix" default:"duckdb_"`
	Concurrent int    `short:"c" long:"concurrent" env:"CAPICHECK_CONCURRENT" description:"files read concurrently" default:"4"`
	Table      bool   `long:"table" description:"print a table with every function and its count"`
	Dbg        bool   `long:"dbg" description:"debug mode"`
}

func main() {
	opts, err := parseOptions(os.Args[1:])
	if err != nil {
		if isHelp(err) {
			os.Exit(0)
		}
		os.Exit(1)
	}
	setupLog(opts.Dbg)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx, opts, os.Stdout); err != nil {
		log.Printf("[ERROR] %v", err)
		fmt.Fprintf(os.Stderr, "failed, %v\n", err)
		os.Exit(1)
	}
}

func parseOptions(args []string) (options, error) {
	var opts options
	p := flags.NewParser(&opts, flags.PrintErrors|flags.PassDoubleDash|flags.HelpFlag)
	_, err := p.ParseArgs(args)
	return opts, err
}

func isHelp(err error) bool {
	var flagsErr *flags.Error
	return errors.As(err, &flagsErr) && flagsErr.Type == flags.ErrHelp
}

func run(ctx context.Context, opts options, out io.Writer) error {
	header, err := capi.Expand(opts.Header)
	if err != nil {
		return err
	}
	if len(header) != 1 {
		return fmt.Errorf("header %q matches %d files, need exactly one", opts.Header, len(header))
	}

	fh, err := os.Open(header[0]) // nolint
	if err != nil {
		return fmt.Errorf("can't open header: %w", err)
	}
	functions, err := capi.ParseHeader(fh, opts.Prefix)
	fh.Close() // nolint
	if err != nil {
		return err
	}
	log.Printf("[DEBUG] %d functions in %s", len(functions), header[0])

	files, err := capi.Expand(opts.Src)
	if err != nil {
		return err
	}

	report, scanErr := capi.Scan(ctx, functions, files, opts.Concurrent)
	if scanErr != nil && ctx.Err() != nil {
		return scanErr
	}
	if scanErr != nil {
		log.Printf("[WARN] some files were skipped: %v", scanErr)
	}

	fmt.Fprintf(out, "files: %d\n", report.Files)
	fmt.Fprintf(out, "functions: %d\n", len(report.Functions))

	if opts.Table {
		return printTable(out, report)
	}
	for _, fn := range report.Missing() {
		fmt.Fprintf(out, "%s not found\n", fn)
	}
	return nil
}

func printTable(out io.Writer, report capi.Report) error {
	table := tablewriter.NewWriter(out)
	table.Header("function", "lines")
	for _, fn := range report.Functions {
		count := fmt.Sprintf("%d", report.Counts[fn])
		if report.Counts[fn] == 0 {
			count = "not found"
		}
		if err := table.Append(fn, count); err != nil {
			return fmt.Errorf("can't add %s to table: %w", fn, err)
		}
	}
	return table.Render()
}

func setupLog(dbg bool) {
	logOpts := []lgr.Option{lgr.Out(io.Discard), lgr.Err(io.Discard)} // default to discard
	if dbg {
		logOpts = []lgr.Option{lgr.Debug, lgr.Msec, lgr.LevelBraces, lgr.Out(os.Stderr)}
	}

	colorizer := lgr.Mapper{
		ErrorFunc:  func(s string) string { return color.New(color.FgHiRed).Sprint(s) },
		WarnFunc:   func(s string) string { return color.New(color.FgRed).Sprint(s) },
		InfoFunc:   func(s string) string { return color.New(color.FgYellow).Sprint(s) },
		DebugFunc:  func(s string) string { return color.New(color.FgWhite).Sprint(s) },
		CallerFunc: func(s string) string { return color.New(color.FgBlue).Sprint(s) },
		TimeFunc:   func(s string) string { return color.New(color.FgCyan).Sprint(s) },
	}
	logOpts = append(logOpts, lgr.Map(colorizer))

	lgr.SetupStdLogger(logOpts...)
	lgr.Setup(logOpts...)
}
