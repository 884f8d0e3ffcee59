package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/google/subcommands"
	"github.com/trogers1052/portfolio-valuation-service/internal/engine"
	"github.com/trogers1052/portfolio-valuation-service/internal/models"
	"github.com/trogers1052/portfolio-valuation-service/internal/portfolio"
)

// input is the offline snapshot a valuation runs over
type input struct {
	Transactions    []models.Transaction    `json:"transactions"`
	Prices          []models.PriceTick      `json:"prices"`
	Rates           []models.BenchmarkTick  `json:"rates"`
	Classifications []models.Classification `json:"classifications"`
}

func readInput(path string) (*input, error) {
	var r io.Reader = os.Stdin
	if path != "" && path != "-" {
		f, err := os.Open(path)
		if err != nil {
			return nil, fmt.Errorf("failed to open input: %w", err)
		}
		defer f.Close()
		r = f
	}

	var in input
	if err := json.NewDecoder(r).Decode(&in); err != nil {
		return nil, fmt.Errorf("failed to decode input: %w", err)
	}
	for i := range in.Transactions {
		in.Transactions[i] = portfolio.NormalizeTransaction(in.Transactions[i])
	}
	for i := range in.Prices {
		in.Prices[i].Ticker = strings.ToUpper(strings.TrimSpace(in.Prices[i].Ticker))
	}
	return &in, nil
}

func (in *input) lookup() engine.StaticClassifications {
	lookup := make(engine.StaticClassifications, len(in.Classifications))
	for _, c := range in.Classifications {
		c.Ticker = strings.ToUpper(strings.TrimSpace(c.Ticker))
		c.Known = true
		lookup[c.Ticker] = c
	}
	return lookup
}

// common holds the flags shared by every valuation command
type common struct {
	in       string
	today    string
	maxDays  int
	staleFor int
	out      io.Writer
}

func (c *common) setFlags(f *flag.FlagSet) {
	f.StringVar(&c.in, "in", "-", "JSON input file, - for stdin")
	f.StringVar(&c.today, "today", "", "valuation date YYYY-MM-DD (default: current date)")
	f.IntVar(&c.maxDays, "max-days", 3650, "cap the history to the trailing N days, 0 for no cap")
	f.IntVar(&c.staleFor, "stale-days", 3, "warn when a series lags the latest price by more than N days")
}

func (c *common) engine() (*engine.Engine, error) {
	opts := []engine.Option{
		engine.WithMaxHistoryDays(c.maxDays),
		engine.WithStaleAfterDays(c.staleFor),
	}
	if c.today != "" {
		today, err := time.Parse("2006-01-02", c.today)
		if err != nil {
			return nil, fmt.Errorf("invalid -today %q: %w", c.today, err)
		}
		opts = append(opts, engine.WithClock(func() time.Time { return today }))
	}
	return engine.New(opts...), nil
}

func (c *common) write(v interface{}) error {
	out := c.out
	if out == nil {
		out = os.Stdout
	}
	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

type historyCmd struct {
	common
}

func (*historyCmd) Name() string     { return "history" }
func (*historyCmd) Synopsis() string { return "reconstruct the daily valuation history" }
func (*historyCmd) Usage() string {
	return `history -in <file.json> [-max-days N]

  Prints one point per calendar day with the raw, adjusted and benchmark values.
`
}

func (c *historyCmd) SetFlags(f *flag.FlagSet) { c.setFlags(f) }

func (c *historyCmd) Execute(_ context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	eng, err := c.engine()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return subcommands.ExitUsageError
	}
	in, err := readInput(c.in)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return subcommands.ExitFailure
	}

	history, err := eng.ComputeHistory(in.Transactions, in.Prices, in.Rates)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error computing history: %v\n", err)
		return subcommands.ExitFailure
	}
	if err := c.write(history); err != nil {
		fmt.Fprintln(os.Stderr, err)
		return subcommands.ExitFailure
	}
	return subcommands.ExitSuccess
}

type dashboardCmd struct {
	common
}

func (*dashboardCmd) Name() string     { return "dashboard" }
func (*dashboardCmd) Synopsis() string { return "reconcile positions and build the portfolio dashboard" }
func (*dashboardCmd) Usage() string {
	return `dashboard -in <file.json> [-today YYYY-MM-DD]

  Prints the summary, period projections, positions, allocation, history and
  stale data warnings.
`
}

func (c *dashboardCmd) SetFlags(f *flag.FlagSet) { c.setFlags(f) }

func (c *dashboardCmd) Execute(_ context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	eng, err := c.engine()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return subcommands.ExitUsageError
	}
	in, err := readInput(c.in)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return subcommands.ExitFailure
	}

	dashboard, err := eng.ComputeDashboard(in.Transactions, in.Prices, in.Rates, in.lookup())
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error computing dashboard: %v\n", err)
		return subcommands.ExitFailure
	}
	if err := c.write(dashboard); err != nil {
		fmt.Fprintln(os.Stderr, err)
		return subcommands.ExitFailure
	}
	return subcommands.ExitSuccess
}
