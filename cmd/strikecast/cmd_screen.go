package main

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/olekukonko/tablewriter"
	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"github.com/strikecast/strikecast/internal/domain/options"
	"github.com/strikecast/strikecast/internal/strategy"
)

func newScreenCmd() *cobra.Command {
	var tickers []string
	var showURLs bool

	cmd := &cobra.Command{
		Use:   "screen",
		Short: "Screen the watchlist for strategy candidates",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp()
			if err != nil {
				return err
			}

			watch := a.cfg.Watchlist
			if len(tickers) > 0 {
				watch = normalizeTickers(tickers)
			}

			batch := a.engine.Screen(cmd.Context(), watch)

			table := tablewriter.NewTable(os.Stdout,
				tablewriter.WithHeader([]string{"TICKER", "STRATEGY", "EXP", "STRIKES", "CREDIT", "MAX RISK", "POP", "PRICED"}))

			rows := 0
			for _, res := range batch.Results {
				if res.Err != nil {
					fmt.Fprintf(os.Stderr, "%s: skipped: %v\n", res.Ticker, res.Err)
					continue
				}
				for _, c := range res.Candidates {
					table.Append([]string{
						c.Ticker,
						c.Kind.String(),
						c.Expiration.Format("2006-01-02"),
						strikeSummary(c),
						fmt.Sprintf("%.2f", c.Credit),
						fmt.Sprintf("%.2f", c.MaxRisk),
						fmt.Sprintf("%.0f%%", c.ProbabilityOfProfit*100),
						pricedLabel(c),
					})
					rows++
				}
			}
			table.Render()

			if showURLs {
				for _, res := range batch.Results {
					for _, c := range res.Candidates {
						if url, encErr := strategy.Encode(c); encErr == nil {
							fmt.Printf("%s\n  %s\n", c.Title, url)
						}
					}
				}
			}

			fmt.Printf("\nbatch %s: %d candidates across %d tickers in %s\n",
				batch.ID, rows, len(batch.Results), batch.Duration.Round(time.Millisecond))
			return nil
		},
	}

	cmd.Flags().StringSliceVarP(&tickers, "tickers", "t", nil, "override the configured watchlist")
	cmd.Flags().BoolVar(&showURLs, "urls", false, "print strategy-builder URLs")
	return cmd
}

func normalizeTickers(in []string) []string {
	out := make([]string, 0, len(in))
	for _, t := range in {
		t = strings.ToUpper(strings.TrimSpace(t))
		if t != "" {
			out = append(out, t)
		}
	}
	return out
}

// strikeSummary renders ascending strikes like "146/150/170/172.5".
func strikeSummary(c options.Candidate) string {
	strikes := make([]decimal.Decimal, 0, len(c.Legs))
	seen := make(map[string]struct{})
	for _, l := range c.Legs {
		key := l.Strike.String()
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		strikes = append(strikes, l.Strike)
	}
	options.SortStrikes(strikes)

	parts := make([]string, len(strikes))
	for i, s := range strikes {
		parts[i] = s.String()
	}
	return strings.Join(parts, "/")
}

func pricedLabel(c options.Candidate) string {
	switch {
	case c.FullySynthetic():
		return "synthetic"
	case c.HasSyntheticLegs():
		return "mixed"
	default:
		return "real"
	}
}
