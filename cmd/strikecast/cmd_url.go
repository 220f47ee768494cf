package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/strikecast/strikecast/internal/domain/options"
	"github.com/strikecast/strikecast/internal/strategy"
)

func newURLCmd() *cobra.Command {
	var kindName string

	cmd := &cobra.Command{
		Use:   "url TICKER",
		Short: "Build candidates for one ticker and print their builder URLs",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp()
			if err != nil {
				return err
			}

			ticker := strings.ToUpper(strings.TrimSpace(args[0]))
			cands, _, err := a.engine.BuildCandidates(cmd.Context(), ticker)
			if err != nil {
				return err
			}

			var only *options.StrategyKind
			if kindName != "" {
				k, parseErr := options.ParseStrategyKind(kindName)
				if parseErr != nil {
					return parseErr
				}
				only = &k
			}

			printed := 0
			for _, c := range cands {
				if only != nil && c.Kind != *only {
					continue
				}
				url, encErr := strategy.Encode(c)
				if encErr != nil {
					return encErr
				}
				id, idErr := strategy.CanonicalID(c)
				if idErr != nil {
					return idErr
				}
				fmt.Printf("%s\n  id  %s\n  url %s\n", c.Title, id, url)
				printed++
			}
			if printed == 0 {
				fmt.Println("no candidates passed the configured criteria")
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&kindName, "strategy", "s", "", "limit to one strategy kind (e.g. iron-condor)")
	return cmd
}
