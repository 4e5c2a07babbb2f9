package main

import (
	"encoding/json"
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/bryanwahyu/osint-cafe/internal/application/probe"
	"github.com/bryanwahyu/osint-cafe/internal/infra/registry"
)

func (c *cli) newStatusCmd() *cobra.Command {
	var (
		asJSON bool
		name   string
	)
	cmd := &cobra.Command{
		Use:   "status",
		Short: "Check every configured provider",
		Long:  "Run each provider's status check one after another and print the result.",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, logger, err := c.loadWithLogger()
			if err != nil {
				return err
			}
			reg, err := registry.Build(cfg, logger)
			if err != nil {
				return err
			}
			svc := probe.NewService(reg.Checkers(), cfg.Probe.Pause, logger.Named("probe"))

			var results []probe.Result
			if name != "" {
				r, err := svc.RunOne(cmd.Context(), name)
				if err != nil {
					return err
				}
				results = []probe.Result{r}
			} else {
				results = svc.RunAll(cmd.Context())
			}

			out := cmd.OutOrStdout()
			if asJSON {
				enc := json.NewEncoder(out)
				enc.SetIndent("", "  ")
				return enc.Encode(results)
			}
			w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "PROVIDER\tSTATUS\tMESSAGE\tDURATION")
			for _, r := range results {
				status := "FAIL"
				if r.Success {
					status = "OK"
				}
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", r.Name, status, r.Message, r.Duration.Round(time.Millisecond))
			}
			return w.Flush()
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "output as JSON")
	cmd.Flags().StringVar(&name, "name", "", "check a single provider")
	return cmd
}
