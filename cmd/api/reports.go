package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/bryanwahyu/osint-cafe/internal/infra/provider/threatindex"
	"github.com/bryanwahyu/osint-cafe/internal/infra/registry"
)

func (c *cli) newReportsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "reports",
		Short: "Manage the community scam-report index",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "import <file.json>",
		Short: "Index a JSON array of scam reports",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := c.loadWithLogger()
			if err != nil {
				return err
			}
			raw, err := os.ReadFile(args[0])
			if err != nil {
				return err
			}
			var reports []threatindex.ScamReport
			if err := json.Unmarshal(raw, &reports); err != nil {
				return fmt.Errorf("%s: %w", args[0], err)
			}
			reg, err := registry.Build(cfg, logger)
			if err != nil {
				return err
			}

			indexed := 0
			for i, r := range reports {
				if r.Name == "" {
					logger.Warn("skipping report without name", zap.Int("index", i))
					continue
				}
				if err := reg.ThreatIndex.Index(cmd.Context(), r); err != nil {
					return fmt.Errorf("report %d (%s): %w", i, r.Name, err)
				}
				indexed++
			}
			fmt.Fprintf(cmd.OutOrStdout(), "indexed %d of %d reports\n", indexed, len(reports))
			return nil
		},
	})
	return cmd
}
