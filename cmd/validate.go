package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/dagrun-dev/dagrun/internal/config"
)

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate the config file without running the graph",
	Run: func(cmd *cobra.Command, args []string) {
		cfg, err := config.Load(configFile)
		if err != nil {
			exitWithError("invalid config", err)
		}
		fmt.Printf("config OK: %d worker(s), %d data edge(s), %d metadata edge(s)\n",
			len(cfg.Graph.Workers), len(cfg.Graph.Edges.Data), len(cfg.Graph.Edges.Meta))
	},
}
