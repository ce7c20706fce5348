// Package cmd implements the dagrund CLI using cobra framework.
package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var configFile string

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "dagrund",
	Short: "dagrund runs a graph of concurrent worker vertices",
	Long: `dagrund loads a graph of worker vertices and the typed queues connecting
them from a YAML config file, then runs them to completion: each worker
receives data, processes it, sends its result downstream, then does the
same for its metadata lane, once per iteration, until asked to stop.`,
	Version: "0.1.0",
}

// Execute adds all child commands to the root command and runs it.
// Called by main.main(); only needs to happen once.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configFile, "config", "c", "graph.yml", "graph config file path")

	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(validateCmd)
}

// exitWithError prints error message and exits with code 1
func exitWithError(msg string, err error) {
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %s: %v\n", msg, err)
	} else {
		fmt.Fprintf(os.Stderr, "Error: %s\n", msg)
	}
	os.Exit(1)
}
