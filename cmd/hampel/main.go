// Command hampel detects outliers in series with the Hampel identifier.
//
//	hampel detect [FILE]   print the outliers of a series
//	hampel serve           run the gRPC and HTTP servers
//	hampel version
package main

import (
	"context"
	"log"

	"github.com/spf13/cobra"

	"github.com/ardanlabs/hampel/hampel"
)

var version = "dev"

func main() {
	log.SetFlags(0)

	if err := rootCommand().ExecuteContext(context.Background()); err != nil {
		log.Fatalf("error: %s", err)
	}
}

func rootCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:           "hampel",
		Short:         "Hampel identifier outlier detection",
		SilenceUsage:  true, // Don't print usage on Run error.
		SilenceErrors: true, // main prints errors.
	}

	cmd.AddCommand(detectCommand())
	cmd.AddCommand(serveCommand())
	cmd.AddCommand(versionCommand())
	return cmd
}

// addFilterFlags adds the flags shared by all commands using a filter.
func addFilterFlags(cmd *cobra.Command, cfgFile *string) {
	flags := cmd.Flags()
	flags.StringVar(cfgFile, "config", "", "YAML configuration file")
	flags.Int("window-size", hampel.DefaultWindowSize, "window size, a positive odd integer")
	flags.Float64("n-sigma", hampel.DefaultNSigma, "outlier threshold in scale units")
	flags.Float64("c", hampel.DefaultConsistency, "consistency constant")
}

func versionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Version of hampel",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			cmd.Printf("%s version %s\n", cmd.Root().Name(), version)
		},
	}
}
