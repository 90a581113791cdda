package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/fleetops/herd/pkg/client"
)

// version is stamped at build time via -ldflags.
var version = "dev"

func buildRoot() *cobra.Command {
	root := &cobra.Command{
		Use:           "herd",
		Short:         "herd fans a request-serving process out across CPU cores and keeps it alive",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.AddCommand(
		createServeCommand(),
		createStatusCommand(),
		createVersionCommand(),
	)
	return root
}

func createServeCommand() *cobra.Command {
	f := &ServeFlags{}
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the worker pool (or a single worker in development mode)",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(f)
		},
	}
	cmd.Flags().StringVarP(&f.ConfigPath, "config", "c", "", "path to TOML config file")
	return cmd
}

func createStatusCommand() *cobra.Command {
	f := &StatusFlags{}
	cmd := &cobra.Command{
		Use:   "status",
		Short: "Query pool health from a running primary",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runStatus(cmd.Context(), f, os.Stdout)
		},
	}
	cmd.Flags().StringVar(&f.APIUrl, "api-url", "", "admin API base URL (default http://127.0.0.1:9090)")
	cmd.Flags().DurationVar(&f.APITimeout, "api-timeout", 0, "admin API request timeout")
	cmd.Flags().BoolVar(&f.JSON, "json", false, "print the raw stats JSON")
	return cmd
}

func createVersionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the herd version",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Println(version)
		},
	}
}

func runStatus(ctx context.Context, f *StatusFlags, out io.Writer) error {
	c := client.New(f.APIUrl, f.APITimeout)
	if !c.IsReachable() {
		return fmt.Errorf("primary not reachable - is 'herd serve' running?")
	}
	st, err := c.Stats(ctx)
	if err != nil {
		return err
	}
	if f.JSON {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(st)
	}
	_, _ = fmt.Fprintf(out, "primary pid %d, %d/%d workers live (%d cores)\n",
		st.PrimaryPID, st.TotalWorkers, st.MaxWorkers, st.CPUCount)
	for _, w := range st.Workers {
		state := "live"
		if w.Dead {
			state = "dead"
		}
		_, _ = fmt.Fprintf(out, "  worker %d  pid %-8d %s\n", w.ID, w.PID, state)
	}
	return nil
}
