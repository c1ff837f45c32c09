package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/vishal27shetty/Company-Research-Agent/internal/api"
	"github.com/vishal27shetty/Company-Research-Agent/internal/buildconfig"
	"github.com/vishal27shetty/Company-Research-Agent/internal/config"
)

var rootCmd = &cobra.Command{
	Use:   "researchctl",
	Short: "Company research assistant on the command line",
	Long: "researchctl runs the research assistant in-process: ask questions,\n" +
		"build cited company reports, or serve the assistant as MCP tools.",
	CompletionOptions: cobra.CompletionOptions{
		HiddenDefaultCmd: true,
	},
	SilenceUsage: true,
}

func init() {
	rootCmd.AddCommand(askCmd)
	rootCmd.AddCommand(mcpCmd)
	rootCmd.AddCommand(versionCmd)
	rootCmd.Version = buildconfig.Version()
}

// runtimeFromEnv loads config and builds the in-process runtime. The caller
// closes it.
func runtimeFromEnv(ctx context.Context) (*api.Runtime, *zap.Logger, error) {
	if err := config.Load(); err != nil {
		return nil, nil, err
	}
	logger, err := config.NewLogger()
	if err != nil {
		return nil, nil, err
	}
	rt, err := api.NewRuntime(ctx, logger)
	if err != nil {
		return nil, nil, err
	}
	return rt, logger, nil
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
