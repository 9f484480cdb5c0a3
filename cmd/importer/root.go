package main

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/FACorreiaa/statement-import/internal/domain/import/service"
	"github.com/FACorreiaa/statement-import/pkg/config"
)

// app is the state shared by the subcommands of one invocation
type app struct {
	envFiles []string
	cfg      *config.Config
	logger   *slog.Logger
	deps     *Dependencies
}

func newRootCmd() *cobra.Command {
	a := &app{}

	cmd := &cobra.Command{
		Use:   "importer",
		Short: "Interpret bank statement exports (xlsx, xls, csv)",
		Long: `importer finds the header of a bank statement export, maps its columns and
turns every data row into a normalized transaction. Rows that cannot be read are
reported without aborting the file.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load(a.envFiles...)
			if err != nil {
				return err
			}
			a.cfg = cfg
			a.logger = newLogger(cfg.Log, cmd.ErrOrStderr())

			deps, err := InitDependencies(cmd.Context(), cfg, a.logger)
			if err != nil {
				return err
			}
			a.deps = deps
			return nil
		},
		PersistentPostRun: func(*cobra.Command, []string) {
			if a.deps != nil {
				a.deps.Cleanup()
			}
		},
	}

	cmd.PersistentFlags().StringSliceVar(&a.envFiles, "env", nil, "env files to load (default .env)")
	cmd.AddCommand(newPreviewCmd(a), newParseCmd(a), newWatchCmd(a))
	return cmd
}

// readStatement loads a statement file from disk
func readStatement(path string) (service.File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return service.File{}, fmt.Errorf("failed to read %s: %w", path, err)
	}
	return service.NewFile(filepath.Base(path), data)
}
