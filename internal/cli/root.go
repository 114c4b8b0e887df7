// Package cli implements the gourmet command-line interface: one-shot
// record commands, backups and an interactive shell.
package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/mesh-intelligence/gourmet/pkg/types"
)

// Exit codes.
const (
	exitSuccess   = 0
	exitUserError = 1
	exitSysError  = 2
)

// errUsage marks bad arguments and flags.
var errUsage = errors.New("usage")

// rootFlags holds global flag values accessible to all subcommands.
type rootFlags struct {
	configDir string
	dataDir   string
	jsonMode  bool
	logLevel  string
}

// app is the state of one invocation: global flags, loaded configuration
// and the logger built from it.
type app struct {
	flags    rootFlags
	settings settings
	log      zerolog.Logger
}

// NewRootCmd creates the top-level "gourmet" command with global flags
// and all subcommands registered.
func NewRootCmd() *cobra.Command {
	a := &app{log: zerolog.Nop()}

	root := &cobra.Command{
		Use:   "gourmet",
		Short: "A personal log of restaurant visits",
		Long: "Gourmet keeps a local log of the places you ate at: shop name, visit date,\n" +
			"comments, photos, rating, tags and favorites. Backups are plain JSON.",
		// Do not print usage on errors returned by subcommands.
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if cmd.Name() == "version" {
				return nil
			}
			return a.load(cmd)
		},
	}
	root.SetFlagErrorFunc(func(cmd *cobra.Command, err error) error {
		return fmt.Errorf("%w: %w", errUsage, err)
	})

	root.PersistentFlags().StringVar(&a.flags.configDir, "config-dir", "", "configuration directory (default: platform config dir)")
	root.PersistentFlags().StringVar(&a.flags.dataDir, "data-dir", "", "data directory (default: $(CWD)/.gourmet-db)")
	root.PersistentFlags().BoolVar(&a.flags.jsonMode, "json", false, "output in JSON format")
	root.PersistentFlags().StringVar(&a.flags.logLevel, "log-level", "", "log level: trace, debug, info, warn, error")

	root.AddCommand(
		newVersionCmd(),
		a.newInitCmd(),
		a.newAddCmd(),
		a.newListCmd(),
		a.newShowCmd(),
		a.newEditCmd(),
		a.newDeleteCmd(),
		a.newExportCmd(),
		a.newImportCmd(),
		a.newShellCmd(),
	)

	return root
}

// Execute runs the root command and returns the process exit code.
func Execute() int {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	root := NewRootCmd()
	err := root.ExecuteContext(ctx)
	if err == nil {
		return exitSuccess
	}
	fmt.Fprintln(root.ErrOrStderr(), "gourmet:", err)
	return exitCode(err)
}

// userErrors are failures caused by input rather than the environment.
var userErrors = []error{
	errUsage,
	types.ErrValidation,
	types.ErrNotFound,
	types.ErrInvalidID,
	types.ErrParse,
	types.ErrDeclined,
	types.ErrInvalidSortKey,
	types.ErrInvalidState,
	types.ErrBackendEmpty,
	types.ErrBackendUnknown,
}

// exitCode maps an error to the process exit code.
func exitCode(err error) int {
	if err == nil {
		return exitSuccess
	}
	for _, target := range userErrors {
		if errors.Is(err, target) {
			return exitUserError
		}
	}
	return exitSysError
}

// exactArgs is cobra.ExactArgs with usage errors marked.
func exactArgs(n int) cobra.PositionalArgs {
	return func(cmd *cobra.Command, args []string) error {
		if err := cobra.ExactArgs(n)(cmd, args); err != nil {
			return fmt.Errorf("%w: %w", errUsage, err)
		}
		return nil
	}
}
