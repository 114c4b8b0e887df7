package cli

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"
)

func (a *app) newInitCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "init",
		Short: "Initialize gourmet storage",
		Long: "Create the configuration and data directories, then create the record database.\n" +
			"A --data-dir given here is saved to config.yaml for later commands.",
		Args: exactArgs(0),
		RunE: a.runInit,
	}
}

func (a *app) runInit(cmd *cobra.Command, args []string) error {
	if a.flags.dataDir != "" {
		if err := a.saveDataDir(); err != nil {
			return err
		}
	}

	s, err := a.openSession(cmd.Context())
	if err != nil {
		return err
	}
	path := s.store.Path()
	if err := s.Close(); err != nil {
		return fmt.Errorf("finalize storage: %w", err)
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Gourmet initialized: %s\n", path)
	return nil
}

// saveDataDir records the resolved data directory in config.yaml.
func (a *app) saveDataDir() error {
	path := filepath.Join(a.settings.configDir, configFileExt)
	cfg, err := readConfigFile(path)
	if err != nil {
		return err
	}
	if cfg.DataDir == a.settings.DataDir {
		return nil
	}
	cfg.DataDir = a.settings.DataDir
	if err := writeConfigFile(path, cfg); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	a.log.Info().Str("data_dir", cfg.DataDir).Msg("data directory saved to config")
	return nil
}
