package main

import (
	"context"
	"encoding/json"
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/bft-labs/telship/internal/adapters/fs"
	"github.com/bft-labs/telship/internal/cliconfig"
)

func newStatusCommand(cfg *cliconfig.Config, cfgPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Print the upload statistics of a storage directory",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := loadConfig(cmd, *cfgPath, cfg); err != nil {
				return err
			}
			if cfg.StorageDir == "" {
				return fmt.Errorf("storage-dir is required")
			}

			repo := fs.NewStatusFileRepository(filepath.Join(cfg.StorageDir, cfg.Feature))
			status, err := repo.Load(context.Background())
			if err != nil {
				return err
			}
			if status.Feature == "" {
				status.Feature = cfg.Feature
			}

			out, err := json.MarshalIndent(status, "", "  ")
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), string(out))
			return nil
		},
	}
}
