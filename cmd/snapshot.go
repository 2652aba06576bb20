package cmd

import (
	"fmt"

	"github.com/michaelpento.lv/routegas/config"
	"github.com/michaelpento.lv/routegas/providers"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var snapshotOut string

var snapshotCmd = &cobra.Command{
	Use:   "snapshot",
	Short: "Refresh reserves and prices of the pool snapshot from chain",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		set, err := loadPools()
		if err != nil {
			return err
		}
		if uint64(set.ChainID) != cfg.ChainID {
			return fmt.Errorf("snapshot is for %s but chain_id is %d", set.ChainID, cfg.ChainID)
		}

		c, err := dial(ctx)
		if err != nil {
			return err
		}
		reader := providers.NewPoolStateReader(c, contractOptions(cfg.RPCRateLimit))
		fresh, err := reader.RefreshAll(ctx, set.All)
		if err != nil {
			return err
		}
		updated, err := set.Replace(fresh)
		if err != nil {
			return err
		}

		out := snapshotOut
		if out == "" {
			out = cfg.PoolsFile
		}
		if err := config.SavePoolFixtures(out, updated); err != nil {
			return err
		}
		log.Info("Saved pool snapshot", zap.String("file", out), zap.Int("pools", len(updated.All)))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(snapshotCmd)
	snapshotCmd.Flags().StringVarP(&snapshotOut, "output", "o", "", "write to this file instead of the pools file")
}
