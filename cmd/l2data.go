package cmd

import (
	"fmt"

	"github.com/michaelpento.lv/routegas/gas"
	"github.com/michaelpento.lv/routegas/types"
	"github.com/spf13/cobra"
)

var l2DataCmd = &cobra.Command{
	Use:   "l2-gas-data",
	Short: "Print the L1 fee parameters of the configured chain",
	RunE: func(cmd *cobra.Command, args []string) error {
		chainID := types.ChainID(cfg.ChainID)
		provider, err := l2GasDataProvider(cmd.Context(), chainID)
		if err != nil {
			return err
		}
		if provider == nil {
			return fmt.Errorf("%s does not charge an L1 security fee", chainID)
		}

		data, err := provider.GasData(cmd.Context())
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		switch d := data.(type) {
		case gas.OptimismGasData:
			fmt.Fprintf(out, "l1_base_fee: %s\nscalar: %s\ndecimals: %s\noverhead: %s\n",
				d.L1BaseFee, d.Scalar, d.Decimals, d.Overhead)
		case gas.ArbitrumGasData:
			fmt.Fprintf(out, "per_l2_tx_fee: %s\nper_l1_calldata_fee: %s\n",
				d.PerL2TxFee, d.PerL1CalldataFee)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(l2DataCmd)
}
