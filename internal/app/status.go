package app

import (
	"context"
	"fmt"
	"os"
)

// Status checks RPC reachability and prints chain details.
func (a *App) Status(ctx context.Context) error {
	client := a.newOracle()

	info, err := client.CheckConnection(ctx)
	if err != nil {
		return err
	}

	fmt.Fprintf(os.Stdout, "rpc: %s\n", a.Config.Oracle.RPCURL)
	fmt.Fprintf(os.Stdout, "chain id: %s\n", info.ChainID)
	fmt.Fprintf(os.Stdout, "latest block: %d\n", info.LatestBlock)
	if a.Config.Oracle.ContractAddress != "" {
		fmt.Fprintf(os.Stdout, "contract: %s\n", a.Config.Oracle.ContractAddress)
	} else {
		fmt.Fprintln(os.Stdout, "contract: not configured")
	}
	return nil
}
