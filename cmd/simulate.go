package cmd

import (
	"context"
	"log"

	"github.com/metal-toolbox/netsync/internal/app"
	"github.com/metal-toolbox/netsync/internal/inventory"
	"github.com/metal-toolbox/netsync/internal/store"
	"github.com/spf13/cobra"
)

var cmdSimulate = &cobra.Command{
	Use:   "simulate",
	Short: "Dry-run a simulated SR OS router against an empty in-memory inventory",
	Run: func(cmd *cobra.Command, _ []string) {
		if err := simulate(cmd.Context()); err != nil {
			log.Fatal(err)
		}
	},
}

func simulate(ctx context.Context) error {
	netsync, err := app.New(configFile(), logLevel, false)
	if err != nil {
		return err
	}

	engine, err := loadRules(netsync)
	if err != nil {
		return err
	}

	// no proposals are published outside of the proposals dir
	netsync.Config.NATS.URL = ""

	return runPass(ctx, netsync, store.NewMemStore(), inventory.NewSample(engine), engine, &passFlags{})
}

func init() {
	rootCmd.AddCommand(cmdSimulate)
}
