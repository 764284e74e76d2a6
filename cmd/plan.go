package cmd

import (
	"context"
	"log"

	"github.com/metal-toolbox/netsync/internal/app"
	"github.com/metal-toolbox/netsync/internal/inventory"
	"github.com/metal-toolbox/netsync/internal/store"
	"github.com/spf13/cobra"
)

type planFlags struct {
	passFlags
	inventoryFile string
}

var (
	planFlagSet = &planFlags{}
)

var cmdPlan = &cobra.Command{
	Use:   "plan --inventory <file>",
	Short: "Reconcile an inventory file with NetBox, dry-run unless --apply is set",
	Run: func(cmd *cobra.Command, _ []string) {
		if err := planInventory(cmd.Context()); err != nil {
			log.Fatal(err)
		}
	},
}

func planInventory(ctx context.Context) error {
	netsync, err := app.New(configFile(), logLevel, true)
	if err != nil {
		return err
	}

	engine, err := loadRules(netsync)
	if err != nil {
		return err
	}

	repo, err := store.NewNetBox(&netsync.Config.NetBox, netsync.Logger)
	if err != nil {
		return err
	}

	return runPass(ctx, netsync, repo, inventory.NewYAML(planFlagSet.inventoryFile), engine, &planFlagSet.passFlags)
}

func init() {
	cmdPlan.PersistentFlags().StringVar(&planFlagSet.inventoryFile, "inventory", "", "inventory YAML file")
	cmdPlan.PersistentFlags().BoolVar(&planFlagSet.apply, "apply", false, "apply the proposals to NetBox after the dry-run")
	cmdPlan.PersistentFlags().BoolVar(&planFlagSet.updateExisting, "update-existing", false, "allow apply to update objects that already exist in NetBox")

	if err := cmdPlan.MarkPersistentFlagRequired("inventory"); err != nil {
		log.Fatal(err)
	}

	rootCmd.AddCommand(cmdPlan)
}
