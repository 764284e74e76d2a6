package cmd

import (
	"context"
	"log"
	"strings"

	"github.com/metal-toolbox/netsync/internal/app"
	"github.com/metal-toolbox/netsync/internal/harvest"
	"github.com/metal-toolbox/netsync/internal/inventory"
	"github.com/metal-toolbox/netsync/internal/store"
	"github.com/metal-toolbox/netsync/internal/transport"
	"github.com/spf13/cobra"
)

type syncFlags struct {
	passFlags
	host      string
	family    string
	transport string
}

var (
	syncFlagSet = &syncFlags{}
)

var cmdSync = &cobra.Command{
	Use:   "sync --host <address> --family <family>",
	Short: "Harvest a live device and reconcile it with NetBox, dry-run unless --apply is set",
	Run: func(cmd *cobra.Command, _ []string) {
		if err := syncDevice(cmd.Context()); err != nil {
			log.Fatal(err)
		}
	},
}

func syncDevice(ctx context.Context) error {
	netsync, err := app.New(configFile(), logLevel, true)
	if err != nil {
		return err
	}

	engine, err := loadRules(netsync)
	if err != nil {
		return err
	}

	family, err := harvest.DefaultRegistry().Lookup(syncFlagSet.family)
	if err != nil {
		return err
	}

	kind := family.Transport()
	if syncFlagSet.transport != "" {
		kind = transport.Kind(syncFlagSet.transport)
	}

	session, err := transport.New(kind, syncFlagSet.host, &netsync.Config.Device, netsync.Logger)
	if err != nil {
		return err
	}

	repo, err := store.NewNetBox(&netsync.Config.NetBox, netsync.Logger)
	if err != nil {
		return err
	}

	source := inventory.NewHarvest(harvest.NewCollector(session, family, engine, netsync.Logger))

	return runPass(ctx, netsync, repo, source, engine, &syncFlagSet.passFlags)
}

func init() {
	families := strings.Join(harvest.DefaultRegistry().Names(), ", ")

	cmdSync.PersistentFlags().StringVar(&syncFlagSet.host, "host", "", "device address")
	cmdSync.PersistentFlags().StringVar(&syncFlagSet.family, "family", "", "device family - one of "+families)
	cmdSync.PersistentFlags().StringVar(&syncFlagSet.transport, "transport", "", "override the family transport - ssh or snmp")
	cmdSync.PersistentFlags().BoolVar(&syncFlagSet.apply, "apply", false, "apply the proposals to NetBox after the dry-run")
	cmdSync.PersistentFlags().BoolVar(&syncFlagSet.updateExisting, "update-existing", false, "allow apply to update objects that already exist in NetBox")

	for _, flag := range []string{"host", "family"} {
		if err := cmdSync.MarkPersistentFlagRequired(flag); err != nil {
			log.Fatal(err)
		}
	}

	rootCmd.AddCommand(cmdSync)
}
