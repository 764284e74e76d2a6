package cmd

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/equinix-labs/otel-init-go/otelinit"
	"github.com/metal-toolbox/netsync/internal/app"
	"github.com/metal-toolbox/netsync/internal/inventory"
	"github.com/metal-toolbox/netsync/internal/metrics"
	"github.com/metal-toolbox/netsync/internal/model"
	"github.com/metal-toolbox/netsync/internal/publish"
	"github.com/metal-toolbox/netsync/internal/reconcile"
	"github.com/metal-toolbox/netsync/internal/rules"
	"github.com/metal-toolbox/netsync/internal/store"
	"github.com/metal-toolbox/netsync/internal/version"
	"github.com/pkg/errors"
)

// passFlags are the flags shared by the commands running a reconciliation pass.
type passFlags struct {
	apply          bool
	updateExisting bool
}

// configFile returns the --config flag value, else ~/.netsync.yml when it exists.
func configFile() string {
	if cfgFile != "" {
		return cfgFile
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}

	path := filepath.Join(home, "."+model.AppName+".yml")
	if _, err := os.Stat(path); err != nil {
		return ""
	}

	return path
}

func loadRules(netsync *app.App) (*rules.Engine, error) {
	if netsync.Config.RulesFile == "" {
		return nil, errors.Wrap(model.ErrConfiguration, "rules_file not defined")
	}

	return rules.Load(netsync.Config.RulesFile)
}

// publishers returns the proposal file writer and, when NATS is configured, the KV publisher.
func publishers(netsync *app.App) ([]reconcile.Publisher, func(), error) {
	pubs := []reconcile.Publisher{publish.NewFile(netsync.Config.ProposalsDir)}

	if netsync.Config.NATS.URL == "" {
		return pubs, func() {}, nil
	}

	nc, js, err := publish.Connect(&netsync.Config.NATS)
	if err != nil {
		return nil, nil, err
	}

	kv, err := publish.NewKV(js, &netsync.Config.NATS, netsync.Logger)
	if err != nil {
		nc.Close()
		return nil, nil, err
	}

	return append(pubs, kv), nc.Close, nil
}

// runPass dry-runs the inventory from source against repo, then applies it when asked to.
func runPass(ctx context.Context, netsync *app.App, repo store.Repository, source inventory.Source, engine *rules.Engine, flags *passFlags) error {
	ctx, otelShutdown := otelinit.InitOpenTelemetry(ctx, model.AppName)
	defer otelShutdown(ctx)

	ctx, cancel := netsync.CancelOnSignal(ctx)
	defer cancel()

	if address := netsync.Config.Metrics.ListenAddress; address != "" {
		version.ExportBuildInfoMetric()
		metrics.ListenAndServe(address, netsync.Logger)
	}

	pubs, closePublishers, err := publishers(netsync)
	if err != nil {
		return err
	}

	defer closePublishers()

	inv, err := source.Inventory(ctx)
	if err != nil {
		return err
	}

	netsync.Logger.WithField("source", source.Kind()).WithField("device", inv.Device.Name).Info("inventory collected")

	reconciler := reconcile.New(
		repo,
		&reconcile.Options{
			DeviceNameSuffix: netsync.Config.NetBox.DeviceNameSuffix,
			DeviceTypeSuffix: engine.DeviceTypeSuffix(),
			UpdateExisting:   flags.updateExisting,
			Publishers:       pubs,
		},
		netsync.Logger,
	)

	result, err := reconciler.DryRun(ctx, inv)
	if err != nil {
		return err
	}

	fmt.Println(result.Summary)

	if result.ProposalPath != "" {
		fmt.Println("\nProposals written to " + result.ProposalPath)
	}

	if !flags.apply {
		return nil
	}

	applied, err := reconciler.Apply(ctx, inv)
	if err != nil {
		return err
	}

	fmt.Println("\nPost-apply verification:\n" + reconcile.Summary(applied.Post))

	return nil
}
