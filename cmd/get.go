package cmd

import (
	"context"
	"log"

	"github.com/davecgh/go-spew/spew"
	"github.com/metal-toolbox/netsync/internal/app"
	"github.com/metal-toolbox/netsync/internal/model"
	"github.com/metal-toolbox/netsync/internal/store"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
)

var cmdGet = &cobra.Command{
	Use:   "get",
	Short: "get resources [device]",
	Run: func(cmd *cobra.Command, _ []string) {
		_ = cmd.Help()
	},
}

// command get device
type getDeviceFlags struct {
	name string
}

var (
	getDeviceFlagSet = &getDeviceFlags{}
)

var cmdGetDevice = &cobra.Command{
	Use:   "device",
	Short: "Get the NetBox device record by name",
	Run: func(cmd *cobra.Command, _ []string) {
		if err := getDevice(cmd.Context()); err != nil {
			log.Fatal(err)
		}
	},
}

func getDevice(ctx context.Context) error {
	netsync, err := app.New(configFile(), logLevel, true)
	if err != nil {
		return err
	}

	repo, err := store.NewNetBox(&netsync.Config.NetBox, netsync.Logger)
	if err != nil {
		return err
	}

	device, err := repo.Endpoint(store.KindDevice).Get(ctx, store.Filter{"name": getDeviceFlagSet.name})
	if err != nil {
		return err
	}

	if device == nil {
		return errors.Wrap(store.ErrRecordNotFound, "device: "+getDeviceFlagSet.name)
	}

	spew.Dump(device.Serialize())

	netsync.Logger.WithField("device", getDeviceFlagSet.name).Debug("device slug: " + model.Slugify(getDeviceFlagSet.name))

	return nil
}

func init() {
	rootCmd.AddCommand(cmdGet)

	cmdGetDevice.PersistentFlags().StringVar(&getDeviceFlagSet.name, "name", "", "NetBox device name")

	if err := cmdGetDevice.MarkPersistentFlagRequired("name"); err != nil {
		log.Fatal(err)
	}

	cmdGet.AddCommand(cmdGetDevice)
}
