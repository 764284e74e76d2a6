package reconcile

import (
	"context"

	"github.com/metal-toolbox/netsync/internal/store"
	"github.com/pkg/errors"
	"go.opentelemetry.io/otel"
	"golang.org/x/exp/slices"
)

// DeviceState is the remote state of one device, loaded once per pass.
type DeviceState struct {
	Device *store.Record

	// ModuleBays is a map of bay names to bay records.
	ModuleBays map[string]*store.Record

	// Modules is a map of bay names to the module installed in the bay.
	Modules map[string]*store.Record

	// Interfaces is a map of interface names to interface records.
	Interfaces map[string]*store.Record

	// LagMembers is a map of LAG names to the sorted names of the interfaces pointing at them.
	LagMembers map[string][]string
}

// LoadState returns the snapshot of the bays, modules and interfaces of the device record.
func LoadState(ctx context.Context, repo store.Repository, device *store.Record) (*DeviceState, error) {
	ctx, span := otel.Tracer(pkgName).Start(ctx, "LoadState")
	defer span.End()

	state := &DeviceState{
		Device:     device,
		ModuleBays: map[string]*store.Record{},
		Modules:    map[string]*store.Record{},
		Interfaces: map[string]*store.Record{},
		LagMembers: map[string][]string{},
	}

	byDevice := func() store.Filter {
		return store.Filter{"device_id": store.IDString(device.ID), store.FilterLimit: "0"}
	}

	bays, err := repo.Endpoint(store.KindModuleBay).Filter(ctx, byDevice())
	if err != nil {
		return nil, errors.Wrap(err, "load module bays")
	}

	for _, bay := range bays {
		state.ModuleBays[bay.String("name")] = bay
	}

	modules, err := repo.Endpoint(store.KindModule).Filter(ctx, byDevice())
	if err != nil {
		return nil, errors.Wrap(err, "load modules")
	}

	for _, module := range modules {
		bay := module.RefString("module_bay", "name")
		if bay == "" {
			continue
		}

		state.Modules[bay] = module
	}

	interfaces, err := repo.Endpoint(store.KindInterface).Filter(ctx, byDevice())
	if err != nil {
		return nil, errors.Wrap(err, "load interfaces")
	}

	for _, iface := range interfaces {
		name := iface.String("name")
		state.Interfaces[name] = iface

		if lag := iface.RefString("lag", "name"); lag != "" {
			state.LagMembers[lag] = append(state.LagMembers[lag], name)
		}
	}

	for lag := range state.LagMembers {
		slices.Sort(state.LagMembers[lag])
	}

	return state, nil
}
