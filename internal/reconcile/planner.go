package reconcile

import (
	"context"

	"github.com/metal-toolbox/netsync/internal/metrics"
	"github.com/metal-toolbox/netsync/internal/model"
	"github.com/metal-toolbox/netsync/internal/store"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel"
	"golang.org/x/exp/slices"
)

// Planner compares a normalized inventory with the remote state and plans proposals.
type Planner struct {
	repo   store.Repository
	logger *logrus.Entry
}

// NewPlanner returns a planner reading remote state from repo.
func NewPlanner(repo store.Repository, logger *logrus.Entry) *Planner {
	return &Planner{repo: repo, logger: logger}
}

// lookupDevice returns the remote device record by name, nil when it does not exist.
func lookupDevice(ctx context.Context, repo store.Repository, name string) (*store.Record, error) {
	device, err := repo.Endpoint(store.KindDevice).Get(ctx, store.Filter{"name": name})
	if err != nil {
		return nil, errors.Wrap(err, "device lookup: "+name)
	}

	return device, nil
}

// Build returns the proposal batch converging the remote state on the inventory.
func (p *Planner) Build(ctx context.Context, inv *model.Inventory) (*model.ProposalBatch, error) {
	ctx, span := otel.Tracer(pkgName).Start(ctx, "Planner.Build")
	defer span.End()

	device, err := lookupDevice(ctx, p.repo, inv.Device.Name)
	if err != nil {
		return nil, err
	}

	var state *DeviceState

	if device != nil {
		state, err = LoadState(ctx, p.repo, device)
		if err != nil {
			return nil, err
		}
	}

	batch := plan(inv, state)

	for _, proposal := range batch.Actions() {
		metrics.ProposalCounter.WithLabelValues(string(proposal.Model), string(proposal.Action)).Inc()
	}

	p.logger.WithFields(logrus.Fields{
		"device": inv.Device.Name,
		"action": batch.Device.Action,
	}).Debug("planned proposals")

	return batch, nil
}

// plan builds the batch from the inventory and the device snapshot, state is nil when the
// device does not exist remotely.
func plan(inv *model.Inventory, state *DeviceState) *model.ProposalBatch {
	batch := &model.ProposalBatch{
		ModuleBays: []model.Proposal{},
		Modules:    []model.Proposal{},
		Interfaces: []model.Proposal{},
		Lags:       []model.Proposal{},
	}

	if state == nil {
		state = &DeviceState{}
	}

	var deviceCurrentFields map[string]any
	if state.Device != nil {
		deviceCurrentFields = deviceCurrent(state.Device)
	}

	batch.Device = newProposal(
		model.KindDevice,
		inv.Device.Name,
		deviceDesired(&inv.Device),
		deviceCurrentFields,
		state.Device != nil,
	)

	for idx := range inv.ModuleBays {
		bay := &inv.ModuleBays[idx]
		record := state.ModuleBays[bay.Name]

		batch.ModuleBays = append(
			batch.ModuleBays,
			newProposal(model.KindModuleBay, bay.Name, moduleBayDesired(bay), currentOf(record, moduleBayCurrent), record != nil),
		)
	}

	for idx := range inv.Modules {
		module := &inv.Modules[idx]
		record := state.Modules[module.BayName]

		batch.Modules = append(
			batch.Modules,
			newProposal(model.KindModule, moduleIdentifier(module), moduleDesired(module), currentOf(record, moduleCurrent), record != nil),
		)
	}

	for _, iface := range orderInterfaces(inv) {
		record := state.Interfaces[iface.Name]

		batch.Interfaces = append(
			batch.Interfaces,
			newProposal(model.KindInterface, iface.Name, interfaceDesired(iface), currentOf(record, interfaceCurrent), record != nil),
		)
	}

	for idx := range inv.Lags {
		lag := &inv.Lags[idx]
		_, exists := state.Interfaces[lag.Name]

		var current map[string]any
		if members := state.LagMembers[lag.Name]; len(members) > 0 {
			current = lagDesired(members)
		}

		batch.Lags = append(
			batch.Lags,
			newProposal(model.KindLag, lag.Name, lagDesired(lag.SortedMembers()), current, exists),
		)
	}

	return batch
}

func newProposal(kind model.Kind, identifier string, desired, current map[string]any, exists bool) model.Proposal {
	action, d := actionAndDiff(desired, current, exists)

	return model.Proposal{
		Action:     action,
		Model:      kind,
		Identifier: identifier,
		Desired:    desired,
		Current:    current,
		Diff:       d,
	}
}

func currentOf(record *store.Record, fields func(*store.Record) map[string]any) map[string]any {
	if record == nil {
		return nil
	}

	return fields(record)
}

// isLagInterface returns true for interfaces that are aggregates rather than members.
func isLagInterface(inv *model.Inventory, iface *model.Interface) bool {
	return inv.LagByName(iface.Name) != nil || iface.TypeSlug == "lag"
}

// orderInterfaces returns the interfaces with LAG interfaces first, each group sorted by name.
func orderInterfaces(inv *model.Inventory) []*model.Interface {
	ordered := make([]*model.Interface, 0, len(inv.Interfaces))
	for idx := range inv.Interfaces {
		ordered = append(ordered, &inv.Interfaces[idx])
	}

	slices.SortStableFunc(ordered, func(a, b *model.Interface) int {
		aLag, bLag := isLagInterface(inv, a), isLagInterface(inv, b)

		switch {
		case aLag && !bLag:
			return -1
		case !aLag && bLag:
			return 1
		case a.Name < b.Name:
			return -1
		case a.Name > b.Name:
			return 1
		default:
			return 0
		}
	})

	return ordered
}
