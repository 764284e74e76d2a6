package reconcile

import (
	"context"
	"fmt"
	"strings"

	sw "github.com/filanov/stateswitch"
	"github.com/metal-toolbox/netsync/internal/metrics"
	"github.com/metal-toolbox/netsync/internal/model"
	"github.com/metal-toolbox/netsync/internal/statemachine"
	"github.com/metal-toolbox/netsync/internal/store"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"golang.org/x/exp/slices"
)

// moduleTypeLimit caps the module types considered for a model.
const moduleTypeLimit = "5"

var errTaskCast = errors.New("expected an apply task subject")

// applyTask is the subject of an apply run, it carries the batch and the records
// resolved or written by earlier transitions.
type applyTask struct {
	state     sw.State
	inventory *model.Inventory
	batch     *model.ProposalBatch

	site         *store.Record
	role         *store.Record
	deviceType   *store.Record
	manufacturer *store.Record
	device       *store.Record

	// bays and interfaces are maps of names to records written or read in this run.
	bays       map[string]*store.Record
	interfaces map[string]*store.Record

	post *model.ProposalBatch
}

func newApplyTask(inv *model.Inventory, batch *model.ProposalBatch) *applyTask {
	return &applyTask{
		state:      statemachine.StatePending,
		inventory:  inv,
		batch:      batch,
		bays:       map[string]*store.Record{},
		interfaces: map[string]*store.Record{},
	}
}

func (t *applyTask) State() sw.State {
	return t.state
}

func (t *applyTask) SetState(state sw.State) error {
	t.state = state
	return nil
}

// manufacturerID returns the configured manufacturer, else the device type manufacturer.
func (t *applyTask) manufacturerID() int {
	if t.manufacturer != nil {
		return t.manufacturer.ID
	}

	if t.deviceType != nil {
		return t.deviceType.RefID("manufacturer")
	}

	return 0
}

// applyHandler implements the statemachine.ApplyTransitioner interface.
type applyHandler struct {
	ctx     context.Context
	repo    store.Repository
	planner *Planner
	logger  *logrus.Entry
}

func taskOf(s sw.StateSwitch) (*applyTask, error) {
	task, ok := s.(*applyTask)
	if !ok {
		return nil, errors.Wrap(errTaskCast, fmt.Sprintf("got %T", s))
	}

	return task, nil
}

func (h *applyHandler) endpoint(kind store.Kind) store.Endpoint {
	return h.repo.Endpoint(kind)
}

func (h *applyHandler) wrote(kind model.Kind, action model.Action, identifier string) {
	metrics.ApplyWriteCounter.WithLabelValues(string(kind), string(action)).Inc()

	h.logger.WithFields(logrus.Fields{
		"model":      kind,
		"identifier": identifier,
		"action":     action,
	}).Info(string(action) + "d " + strings.ReplaceAll(string(kind), "_", " "))
}

func (h *applyHandler) bySlug(kind store.Kind, label, slug string) (*store.Record, error) {
	record, err := h.endpoint(kind).Get(h.ctx, store.Filter{"slug": slug})
	if err != nil {
		return nil, err
	}

	if record == nil {
		return nil, errors.Wrap(
			model.ErrDependencyResolution,
			fmt.Sprintf("%s with slug '%s' not found in NetBox", label, slug),
		)
	}

	return record, nil
}

func (h *applyHandler) deviceChild(kind store.Kind, device *store.Record, name string) (*store.Record, error) {
	return h.endpoint(kind).Get(h.ctx, store.Filter{"device_id": store.IDString(device.ID), "name": name})
}

func (h *applyHandler) ResolveDependencies(s sw.StateSwitch, _ sw.TransitionArgs) error {
	task, err := taskOf(s)
	if err != nil {
		return err
	}

	device := &task.inventory.Device

	if task.site, err = h.bySlug(store.KindSite, "Site", device.SiteSlug); err != nil {
		return err
	}

	if task.role, err = h.bySlug(store.KindRole, "Device role", device.RoleSlug); err != nil {
		return err
	}

	if task.deviceType, err = h.bySlug(store.KindDeviceType, "Device type", device.DeviceTypeSlug); err != nil {
		return err
	}

	if device.ManufacturerSlug == "" {
		return nil
	}

	if task.manufacturer, err = h.bySlug(store.KindManufacturer, "Manufacturer", device.ManufacturerSlug); err != nil {
		return err
	}

	if typeManufacturer := task.deviceType.RefString("manufacturer", "slug"); typeManufacturer != device.ManufacturerSlug {
		return errors.Wrap(
			model.ErrDependencyResolution,
			fmt.Sprintf(
				"Configured manufacturer slug does not match the device type manufacturer: %s != %s",
				device.ManufacturerSlug,
				typeManufacturer,
			),
		)
	}

	return nil
}

// devicePayload maps desired device fields onto the resolved dependency records.
func (t *applyTask) devicePayload(fields map[string]any) store.Fields {
	payload := store.Fields{}

	for k, v := range fields {
		switch k {
		case "site":
			payload[k] = t.site.ID
		case "role":
			payload[k] = t.role.ID
		case "device_type":
			payload[k] = t.deviceType.ID
		case "manufacturer":
			// implied by the device type
		case "tags":
			payload[k] = tagRefs(v)
		default:
			payload[k] = v
		}
	}

	return payload
}

func tagRefs(v any) []any {
	refs := []any{}

	if tags, ok := v.([]string); ok {
		for _, tag := range tags {
			refs = append(refs, map[string]any{"slug": tag})
		}
	}

	return refs
}

func (h *applyHandler) ApplyDevice(s sw.StateSwitch, _ sw.TransitionArgs) error {
	task, err := taskOf(s)
	if err != nil {
		return err
	}

	proposal := task.batch.Device

	if proposal.Action == model.ActionCreate {
		task.device, err = h.endpoint(store.KindDevice).Create(h.ctx, task.devicePayload(nonNil(proposal.Desired)))
		if err != nil {
			return err
		}

		h.wrote(model.KindDevice, model.ActionCreate, proposal.Identifier)

		return nil
	}

	existing, err := lookupDevice(h.ctx, h.repo, proposal.Identifier)
	if err != nil {
		return err
	}

	if existing == nil {
		return errors.Wrap(model.ErrApply, "device expected to exist: "+proposal.Identifier)
	}

	if proposal.Action == model.ActionNoop {
		task.device = existing
		return nil
	}

	task.device, err = h.endpoint(store.KindDevice).Update(h.ctx, existing, task.devicePayload(proposal.Diff))
	if err != nil {
		return err
	}

	h.wrote(model.KindDevice, model.ActionUpdate, proposal.Identifier)

	return nil
}

func restrict(fields map[string]any, keys ...string) store.Fields {
	out := store.Fields{}

	for _, k := range keys {
		if v, exists := fields[k]; exists {
			out[k] = v
		}
	}

	return out
}

func (h *applyHandler) ApplyModuleBays(s sw.StateSwitch, _ sw.TransitionArgs) error {
	task, err := taskOf(s)
	if err != nil {
		return err
	}

	for _, proposal := range task.batch.ModuleBays {
		var record *store.Record

		switch proposal.Action {
		case model.ActionCreate:
			payload := restrict(nonNil(proposal.Desired), "name", "label", "position")
			payload["device"] = task.device.ID

			record, err = h.endpoint(store.KindModuleBay).Create(h.ctx, payload)
			if err != nil {
				return err
			}

			h.wrote(model.KindModuleBay, model.ActionCreate, proposal.Identifier)
		case model.ActionUpdate:
			existing, errGet := h.deviceChild(store.KindModuleBay, task.device, proposal.Identifier)
			if errGet != nil {
				return errGet
			}

			if existing == nil {
				return errors.Wrap(model.ErrApply, "module bay expected to exist: "+proposal.Identifier)
			}

			record, err = h.endpoint(store.KindModuleBay).Update(h.ctx, existing, restrict(proposal.Diff, "name", "label", "position"))
			if err != nil {
				return err
			}

			h.wrote(model.KindModuleBay, model.ActionUpdate, proposal.Identifier)
		default:
			record, err = h.deviceChild(store.KindModuleBay, task.device, proposal.Identifier)
			if err != nil {
				return err
			}
		}

		if record != nil {
			task.bays[proposal.Identifier] = record
		}
	}

	return nil
}

func (h *applyHandler) moduleBay(task *applyTask, name string) (*store.Record, error) {
	if bay, cached := task.bays[name]; cached {
		return bay, nil
	}

	bay, err := h.deviceChild(store.KindModuleBay, task.device, name)
	if err != nil {
		return nil, err
	}

	if bay == nil {
		return nil, errors.Wrap(model.ErrDependencyResolution, "module bay not found: "+name)
	}

	task.bays[name] = bay

	return bay, nil
}

// moduleTypeCandidates returns the module types of the model, narrowed to the manufacturer
// when manufacturerID is set.
func moduleTypeCandidates(ctx context.Context, repo store.Repository, moduleModel string, manufacturerID int) ([]*store.Record, error) {
	candidates, err := repo.Endpoint(store.KindModuleType).Filter(
		ctx,
		store.Filter{"model": moduleModel, store.FilterLimit: moduleTypeLimit},
	)
	if err != nil {
		return nil, err
	}

	if manufacturerID != 0 {
		candidates = slices.DeleteFunc(candidates, func(r *store.Record) bool {
			return r.RefID("manufacturer") != manufacturerID
		})
	}

	return candidates, nil
}

// findModuleType returns the module type of the model, narrowed to the manufacturer when known.
func (h *applyHandler) findModuleType(task *applyTask, moduleModel string) (*store.Record, error) {
	candidates, err := moduleTypeCandidates(h.ctx, h.repo, moduleModel, task.manufacturerID())
	if err != nil {
		return nil, err
	}

	switch len(candidates) {
	case 0:
		return nil, errors.Wrap(model.ErrDependencyResolution, fmt.Sprintf("Module type '%s' not found in NetBox", moduleModel))
	case 1:
	default:
		h.logger.WithFields(logrus.Fields{
			"model":   moduleModel,
			"matches": len(candidates),
		}).Warn("multiple module types match model, using the first")
	}

	return candidates[0], nil
}

func stringField(fields map[string]any, key string) string {
	s, _ := fields[key].(string)
	return s
}

// nolint:gocyclo // the action switch is cyclomatic
func (h *applyHandler) ApplyModules(s sw.StateSwitch, _ sw.TransitionArgs) error {
	task, err := taskOf(s)
	if err != nil {
		return err
	}

	for _, proposal := range task.batch.Modules {
		if proposal.Action == model.ActionNoop {
			h.logger.WithField("identifier", proposal.Identifier).Debug("module unchanged")
			continue
		}

		bay, err := h.moduleBay(task, stringField(proposal.Desired, "bay_name"))
		if err != nil {
			return err
		}

		var moduleType *store.Record

		if _, touched := proposal.Diff["module_type_model"]; touched || proposal.Action == model.ActionCreate {
			moduleType, err = h.findModuleType(task, stringField(proposal.Desired, "module_type_model"))
			if err != nil {
				return err
			}
		}

		if proposal.Action == model.ActionCreate {
			payload := restrict(nonNil(proposal.Desired), "status", "serial")
			payload["device"] = task.device.ID
			payload["module_bay"] = bay.ID
			payload["module_type"] = moduleType.ID

			if _, err := h.endpoint(store.KindModule).Create(h.ctx, payload); err != nil {
				return err
			}

			h.wrote(model.KindModule, model.ActionCreate, proposal.Identifier)

			continue
		}

		existing, err := h.endpoint(store.KindModule).Get(h.ctx, store.Filter{
			"device_id":       store.IDString(task.device.ID),
			"module_bay_id":   store.IDString(bay.ID),
			store.FilterLimit: "1",
		})
		if err != nil {
			return err
		}

		if existing == nil {
			return errors.Wrap(model.ErrApply, "module expected to exist: "+proposal.Identifier)
		}

		payload := restrict(proposal.Diff, "status", "serial")
		if moduleType != nil {
			payload["module_type"] = moduleType.ID
		}

		if _, err := h.endpoint(store.KindModule).Update(h.ctx, existing, payload); err != nil {
			return err
		}

		h.wrote(model.KindModule, model.ActionUpdate, proposal.Identifier)
	}

	return nil
}

func (h *applyHandler) deviceInterface(task *applyTask, name string) (*store.Record, error) {
	if iface, cached := task.interfaces[name]; cached {
		return iface, nil
	}

	iface, err := h.deviceChild(store.KindInterface, task.device, name)
	if err != nil {
		return nil, err
	}

	if iface != nil {
		task.interfaces[name] = iface
	}

	return iface, nil
}

func (h *applyHandler) interfacePayload(task *applyTask, fields map[string]any) (store.Fields, error) {
	payload := store.Fields{}

	for k, v := range fields {
		if k != "lag" {
			payload[k] = v
			continue
		}

		name, _ := v.(string)
		if name == "" {
			payload[k] = nil
			continue
		}

		lag, err := h.deviceInterface(task, name)
		if err != nil {
			return nil, err
		}

		if lag == nil {
			return nil, errors.Wrap(model.ErrDependencyResolution, "LAG interface not found: "+name)
		}

		payload[k] = lag.ID
	}

	return payload, nil
}

func (h *applyHandler) ApplyInterfaces(s sw.StateSwitch, _ sw.TransitionArgs) error {
	task, err := taskOf(s)
	if err != nil {
		return err
	}

	for _, proposal := range task.batch.Interfaces {
		switch proposal.Action {
		case model.ActionCreate:
			payload, err := h.interfacePayload(task, nonNil(proposal.Desired))
			if err != nil {
				return err
			}

			payload["device"] = task.device.ID
			payload["name"] = proposal.Identifier

			record, err := h.endpoint(store.KindInterface).Create(h.ctx, payload)
			if err != nil {
				return err
			}

			task.interfaces[proposal.Identifier] = record
			h.wrote(model.KindInterface, model.ActionCreate, proposal.Identifier)
		case model.ActionUpdate:
			existing, err := h.deviceInterface(task, proposal.Identifier)
			if err != nil {
				return err
			}

			if existing == nil {
				return errors.Wrap(model.ErrApply, "interface expected to exist: "+proposal.Identifier)
			}

			payload, err := h.interfacePayload(task, proposal.Diff)
			if err != nil {
				return err
			}

			record, err := h.endpoint(store.KindInterface).Update(h.ctx, existing, payload)
			if err != nil {
				return err
			}

			task.interfaces[proposal.Identifier] = record
			h.wrote(model.KindInterface, model.ActionUpdate, proposal.Identifier)
		default:
			h.logger.WithField("identifier", proposal.Identifier).Debug("interface unchanged")
		}
	}

	return nil
}

func (h *applyHandler) ReconcileLags(s sw.StateSwitch, _ sw.TransitionArgs) error {
	task, err := taskOf(s)
	if err != nil {
		return err
	}

	for _, proposal := range task.batch.Lags {
		if proposal.Action == model.ActionNoop {
			continue
		}

		members, _ := proposal.Desired["members"].([]string)
		if err := h.reconcileLag(task, proposal.Identifier, members); err != nil {
			return err
		}
	}

	return nil
}

func (h *applyHandler) Verify(s sw.StateSwitch, _ sw.TransitionArgs) error {
	task, err := taskOf(s)
	if err != nil {
		return err
	}

	task.post, err = h.planner.Build(h.ctx, task.inventory)

	return err
}

func (h *applyHandler) ApplyFailed(s sw.StateSwitch, _ sw.TransitionArgs) error {
	h.logger.WithField("state", s.State()).Warn("apply failed, writes made so far are not rolled back")
	return nil
}

func (h *applyHandler) PublishState(s sw.StateSwitch, _ sw.TransitionArgs) error {
	h.logger.WithField("state", s.State()).Debug("apply state")
	return nil
}
