package reconcile

import (
	"github.com/metal-toolbox/netsync/internal/model"
	"github.com/metal-toolbox/netsync/internal/store"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"golang.org/x/exp/slices"
)

// membershipDelta returns the sorted members to add and remove to turn current into desired.
func membershipDelta(desired, current []string) (toAdd, toRemove []string) {
	toAdd, toRemove = []string{}, []string{}

	for _, name := range desired {
		if !slices.Contains(current, name) {
			toAdd = append(toAdd, name)
		}
	}

	for _, name := range current {
		if !slices.Contains(desired, name) {
			toRemove = append(toRemove, name)
		}
	}

	slices.Sort(toAdd)
	slices.Sort(toRemove)

	return toAdd, toRemove
}

// reconcileLag points the desired members at the LAG interface and clears the LAG
// reference of the interfaces that are no longer members.
func (h *applyHandler) reconcileLag(task *applyTask, lagName string, desired []string) error {
	lag, err := h.deviceInterface(task, lagName)
	if err != nil {
		return err
	}

	if lag == nil {
		return errors.Wrap(model.ErrDependencyResolution, "LAG interface not found: "+lagName)
	}

	records, err := h.endpoint(store.KindInterface).Filter(h.ctx, store.Filter{
		"device_id":       store.IDString(task.device.ID),
		"lag_id":          store.IDString(lag.ID),
		store.FilterLimit: "0",
	})
	if err != nil {
		return err
	}

	current := make([]string, 0, len(records))
	for _, record := range records {
		current = append(current, record.String("name"))
	}

	toAdd, toRemove := membershipDelta(desired, current)

	logger := h.logger.WithFields(logrus.Fields{"identifier": lagName, "model": model.KindLag})

	for _, name := range toAdd {
		iface, err := h.deviceChild(store.KindInterface, task.device, name)
		if err != nil {
			return err
		}

		if iface == nil {
			return errors.Wrap(model.ErrDependencyResolution, "LAG member interface not found: "+name)
		}

		if _, err := h.endpoint(store.KindInterface).Update(h.ctx, iface, store.Fields{"lag": lag.ID}); err != nil {
			return err
		}

		logger.WithField("member", name).Info("added LAG member")
	}

	for _, name := range toRemove {
		iface, err := h.deviceChild(store.KindInterface, task.device, name)
		if err != nil {
			return err
		}

		if iface == nil {
			continue
		}

		if _, err := h.endpoint(store.KindInterface).Update(h.ctx, iface, store.Fields{"lag": nil}); err != nil {
			return err
		}

		logger.WithField("member", name).Info("removed LAG member")
	}

	if len(toAdd)+len(toRemove) > 0 {
		h.wrote(model.KindLag, model.ActionUpdate, lagName)
	}

	return nil
}
