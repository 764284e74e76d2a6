package reconcile

import (
	"strings"

	"github.com/metal-toolbox/netsync/internal/model"
)

// withSuffixes returns the inventory with the device name and device type suffixes applied.
//
// Suffixes already present are not appended again, the inventory is returned as is when
// nothing changes, else a copy is returned.
func withSuffixes(inv *model.Inventory, nameSuffix, typeSuffix string) (*model.Inventory, error) {
	name := appendSuffix(inv.Device.Name, nameSuffix)
	deviceType := appendSuffix(inv.Device.DeviceTypeSlug, typeSuffix)

	if name == inv.Device.Name && deviceType == inv.Device.DeviceTypeSlug {
		return inv, nil
	}

	clone, err := inv.Clone()
	if err != nil {
		return nil, err
	}

	clone.Device.Name = name
	clone.Device.DeviceTypeSlug = deviceType

	return clone, nil
}

func appendSuffix(value, suffix string) string {
	if suffix == "" || value == "" || strings.HasSuffix(value, suffix) {
		return value
	}

	return value + suffix
}
