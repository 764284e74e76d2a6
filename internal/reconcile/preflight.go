package reconcile

import (
	"context"
	"fmt"
	"strings"

	"github.com/metal-toolbox/netsync/internal/model"
	"github.com/metal-toolbox/netsync/internal/store"
	"golang.org/x/exp/slices"
)

const preflightOK = "Preflight: manufacturers, device type, and modules are present."

// Preflight reports the remote objects the inventory references that do not exist.
//
// Lookup errors are reported as issues, preflight never fails.
func Preflight(ctx context.Context, repo store.Repository, inv *model.Inventory) []string {
	issues := []string{}

	lookup := func(kind store.Kind, filter store.Filter) (*store.Record, bool) {
		record, err := repo.Endpoint(kind).Get(ctx, filter)
		if err != nil {
			issues = append(issues, fmt.Sprintf("%s lookup failed: %s", kind, err))
			return nil, true
		}

		return record, record != nil
	}

	var manufacturerID int

	if slug := inv.Device.ManufacturerSlug; slug == "" {
		issues = append(issues, "Device manufacturer slug is missing; update rules defaults.")
	} else if manufacturer, found := lookup(store.KindManufacturer, store.Filter{"slug": slug}); !found {
		issues = append(issues, fmt.Sprintf("Manufacturer slug '%s' not found in NetBox.", slug))
	} else if manufacturer != nil {
		manufacturerID = manufacturer.ID
	}

	slug := inv.Device.DeviceTypeSlug
	if deviceType, found := lookup(store.KindDeviceType, store.Filter{"slug": slug}); !found {
		issues = append(issues, fmt.Sprintf("Device type slug '%s' not found in NetBox.", slug))
	} else if deviceType != nil && inv.Device.ManufacturerSlug == "" {
		manufacturerID = deviceType.RefID("manufacturer")
	}

	missing := []string{}

	// same candidates apply resolves modules against
	for _, moduleModel := range inv.ModuleTypeModels() {
		candidates, err := moduleTypeCandidates(ctx, repo, moduleModel, manufacturerID)
		if err != nil {
			issues = append(issues, fmt.Sprintf("module type lookup failed: %s", err))
			continue
		}

		if len(candidates) == 0 {
			missing = append(missing, moduleModel)
		}
	}

	if len(missing) > 0 {
		slices.Sort(missing)
		issues = append(issues, fmt.Sprintf("Module types not found: %s.", strings.Join(missing, ", ")))
	}

	return issues
}

// FormatPreflight renders preflight issues for the dry-run summary.
func FormatPreflight(issues []string) string {
	if len(issues) == 0 {
		return preflightOK
	}

	lines := []string{"Preflight issues detected:"}
	for _, issue := range issues {
		lines = append(lines, "- "+issue)
	}

	return strings.Join(lines, "\n")
}
