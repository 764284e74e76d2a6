package reconcile

import (
	"fmt"
	"strings"

	"github.com/metal-toolbox/netsync/internal/model"
)

// summarySamples is the number of created identifiers listed per group.
const summarySamples = 3

// Summary renders the batch as one line for the device and one line per child group.
func Summary(batch *model.ProposalBatch) string {
	lines := []string{
		fmt.Sprintf("Device -> %s: %s", strings.ToUpper(string(batch.Device.Action)), batch.Device.Identifier),
		summarizeGroup("Module bays", batch.ModuleBays),
		summarizeGroup("Modules", batch.Modules),
		summarizeGroup("Interfaces", batch.Interfaces),
		summarizeGroup("LAGs", batch.Lags),
	}

	return strings.Join(lines, "\n")
}

func summarizeGroup(label string, proposals []model.Proposal) string {
	if len(proposals) == 0 {
		return label + ": none"
	}

	counts := map[model.Action]int{}
	created := []string{}

	for _, p := range proposals {
		counts[p.Action]++

		if p.Action == model.ActionCreate {
			created = append(created, p.Identifier)
		}
	}

	parts := []string{}

	for _, action := range model.Actions() {
		if counts[action] > 0 {
			parts = append(parts, fmt.Sprintf("%s=%d", action, counts[action]))
		}
	}

	line := label + ": " + strings.Join(parts, ", ")

	if len(created) > 0 {
		sample := strings.Join(created, ", ")
		if len(created) > summarySamples {
			sample = strings.Join(created[:summarySamples], ", ") + ", …"
		}

		line += " | create: " + sample
	}

	return line
}
