package inventory

import (
	"context"

	"github.com/metal-toolbox/netsync/internal/harvest"
	"github.com/metal-toolbox/netsync/internal/model"
)

const (
	SourceKindYAML    = "yaml"
	SourceKindSample  = "sample"
	SourceKindHarvest = "harvest"
)

// Source produces the normalized inventory of one device for a reconciliation pass.
type Source interface {
	// Kind identifies the source in logs.
	Kind() string

	// Inventory returns a fresh inventory on every call.
	Inventory(ctx context.Context) (*model.Inventory, error)
}

// Harvest is a Source collecting the inventory from a live device.
type Harvest struct {
	collector *harvest.Collector
}

// NewHarvest returns a Source harvesting through the collector.
func NewHarvest(collector *harvest.Collector) *Harvest {
	return &Harvest{collector: collector}
}

func (h *Harvest) Kind() string {
	return SourceKindHarvest
}

func (h *Harvest) Inventory(ctx context.Context) (*model.Inventory, error) {
	return h.collector.Harvest(ctx)
}
