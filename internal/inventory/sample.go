package inventory

import (
	"context"

	"github.com/metal-toolbox/netsync/internal/harvest"
	"github.com/metal-toolbox/netsync/internal/model"
)

const (
	SampleDeviceName = "SIM-SROS-01"
	SampleDeviceType = "Nokia 7750 SR-7"
	SampleLagName    = "LAG 1"
)

// Sample is a Source returning a simulated SR OS router, classified by the rules.
type Sample struct {
	classifier harvest.Classifier
}

// NewSample returns the simulated router Source.
func NewSample(classifier harvest.Classifier) *Sample {
	return &Sample{classifier: classifier}
}

func (s *Sample) Kind() string {
	return SourceKindSample
}

func (s *Sample) Inventory(_ context.Context) (*model.Inventory, error) {
	c := s.classifier
	device := model.Device{Name: SampleDeviceName, Status: model.StatusActive}

	var err error

	if device.SiteSlug, err = c.SiteSlug(SampleDeviceName); err != nil {
		return nil, err
	}

	if device.RoleSlug, err = c.RoleSlug(SampleDeviceName); err != nil {
		return nil, err
	}

	if device.ManufacturerSlug, err = c.ManufacturerSlug(SampleDeviceName); err != nil {
		return nil, err
	}

	if device.DeviceTypeSlug, err = c.DeviceTypeSlug(SampleDeviceType); err != nil {
		return nil, err
	}

	return &model.Inventory{
		Device: device,
		ModuleBays: []model.ModuleBay{
			model.NewModuleBay("Card A"),
			model.NewModuleBay("Card B"),
		},
		Modules: []model.Module{
			{BayName: "Card A", ModuleTypeModel: "mda-imm-24", Status: model.StatusActive},
			{BayName: "Card B", ModuleTypeModel: "mda-xc-12", Status: model.StatusActive},
		},
		Interfaces: []model.Interface{
			{
				Name:        SampleLagName,
				TypeSlug:    c.InterfaceType(SampleLagName, true),
				Enabled:     true,
				Description: "Simulated uplink",
			},
			{
				Name:        "1/1/1",
				TypeSlug:    c.InterfaceType("1/1/1", false),
				Enabled:     true,
				Description: "Simulated member",
				Lag:         SampleLagName,
			},
			{
				Name:        "1/1/2",
				TypeSlug:    c.InterfaceType("1/1/2", false),
				Enabled:     true,
				Description: "Access port",
			},
		},
		Lags: []model.Lag{
			{
				Name:        SampleLagName,
				Description: "Simulated bundle",
				Members:     []string{"1/1/1"},
				Enabled:     true,
			},
		},
	}, nil
}
