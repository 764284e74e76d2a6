package inventory

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/metal-toolbox/netsync/internal/fixtures"
	"github.com/metal-toolbox/netsync/internal/harvest"
	"github.com/metal-toolbox/netsync/internal/model"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

const inventoryYAML = `
device:
  name: lab-r1
  site_slug: lab
  role_slug: core
  manufacturer_slug: nokia
  device_type_slug: nokia-7750-sr
  tags: [lab]
module_bays:
  - name: Card 1
modules:
  - bay_name: Card 1
    module_type_model: imm-24
interfaces:
  - name: lag-1
    type_slug: lag
  - name: 1/1/1
    type_slug: other
    lag: lag-1
    mtu: 9212
  - name: 1/1/2
    type_slug: other
    enabled: false
lags:
  - name: lag-1
    members: [1/1/1]
`

func Test_ParseYAML(t *testing.T) {
	inv, err := ParseYAML([]byte(inventoryYAML))
	require.Nil(t, err)

	assert.Equal(t, "lab-r1", inv.Device.Name)
	assert.Equal(t, model.StatusActive, inv.Device.Status)
	assert.Equal(t, []string{"lab"}, inv.Device.Tags)

	assert.Equal(t, []model.ModuleBay{{Name: "Card 1", Label: "Card 1", Position: "1"}}, inv.ModuleBays)
	assert.Equal(t, model.StatusActive, inv.Modules[0].Status)

	require.Len(t, inv.Interfaces, 3)
	assert.True(t, inv.Interfaces[0].Enabled)
	assert.Equal(t, 9212, *inv.Interfaces[1].MTU)
	assert.False(t, inv.Interfaces[2].Enabled)
	assert.True(t, inv.Lags[0].Enabled)
}

func Test_ParseYAMLErrors(t *testing.T) {
	testcases := []struct {
		name string
		doc  string
	}{
		{"not yaml", "device: [unterminated"},
		{"no device name", "device:\n  site_slug: lab\n"},
		{
			"unknown LAG reference",
			"device:\n  name: r1\ninterfaces:\n  - name: 1/1/1\n    lag: lag-9\n",
		},
	}

	for _, tc := range testcases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := ParseYAML([]byte(tc.doc))
			assert.ErrorIs(t, err, model.ErrInventory)
		})
	}
}

func Test_YAMLSource(t *testing.T) {
	path := filepath.Join(t.TempDir(), "inventory.yaml")
	require.Nil(t, os.WriteFile(path, []byte(inventoryYAML), 0o600))

	source := NewYAML(path)
	assert.Equal(t, SourceKindYAML, source.Kind())

	inv, err := source.Inventory(context.Background())
	require.Nil(t, err)
	assert.Equal(t, "lab-r1", inv.Device.Name)

	_, err = NewYAML(filepath.Join(t.TempDir(), "missing.yaml")).Inventory(context.Background())
	assert.ErrorIs(t, err, model.ErrConfiguration)
}

func Test_SampleSource(t *testing.T) {
	inv, err := NewSample(fixtures.Rules()).Inventory(context.Background())
	require.Nil(t, err)

	assert.Equal(t, model.Device{
		Name:             SampleDeviceName,
		SiteSlug:         "sim",
		RoleSlug:         "access-switch",
		ManufacturerSlug: "nokia",
		DeviceTypeSlug:   "nokia-7750-sr",
		Status:           model.StatusActive,
	}, inv.Device)

	assert.Equal(t, "lag", inv.InterfaceByName(SampleLagName).TypeSlug)
	assert.Equal(t, "other", inv.InterfaceByName("1/1/2").TypeSlug)
	assert.Equal(t, []string{"mda-imm-24", "mda-xc-12"}, inv.ModuleTypeModels())
	assert.Nil(t, inv.Validate())
}

func Test_HarvestSource(t *testing.T) {
	ctrl := gomock.NewController(t)
	session := fixtures.NewMockSession(ctrl)

	session.EXPECT().Open(gomock.Any()).Times(1).Return(nil)

	for command, out := range fixtures.SROSOutput() {
		session.EXPECT().Run(gomock.Any(), command).Times(1).Return(out, nil)
	}

	session.EXPECT().Close().Times(1).Return(nil)

	source := NewHarvest(harvest.NewCollector(session, &harvest.NokiaSROS{}, fixtures.Rules(), logrus.New()))
	assert.Equal(t, SourceKindHarvest, source.Kind())

	inv, err := source.Inventory(context.Background())
	require.Nil(t, err)
	assert.NotEmpty(t, inv.Device.Name)
}
