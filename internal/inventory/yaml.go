package inventory

import (
	"context"
	"os"

	"github.com/metal-toolbox/netsync/internal/model"
	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

// YAML is a Source reading the inventory from a document mirroring model.Inventory.
type YAML struct {
	path string
}

// NewYAML returns a Source reading the inventory file at path.
func NewYAML(path string) *YAML {
	return &YAML{path: path}
}

func (y *YAML) Kind() string {
	return SourceKindYAML
}

// Inventory reads, defaults and validates the inventory file.
func (y *YAML) Inventory(_ context.Context) (*model.Inventory, error) {
	b, err := os.ReadFile(y.path)
	if err != nil {
		return nil, errors.Wrap(model.ErrConfiguration, "inventory file: "+err.Error())
	}

	return ParseYAML(b)
}

// ParseYAML decodes an inventory document.
func ParseYAML(b []byte) (*model.Inventory, error) {
	inv := &model.Inventory{}

	if err := yaml.Unmarshal(b, inv); err != nil {
		return nil, errors.Wrap(model.ErrInventory, "decode: "+err.Error())
	}

	inv.SetDefaults()

	if err := inv.Validate(); err != nil {
		return nil, err
	}

	return inv, nil
}
