package model

import (
	"fmt"
	"strings"

	"github.com/jinzhu/copier"
	"github.com/pkg/errors"
	"golang.org/x/exp/slices"
	"gopkg.in/yaml.v3"
)

const (
	StatusActive = "active"
)

// Device is the normalized identity of a network device.
//
// Name is the unique key the device is looked up by in the inventory system.
type Device struct {
	Name             string         `json:"name" yaml:"name"`
	SiteSlug         string         `json:"site_slug" yaml:"site_slug"`
	RoleSlug         string         `json:"role_slug" yaml:"role_slug"`
	ManufacturerSlug string         `json:"manufacturer_slug" yaml:"manufacturer_slug"`
	DeviceTypeSlug   string         `json:"device_type_slug" yaml:"device_type_slug"`
	Status           string         `json:"status" yaml:"status"`
	Serial           string         `json:"serial,omitempty" yaml:"serial,omitempty"`
	AssetTag         string         `json:"asset_tag,omitempty" yaml:"asset_tag,omitempty"`
	CustomFields     map[string]any `json:"custom_fields,omitempty" yaml:"custom_fields,omitempty"`
	Tags             []string       `json:"tags,omitempty" yaml:"tags,omitempty"`
}

// ModuleBay is a physical module slot on the device chassis.
type ModuleBay struct {
	Name     string `json:"name" yaml:"name"`
	Label    string `json:"label,omitempty" yaml:"label,omitempty"`
	Position string `json:"position,omitempty" yaml:"position,omitempty"`
}

// NewModuleBay returns a bay labelled with its name, positioned by the last token of the name.
func NewModuleBay(name string) ModuleBay {
	return ModuleBay{Name: name, Label: name, Position: BayPosition(name)}
}

// BayPosition returns the last whitespace delimited token of a bay name.
func BayPosition(name string) string {
	fields := strings.Fields(name)
	if len(fields) == 0 {
		return ""
	}

	return fields[len(fields)-1]
}

// Module is a field replaceable unit installed in the bay named by BayName.
type Module struct {
	BayName         string         `json:"bay_name" yaml:"bay_name"`
	ModuleTypeModel string         `json:"module_type_model" yaml:"module_type_model"`
	Status          string         `json:"status" yaml:"status"`
	Serial          string         `json:"serial,omitempty" yaml:"serial,omitempty"`
	CustomFields    map[string]any `json:"custom_fields,omitempty" yaml:"custom_fields,omitempty"`
}

// Interface is a physical or aggregate interface on the device.
type Interface struct {
	Name         string         `json:"name" yaml:"name"`
	TypeSlug     string         `json:"type_slug" yaml:"type_slug"`
	Enabled      bool           `json:"enabled" yaml:"enabled"`
	Description  string         `json:"description,omitempty" yaml:"description,omitempty"`
	Lag          string         `json:"lag,omitempty" yaml:"lag,omitempty"`
	MTU          *int           `json:"mtu,omitempty" yaml:"mtu,omitempty"`
	MACAddress   string         `json:"mac_address,omitempty" yaml:"mac_address,omitempty"`
	TaggedVLANs  []string       `json:"tagged_vlans,omitempty" yaml:"tagged_vlans,omitempty"`
	UntaggedVLAN string         `json:"untagged_vlan,omitempty" yaml:"untagged_vlan,omitempty"`
	CustomFields map[string]any `json:"custom_fields,omitempty" yaml:"custom_fields,omitempty"`
}

// UnmarshalYAML defaults Enabled to true when the document leaves it out.
func (i *Interface) UnmarshalYAML(value *yaml.Node) error {
	type plain Interface

	p := plain{Enabled: true}
	if err := value.Decode(&p); err != nil {
		return err
	}

	*i = Interface(p)

	return nil
}

// Lag is a link aggregation group, Members are interface names.
type Lag struct {
	Name         string         `json:"name" yaml:"name"`
	Description  string         `json:"description,omitempty" yaml:"description,omitempty"`
	Members      []string       `json:"members" yaml:"members"`
	Enabled      bool           `json:"enabled" yaml:"enabled"`
	CustomFields map[string]any `json:"custom_fields,omitempty" yaml:"custom_fields,omitempty"`
}

// UnmarshalYAML defaults Enabled to true when the document leaves it out.
func (l *Lag) UnmarshalYAML(value *yaml.Node) error {
	type plain Lag

	p := plain{Enabled: true}
	if err := value.Decode(&p); err != nil {
		return err
	}

	*l = Lag(p)

	return nil
}

// SortedMembers returns a sorted copy of the LAG members.
func (l *Lag) SortedMembers() []string {
	members := slices.Clone(l.Members)
	slices.Sort(members)

	return members
}

// Inventory is the aggregate of one device and everything harvested from it.
type Inventory struct {
	Device     Device      `json:"device" yaml:"device"`
	ModuleBays []ModuleBay `json:"module_bays" yaml:"module_bays"`
	Modules    []Module    `json:"modules" yaml:"modules"`
	Interfaces []Interface `json:"interfaces" yaml:"interfaces"`
	Lags       []Lag       `json:"lags" yaml:"lags"`
}

// Clone returns a deep copy of the inventory.
func (i *Inventory) Clone() (*Inventory, error) {
	clone := &Inventory{}
	if err := copier.CopyWithOption(clone, i, copier.Option{DeepCopy: true, IgnoreEmpty: true}); err != nil {
		return nil, errors.Wrap(ErrInventory, "clone: "+err.Error())
	}

	return clone, nil
}

// SetDefaults fills in the status of the device and its modules when unset.
func (i *Inventory) SetDefaults() {
	if i.Device.Status == "" {
		i.Device.Status = StatusActive
	}

	for idx := range i.Modules {
		if i.Modules[idx].Status == "" {
			i.Modules[idx].Status = StatusActive
		}
	}

	for idx := range i.ModuleBays {
		if i.ModuleBays[idx].Label == "" {
			i.ModuleBays[idx].Label = i.ModuleBays[idx].Name
		}

		if i.ModuleBays[idx].Position == "" {
			i.ModuleBays[idx].Position = BayPosition(i.ModuleBays[idx].Name)
		}
	}
}

// LagByName returns the LAG with the given name.
func (i *Inventory) LagByName(name string) *Lag {
	for idx := range i.Lags {
		if i.Lags[idx].Name == name {
			return &i.Lags[idx]
		}
	}

	return nil
}

// InterfaceByName returns the interface with the given name.
func (i *Inventory) InterfaceByName(name string) *Interface {
	for idx := range i.Interfaces {
		if i.Interfaces[idx].Name == name {
			return &i.Interfaces[idx]
		}
	}

	return nil
}

// ModuleTypeModels returns the distinct module type models referenced, in first seen order.
func (i *Inventory) ModuleTypeModels() []string {
	models := []string{}

	for _, m := range i.Modules {
		if m.ModuleTypeModel == "" || slices.Contains(models, m.ModuleTypeModel) {
			continue
		}

		models = append(models, m.ModuleTypeModel)
	}

	return models
}

// Validate checks the inventory names are unique and that interfaces and LAGs
// reference each other consistently.
//
// nolint:gocyclo // invariant checks are cyclomatic
func (i *Inventory) Validate() error {
	if i.Device.Name == "" {
		return errors.Wrap(ErrInventory, "device name is empty")
	}

	bays := map[string]bool{}
	for _, b := range i.ModuleBays {
		if bays[b.Name] {
			return errors.Wrap(ErrInventory, "duplicate module bay: "+b.Name)
		}

		bays[b.Name] = true
	}

	modules := map[string]bool{}
	for _, m := range i.Modules {
		if modules[m.BayName] {
			return errors.Wrap(ErrInventory, "more than one module in bay: "+m.BayName)
		}

		modules[m.BayName] = true
	}

	interfaces := map[string]*Interface{}
	for idx := range i.Interfaces {
		iface := &i.Interfaces[idx]
		if _, exists := interfaces[iface.Name]; exists {
			return errors.Wrap(ErrInventory, "duplicate interface: "+iface.Name)
		}

		interfaces[iface.Name] = iface
	}

	for _, iface := range i.Interfaces {
		if iface.Lag == "" {
			continue
		}

		lag := i.LagByName(iface.Lag)
		if lag == nil {
			return errors.Wrap(
				ErrInventory,
				fmt.Sprintf("interface %s references unknown LAG %s", iface.Name, iface.Lag),
			)
		}

		if !slices.Contains(lag.Members, iface.Name) {
			return errors.Wrap(
				ErrInventory,
				fmt.Sprintf("interface %s is not a member of LAG %s", iface.Name, iface.Lag),
			)
		}
	}

	for _, lag := range i.Lags {
		for _, member := range lag.Members {
			iface, exists := interfaces[member]
			if !exists {
				return errors.Wrap(
					ErrInventory,
					fmt.Sprintf("LAG %s member %s is not an interface", lag.Name, member),
				)
			}

			if iface.Lag != lag.Name {
				return errors.Wrap(
					ErrInventory,
					fmt.Sprintf("LAG %s member %s references LAG %q", lag.Name, member, iface.Lag),
				)
			}
		}
	}

	return nil
}
