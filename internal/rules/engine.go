package rules

import (
	"github.com/metal-toolbox/netsync/internal/model"
	"github.com/pkg/errors"
)

const (
	DefaultLagType      = "lag"
	DefaultPhysicalType = "other"
)

// Defaults are the slugs returned when no rule matches.
type Defaults struct {
	RoleSlug         string `yaml:"role_slug"`
	SiteSlug         string `yaml:"site_slug"`
	ManufacturerSlug string `yaml:"manufacturer_slug"`
	DeviceTypeSlug   string `yaml:"device_type_slug"`
}

// InterfaceMatch assigns Type to physical interfaces whose name matches Pattern.
type InterfaceMatch struct {
	Pattern string `yaml:"pattern"`
	Type    string `yaml:"type"`

	rule *Rule
}

// InterfaceTypes configures interface type classification.
type InterfaceTypes struct {
	PhysicalDefault string           `yaml:"physical_default"`
	LagDefault      string           `yaml:"lag_default"`
	Matches         []InterfaceMatch `yaml:"matches"`
}

// DeviceTypeSuffix is appended to device type slugs when Enabled.
type DeviceTypeSuffix struct {
	Enabled bool   `yaml:"enabled"`
	Value   string `yaml:"value"`
}

// Engine classifies raw device strings into canonical slugs.
//
// Rules are evaluated in declaration order and the first match wins.
type Engine struct {
	defaults         Defaults
	roles            []*Rule
	sites            []*Rule
	manufacturers    []*Rule
	deviceTypes      []*Rule
	interfaceTypes   InterfaceTypes
	deviceTypeSuffix DeviceTypeSuffix
}

// RoleSlug classifies the device role from its host name.
func (e *Engine) RoleSlug(hostname string) (string, error) {
	return e.classify(hostname, e.roles, e.defaults.RoleSlug, "role_slug")
}

// SiteSlug classifies the device site from its host name.
func (e *Engine) SiteSlug(hostname string) (string, error) {
	return e.classify(hostname, e.sites, e.defaults.SiteSlug, "site_slug")
}

// ManufacturerSlug classifies the device manufacturer from its host name.
func (e *Engine) ManufacturerSlug(hostname string) (string, error) {
	return e.classify(hostname, e.manufacturers, e.defaults.ManufacturerSlug, "manufacturer_slug")
}

// DeviceTypeSlug classifies a raw device type descriptor, falling back to its slugified form
// when no rule matches and no default is configured.
func (e *Engine) DeviceTypeSlug(deviceType string) (string, error) {
	value, err := first(deviceType, e.deviceTypes)
	if err != nil || value != "" {
		return value, err
	}

	if e.defaults.DeviceTypeSlug != "" {
		return e.defaults.DeviceTypeSlug, nil
	}

	return model.Slugify(deviceType), nil
}

// DeviceTypeSuffix returns the configured device type suffix, empty when disabled.
func (e *Engine) DeviceTypeSuffix() string {
	if !e.deviceTypeSuffix.Enabled {
		return ""
	}

	return e.deviceTypeSuffix.Value
}

// InterfaceType returns the interface type slug, LAG interfaces always get the LAG type.
func (e *Engine) InterfaceType(name string, isLag bool) string {
	if isLag {
		return e.interfaceTypes.LagDefault
	}

	for _, m := range e.interfaceTypes.Matches {
		if m.rule.re.MatchString(name) {
			return m.Type
		}
	}

	return e.interfaceTypes.PhysicalDefault
}

func (e *Engine) classify(candidate string, rules []*Rule, fallback, category string) (string, error) {
	value, err := first(candidate, rules)
	if err != nil || value != "" {
		return value, err
	}

	if fallback != "" {
		return fallback, nil
	}

	return "", errors.Wrap(
		model.ErrClassification,
		"no rule matched for "+category+" and no default configured",
	)
}

func first(candidate string, rules []*Rule) (string, error) {
	for _, rule := range rules {
		value, err := rule.Apply(candidate)
		if err != nil {
			return "", err
		}

		if value != "" {
			return value, nil
		}
	}

	return "", nil
}
