package rules

import (
	"fmt"
	"os"

	"github.com/hashicorp/go-multierror"
	"github.com/metal-toolbox/netsync/internal/model"
	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

// File is the rules YAML document.
type File struct {
	Defaults         Defaults          `yaml:"defaults"`
	Roles            []Rule            `yaml:"roles"`
	Sites            []Rule            `yaml:"sites"`
	Manufacturers    []Rule            `yaml:"manufacturers"`
	DeviceTypes      []Rule            `yaml:"device_types"`
	InterfaceTypes   *InterfaceTypes   `yaml:"interface_types"`
	DeviceTypeSuffix *DeviceTypeSuffix `yaml:"device_type_suffix"`
}

// Load reads and compiles the rules file at path.
func Load(path string) (*Engine, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(model.ErrConfiguration, "rules file: "+err.Error())
	}

	return Parse(b)
}

// Parse compiles a rules YAML document.
func Parse(b []byte) (*Engine, error) {
	f := &File{}
	if err := yaml.Unmarshal(b, f); err != nil {
		return nil, errors.Wrap(model.ErrConfiguration, "rules file: "+err.Error())
	}

	return New(f)
}

// New compiles the rules, every invalid rule is reported in the returned error.
func New(f *File) (*Engine, error) {
	var merr *multierror.Error

	compile := func(section string, rules []Rule) []*Rule {
		compiled := make([]*Rule, 0, len(rules))

		for idx := range rules {
			rule := rules[idx]
			if err := rule.compile(); err != nil {
				merr = multierror.Append(merr, errors.Wrap(err, fmt.Sprintf("%s[%d]", section, idx)))
				continue
			}

			compiled = append(compiled, &rule)
		}

		return compiled
	}

	engine := &Engine{
		defaults:      f.Defaults,
		roles:         compile("roles", f.Roles),
		sites:         compile("sites", f.Sites),
		manufacturers: compile("manufacturers", f.Manufacturers),
		deviceTypes:   compile("device_types", f.DeviceTypes),
		interfaceTypes: InterfaceTypes{
			PhysicalDefault: DefaultPhysicalType,
			LagDefault:      DefaultLagType,
		},
	}

	if f.InterfaceTypes != nil {
		if f.InterfaceTypes.PhysicalDefault != "" {
			engine.interfaceTypes.PhysicalDefault = f.InterfaceTypes.PhysicalDefault
		}

		if f.InterfaceTypes.LagDefault != "" {
			engine.interfaceTypes.LagDefault = f.InterfaceTypes.LagDefault
		}

		for idx, m := range f.InterfaceTypes.Matches {
			if m.Type == "" {
				merr = multierror.Append(merr, errors.New(fmt.Sprintf("interface_types.matches[%d] type is empty", idx)))
				continue
			}

			m.rule = &Rule{Pattern: m.Pattern, Value: m.Type}
			if err := m.rule.compile(); err != nil {
				merr = multierror.Append(merr, errors.Wrap(err, fmt.Sprintf("interface_types.matches[%d]", idx)))
				continue
			}

			engine.interfaceTypes.Matches = append(engine.interfaceTypes.Matches, m)
		}
	}

	if f.DeviceTypeSuffix != nil {
		engine.deviceTypeSuffix = *f.DeviceTypeSuffix
	}

	if err := merr.ErrorOrNil(); err != nil {
		return nil, errors.Wrap(model.ErrConfiguration, err.Error())
	}

	return engine, nil
}
