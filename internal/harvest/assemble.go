package harvest

import (
	"regexp"
	"strings"

	"github.com/metal-toolbox/netsync/internal/model"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"golang.org/x/exp/maps"
	"golang.org/x/exp/slices"
)

// extractFirst returns the trimmed first capture group of pattern in text.
func extractFirst(pattern *regexp.Regexp, text, label string) (string, error) {
	match := pattern.FindStringSubmatch(text)
	if match == nil || strings.TrimSpace(match[1]) == "" {
		return "", labelNotFound(label)
	}

	return strings.TrimSpace(match[1]), nil
}

func labelNotFound(label string) error {
	return errors.Wrap(model.ErrCollection, ErrLabelNotFound.Error()+": "+label)
}

// classifyDevice returns the device identity classified from the host name and the raw device type.
func classifyDevice(hostname, deviceType string, c Classifier) (model.Device, error) {
	device := model.Device{Name: hostname, Status: model.StatusActive}

	var err error

	if device.SiteSlug, err = c.SiteSlug(hostname); err != nil {
		return device, err
	}

	if device.RoleSlug, err = c.RoleSlug(hostname); err != nil {
		return device, err
	}

	if device.ManufacturerSlug, err = c.ManufacturerSlug(hostname); err != nil {
		return device, err
	}

	if device.DeviceTypeSlug, err = c.DeviceTypeSlug(deviceType); err != nil {
		return device, err
	}

	return device, nil
}

type port struct {
	description string
	enabled     bool
}

type lag struct {
	description string
	enabled     bool
	members     map[string]struct{}
}

type moduleKey struct {
	bay   string
	model string
}

// assembly accumulates harvested records keyed by name and emits them in sorted order.
type assembly struct {
	device     model.Device
	bays       map[string]struct{}
	modules    []model.Module
	moduleKeys map[moduleKey]struct{}
	ports      map[string]*port
	lags       map[string]*lag

	// memberOf maps a member port to the first LAG it was listed in
	memberOf map[string]string
}

func newAssembly(device model.Device) *assembly {
	return &assembly{
		device:     device,
		bays:       map[string]struct{}{},
		moduleKeys: map[moduleKey]struct{}{},
		ports:      map[string]*port{},
		lags:       map[string]*lag{},
		memberOf:   map[string]string{},
	}
}

func (a *assembly) addBay(name string) {
	if name != "" {
		a.bays[name] = struct{}{}
	}
}

// addModule records the module once per (bay, model) pair.
func (a *assembly) addModule(bay, moduleModel string) {
	if bay == "" || moduleModel == "" {
		return
	}

	key := moduleKey{bay, moduleModel}
	if _, exists := a.moduleKeys[key]; exists {
		return
	}

	a.moduleKeys[key] = struct{}{}
	a.modules = append(a.modules, model.Module{
		BayName:         bay,
		ModuleTypeModel: moduleModel,
		Status:          model.StatusActive,
	})
}

func (a *assembly) addPort(name, description string, enabled bool) {
	a.ports[name] = &port{description: strings.TrimSpace(description), enabled: enabled}
}

func (a *assembly) addLag(name, description string, enabled bool) *lag {
	l, exists := a.lags[name]
	if !exists {
		l = &lag{enabled: true, members: map[string]struct{}{}}
		a.lags[name] = l
	}

	l.description = strings.TrimSpace(description)
	l.enabled = enabled

	return l
}

func (a *assembly) addLagMember(lagName, member string) {
	l, exists := a.lags[lagName]
	if !exists {
		l = a.addLag(lagName, "", true)
	}

	l.members[member] = struct{}{}

	if _, exists := a.memberOf[member]; !exists {
		a.memberOf[member] = lagName
	}
}

// inventory returns the assembled inventory, bays, interfaces and LAGs in sorted order
// with LAG interfaces ahead of physical ones.
func (a *assembly) inventory(c Classifier, logger *logrus.Entry) *model.Inventory {
	inv := &model.Inventory{
		Device:     a.device,
		ModuleBays: []model.ModuleBay{},
		Modules:    []model.Module{},
		Interfaces: []model.Interface{},
		Lags:       []model.Lag{},
	}

	bayNames := maps.Keys(a.bays)
	slices.Sort(bayNames)

	for _, name := range bayNames {
		inv.ModuleBays = append(inv.ModuleBays, model.NewModuleBay(name))
	}

	inv.Modules = a.modulesByBay(logger)

	lagNames := maps.Keys(a.lags)
	slices.Sort(lagNames)

	owner := a.resolveMembership(lagNames, logger)

	for _, name := range lagNames {
		l := a.lags[name]
		inv.Interfaces = append(inv.Interfaces, model.Interface{
			Name:        name,
			TypeSlug:    c.InterfaceType(name, true),
			Enabled:     l.enabled,
			Description: l.description,
		})
	}

	portNames := maps.Keys(a.ports)
	for member := range owner {
		if _, exists := a.ports[member]; !exists {
			portNames = append(portNames, member)
		}
	}

	slices.Sort(portNames)

	for _, name := range portNames {
		iface := model.Interface{
			Name:     name,
			TypeSlug: c.InterfaceType(name, false),
			Enabled:  true,
			Lag:      owner[name],
		}

		if p, exists := a.ports[name]; exists {
			iface.Description = p.description
			iface.Enabled = p.enabled
		}

		inv.Interfaces = append(inv.Interfaces, iface)
	}

	for _, name := range lagNames {
		l := a.lags[name]

		members := maps.Keys(l.members)
		slices.Sort(members)

		inv.Lags = append(inv.Lags, model.Lag{
			Name:        name,
			Description: l.description,
			Members:     members,
			Enabled:     l.enabled,
		})
	}

	return inv
}

// resolveMembership returns the LAG each member port belongs to, a port listed in more than one
// LAG is kept in the LAG it was first listed in and dropped from the others.
func (a *assembly) resolveMembership(lagNames []string, logger *logrus.Entry) map[string]string {
	for _, name := range lagNames {
		l := a.lags[name]

		members := maps.Keys(l.members)
		slices.Sort(members)

		for _, member := range members {
			if first := a.memberOf[member]; first != name {
				logger.WithFields(logrus.Fields{
					"interface": member,
					"lag":       first,
					"ignored":   name,
				}).Warn("port listed in more than one LAG, keeping the first")

				delete(l.members, member)
			}
		}
	}

	return a.memberOf
}

// modulesByBay keeps one module per bay, the last seen, ordered by bay name.
func (a *assembly) modulesByBay(logger *logrus.Entry) []model.Module {
	byBay := map[string]model.Module{}

	for _, m := range a.modules {
		if prev, exists := byBay[m.BayName]; exists {
			logger.WithFields(logrus.Fields{
				"bay":      m.BayName,
				"replaced": prev.ModuleTypeModel,
				"model":    m.ModuleTypeModel,
			}).Warn("more than one module model harvested for bay, keeping the last")
		}

		byBay[m.BayName] = m
	}

	bays := maps.Keys(byBay)
	slices.Sort(bays)

	modules := make([]model.Module, 0, len(bays))
	for _, bay := range bays {
		modules = append(modules, byBay[bay])
	}

	return modules
}
