package harvest

import (
	"github.com/metal-toolbox/netsync/internal/model"
	"github.com/metal-toolbox/netsync/internal/transport"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"golang.org/x/exp/maps"
	"golang.org/x/exp/slices"
)

const (
	pkgName = "internal/harvest"
)

var (
	ErrUnsupportedFamily = errors.New("unsupported device family")
	ErrLabelNotFound     = errors.New("required label not found in device output")
)

// Classifier assigns canonical slugs to raw device strings.
type Classifier interface {
	RoleSlug(hostname string) (string, error)
	SiteSlug(hostname string) (string, error)
	ManufacturerSlug(hostname string) (string, error)
	DeviceTypeSlug(deviceType string) (string, error)
	InterfaceType(name string, isLag bool) string
}

// Blocks holds the raw output of each command run on the device, keyed by command.
type Blocks map[string]string

// Family extracts a normalized inventory from the raw output of its commands.
type Family interface {
	// Name is the key the family is registered by.
	Name() string
	// Transport is the session kind the commands are run over.
	Transport() transport.Kind
	// Commands returns the commands whose output Extract expects in Blocks.
	Commands() []string
	// Extract returns the inventory or fails, a partial inventory is never returned.
	Extract(blocks Blocks, classifier Classifier, logger *logrus.Entry) (*model.Inventory, error)
}

// Registry holds the device families by name.
type Registry struct {
	families map[string]Family
}

// NewRegistry returns a registry with the given families.
func NewRegistry(families ...Family) *Registry {
	r := &Registry{families: map[string]Family{}}
	for _, f := range families {
		r.Register(f)
	}

	return r
}

// DefaultRegistry returns a registry with the built in device families.
func DefaultRegistry() *Registry {
	return NewRegistry(&NokiaSROS{}, &IFMIB{})
}

// Register adds the family, replacing any registered under the same name.
func (r *Registry) Register(f Family) {
	r.families[f.Name()] = f
}

// Lookup returns the family registered by name.
func (r *Registry) Lookup(name string) (Family, error) {
	f, exists := r.families[name]
	if !exists {
		return nil, errors.Wrap(model.ErrCollection, ErrUnsupportedFamily.Error()+": "+name)
	}

	return f, nil
}

// Names returns the registered family names, sorted.
func (r *Registry) Names() []string {
	names := maps.Keys(r.families)
	slices.Sort(names)

	return names
}
