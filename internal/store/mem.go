package store

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"sync"

	"github.com/pkg/errors"
	"golang.org/x/exp/maps"
	"golang.org/x/exp/slices"
)

// references maps the reference fields of each kind to the kind they point at.
var references = map[Kind]map[string]Kind{
	KindDevice:     {"site": KindSite, "role": KindRole, "device_type": KindDeviceType},
	KindDeviceType: {"manufacturer": KindManufacturer},
	KindModuleType: {"manufacturer": KindManufacturer},
	KindModuleBay:  {"device": KindDevice},
	KindModule:     {"device": KindDevice, "module_bay": KindModuleBay, "module_type": KindModuleType},
	KindInterface:  {"device": KindDevice, "lag": KindInterface},
}

// choices lists the fields surfaced as {value, label} objects on read.
var choices = map[Kind][]string{
	KindDevice:    {"status"},
	KindModule:    {"status"},
	KindInterface: {"type"},
}

// MemStore is an in memory inventory system.
//
// Records are held as written, references are resolved into nested objects when read.
type MemStore struct {
	mu *sync.RWMutex

	// records is a map of kinds to record IDs to written fields
	records map[Kind]map[int]Fields
	nextID  map[Kind]int
}

// NewMemStore returns an empty in memory inventory.
func NewMemStore() *MemStore {
	return &MemStore{
		mu:      &sync.RWMutex{},
		records: map[Kind]map[int]Fields{},
		nextID:  map[Kind]int{},
	}
}

// Endpoint returns the endpoint serving kind.
func (m *MemStore) Endpoint(kind Kind) Endpoint {
	return &memEndpoint{store: m, kind: kind}
}

// Seed creates a record, it is a shorthand for test and simulation setups.
func (m *MemStore) Seed(kind Kind, fields Fields) (*Record, error) {
	return m.create(kind, fields)
}

// Count returns the number of records of kind.
func (m *MemStore) Count(kind Kind) int {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return len(m.records[kind])
}

func (m *MemStore) create(kind Kind, fields Fields) (*Record, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.checkReferences(kind, fields); err != nil {
		return nil, err
	}

	if m.records[kind] == nil {
		m.records[kind] = map[int]Fields{}
	}

	m.nextID[kind]++
	id := m.nextID[kind]

	stored := Fields{}
	for k, v := range fields {
		stored[k] = v
	}

	m.records[kind][id] = stored

	return m.read(kind, id), nil
}

func (m *MemStore) update(kind Kind, id int, fields Fields) (*Record, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	stored, exists := m.records[kind][id]
	if !exists {
		return nil, errors.Wrap(ErrRecordNotFound, fmt.Sprintf("%s id: %d", kind, id))
	}

	if err := m.checkReferences(kind, fields); err != nil {
		return nil, err
	}

	for k, v := range fields {
		stored[k] = v
	}

	return m.read(kind, id), nil
}

func (m *MemStore) filter(kind Kind, filter Filter) ([]*Record, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	limit := 0

	if v, exists := filter[FilterLimit]; exists {
		var err error

		limit, err = strconv.Atoi(v)
		if err != nil {
			return nil, errors.Wrap(ErrQuery, "invalid limit: "+v)
		}
	}

	ids := maps.Keys(m.records[kind])
	slices.Sort(ids)

	records := []*Record{}

	for _, id := range ids {
		if !m.matches(kind, m.records[kind][id], filter) {
			continue
		}

		records = append(records, m.read(kind, id))

		if limit > 0 && len(records) == limit {
			break
		}
	}

	return records, nil
}

func (m *MemStore) matches(kind Kind, stored Fields, filter Filter) bool {
	for key, want := range filter {
		if key == FilterLimit {
			continue
		}

		if ref, found := strings.CutSuffix(key, "_id"); found {
			if _, isRef := references[kind][ref]; isRef {
				if stored[ref] == nil || IDString(toInt(stored[ref])) != want {
					return false
				}

				continue
			}
		}

		v, exists := stored[key]
		if !exists || v == nil || fmt.Sprint(v) != want {
			return false
		}
	}

	return true
}

func (m *MemStore) checkReferences(kind Kind, fields Fields) error {
	for field, target := range references[kind] {
		v, exists := fields[field]
		if !exists || v == nil {
			continue
		}

		if _, found := m.records[target][toInt(v)]; !found {
			return errors.Wrap(ErrInvalidReference, fmt.Sprintf("%s.%s: %v", kind, field, v))
		}
	}

	return nil
}

// read returns the record with references and choices expanded.
func (m *MemStore) read(kind Kind, id int) *Record {
	stored := m.records[kind][id]

	fields := Fields{"id": id}

	for k, v := range stored {
		fields[k] = v
	}

	for field, target := range references[kind] {
		v, exists := stored[field]
		if !exists || v == nil {
			fields[field] = nil
			continue
		}

		fields[field] = m.brief(target, toInt(v))
	}

	for _, field := range choices[kind] {
		if v, exists := stored[field]; exists && v != nil {
			fields[field] = map[string]any{"value": v, "label": fmt.Sprint(v)}
		}
	}

	return &Record{ID: id, Fields: fields}
}

// brief returns the nested representation of a referenced record.
func (m *MemStore) brief(kind Kind, id int) map[string]any {
	stored := m.records[kind][id]

	nested := map[string]any{"id": id}

	for _, attr := range []string{"name", "slug", "model"} {
		if v, exists := stored[attr]; exists {
			nested[attr] = v
		}
	}

	if target, exists := references[kind]["manufacturer"]; exists && stored["manufacturer"] != nil {
		nested["manufacturer"] = m.brief(target, toInt(stored["manufacturer"]))
	}

	return nested
}

type memEndpoint struct {
	store *MemStore
	kind  Kind
}

func (e *memEndpoint) Get(_ context.Context, filter Filter) (*Record, error) {
	records, err := e.store.filter(e.kind, filter)
	if err != nil {
		return nil, err
	}

	return single(e.kind, records)
}

func (e *memEndpoint) Filter(_ context.Context, filter Filter) ([]*Record, error) {
	return e.store.filter(e.kind, filter)
}

func (e *memEndpoint) Create(_ context.Context, fields Fields) (*Record, error) {
	return e.store.create(e.kind, fields)
}

func (e *memEndpoint) Update(_ context.Context, record *Record, fields Fields) (*Record, error) {
	if record == nil {
		return nil, errors.Wrap(ErrRecordNotFound, string(e.kind)+": update of nil record")
	}

	return e.store.update(e.kind, record.ID, fields)
}
