package store

import (
	"context"
	"encoding/json"
	"strconv"

	"github.com/pkg/errors"
)

const (
	pkgName = "internal/store"
)

// Kind is an inventory entity kind, each kind is served by its own Endpoint.
type Kind string

const (
	KindDevice       Kind = "devices"
	KindModuleBay    Kind = "module_bays"
	KindModule       Kind = "modules"
	KindInterface    Kind = "interfaces"
	KindManufacturer Kind = "manufacturers"
	KindDeviceType   Kind = "device_types"
	KindModuleType   Kind = "module_types"
	KindSite         Kind = "sites"
	KindRole         Kind = "device_roles"
)

// Kinds returns every entity kind.
func Kinds() []Kind {
	return []Kind{
		KindDevice,
		KindModuleBay,
		KindModule,
		KindInterface,
		KindManufacturer,
		KindDeviceType,
		KindModuleType,
		KindSite,
		KindRole,
	}
}

// FilterLimit is the filter key capping the number of records returned, 0 or absent is unlimited.
const FilterLimit = "limit"

var (
	ErrQuery            = errors.New("inventory store query returned error")
	ErrMultipleResults  = errors.New("get returned more than one record")
	ErrRecordNotFound   = errors.New("record not found")
	ErrInvalidReference = errors.New("record references an unknown object")
	ErrUnknownKind      = errors.New("unknown inventory entity kind")
)

// Filter holds the query parameters of a lookup, for example name, slug or device_id.
type Filter map[string]string

// Fields is a record field mapping.
//
// Written fields reference other records by identifier, read fields surface references as
// nested objects carrying the referenced id, name, slug or model.
type Fields map[string]any

// Record is an inventory object.
type Record struct {
	ID     int
	Fields Fields
}

// Serialize returns the record fields.
func (r *Record) Serialize() Fields {
	return r.Fields
}

// String returns the string value of a top level field.
func (r *Record) String(key string) string {
	s, _ := r.Fields[key].(string)
	return s
}

// Ref returns an attribute of a nested reference or choice field, nil when unset.
func (r *Record) Ref(key, attr string) any {
	nested, ok := r.Fields[key].(map[string]any)
	if !ok {
		return nil
	}

	return nested[attr]
}

// RefString returns a string attribute of a nested reference or choice field.
func (r *Record) RefString(key, attr string) string {
	s, _ := r.Ref(key, attr).(string)
	return s
}

// RefID returns the identifier of a nested reference, 0 when unset.
func (r *Record) RefID(key string) int {
	return toInt(r.Ref(key, "id"))
}

// Endpoint serves the records of one entity kind.
type Endpoint interface {
	// Get returns the one record matching filter, nil when there is none.
	Get(ctx context.Context, filter Filter) (*Record, error)

	// Filter returns the records matching filter.
	Filter(ctx context.Context, filter Filter) ([]*Record, error)

	// Create creates a record from fields.
	Create(ctx context.Context, fields Fields) (*Record, error)

	// Update applies fields to the record, returning the updated record.
	Update(ctx context.Context, record *Record, fields Fields) (*Record, error)
}

// Repository is the inventory system holding device records.
type Repository interface {
	Endpoint(kind Kind) Endpoint
}

// IDString formats a record identifier for use as a filter value.
func IDString(id int) string {
	return strconv.Itoa(id)
}

func toInt(v any) int {
	switch n := v.(type) {
	case int:
		return n
	case int64:
		return int(n)
	case float64:
		return int(n)
	case json.Number:
		i, _ := n.Int64()
		return int(i)
	case string:
		i, _ := strconv.Atoi(n)
		return i
	default:
		return 0
	}
}

// single returns the only record, nil when there are none.
func single(kind Kind, records []*Record) (*Record, error) {
	switch len(records) {
	case 0:
		return nil, nil
	case 1:
		return records[0], nil
	default:
		return nil, errors.Wrap(ErrMultipleResults, string(kind)+": "+strconv.Itoa(len(records))+" records")
	}
}
