package rules

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/metal-toolbox/netsync/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testRules = `
defaults:
  manufacturer_slug: nokia
roles:
  - pattern: "(?i)-sros-"
    slug: access-switch
  - pattern: "(?i)sros"
    slug: core-router
sites:
  - pattern: "^(?P<site>[A-Za-z]+)-"
    slug_format: "{site}"
    transform: lower
device_types:
  - pattern: "(?i)nokia\\s+(\\d+)\\s+(SR)"
    slug_format: "nokia-{0}-{1}"
    transform: lower
interface_types:
  physical_default: other
  matches:
    - pattern: "^esat-"
      type: 10gbase-x-sfpp
    - pattern: "^esat-1"
      type: 1000base-t
device_type_suffix:
  enabled: true
  value: "-lab"
`

func Test_EngineClassify(t *testing.T) {
	engine, err := Parse([]byte(testRules))
	require.Nil(t, err)

	testcases := []struct {
		name    string
		fn      func(string) (string, error)
		in      string
		want    string
		wantErr error
	}{
		{"first matching role wins", engine.RoleSlug, "SIM-SROS-01", "access-switch", nil},
		{"second role rule", engine.RoleSlug, "SROS01", "core-router", nil},
		{"role without match or default", engine.RoleSlug, "edge01", "", model.ErrClassification},
		{"named group template", engine.SiteSlug, "SIM-SROS-01", "sim", nil},
		{"site without match or default", engine.SiteSlug, "edge01", "", model.ErrClassification},
		{"manufacturer default", engine.ManufacturerSlug, "SIM-SROS-01", "nokia", nil},
		{"positional group template", engine.DeviceTypeSlug, "Nokia 7750 SR-7", "nokia-7750-sr", nil},
		{"device type slugify fallback", engine.DeviceTypeSlug, "Unknown Model 5000", "unknown-model-5000", nil},
	}

	for _, tc := range testcases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := tc.fn(tc.in)
			if tc.wantErr != nil {
				assert.ErrorIs(t, err, tc.wantErr)
				return
			}

			assert.Nil(t, err)
			assert.Equal(t, tc.want, got)
		})
	}
}

func Test_EngineClassificationErrorNamesCategory(t *testing.T) {
	engine, err := New(&File{})
	require.Nil(t, err)

	_, err = engine.SiteSlug("anything")
	assert.ErrorIs(t, err, model.ErrClassification)
	assert.Contains(t, err.Error(), "no rule matched for site_slug and no default configured")
}

func Test_EngineDeviceTypeDefault(t *testing.T) {
	engine, err := New(&File{Defaults: Defaults{DeviceTypeSlug: "generic"}})
	require.Nil(t, err)

	got, err := engine.DeviceTypeSlug("Unknown Model 5000")
	assert.Nil(t, err)
	assert.Equal(t, "generic", got)
}

func Test_EngineInterfaceType(t *testing.T) {
	engine, err := Parse([]byte(testRules))
	require.Nil(t, err)

	assert.Equal(t, "lag", engine.InterfaceType("LAG 1", true))
	assert.Equal(t, "lag", engine.InterfaceType("esat-1/1/1", true))
	// first match wins over the more specific second pattern
	assert.Equal(t, "10gbase-x-sfpp", engine.InterfaceType("esat-1/1/1", false))
	assert.Equal(t, "other", engine.InterfaceType("1/1/2", false))

	bare, err := New(&File{})
	require.Nil(t, err)
	assert.Equal(t, DefaultLagType, bare.InterfaceType("LAG 1", true))
	assert.Equal(t, DefaultPhysicalType, bare.InterfaceType("1/1/1", false))
}

func Test_EngineDeviceTypeSuffix(t *testing.T) {
	engine, err := Parse([]byte(testRules))
	require.Nil(t, err)
	assert.Equal(t, "-lab", engine.DeviceTypeSuffix())

	disabled, err := New(&File{DeviceTypeSuffix: &DeviceTypeSuffix{Value: "-lab"}})
	require.Nil(t, err)
	assert.Equal(t, "", disabled.DeviceTypeSuffix())
}

func Test_RuleApply(t *testing.T) {
	testcases := []struct {
		name    string
		rule    Rule
		in      string
		want    string
		wantErr error
	}{
		{"no match", Rule{Pattern: "^x", Slug: "x"}, "abc", "", nil},
		{"slug wins over template", Rule{Pattern: "(a)", Slug: "lit", SlugFormat: "{0}"}, "abc", "lit", nil},
		{"value alias", Rule{Pattern: "b", Value: "val"}, "abc", "val", nil},
		{"upper transform", Rule{Pattern: "b", Value: "val", Transform: "upper"}, "abc", "VAL", nil},
		{"auto numbered groups", Rule{Pattern: `(\w)(\w)`, SlugFormat: "{}-{}"}, "ab", "a-b", nil},
		{"escaped braces", Rule{Pattern: `(\w)`, SlugFormat: "{{{0}}}"}, "a", "{a}", nil},
		{"unknown named group", Rule{Pattern: `(?P<x>\w)`, SlugFormat: "{y}"}, "a", "", model.ErrClassification},
		{"group out of range", Rule{Pattern: `(\w)`, SlugFormat: "{3}"}, "a", "", model.ErrClassification},
		{"empty match is no match", Rule{Pattern: `(x?)`, SlugFormat: "{0}"}, "abc", "", nil},
	}

	for _, tc := range testcases {
		t.Run(tc.name, func(t *testing.T) {
			rule := tc.rule

			got, err := rule.Apply(tc.in)
			if tc.wantErr != nil {
				assert.ErrorIs(t, err, tc.wantErr)
				return
			}

			assert.Nil(t, err)
			assert.Equal(t, tc.want, got)
		})
	}
}

func Test_NewReportsEveryInvalidRule(t *testing.T) {
	f := &File{
		Roles: []Rule{
			{Pattern: "", Slug: "a"},
			{Pattern: "ok", Slug: "b"},
		},
		Sites: []Rule{
			{Pattern: "(", Slug: "c"},
			{Pattern: "x"},
		},
		DeviceTypes: []Rule{
			{Pattern: "x", Slug: "d", Transform: "title"},
		},
		InterfaceTypes: &InterfaceTypes{
			Matches: []InterfaceMatch{{Pattern: "x"}},
		},
	}

	_, err := New(f)
	require.Error(t, err)
	assert.ErrorIs(t, err, model.ErrConfiguration)

	for _, want := range []string{
		"roles[0]",
		"sites[0]",
		"sites[1]",
		"device_types[0]",
		"interface_types.matches[0]",
	} {
		assert.Contains(t, err.Error(), want)
	}

	assert.NotContains(t, err.Error(), "roles[1]")
}

func Test_Load(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "rules.yaml")
	require.Nil(t, os.WriteFile(path, []byte(testRules), 0o600))

	engine, err := Load(path)
	require.Nil(t, err)

	got, err := engine.ManufacturerSlug("anything")
	assert.Nil(t, err)
	assert.Equal(t, "nokia", got)

	_, err = Load(filepath.Join(dir, "missing.yaml"))
	assert.ErrorIs(t, err, model.ErrConfiguration)

	_, err = Parse([]byte("roles: {"))
	assert.ErrorIs(t, err, model.ErrConfiguration)
}
