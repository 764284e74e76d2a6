package reconcile

import (
	"context"
	"testing"

	"github.com/metal-toolbox/netsync/internal/fixtures"
	"github.com/metal-toolbox/netsync/internal/inventory"
	"github.com/metal-toolbox/netsync/internal/model"
	"github.com/metal-toolbox/netsync/internal/statemachine"
	"github.com/metal-toolbox/netsync/internal/store"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testLogger() *logrus.Logger {
	logger := logrus.New()
	logger.Level = logrus.DebugLevel

	return logger
}

func sampleInventory(t *testing.T) *model.Inventory {
	t.Helper()

	inv, err := inventory.NewSample(fixtures.Rules()).Inventory(context.Background())
	require.Nil(t, err)

	return inv
}

// seedDependencies creates the site, role, manufacturer, device type and module types
// the sample inventory references.
func seedDependencies(t *testing.T, m *store.MemStore) {
	t.Helper()

	manufacturer, err := m.Seed(store.KindManufacturer, store.Fields{"name": "Nokia", "slug": "nokia"})
	require.Nil(t, err)

	_, err = m.Seed(store.KindDeviceType, store.Fields{"model": "7750 SR-7", "slug": "nokia-7750-sr", "manufacturer": manufacturer.ID})
	require.Nil(t, err)

	_, err = m.Seed(store.KindSite, store.Fields{"name": "Sim", "slug": "sim"})
	require.Nil(t, err)

	_, err = m.Seed(store.KindRole, store.Fields{"name": "Access switch", "slug": "access-switch"})
	require.Nil(t, err)

	for _, moduleModel := range []string{"mda-imm-24", "mda-xc-12"} {
		_, err = m.Seed(store.KindModuleType, store.Fields{"model": moduleModel, "manufacturer": manufacturer.ID})
		require.Nil(t, err)
	}
}

type recordingPublisher struct {
	docs []*model.ProposalDocument
}

func (p *recordingPublisher) Publish(_ context.Context, doc *model.ProposalDocument) (string, error) {
	p.docs = append(p.docs, doc)
	return "proposals/" + model.Slugify(doc.Device) + ".json", nil
}

func actionsOf(proposals []model.Proposal) []model.Action {
	actions := []model.Action{}
	for _, p := range proposals {
		actions = append(actions, p.Action)
	}

	return actions
}

func identifiersOf(proposals []model.Proposal) []string {
	identifiers := []string{}
	for _, p := range proposals {
		identifiers = append(identifiers, p.Identifier)
	}

	return identifiers
}

func Test_ActionAndDiff(t *testing.T) {
	testcases := []struct {
		name       string
		desired    map[string]any
		current    map[string]any
		exists     bool
		wantAction model.Action
		wantDiff   map[string]any
	}{
		{
			"changed field",
			map[string]any{"a": 1, "b": 2},
			map[string]any{"a": 1, "b": 3},
			true,
			model.ActionUpdate,
			map[string]any{"b": 2},
		},
		{
			"remote absent",
			map[string]any{"a": 1, "b": 2, "c": nil},
			nil,
			false,
			model.ActionCreate,
			map[string]any{"a": 1, "b": 2},
		},
		{
			"unchanged",
			map[string]any{"a": 1, "b": 2},
			map[string]any{"a": 1, "b": 2},
			true,
			model.ActionNoop,
			nil,
		},
		{
			"remote only fields are ignored",
			map[string]any{"a": 1},
			map[string]any{"a": 1, "z": "remote"},
			true,
			model.ActionNoop,
			nil,
		},
		{
			"field missing remotely",
			map[string]any{"a": 1, "b": "x"},
			map[string]any{"a": 1},
			true,
			model.ActionUpdate,
			map[string]any{"b": "x"},
		},
		{
			"empty values are equal",
			map[string]any{"tags": []string{}, "serial": nil, "custom_fields": map[string]any{}},
			map[string]any{"tags": nil, "serial": "", "custom_fields": nil},
			true,
			model.ActionNoop,
			nil,
		},
		{
			"decoded json values",
			map[string]any{"mtu": 9000, "tags": []string{"core"}},
			map[string]any{"mtu": float64(9000), "tags": []any{"core"}},
			true,
			model.ActionNoop,
			nil,
		},
		{
			"custom fields compare desired keys",
			map[string]any{"custom_fields": map[string]any{"rack": "r1"}},
			map[string]any{"custom_fields": map[string]any{"rack": "r1", "owner": "noc"}},
			true,
			model.ActionNoop,
			nil,
		},
		{
			"existing with no current",
			map[string]any{"members": []string{"p1"}},
			nil,
			true,
			model.ActionUpdate,
			map[string]any{"members": []string{"p1"}},
		},
	}

	for _, tc := range testcases {
		t.Run(tc.name, func(t *testing.T) {
			action, d := actionAndDiff(tc.desired, tc.current, tc.exists)
			assert.Equal(t, tc.wantAction, action)
			assert.Equal(t, tc.wantDiff, d)
		})
	}
}

func Test_MembershipDelta(t *testing.T) {
	toAdd, toRemove := membershipDelta([]string{"p3", "p2"}, []string{"p1", "p2"})
	assert.Equal(t, []string{"p3"}, toAdd)
	assert.Equal(t, []string{"p1"}, toRemove)

	toAdd, toRemove = membershipDelta([]string{"p1"}, []string{"p1"})
	assert.Empty(t, toAdd)
	assert.Empty(t, toRemove)
}

func Test_WithSuffixes(t *testing.T) {
	inv := sampleInventory(t)

	same, err := withSuffixes(inv, "", "")
	require.Nil(t, err)
	assert.Same(t, inv, same)

	suffixed, err := withSuffixes(inv, ".lab", "-lab")
	require.Nil(t, err)
	assert.NotSame(t, inv, suffixed)
	assert.Equal(t, "SIM-SROS-01.lab", suffixed.Device.Name)
	assert.Equal(t, "nokia-7750-sr-lab", suffixed.Device.DeviceTypeSlug)

	// the source inventory is left as is
	assert.Equal(t, "SIM-SROS-01", inv.Device.Name)

	again, err := withSuffixes(suffixed, ".lab", "-lab")
	require.Nil(t, err)
	assert.Same(t, suffixed, again)
}

func Test_PlanEmptyRemote(t *testing.T) {
	r := New(store.NewMemStore(), nil, testLogger())

	batch, err := r.Plan(context.Background(), sampleInventory(t))
	require.Nil(t, err)

	for _, p := range batch.Actions() {
		assert.Equal(t, model.ActionCreate, p.Action, p.Identifier)
		assert.Nil(t, p.Current, p.Identifier)
		assert.NotEmpty(t, p.Diff, p.Identifier)
	}

	assert.Equal(t, "SIM-SROS-01", batch.Device.Identifier)
	assert.Equal(t, []string{"Card A", "Card B"}, identifiersOf(batch.ModuleBays))
	assert.Equal(t, []string{"Card A:mda-imm-24", "Card B:mda-xc-12"}, identifiersOf(batch.Modules))
	assert.Equal(t, []string{"LAG 1", "1/1/1", "1/1/2"}, identifiersOf(batch.Interfaces))
	assert.Equal(t, []string{"LAG 1"}, identifiersOf(batch.Lags))

	assert.Equal(t, map[string]any{"members": []string{"1/1/1"}}, batch.Lags[0].Desired)
	assert.Equal(t, "LAG 1", batch.Interfaces[1].Diff["lag"])

	// unset fields are not part of a create diff
	_, hasSerial := batch.Device.Diff["serial"]
	assert.False(t, hasSerial)
}

func Test_ApplyAndIdempotence(t *testing.T) {
	ctx := context.Background()
	m := store.NewMemStore()
	seedDependencies(t, m)

	r := New(m, nil, testLogger())
	inv := sampleInventory(t)

	result, err := r.Apply(ctx, inv)
	require.Nil(t, err)

	assert.True(t, result.Post.Converged())
	assert.Equal(t, 1, m.Count(store.KindDevice))
	assert.Equal(t, 2, m.Count(store.KindModuleBay))
	assert.Equal(t, 2, m.Count(store.KindModule))
	assert.Equal(t, 3, m.Count(store.KindInterface))

	member, err := m.Endpoint(store.KindInterface).Get(ctx, store.Filter{"name": "1/1/1"})
	require.Nil(t, err)
	assert.Equal(t, "LAG 1", member.RefString("lag", "name"))

	module, err := m.Endpoint(store.KindModule).Get(ctx, store.Filter{"module_bay_id": "1"})
	require.Nil(t, err)
	assert.Equal(t, "mda-imm-24", module.RefString("module_type", "model"))

	// planning twice against unchanged state yields only noops
	for i := 0; i < 2; i++ {
		batch, err := r.Plan(ctx, inv)
		require.Nil(t, err)
		assert.True(t, batch.Converged())
	}

	// re-applying a converged plan writes nothing
	_, err = r.Apply(ctx, inv)
	require.Nil(t, err)
	assert.Equal(t, 3, m.Count(store.KindInterface))
}

func Test_ApplyUpdateGuard(t *testing.T) {
	ctx := context.Background()
	m := store.NewMemStore()
	seedDependencies(t, m)

	inv := sampleInventory(t)

	_, err := New(m, nil, testLogger()).Apply(ctx, inv)
	require.Nil(t, err)

	changed, err := inv.Clone()
	require.Nil(t, err)

	changed.InterfaceByName("1/1/2").Description = "Uplink to core"

	_, err = New(m, nil, testLogger()).Apply(ctx, changed)
	assert.ErrorIs(t, err, ErrUpdatesNotAllowed)

	result, err := New(m, &Options{UpdateExisting: true}, testLogger()).Apply(ctx, changed)
	require.Nil(t, err)

	assert.Equal(t, []model.Action{model.ActionNoop, model.ActionNoop, model.ActionUpdate}, actionsOf(result.Plan.Interfaces))
	assert.Equal(t, map[string]any{"description": "Uplink to core"}, result.Plan.Interfaces[2].Diff)
	assert.True(t, result.Post.Converged())
}

func Test_ApplyLagConvergence(t *testing.T) {
	ctx := context.Background()
	m := store.NewMemStore()
	seedDependencies(t, m)

	inv := sampleInventory(t)
	inv.Interfaces = []model.Interface{
		{Name: "LAG 1", TypeSlug: "lag", Enabled: true},
		{Name: "p1", TypeSlug: "other", Enabled: true},
		{Name: "p2", TypeSlug: "other", Enabled: true, Lag: "LAG 1"},
		{Name: "p3", TypeSlug: "other", Enabled: true, Lag: "LAG 1"},
	}
	inv.Lags = []model.Lag{{Name: "LAG 1", Members: []string{"p2", "p3"}, Enabled: true}}

	// create the device, then move the remote membership to p1 and p2
	remote, err := inv.Clone()
	require.Nil(t, err)

	remote.Interfaces[1].Lag = "LAG 1"
	remote.Interfaces[3].Lag = ""
	remote.Lags[0].Members = []string{"p1", "p2"}

	_, err = New(m, nil, testLogger()).Apply(ctx, remote)
	require.Nil(t, err)

	members := func() []string {
		lag, err := m.Endpoint(store.KindInterface).Get(ctx, store.Filter{"name": "LAG 1"})
		require.Nil(t, err)

		records, err := m.Endpoint(store.KindInterface).Filter(ctx, store.Filter{"lag_id": store.IDString(lag.ID)})
		require.Nil(t, err)

		names := []string{}
		for _, r := range records {
			names = append(names, r.String("name"))
		}

		return names
	}

	require.Equal(t, []string{"p1", "p2"}, members())

	result, err := New(m, &Options{UpdateExisting: true}, testLogger()).Apply(ctx, inv)
	require.Nil(t, err)

	assert.Equal(t, model.ActionUpdate, result.Plan.Lags[0].Action)
	assert.Equal(t, map[string]any{"members": []string{"p1", "p2"}}, result.Plan.Lags[0].Current)
	assert.Equal(t, []string{"p2", "p3"}, members())
	assert.True(t, result.Post.Converged())
}

func Test_ApplyDependencyErrors(t *testing.T) {
	ctx := context.Background()

	testcases := []struct {
		name    string
		seed    func(t *testing.T, m *store.MemStore)
		wantMsg string
	}{
		{
			"empty inventory system",
			func(t *testing.T, m *store.MemStore) {},
			"Site with slug 'sim' not found in NetBox",
		},
		{
			"device type of another manufacturer",
			func(t *testing.T, m *store.MemStore) {
				arista, err := m.Seed(store.KindManufacturer, store.Fields{"slug": "arista"})
				require.Nil(t, err)

				_, err = m.Seed(store.KindManufacturer, store.Fields{"slug": "nokia"})
				require.Nil(t, err)

				_, err = m.Seed(store.KindDeviceType, store.Fields{"slug": "nokia-7750-sr", "manufacturer": arista.ID})
				require.Nil(t, err)

				_, err = m.Seed(store.KindSite, store.Fields{"slug": "sim"})
				require.Nil(t, err)

				_, err = m.Seed(store.KindRole, store.Fields{"slug": "access-switch"})
				require.Nil(t, err)
			},
			"Configured manufacturer slug does not match the device type manufacturer",
		},
		{
			"module type missing",
			func(t *testing.T, m *store.MemStore) {
				nokia, err := m.Seed(store.KindManufacturer, store.Fields{"slug": "nokia"})
				require.Nil(t, err)

				_, err = m.Seed(store.KindDeviceType, store.Fields{"slug": "nokia-7750-sr", "manufacturer": nokia.ID})
				require.Nil(t, err)

				_, err = m.Seed(store.KindSite, store.Fields{"slug": "sim"})
				require.Nil(t, err)

				_, err = m.Seed(store.KindRole, store.Fields{"slug": "access-switch"})
				require.Nil(t, err)
			},
			"Module type 'mda-imm-24' not found in NetBox",
		},
	}

	for _, tc := range testcases {
		t.Run(tc.name, func(t *testing.T) {
			m := store.NewMemStore()
			tc.seed(t, m)

			_, err := New(m, nil, testLogger()).Apply(ctx, sampleInventory(t))
			require.NotNil(t, err)

			assert.ErrorIs(t, err, model.ErrDependencyResolution)
			assert.ErrorIs(t, err, statemachine.ErrApplyTransition)
			assert.Contains(t, err.Error(), tc.wantMsg)
		})
	}
}

func Test_ApplyWritesRemainAfterFailure(t *testing.T) {
	ctx := context.Background()
	m := store.NewMemStore()

	nokia, err := m.Seed(store.KindManufacturer, store.Fields{"slug": "nokia"})
	require.Nil(t, err)

	_, err = m.Seed(store.KindDeviceType, store.Fields{"slug": "nokia-7750-sr", "manufacturer": nokia.ID})
	require.Nil(t, err)

	_, err = m.Seed(store.KindSite, store.Fields{"slug": "sim"})
	require.Nil(t, err)

	_, err = m.Seed(store.KindRole, store.Fields{"slug": "access-switch"})
	require.Nil(t, err)

	_, err = New(m, nil, testLogger()).Apply(ctx, sampleInventory(t))

	var txErr *statemachine.TransitionError
	require.True(t, errors.As(err, &txErr))
	assert.Equal(t, statemachine.TransitionApplyModules, txErr.Transition)

	// the device and bays written before the module failure are kept
	assert.Equal(t, 1, m.Count(store.KindDevice))
	assert.Equal(t, 2, m.Count(store.KindModuleBay))
	assert.Equal(t, 0, m.Count(store.KindModule))
}

func Test_FindModuleType(t *testing.T) {
	ctx := context.Background()
	m := store.NewMemStore()

	nokia, err := m.Seed(store.KindManufacturer, store.Fields{"slug": "nokia"})
	require.Nil(t, err)

	arista, err := m.Seed(store.KindManufacturer, store.Fields{"slug": "arista"})
	require.Nil(t, err)

	_, err = m.Seed(store.KindModuleType, store.Fields{"model": "sfp", "manufacturer": arista.ID})
	require.Nil(t, err)

	first, err := m.Seed(store.KindModuleType, store.Fields{"model": "sfp", "manufacturer": nokia.ID})
	require.Nil(t, err)

	_, err = m.Seed(store.KindModuleType, store.Fields{"model": "sfp", "manufacturer": nokia.ID})
	require.Nil(t, err)

	h := &applyHandler{ctx: ctx, repo: m, logger: testLogger().WithField("test", t.Name())}

	task := newApplyTask(sampleInventory(t), nil)
	task.manufacturer = nokia

	got, err := h.findModuleType(task, "sfp")
	require.Nil(t, err)
	assert.Equal(t, first.ID, got.ID)

	_, err = h.findModuleType(task, "qsfp")
	assert.ErrorIs(t, err, model.ErrDependencyResolution)
}

func Test_DryRunEmptyRemote(t *testing.T) {
	publisher := &recordingPublisher{}
	r := New(store.NewMemStore(), &Options{Publishers: []Publisher{publisher}}, testLogger())

	result, err := r.DryRun(context.Background(), sampleInventory(t))
	require.Nil(t, err)

	assert.Equal(t, "proposals/sim-sros-01.json", result.ProposalPath)
	require.Len(t, publisher.docs, 1)
	assert.Equal(t, result.RunID, publisher.docs[0].RunID)
	assert.Equal(t, "SIM-SROS-01", publisher.docs[0].Device)
	assert.Same(t, result.Batch, publisher.docs[0].Proposals)

	expected := []string{
		"Device -> CREATE: SIM-SROS-01",
		"Module bays: create=2 | create: Card A, Card B",
		"Modules: create=2 | create: Card A:mda-imm-24, Card B:mda-xc-12",
		"Interfaces: create=3 | create: LAG 1, 1/1/1, 1/1/2",
		"LAGs: create=1 | create: LAG 1",
		"Preflight issues detected:",
		"- Manufacturer slug 'nokia' not found in NetBox.",
		"- Device type slug 'nokia-7750-sr' not found in NetBox.",
		"- Module types not found: mda-imm-24, mda-xc-12.",
	}

	for _, line := range expected {
		assert.Contains(t, result.Summary, line)
	}
}

func Test_DryRunPreflightOK(t *testing.T) {
	m := store.NewMemStore()
	seedDependencies(t, m)

	result, err := New(m, nil, testLogger()).DryRun(context.Background(), sampleInventory(t))
	require.Nil(t, err)

	assert.Empty(t, result.ProposalPath)
	assert.Contains(t, result.Summary, "\n\n"+preflightOK)
}

func Test_Summary(t *testing.T) {
	proposals := func(action model.Action, identifiers ...string) []model.Proposal {
		out := []model.Proposal{}
		for _, id := range identifiers {
			out = append(out, model.Proposal{Action: action, Identifier: id})
		}

		return out
	}

	batch := &model.ProposalBatch{
		Device:     model.Proposal{Action: model.ActionNoop, Identifier: "r1"},
		ModuleBays: proposals(model.ActionNoop, "A"),
		Modules:    nil,
		Interfaces: append(proposals(model.ActionCreate, "e1", "e2", "e3", "e4"), proposals(model.ActionUpdate, "e5")...),
		Lags:       proposals(model.ActionUpdate, "LAG 1"),
	}

	expected := "Device -> NOOP: r1\n" +
		"Module bays: noop=1\n" +
		"Modules: none\n" +
		"Interfaces: create=4, update=1 | create: e1, e2, e3, …\n" +
		"LAGs: update=1"

	assert.Equal(t, expected, Summary(batch))
}

func Test_FormatPreflight(t *testing.T) {
	assert.Equal(t, preflightOK, FormatPreflight(nil))
	assert.Equal(
		t,
		"Preflight issues detected:\n- Device manufacturer slug is missing; update rules defaults.",
		FormatPreflight([]string{"Device manufacturer slug is missing; update rules defaults."}),
	)
}

// countingRepository records the module type queries and the update payloads sent through it.
type countingRepository struct {
	store.Repository
	moduleTypeFilters int
	updates           map[store.Kind][]store.Fields
}

func newCountingRepository(repo store.Repository) *countingRepository {
	return &countingRepository{Repository: repo, updates: map[store.Kind][]store.Fields{}}
}

func (r *countingRepository) Endpoint(kind store.Kind) store.Endpoint {
	return &countingEndpoint{Endpoint: r.Repository.Endpoint(kind), repo: r, kind: kind}
}

type countingEndpoint struct {
	store.Endpoint
	repo *countingRepository
	kind store.Kind
}

func (e *countingEndpoint) Filter(ctx context.Context, filter store.Filter) ([]*store.Record, error) {
	if e.kind == store.KindModuleType {
		e.repo.moduleTypeFilters++
	}

	return e.Endpoint.Filter(ctx, filter)
}

func (e *countingEndpoint) Update(ctx context.Context, record *store.Record, fields store.Fields) (*store.Record, error) {
	e.repo.updates[e.kind] = append(e.repo.updates[e.kind], fields)

	return e.Endpoint.Update(ctx, record, fields)
}

func Test_ApplyUpdatesSendChangedFields(t *testing.T) {
	ctx := context.Background()
	m := store.NewMemStore()
	seedDependencies(t, m)

	nokia, err := m.Endpoint(store.KindManufacturer).Get(ctx, store.Filter{"slug": "nokia"})
	require.Nil(t, err)

	_, err = m.Seed(store.KindModuleType, store.Fields{"model": "mda-imm-48", "manufacturer": nokia.ID})
	require.Nil(t, err)

	inv := sampleInventory(t)

	_, err = New(m, nil, testLogger()).Apply(ctx, inv)
	require.Nil(t, err)

	changed, err := inv.Clone()
	require.Nil(t, err)

	changed.Device.Serial = "NS-0042"
	changed.ModuleBays[0].Label = "IOM slot A"
	changed.Modules[0].ModuleTypeModel = "mda-imm-48"

	repo := newCountingRepository(m)

	result, err := New(repo, &Options{UpdateExisting: true}, testLogger()).Apply(ctx, changed)
	require.Nil(t, err)

	assert.Equal(t, model.ActionUpdate, result.Plan.Device.Action)
	assert.Equal(t, map[string]any{"serial": "NS-0042"}, result.Plan.Device.Diff)

	assert.Equal(t, []model.Action{model.ActionUpdate, model.ActionNoop}, actionsOf(result.Plan.ModuleBays))
	assert.Equal(t, map[string]any{"label": "IOM slot A"}, result.Plan.ModuleBays[0].Diff)

	assert.Equal(t, []model.Action{model.ActionUpdate, model.ActionNoop}, actionsOf(result.Plan.Modules))
	assert.Equal(t, "Card A:mda-imm-48", result.Plan.Modules[0].Identifier)
	assert.Equal(t, map[string]any{"module_type_model": "mda-imm-48"}, result.Plan.Modules[0].Diff)

	// updates carry the changed fields only
	assert.Equal(t, []store.Fields{{"serial": "NS-0042"}}, repo.updates[store.KindDevice])
	assert.Equal(t, []store.Fields{{"label": "IOM slot A"}}, repo.updates[store.KindModuleBay])
	require.Len(t, repo.updates[store.KindModule], 1)
	assert.Len(t, repo.updates[store.KindModule][0], 1)
	assert.Contains(t, repo.updates[store.KindModule][0], "module_type")
	assert.Equal(t, 1, repo.moduleTypeFilters)

	module, err := m.Endpoint(store.KindModule).Get(ctx, store.Filter{"module_bay_id": "1"})
	require.Nil(t, err)
	assert.Equal(t, "mda-imm-48", module.RefString("module_type", "model"))

	assert.True(t, result.Post.Converged())
}

func Test_ApplyModuleStatusSkipsModuleTypeLookup(t *testing.T) {
	ctx := context.Background()
	m := store.NewMemStore()
	seedDependencies(t, m)

	inv := sampleInventory(t)

	_, err := New(m, nil, testLogger()).Apply(ctx, inv)
	require.Nil(t, err)

	changed, err := inv.Clone()
	require.Nil(t, err)

	changed.Modules[1].Status = "planned"

	repo := newCountingRepository(m)

	result, err := New(repo, &Options{UpdateExisting: true}, testLogger()).Apply(ctx, changed)
	require.Nil(t, err)

	assert.Equal(t, []model.Action{model.ActionNoop, model.ActionUpdate}, actionsOf(result.Plan.Modules))
	assert.Equal(t, map[string]any{"status": "planned"}, result.Plan.Modules[1].Diff)

	assert.Equal(t, 0, repo.moduleTypeFilters)
	assert.Equal(t, []store.Fields{{"status": "planned"}}, repo.updates[store.KindModule])
	assert.Empty(t, repo.updates[store.KindDevice])
	assert.Empty(t, repo.updates[store.KindModuleBay])

	assert.True(t, result.Post.Converged())
}

func Test_PreflightModuleTypeOfAnotherManufacturer(t *testing.T) {
	ctx := context.Background()
	m := store.NewMemStore()
	seedDependencies(t, m)

	other, err := m.Seed(store.KindManufacturer, store.Fields{"name": "Other", "slug": "other"})
	require.Nil(t, err)

	_, err = m.Seed(store.KindModuleType, store.Fields{"model": "mda-foreign", "manufacturer": other.ID})
	require.Nil(t, err)

	inv := sampleInventory(t)
	inv.Modules[1].ModuleTypeModel = "mda-foreign"

	assert.Equal(t, []string{"Module types not found: mda-foreign."}, Preflight(ctx, m, inv))

	// apply fails on the same module type preflight reported
	_, err = New(m, nil, testLogger()).Apply(ctx, inv)
	assert.ErrorIs(t, err, model.ErrDependencyResolution)
	assert.Contains(t, err.Error(), "Module type 'mda-foreign' not found in NetBox")

	// without a manufacturer the device type manufacturer narrows the candidates
	inv.Device.ManufacturerSlug = ""

	issues := Preflight(ctx, m, inv)
	assert.Contains(t, issues, "Module types not found: mda-foreign.")
}
