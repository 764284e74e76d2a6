package reconcile

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/metal-toolbox/netsync/internal/metrics"
	"github.com/metal-toolbox/netsync/internal/model"
	"github.com/metal-toolbox/netsync/internal/statemachine"
	"github.com/metal-toolbox/netsync/internal/store"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

const (
	pkgName = "internal/reconcile"
)

var (
	// ErrUpdatesNotAllowed is returned when apply would update existing objects without being allowed to.
	ErrUpdatesNotAllowed = errors.New("plan updates existing objects, re-run with --update-existing to allow")
)

// Publisher stores proposal documents, returning the location the document was written to.
type Publisher interface {
	Publish(ctx context.Context, doc *model.ProposalDocument) (string, error)
}

// Options configures a Reconciler.
type Options struct {
	// DeviceNameSuffix is appended to the device name when missing.
	DeviceNameSuffix string

	// DeviceTypeSuffix is appended to the device type slug when missing.
	DeviceTypeSuffix string

	// UpdateExisting allows apply to update objects that already exist.
	UpdateExisting bool

	// Publishers receive the proposal document of every dry run, in order.
	Publishers []Publisher
}

// Reconciler plans, dry-runs and applies an inventory against the inventory system.
type Reconciler struct {
	repo    store.Repository
	opts    *Options
	logger  *logrus.Logger
	planner *Planner
	now     func() time.Time
}

// DryRunResult is the outcome of a dry run.
type DryRunResult struct {
	RunID     string
	Inventory *model.Inventory
	Batch     *model.ProposalBatch

	// ProposalPath is where the first publisher wrote the proposal document.
	ProposalPath string

	// Summary is the rendered batch followed by the preflight report.
	Summary string
}

// ApplyResult is the outcome of an apply.
type ApplyResult struct {
	RunID     string
	Inventory *model.Inventory
	Plan      *model.ProposalBatch
	Post      *model.ProposalBatch
}

// New returns a Reconciler writing to repo.
func New(repo store.Repository, opts *Options, logger *logrus.Logger) *Reconciler {
	if opts == nil {
		opts = &Options{}
	}

	return &Reconciler{
		repo:    repo,
		opts:    opts,
		logger:  logger,
		planner: NewPlanner(repo, logger.WithField("component", "planner")),
		now:     time.Now,
	}
}

func (r *Reconciler) resolve(inv *model.Inventory) (*model.Inventory, error) {
	if err := inv.Validate(); err != nil {
		return nil, err
	}

	return withSuffixes(inv, r.opts.DeviceNameSuffix, r.opts.DeviceTypeSuffix)
}

// Plan returns the proposals converging the inventory system on the inventory.
func (r *Reconciler) Plan(ctx context.Context, inv *model.Inventory) (*model.ProposalBatch, error) {
	resolved, err := r.resolve(inv)
	if err != nil {
		return nil, err
	}

	return r.planner.Build(ctx, resolved)
}

// DryRun plans the inventory, publishes the proposal document and renders the summary.
func (r *Reconciler) DryRun(ctx context.Context, inv *model.Inventory) (result *DryRunResult, err error) {
	ctx, span := otel.Tracer(pkgName).Start(
		ctx,
		"Reconciler.DryRun",
		trace.WithAttributes(attribute.String("device", inv.Device.Name)),
	)
	defer span.End()

	startTS := time.Now()

	defer func() {
		metrics.ObserveSince(metrics.PassRunTimeSummary, startTS, "dry_run", passState(err))
	}()

	runID := uuid.NewString()
	logger := r.logger.WithFields(logrus.Fields{"run_id": runID, "device": inv.Device.Name})

	resolved, err := r.resolve(inv)
	if err != nil {
		return nil, err
	}

	batch, err := r.planner.Build(ctx, resolved)
	if err != nil {
		return nil, err
	}

	result = &DryRunResult{RunID: runID, Inventory: resolved, Batch: batch}

	doc := model.NewProposalDocument(runID, resolved.Device.Name, r.now(), batch)

	for idx, publisher := range r.opts.Publishers {
		location, err := publisher.Publish(ctx, doc)
		if err != nil {
			return nil, errors.Wrap(err, "publish proposals")
		}

		logger.WithField("location", location).Debug("published proposals")

		if idx == 0 {
			result.ProposalPath = location
		}
	}

	result.Summary = Summary(batch) + "\n\n" + FormatPreflight(Preflight(ctx, r.repo, resolved))

	return result, nil
}

// Apply plans the inventory and writes the proposals in dependency order, then plans again
// against the written state for verification.
//
// A failure aborts the apply, writes made before the failure remain.
func (r *Reconciler) Apply(ctx context.Context, inv *model.Inventory) (result *ApplyResult, err error) {
	ctx, span := otel.Tracer(pkgName).Start(
		ctx,
		"Reconciler.Apply",
		trace.WithAttributes(attribute.String("device", inv.Device.Name)),
	)
	defer span.End()

	startTS := time.Now()

	defer func() {
		metrics.ObserveSince(metrics.PassRunTimeSummary, startTS, "apply", passState(err))
	}()

	runID := uuid.NewString()
	logger := r.logger.WithFields(logrus.Fields{"run_id": runID, "device": inv.Device.Name})

	resolved, err := r.resolve(inv)
	if err != nil {
		return nil, err
	}

	batch, err := r.planner.Build(ctx, resolved)
	if err != nil {
		return nil, err
	}

	if batch.Has(model.ActionUpdate) && !r.opts.UpdateExisting {
		return nil, ErrUpdatesNotAllowed
	}

	task := newApplyTask(resolved, batch)
	handler := &applyHandler{ctx: ctx, repo: r.repo, planner: r.planner, logger: logger}

	if err := statemachine.NewApplyStateMachine(handler).Run(ctx, task, nil); err != nil {
		return nil, err
	}

	if !task.post.Converged() {
		logger.Warn("inventory has not converged after apply")
	}

	return &ApplyResult{RunID: runID, Inventory: resolved, Plan: batch, Post: task.post}, nil
}

func passState(err error) string {
	if err != nil {
		return "failed"
	}

	return "succeeded"
}
