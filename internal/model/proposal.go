package model

import (
	"encoding/json"
	"time"
)

// Proposal is a single planned change to one remote entity.
//
// Current is set only when the remote object exists, Diff holds the desired
// values of the fields that differ and is nil for a noop.
type Proposal struct {
	Action     Action         `json:"action"`
	Model      Kind           `json:"model"`
	Identifier string         `json:"identifier"`
	Desired    map[string]any `json:"desired"`
	Current    map[string]any `json:"current"`
	Diff       map[string]any `json:"diff"`
}

// ProposalBatch holds the device proposal and the child proposals in apply order.
type ProposalBatch struct {
	Device     Proposal   `json:"device"`
	ModuleBays []Proposal `json:"module_bays"`
	Modules    []Proposal `json:"modules"`
	Interfaces []Proposal `json:"interfaces"`
	Lags       []Proposal `json:"lags"`
}

// Actions returns every proposal, device first, then bays, modules, interfaces and LAGs.
func (b *ProposalBatch) Actions() []Proposal {
	all := make([]Proposal, 0, 1+len(b.ModuleBays)+len(b.Modules)+len(b.Interfaces)+len(b.Lags))
	all = append(all, b.Device)
	all = append(all, b.ModuleBays...)
	all = append(all, b.Modules...)
	all = append(all, b.Interfaces...)
	all = append(all, b.Lags...)

	return all
}

// Has returns true when any proposal in the batch is planned with the given action.
func (b *ProposalBatch) Has(action Action) bool {
	for _, p := range b.Actions() {
		if p.Action == action {
			return true
		}
	}

	return false
}

// Converged returns true when every proposal in the batch is a noop.
func (b *ProposalBatch) Converged() bool {
	return !b.Has(ActionCreate) && !b.Has(ActionUpdate)
}

// ProposalDocument is the proposal file and KV payload written on every dry run.
type ProposalDocument struct {
	RunID       string         `json:"run_id,omitempty"`
	Device      string         `json:"device"`
	GeneratedAt string         `json:"generated_at"`
	Proposals   *ProposalBatch `json:"proposals"`
}

// NewProposalDocument returns the document for the batch generated at the given time.
func NewProposalDocument(runID, device string, generatedAt time.Time, batch *ProposalBatch) *ProposalDocument {
	return &ProposalDocument{
		RunID:       runID,
		Device:      device,
		GeneratedAt: generatedAt.UTC().Format(time.RFC3339Nano),
		Proposals:   batch,
	}
}

// ProposalFileName returns the proposal file name for the device at the given time.
func ProposalFileName(device string, generatedAt time.Time) string {
	return Slugify(device) + "_" + generatedAt.UTC().Format("20060102T150405Z") + ".json"
}

// Marshal returns the indented JSON encoding of the document.
func (d *ProposalDocument) Marshal() ([]byte, error) {
	return json.MarshalIndent(d, "", "  ")
}
