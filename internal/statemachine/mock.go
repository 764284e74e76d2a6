package statemachine

import (
	sw "github.com/filanov/stateswitch"
)

// MockApplySubject implements the sw.StateSwitch interface
type MockApplySubject struct {
	Status sw.State
}

func (s *MockApplySubject) State() sw.State {
	return s.Status
}

func (s *MockApplySubject) SetState(state sw.State) error {
	s.Status = state
	return nil
}

// MockApplyHandler implements the ApplyTransitioner interface
//
// Calls are recorded in order, the transition named by FailOn returns Err.
type MockApplyHandler struct {
	Calls  []string
	FailOn string
	Err    error
}

func (h *MockApplyHandler) call(name string) error {
	h.Calls = append(h.Calls, name)

	if name == h.FailOn {
		return h.Err
	}

	return nil
}

func (h *MockApplyHandler) ResolveDependencies(_ sw.StateSwitch, _ sw.TransitionArgs) error {
	return h.call(string(TransitionResolveDependencies))
}

func (h *MockApplyHandler) ApplyDevice(_ sw.StateSwitch, _ sw.TransitionArgs) error {
	return h.call(string(TransitionApplyDevice))
}

func (h *MockApplyHandler) ApplyModuleBays(_ sw.StateSwitch, _ sw.TransitionArgs) error {
	return h.call(string(TransitionApplyModuleBays))
}

func (h *MockApplyHandler) ApplyModules(_ sw.StateSwitch, _ sw.TransitionArgs) error {
	return h.call(string(TransitionApplyModules))
}

func (h *MockApplyHandler) ApplyInterfaces(_ sw.StateSwitch, _ sw.TransitionArgs) error {
	return h.call(string(TransitionApplyInterfaces))
}

func (h *MockApplyHandler) ReconcileLags(_ sw.StateSwitch, _ sw.TransitionArgs) error {
	return h.call(string(TransitionReconcileLags))
}

func (h *MockApplyHandler) Verify(_ sw.StateSwitch, _ sw.TransitionArgs) error {
	return h.call(string(TransitionVerify))
}

func (h *MockApplyHandler) ApplyFailed(_ sw.StateSwitch, _ sw.TransitionArgs) error {
	return h.call(string(TransitionApplyFailed))
}

func (h *MockApplyHandler) PublishState(_ sw.StateSwitch, _ sw.TransitionArgs) error {
	return nil
}
