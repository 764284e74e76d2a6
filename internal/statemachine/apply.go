package statemachine

import (
	"context"
	"fmt"
	"time"

	"github.com/emicklei/dot"
	sw "github.com/filanov/stateswitch"
	"github.com/hashicorp/go-multierror"
	"github.com/metal-toolbox/netsync/internal/metrics"
	"github.com/pkg/errors"
)

const (
	// apply states
	//
	// states an apply run transitions through, in order
	StatePending              sw.State = "pending"
	StateDependenciesResolved sw.State = "dependenciesResolved"
	StateDeviceApplied        sw.State = "deviceApplied"
	StateModuleBaysApplied    sw.State = "moduleBaysApplied"
	StateModulesApplied       sw.State = "modulesApplied"
	StateInterfacesApplied    sw.State = "interfacesApplied"
	StateLagsReconciled       sw.State = "lagsReconciled"
	StateVerified             sw.State = "verified"
	StateFailed               sw.State = "failed"

	TransitionResolveDependencies sw.TransitionType = "resolveDependencies"
	TransitionApplyDevice         sw.TransitionType = "applyDevice"
	TransitionApplyModuleBays     sw.TransitionType = "applyModuleBays"
	TransitionApplyModules        sw.TransitionType = "applyModules"
	TransitionApplyInterfaces     sw.TransitionType = "applyInterfaces"
	TransitionReconcileLags       sw.TransitionType = "reconcileLags"
	TransitionVerify              sw.TransitionType = "verify"
	TransitionApplyFailed         sw.TransitionType = "applyFailed"
)

var (
	// ErrApplyTransition is returned when an apply transition fails.
	ErrApplyTransition = errors.New("error in apply transition")
)

// TransitionError is returned when a transition fails, it unwraps to the transition handler error.
type TransitionError struct {
	Transition sw.TransitionType
	State      sw.State
	Err        error
}

// Error implements the Error() interface
func (e *TransitionError) Error() string {
	return fmt.Sprintf("transition '%s' from state '%s' returned error: %s", e.Transition, e.State, e.Err)
}

func (e *TransitionError) Unwrap() error {
	return e.Err
}

// Is matches ErrApplyTransition in addition to the wrapped error.
func (e *TransitionError) Is(target error) bool {
	return target == ErrApplyTransition
}

// ApplyTransitioner defines stateswitch methods that apply a proposal batch.
//
// Each method is handed the apply subject and the handler context passed to Run.
type ApplyTransitioner interface {
	ResolveDependencies(sw sw.StateSwitch, args sw.TransitionArgs) error
	ApplyDevice(sw sw.StateSwitch, args sw.TransitionArgs) error
	ApplyModuleBays(sw sw.StateSwitch, args sw.TransitionArgs) error
	ApplyModules(sw sw.StateSwitch, args sw.TransitionArgs) error
	ApplyInterfaces(sw sw.StateSwitch, args sw.TransitionArgs) error
	ReconcileLags(sw sw.StateSwitch, args sw.TransitionArgs) error
	Verify(sw sw.StateSwitch, args sw.TransitionArgs) error
	ApplyFailed(sw sw.StateSwitch, args sw.TransitionArgs) error
	PublishState(sw sw.StateSwitch, args sw.TransitionArgs) error
}

// ApplyStateMachine drives an apply run, strictly in transition order.
type ApplyStateMachine struct {
	sm                   sw.StateMachine
	transitions          []sw.TransitionType
	transitionsCompleted []sw.TransitionType
}

// TransitionOrder returns the order apply transitions are run in.
func TransitionOrder() []sw.TransitionType {
	return []sw.TransitionType{
		TransitionResolveDependencies,
		TransitionApplyDevice,
		TransitionApplyModuleBays,
		TransitionApplyModules,
		TransitionApplyInterfaces,
		TransitionReconcileLags,
		TransitionVerify,
	}
}

// States returns the apply states in the order they are reached.
func States() []sw.State {
	return []sw.State{
		StatePending,
		StateDependenciesResolved,
		StateDeviceApplied,
		StateModuleBaysApplied,
		StateModulesApplied,
		StateInterfacesApplied,
		StateLagsReconciled,
		StateVerified,
	}
}

// NewApplyStateMachine returns the apply state machine with the transition handlers set.
func NewApplyStateMachine(handler ApplyTransitioner) *ApplyStateMachine {
	m := &ApplyStateMachine{sm: sw.NewStateMachine(), transitions: TransitionOrder()}

	handlers := map[sw.TransitionType]sw.Transition{
		TransitionResolveDependencies: handler.ResolveDependencies,
		TransitionApplyDevice:         handler.ApplyDevice,
		TransitionApplyModuleBays:     handler.ApplyModuleBays,
		TransitionApplyModules:        handler.ApplyModules,
		TransitionApplyInterfaces:     handler.ApplyInterfaces,
		TransitionReconcileLags:       handler.ReconcileLags,
		TransitionVerify:              handler.Verify,
	}

	states := States()

	// each transition moves the run one state forward
	for idx, transitionType := range m.transitions {
		m.sm.AddTransition(sw.TransitionRule{
			TransitionType:   transitionType,
			SourceStates:     sw.States{states[idx]},
			DestinationState: states[idx+1],
			Transition:       handlers[transitionType],
			PostTransition:   handler.PublishState,
		})
	}

	m.sm.AddTransition(sw.TransitionRule{
		TransitionType:   TransitionApplyFailed,
		SourceStates:     sw.States(states[:len(states)-1]),
		DestinationState: StateFailed,
		Transition:       handler.ApplyFailed,
		PostTransition:   handler.PublishState,
	})

	return m
}

// SetTransitionOrder sets the expected order of transition execution.
func (m *ApplyStateMachine) SetTransitionOrder(transitions []sw.TransitionType) {
	m.transitions = transitions
}

// TransitionsCompleted returns the transitions that completed successfully.
func (m *ApplyStateMachine) TransitionsCompleted() []sw.TransitionType {
	return m.transitionsCompleted
}

// DescribeAsJSON returns a JSON output describing the apply statemachine.
func (m *ApplyStateMachine) DescribeAsJSON() ([]byte, error) {
	return m.sm.AsJSON()
}

// Run executes the transitions in order, the first failure runs the failed transition and aborts the run.
//
// Writes made by transitions completed before the failure are not rolled back.
func (m *ApplyStateMachine) Run(ctx context.Context, subject sw.StateSwitch, args sw.TransitionArgs) error {
	for _, transitionType := range m.transitions {
		if err := ctx.Err(); err != nil {
			return m.failed(transitionType, subject, args, err)
		}

		startTS := time.Now()

		err := m.sm.Run(transitionType, subject, args)
		if err != nil {
			// update error to include some useful context
			if errors.Is(err, sw.NoConditionPassedToRunTransaction) {
				err = errors.Wrap(
					ErrApplyTransition,
					fmt.Sprintf("no transition rule found for transition type '%s' and state '%s'", transitionType, subject.State()),
				)
			}

			metrics.ObserveSince(metrics.ApplyTransitionRunTimeSummary, startTS, string(transitionType), "failed")

			return m.failed(transitionType, subject, args, err)
		}

		metrics.ObserveSince(metrics.ApplyTransitionRunTimeSummary, startTS, string(transitionType), "succeeded")

		m.transitionsCompleted = append(m.transitionsCompleted, transitionType)
	}

	return nil
}

func (m *ApplyStateMachine) failed(transitionType sw.TransitionType, subject sw.StateSwitch, args sw.TransitionArgs, cause error) error {
	err := &TransitionError{Transition: transitionType, State: subject.State(), Err: cause}

	if txErr := m.sm.Run(TransitionApplyFailed, subject, args); txErr != nil {
		return multierror.Append(err, errors.Wrap(txErr, "applySM ApplyFailed() error"))
	}

	return err
}

// Graph returns the apply states and transitions as a directed graph.
func Graph() *dot.Graph {
	g := dot.NewGraph(dot.Directed)

	states := States()
	failed := g.Node(string(StateFailed))

	for idx, transitionType := range TransitionOrder() {
		source := g.Node(string(states[idx]))
		g.Edge(source, g.Node(string(states[idx+1])), string(transitionType))
		g.Edge(source, failed, string(TransitionApplyFailed))
	}

	return g
}
