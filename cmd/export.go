package cmd

import (
	"encoding/json"
	"fmt"
	"log"

	sw "github.com/filanov/stateswitch"
	"github.com/metal-toolbox/netsync/internal/statemachine"
	"github.com/spf13/cobra"

	"github.com/emicklei/dot"
)

type exportFlags struct {
	json     bool
	describe bool
}

var (
	exportFlagSet = &exportFlags{}
)

var cmdExportStatemachine = &cobra.Command{
	Use:   "export-statemachine [--json|--describe]",
	Short: "Export the apply statemachine, in mermaid format unless --json is set",
	Run: func(_ *cobra.Command, _ []string) {
		if err := exportStatemachine(); err != nil {
			log.Fatal(err)
		}
	},
}

func asGraph(s *sw.StateMachineJSON) *dot.Graph {
	g := dot.NewGraph(dot.Directed)
	nodes := map[string]dot.Node{}

	for _, transition := range s.TransitionRules {
		_, exists := nodes[transition.DestinationState]
		if !exists {
			nodes[transition.DestinationState] = g.Node(transition.DestinationState)
		}

		for _, sourceState := range transition.SourceStates {
			_, exists := nodes[sourceState]
			if !exists {
				nodes[sourceState] = g.Node(sourceState)
			}

			g.Edge(nodes[sourceState], nodes[transition.DestinationState], transition.Name)
		}
	}

	return g
}

func exportStatemachine() error {
	if !exportFlagSet.json && !exportFlagSet.describe {
		fmt.Println(dot.MermaidGraph(statemachine.Graph(), dot.MermaidTopDown))
		return nil
	}

	j, err := statemachine.NewApplyStateMachine(&statemachine.MockApplyHandler{}).DescribeAsJSON()
	if err != nil {
		return err
	}

	if exportFlagSet.json {
		fmt.Println(string(j))
		return nil
	}

	t := &sw.StateMachineJSON{}
	if err := json.Unmarshal(j, t); err != nil {
		return err
	}

	fmt.Println(dot.MermaidGraph(asGraph(t), dot.MermaidTopDown))

	return nil
}

func init() {
	cmdExportStatemachine.PersistentFlags().BoolVarP(&exportFlagSet.json, "json", "", false, "export the apply statemachine in the stateswitch JSON format")
	cmdExportStatemachine.PersistentFlags().BoolVarP(&exportFlagSet.describe, "describe", "", false, "export the mermaid graph of the described stateswitch rules, including the failed transition from every state")

	rootCmd.AddCommand(cmdExportStatemachine)
}
