package faults

import (
	"github.com/chaosproof/chaosproof/pkg/types"
)

// containerRestartCandidates restarts the container named by the scenario's
// target selector. docker is preferred; crictl stop is the fallback, relying
// on the runtime's restart policy to bring the container back.
func containerRestartCandidates() []Candidate {
	return []Candidate{
		&ruleCandidate{
			name: "docker-restart",
			tool: "docker",
			apply: func(scenario types.ScenarioDefinition, target string) [][]string {
				return [][]string{
					{"docker", "restart", "-t", "0", scenario.TargetSelector},
				}
			},
			verify: func(scenario types.ScenarioDefinition, target string) []string {
				return []string{"/bin/sh", "-c", "docker inspect -f '{{.State.Running}}' " + scenario.TargetSelector + " | grep -q true"}
			},
			revert: func(scenario types.ScenarioDefinition, target string) [][]string {
				// a restart leaves nothing behind to reverse
				return nil
			},
		},
		&ruleCandidate{
			name: "crictl-stop",
			tool: "crictl",
			apply: func(scenario types.ScenarioDefinition, target string) [][]string {
				return [][]string{
					{"crictl", "stop", scenario.TargetSelector},
				}
			},
			revert: func(scenario types.ScenarioDefinition, target string) [][]string {
				return nil
			},
		},
	}
}
