package faults

import (
	"fmt"
	"os"

	"github.com/chaosproof/chaosproof/pkg/types"
)

// netem parameters per intensity
var (
	netemDelayMS = map[types.Intensity]int{
		types.IntensityLight:  100,
		types.IntensityMedium: 300,
		types.IntensityHeavy:  1000,
	}
	netemLossPercent = map[types.Intensity]int{
		types.IntensityLight:  10,
		types.IntensityMedium: 30,
		types.IntensityHeavy:  70,
	}
)

// networkInterface returns the interface the tc rules are applied on
func networkInterface() string {
	if iface := os.Getenv("NETWORK_INTERFACE"); iface != "" {
		return iface
	}
	return "eth0"
}

// networkDelayCandidates prefers a tc netem qdisc and falls back to pumba
// when tc is unavailable but the target runs in a container
func networkDelayCandidates() []Candidate {
	return []Candidate{
		&ruleCandidate{
			name: "tc-netem-delay",
			tool: "tc",
			apply: func(scenario types.ScenarioDefinition, target string) [][]string {
				return [][]string{
					{"tc", "qdisc", "add", "dev", networkInterface(), "root", "netem", "delay", fmt.Sprintf("%dms", netemDelayMS[scenario.Intensity])},
				}
			},
			verify: func(scenario types.ScenarioDefinition, target string) []string {
				return []string{"/bin/sh", "-c", fmt.Sprintf("tc qdisc show dev %s | grep -q netem", networkInterface())}
			},
			revert: func(scenario types.ScenarioDefinition, target string) [][]string {
				return [][]string{
					{"tc", "qdisc", "del", "dev", networkInterface(), "root", "netem"},
				}
			},
		},
		&processCandidate{
			name: "pumba-netem-delay",
			tool: "pumba",
			command: func(scenario types.ScenarioDefinition, target string) string {
				return fmt.Sprintf("pumba netem --duration %ds delay --time %d %s", scenario.DurationSeconds, netemDelayMS[scenario.Intensity], target)
			},
		},
	}
}

// networkLossCandidates mirrors the delay candidates with a loss discipline
func networkLossCandidates() []Candidate {
	return []Candidate{
		&ruleCandidate{
			name: "tc-netem-loss",
			tool: "tc",
			apply: func(scenario types.ScenarioDefinition, target string) [][]string {
				return [][]string{
					{"tc", "qdisc", "add", "dev", networkInterface(), "root", "netem", "loss", fmt.Sprintf("%d%%", netemLossPercent[scenario.Intensity])},
				}
			},
			verify: func(scenario types.ScenarioDefinition, target string) []string {
				return []string{"/bin/sh", "-c", fmt.Sprintf("tc qdisc show dev %s | grep -q netem", networkInterface())}
			},
			revert: func(scenario types.ScenarioDefinition, target string) [][]string {
				return [][]string{
					{"tc", "qdisc", "del", "dev", networkInterface(), "root", "netem"},
				}
			},
		},
		&processCandidate{
			name: "pumba-netem-loss",
			tool: "pumba",
			command: func(scenario types.ScenarioDefinition, target string) string {
				return fmt.Sprintf("pumba netem --duration %ds loss --percent %d %s", scenario.DurationSeconds, netemLossPercent[scenario.Intensity], target)
			},
		},
	}
}

// dependencyOutageCandidates cuts traffic towards the dependency named by
// the scenario's target selector. iptables DROP is preferred; a blackhole
// route is the fallback.
func dependencyOutageCandidates() []Candidate {
	return []Candidate{
		&ruleCandidate{
			name: "iptables-drop",
			tool: "iptables",
			apply: func(scenario types.ScenarioDefinition, target string) [][]string {
				return [][]string{
					{"iptables", "-A", "OUTPUT", "-d", scenario.TargetSelector, "-j", "DROP"},
				}
			},
			verify: func(scenario types.ScenarioDefinition, target string) []string {
				return []string{"iptables", "-C", "OUTPUT", "-d", scenario.TargetSelector, "-j", "DROP"}
			},
			revert: func(scenario types.ScenarioDefinition, target string) [][]string {
				return [][]string{
					{"iptables", "-D", "OUTPUT", "-d", scenario.TargetSelector, "-j", "DROP"},
				}
			},
		},
		&ruleCandidate{
			name: "blackhole-route",
			tool: "ip",
			apply: func(scenario types.ScenarioDefinition, target string) [][]string {
				return [][]string{
					{"ip", "route", "add", "blackhole", scenario.TargetSelector},
				}
			},
			verify: func(scenario types.ScenarioDefinition, target string) []string {
				return []string{"/bin/sh", "-c", fmt.Sprintf("ip route show | grep -q 'blackhole %s'", scenario.TargetSelector)}
			},
			revert: func(scenario types.ScenarioDefinition, target string) [][]string {
				return [][]string{
					{"ip", "route", "del", "blackhole", scenario.TargetSelector},
				}
			},
		},
	}
}
