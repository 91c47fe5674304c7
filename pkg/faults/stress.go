package faults

import (
	"fmt"
	"strings"

	"github.com/chaosproof/chaosproof/pkg/types"
	"github.com/chaosproof/chaosproof/pkg/utils/stringutils"
)

// worker counts and sizes per intensity for the stress family of faults
var (
	cpuWorkers = map[types.Intensity]int{
		types.IntensityLight:  1,
		types.IntensityMedium: 2,
		types.IntensityHeavy:  4,
	}
	memoryBytes = map[types.Intensity]string{
		types.IntensityLight:  "256m",
		types.IntensityMedium: "512m",
		types.IntensityHeavy:  "1g",
	}
	hddBytes = map[types.Intensity]string{
		types.IntensityLight:  "256m",
		types.IntensityMedium: "1g",
		types.IntensityHeavy:  "2g",
	}
)

// cpuCandidates prefers stress-ng and falls back to md5sum busy loops, which
// exist on any host with coreutils
func cpuCandidates() []Candidate {
	return []Candidate{
		&processCandidate{
			name: "stress-ng-cpu",
			tool: "stress-ng",
			command: func(scenario types.ScenarioDefinition, target string) string {
				return fmt.Sprintf("stress-ng --cpu %d --timeout %ds", cpuWorkers[scenario.Intensity], scenario.DurationSeconds)
			},
		},
		&processCandidate{
			name: "md5sum-busy-loop",
			tool: "md5sum",
			command: func(scenario types.ScenarioDefinition, target string) string {
				workers := make([]string, 0, cpuWorkers[scenario.Intensity])
				for i := 0; i < cpuWorkers[scenario.Intensity]; i++ {
					workers = append(workers, "md5sum /dev/zero &")
				}
				return strings.Join(workers, " ") + " wait"
			},
		},
	}
}

// memoryCandidates prefers stress-ng vm workers and falls back to holding a
// tmpfs file of the wanted size, which pins memory until it is removed
func memoryCandidates() []Candidate {
	scratch := "/dev/shm/memory-hold-" + stringutils.GetRunID()
	return []Candidate{
		&processCandidate{
			name: "stress-ng-vm",
			tool: "stress-ng",
			command: func(scenario types.ScenarioDefinition, target string) string {
				return fmt.Sprintf("stress-ng --vm 1 --vm-bytes %s --vm-hang 0 --timeout %ds", memoryBytes[scenario.Intensity], scenario.DurationSeconds)
			},
		},
		&ruleCandidate{
			name: "tmpfs-hold",
			tool: "dd",
			apply: func(scenario types.ScenarioDefinition, target string) [][]string {
				return [][]string{
					{"dd", "if=/dev/zero", "of=" + scratch, "bs=1M", "count=" + megabytes(memoryBytes[scenario.Intensity])},
				}
			},
			verify: func(scenario types.ScenarioDefinition, target string) []string {
				return []string{"test", "-f", scratch}
			},
			revert: func(scenario types.ScenarioDefinition, target string) [][]string {
				return [][]string{{"rm", "-f", scratch}}
			},
		},
	}
}

// diskIOCandidates prefers stress-ng hdd workers and falls back to a dd
// rewrite loop with synced writes
func diskIOCandidates() []Candidate {
	scratch := "/tmp/disk-io-" + stringutils.GetRunID()
	return []Candidate{
		&processCandidate{
			name: "stress-ng-hdd",
			tool: "stress-ng",
			command: func(scenario types.ScenarioDefinition, target string) string {
				return fmt.Sprintf("stress-ng --hdd 1 --hdd-bytes %s --temp-path /tmp --timeout %ds", hddBytes[scenario.Intensity], scenario.DurationSeconds)
			},
		},
		&processCandidate{
			name: "dd-write-loop",
			tool: "dd",
			command: func(scenario types.ScenarioDefinition, target string) string {
				return fmt.Sprintf("while true; do dd if=/dev/zero of=%s bs=4M count=%s oflag=dsync 2>/dev/null; done", scratch, megabytes(hddBytes[scenario.Intensity]))
			},
			cleanup: func() error {
				return runCommand([]string{"rm", "-f", scratch})
			},
		},
	}
}

// megabytes converts the compact size notation used for tool arguments
// ("256m", "1g") into a megabyte count for dd
func megabytes(size string) string {
	switch size {
	case "256m":
		return "256"
	case "512m":
		return "512"
	case "1g":
		return "1024"
	case "2g":
		return "2048"
	}
	return "256"
}
