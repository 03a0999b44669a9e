package cmd

import (
	"os"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/disk-sim/disk-sim/sim"
)

// compareCmd runs every policy over the same workload and ranks them
var compareCmd = &cobra.Command{
	Use:   "compare",
	Short: "Run every scheduling policy on the same workload and rank them",
	Run: func(cmd *cobra.Command, args []string) {
		setupLogging()

		cfg, err := loadConfig(cmd)
		if err != nil {
			logrus.Fatalf("Invalid configuration: %v", err)
		}
		results, err := comparePolicies(cmd, cfg, sim.PolicyNames())
		if err != nil {
			logrus.Errorf("Comparison interrupted: %v", err)
		}
		rankResults(results)
		if err := renderComparison(os.Stdout, results); err != nil {
			logrus.Errorf("Rendering comparison: %v", err)
		}
	},
}

// comparePolicies runs cfg once per policy. Each run gets a freshly built copy of the
// workload, so every policy sees the same requests.
func comparePolicies(cmd *cobra.Command, cfg sim.Config, policies []string) ([]policyResult, error) {
	results := make([]policyResult, 0, len(policies))
	for _, p := range policies {
		runCfg := cfg
		runCfg.Scheduler.Policy = p
		reqs, err := loadRequests(runCfg.Workload)
		if err != nil {
			return results, err
		}
		logrus.Infof("Comparing policy %s over %d requests", p, len(reqs))
		snap, err := simulate(cmd.Context(), runCfg, reqs, runOptions{})
		results = append(results, policyResult{Policy: p, Stats: snap.Report.Stats})
		if err != nil {
			return results, err
		}
	}
	return results, nil
}
