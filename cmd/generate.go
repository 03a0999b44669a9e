package cmd

import (
	"fmt"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/disk-sim/disk-sim/sim"
	"github.com/disk-sim/disk-sim/sim/workload"
)

var (
	genOutput      string
	genRequests    int
	genMaxPosition int
	genHighLoad    bool
	genDevices     int
	genSeed        int64
)

// generateCmd writes a seeded random workload as a replayable YAML trace
var generateCmd = &cobra.Command{
	Use:   "generate",
	Short: "Generate a request trace file",
	Run: func(cmd *cobra.Command, args []string) {
		setupLogging()

		spec := workload.GeneratorSpec{
			Requests:    genRequests,
			MaxPosition: genMaxPosition,
			HighLoad:    genHighLoad,
			Devices:     genDevices,
			Seed:        genSeed,
		}
		reqs, err := workload.Generate(spec)
		if err != nil {
			logrus.Fatalf("Generating requests: %v", err)
		}
		seed := genSeed
		if err := workload.SaveTrace(workload.NewTraceFile(reqs, &seed), genOutput); err != nil {
			logrus.Fatalf("Saving trace: %v", err)
		}
		_, _ = bold.Printf("Wrote %d requests to %s\n", len(reqs), genOutput)
		for _, r := range reqs {
			logrus.Debugf("generated %s", r)
		}
		fmt.Printf("positions 0..%d, %d devices, seed %d\n", spec.PositionLimit(), spec.Devices, spec.Seed)
	},
}

func init() {
	def := sim.DefaultConfig().Workload
	generateCmd.Flags().StringVarP(&genOutput, "output", "o", "trace.yaml", "Trace file to write")
	generateCmd.Flags().IntVar(&genRequests, "requests", def.Requests, "Number of requests")
	generateCmd.Flags().IntVar(&genMaxPosition, "max-position", def.MaxPosition, "Highest generated sector")
	generateCmd.Flags().BoolVar(&genHighLoad, "high-load", false, "Spread positions over a ten times larger range")
	generateCmd.Flags().IntVar(&genDevices, "devices", def.Devices, "Number of simulated devices")
	generateCmd.Flags().Int64Var(&genSeed, "seed", def.Seed, "Generator seed")
	generateCmd.Flags().StringVar(&logLevel, "log", "error", "Log level (trace, debug, info, warn, error, fatal, panic)")
}
