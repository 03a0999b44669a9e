package cmd

import (
	"context"
	"os"
	"os/signal"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/disk-sim/disk-sim/sim"
	"github.com/disk-sim/disk-sim/sim/trace"
)

var (
	logLevel         string // Log verbosity level
	bundlePath       string // Optional YAML config bundle
	defaultsFilePath string // defaults.yaml with workload presets
	showProgress     bool   // Render a progress bar on stderr
	decisionTrace    bool   // Record and summarize per-selection decisions
)

// rootCmd is the base command for the CLI
var rootCmd = &cobra.Command{
	Use:   "disk-sim",
	Short: "Concurrent disk I/O scheduling simulator",
}

// runCmd executes one simulation using parameters from flags, config file and environment
var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the disk scheduling simulation",
	Run: func(cmd *cobra.Command, args []string) {
		setupLogging()

		cfg, err := loadConfig(cmd)
		if err != nil {
			logrus.Fatalf("Invalid configuration: %v", err)
		}
		reqs, err := loadRequests(cfg.Workload)
		if err != nil {
			logrus.Fatalf("Unable to build workload: %v", err)
		}

		logrus.Infof("Starting simulation: policy=%s, requests=%d, buffer=%v (size %d, cache %d), bus delay=%s",
			cfg.Scheduler.Policy, len(reqs), cfg.Buffer.Enabled, cfg.Buffer.Capacity, cfg.Buffer.CacheCapacity, cfg.Bus.ServiceDelay)

		startTime := time.Now()
		snap, err := simulate(cmd.Context(), cfg, reqs, runOptions{
			sink:     sim.LogrusSink(logrus.StandardLogger()),
			progress: showProgress,
			trace:    decisionTrace,
		})
		if err != nil {
			logrus.Errorf("Simulation interrupted: %v", err)
		}
		if err := renderRunReport(os.Stdout, snap); err != nil {
			logrus.Errorf("Rendering report: %v", err)
		}
		logrus.Infof("Simulation complete in %s.", time.Since(startTime).Round(time.Millisecond))
	},
}

func setupLogging() {
	level, err := logrus.ParseLevel(logLevel)
	if err != nil {
		logrus.Fatalf("Invalid log level: %s", logLevel)
	}
	logrus.SetLevel(level)
}

// Execute runs the CLI, cancelling the active simulation on interrupt.
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}

// addSimulationFlags registers the flags shared by run and compare.
func addSimulationFlags(cmd *cobra.Command) {
	def := sim.DefaultConfig()
	f := cmd.Flags()

	f.StringVar(&logLevel, "log", "error", "Log level (trace, debug, info, warn, error, fatal, panic)")
	f.StringVar(&bundlePath, "config", "", "YAML config bundle overriding defaults (explicit flags still win)")
	f.StringVar(&defaultsFilePath, "defaults", "defaults.yaml", "Path to defaults.yaml with workload presets")
	f.BoolVar(&decisionTrace, "decision-trace", false, "Record every scheduling decision and print a summary")

	// Scheduler
	f.String("policy", def.Scheduler.Policy, "Scheduling policy (FIFO, SSTF, SCAN, C-SCAN)")
	f.Duration("aging-threshold", def.Scheduler.AgingThreshold, "FIFO wait per one-level priority bump")
	f.Duration("seek-cost", def.Scheduler.SeekCostPerMovement, "Base service time per unit of head movement")

	// Transfer buffer and bus
	f.Bool("no-buffer", false, "Service requests without the DMA buffer and bus")
	f.Int("buffer-size", def.Buffer.Capacity, "DMA staging buffer capacity")
	f.Int("cache-size", def.Buffer.CacheCapacity, "DMA cache capacity (0 disables caching)")
	f.Duration("sample-interval", def.Buffer.SampleInterval, "DMA monitor sampling interval")
	f.Duration("bus-delay", def.Bus.ServiceDelay, "Bus service delay per request")
	f.StringSlice("priority-weight", nil, "Bus priority weights as level=weight (reporting only)")

	// Workload
	f.String("workload", "", "Workload preset from defaults.yaml")
	f.Int("requests", def.Workload.Requests, "Number of generated requests")
	f.Int("max-position", def.Workload.MaxPosition, "Highest generated sector")
	f.Bool("high-load", false, "Spread positions over a ten times larger range")
	f.Int("devices", def.Workload.Devices, "Number of simulated devices")
	f.Int64("seed", def.Workload.Seed, "Seed for request generation")
	f.Float64("rate", 0, "Request arrival rate per second (0 submits all at once)")
	f.Int("burst", def.Workload.Burst, "Arrival rate limiter burst")
	f.String("trace-file", "", "Replay requests from a YAML trace instead of generating them")
}

func init() {
	addSimulationFlags(runCmd)
	runCmd.Flags().BoolVar(&showProgress, "progress", true, "Show a progress bar on stderr")
	addSimulationFlags(compareCmd)

	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(compareCmd)
	rootCmd.AddCommand(generateCmd)
}

// newTrace returns a decision trace when enabled, nil otherwise.
func newTrace(enabled bool) *trace.SimulationTrace {
	if !enabled {
		return nil
	}
	return trace.NewSimulationTrace(trace.TraceConfig{Level: trace.TraceLevelDecisions})
}
