// ============================================================================
// Sundial CLI - Command Line Interface
// ============================================================================
//
// Package: internal/cli
// File: cli.go
// Purpose: Cobra-based command line interface for running a scheduler
//          process and inspecting its live status.
//
// Command Structure:
//   sundial                        # Root command
//   ├── run                        # Boot a scheduler and register jobs
//   │   └── --config, -c          # Scheduler config file
//   │   └── --jobs, -j            # Job definitions file
//   ├── status                     # View live task/pool counts
//   └── --version                  # Display version information
//
// run Command:
//   1. Load scheduler config (pool size, tick cadence) from YAML
//   2. Load job definitions from a YAML file, each naming a cron
//      expression, repeat mode, order mode and a built-in handler
//   3. Register every job with a freshly booted Scheduler
//   4. Block on WaitAll until SIGINT/SIGTERM
//
// Job file format:
//   jobs:
//     - name: heartbeat
//       cron: "*/5 * * * * ?"
//       order: disorder
//       repeat: forever
//       handler: log
//
// status Command:
//   Prints the config path and, if a scheduler is running in this process
//   (only true for `run`, which never returns), its live counts. Run as a
//   standalone invocation it reports configuration only, since there is
//   no scheduler attached.
//
// ============================================================================

package cli

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	sundial "github.com/cherish-ltt/lynn-sundial"
	"github.com/cherish-ltt/lynn-sundial/internal/handlers"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

// JobSpec describes one task to register at boot, decoded from the jobs
// file named by --jobs.
type JobSpec struct {
	Name    string `yaml:"name"`
	Cron    string `yaml:"cron"`
	Order   string `yaml:"order"`
	Repeat  string `yaml:"repeat"`
	Handler string `yaml:"handler"`
}

// JobsFile is the top-level shape of a --jobs YAML document.
type JobsFile struct {
	Jobs []JobSpec `yaml:"jobs"`
}

var (
	configFile  string
	jobsFile    string
	globalSched *sundial.Scheduler
)

// BuildCLI assembles the root command and its subcommands.
func BuildCLI() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "sundial",
		Short: "Sundial: a cron-driven, per-task actor scheduler",
		Long: `Sundial schedules cron-driven tasks with:
- A hierarchical time wheel for O(1) firing
- Per-task actors for ordered (non-overlapping) execution
- A work-stealing pool for unordered, concurrent execution
- Prometheus metrics`,
		Version: "1.0.0",
	}

	rootCmd.PersistentFlags().StringVarP(&configFile, "config", "c", "configs/default.yaml", "scheduler config file path")

	rootCmd.AddCommand(buildRunCommand())
	rootCmd.AddCommand(buildStatusCommand())

	return rootCmd
}

func buildRunCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Start the scheduler and register jobs from a file",
		Long:  "Boot a scheduler process, register every job named in --jobs, and block until shutdown",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runScheduler()
		},
	}

	cmd.Flags().StringVarP(&jobsFile, "jobs", "j", "", "YAML file containing job definitions")
	cmd.MarkFlagRequired("jobs")

	return cmd
}

func runScheduler() error {
	cfg, err := sundial.LoadConfig(configFile)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	jobs, err := loadJobs(jobsFile)
	if err != nil {
		return fmt.Errorf("failed to load jobs: %w", err)
	}

	sched := sundial.New(cfg)
	globalSched = sched

	for _, j := range jobs {
		if err := registerJob(sched, j); err != nil {
			log.Printf("skipping job %q: %v\n", j.Name, err)
			continue
		}
		log.Printf("registered job %q (cron=%q order=%s repeat=%s)\n", j.Name, j.Cron, j.Order, j.Repeat)
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		<-sigChan
		log.Println("received shutdown signal, stopping gracefully...")
		cancel()
	}()

	sched.WaitAll(ctx)
	log.Println("scheduler stopped. goodbye!")
	return nil
}

func loadJobs(path string) ([]JobSpec, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var doc JobsFile
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, err
	}
	return doc.Jobs, nil
}

func registerJob(sched *sundial.Scheduler, j JobSpec) error {
	handler, ok := handlers.Lookup(j.Handler)
	if !ok {
		return fmt.Errorf("unknown handler %q", j.Handler)
	}

	repeat, err := parseRepeat(j.Repeat)
	if err != nil {
		return err
	}

	var registerErr error
	if j.Order == "disorder" {
		_, registerErr = sched.PushDisorderTask(j.Cron, handler, repeat)
	} else {
		_, registerErr = sched.PushOrderTask(j.Cron, handler, repeat)
	}
	return registerErr
}

func parseRepeat(mode string) (sundial.RepeatMode, error) {
	switch mode {
	case "", "forever":
		return sundial.Forever(), nil
	case "once":
		return sundial.Once(), nil
	default:
		var n int
		if _, err := fmt.Sscanf(mode, "times:%d", &n); err == nil && n > 0 {
			return sundial.Times(n), nil
		}
		return sundial.RepeatMode{}, fmt.Errorf("invalid repeat mode %q", mode)
	}
}

func buildStatusCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show scheduler status",
		Long:  "Display live task and pool queue counts",
		RunE: func(cmd *cobra.Command, args []string) error {
			return showStatus()
		},
	}
	return cmd
}

func showStatus() error {
	fmt.Println("Sundial Scheduler Status")
	fmt.Printf("  config file: %s\n", configFile)

	if globalSched == nil {
		fmt.Println("  scheduler not running in this process (run 'sundial run' to start)")
		return nil
	}

	running, paused := globalSched.Count()
	fmt.Printf("  running tasks: %d\n", running)
	fmt.Printf("  paused tasks:  %d\n", paused)
	fmt.Printf("  pool backlog:  %d\n", globalSched.QueueDepth())
	return nil
}
