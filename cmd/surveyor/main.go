package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"gopkg.in/yaml.v3"

	"github.com/survey-ops/surveyor/internal/api"
	"github.com/survey-ops/surveyor/internal/bridge"
	"github.com/survey-ops/surveyor/internal/bus"
	"github.com/survey-ops/surveyor/internal/command"
	"github.com/survey-ops/surveyor/internal/config"
	"github.com/survey-ops/surveyor/internal/doctor"
	"github.com/survey-ops/surveyor/internal/events"
	"github.com/survey-ops/surveyor/internal/lock"
	"github.com/survey-ops/surveyor/internal/log"
	"github.com/survey-ops/surveyor/internal/pano"
	"github.com/survey-ops/surveyor/internal/retry"
	"github.com/survey-ops/surveyor/internal/survey"
	"github.com/survey-ops/surveyor/internal/tui"
)

const version = "0.2.0"

// stringList is a repeatable flag: --config a.yaml --config b.yaml.
type stringList []string

func (s *stringList) String() string { return strings.Join(*s, ",") }

func (s *stringList) Set(v string) error {
	*s = append(*s, v)
	return nil
}

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	cmd := os.Args[1]
	args := os.Args[2:]

	switch cmd {
	case "run":
		os.Exit(runRun(args))
	case "attach":
		os.Exit(runAttach(args))
	case "pano":
		os.Exit(runPano(args))
	case "config":
		os.Exit(runConfigNoun(args))
	case "version":
		fmt.Printf("surveyor version %s\n", version)
		os.Exit(0)
	case "help", "--help", "-h":
		printUsage()
		os.Exit(0)
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n\n", cmd)
		printUsage()
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Print(`surveyor - robot survey supervision

Usage:
  surveyor <command> [flags] [args]

Commands:
  run       Run one survey action under supervision
            surveyor run --config static.yaml [--config more.yaml] <action...>
            Actions:
              dock <robot> <berth>
              undock <robot>
              move <robot> <from> <to>
              panorama <robot> <location>
              stereo <robot> <plan>
  attach    Attach an interactive console to a running survey
            surveyor attach <robot>
  pano      Print the panorama orientation grid as YAML
  config    Configuration management
            config check   Validate configuration and report issues
            config show    Print the merged configuration
            config lock    Write integrity checksums for config files
  version   Show version information
  help      Show this help message
`)
}

func loadConfigs(paths stringList) (*config.Config, error) {
	if len(paths) == 0 {
		return nil, fmt.Errorf("at least one --config file is required")
	}
	return config.Load(paths...)
}

func runRun(args []string) int {
	fs := flag.NewFlagSet("run", flag.ExitOnError)
	var configPaths stringList
	fs.Var(&configPaths, "config", "Configuration file (repeatable; later files override earlier)")
	if err := fs.Parse(args); err != nil {
		return 1
	}

	cfg, err := loadConfigs(configPaths)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		return 1
	}

	action, err := survey.Parse(fs.Args())
	if err != nil {
		fmt.Fprintf(os.Stderr, "Bad action: %v\n", err)
		return 1
	}

	log.Setup(cfg.Log.Level)
	logger := log.WithComponent("main")
	logger.Info("surveyor starting", "version", version, "action", action.String())

	robotLock, err := lock.Acquire(action.Robot)
	if err != nil {
		logger.Error("robot already supervised", "robot", action.Robot, "error", err)
		return 1
	}
	defer robotLock.Release()

	b, err := openBus(cfg)
	if err != nil {
		logger.Error("bus setup failed", "mode", cfg.Bus.Mode, "error", err)
		return 1
	}
	defer b.Close()

	client, err := command.New(b, "surveyor", command.Config{
		PollInterval: cfg.Command.PollInterval,
		AckBudget:    cfg.Command.AckBudget,
		PlanBudget:   cfg.Command.PlanBudget,
	})
	if err != nil {
		logger.Error("command client setup failed", "error", err)
		return 1
	}
	defer client.Close()

	session, err := bridge.NewSession(action.Robot)
	if err != nil {
		logger.Error("session setup failed", "robot", action.Robot, "error", err)
		return 1
	}
	defer session.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		logger.Warn("shutdown signal received", "signal", sig.String())
		cancel()
	}()

	hub := events.NewHub(256)
	orch := retry.New(session)
	currentRobot := strings.ToLower(os.Getenv("ROBOTNAME"))
	executor := survey.NewExecutor(cfg, session, client, orch, hub, currentRobot)

	if cfg.API.Enabled {
		server := api.New(api.Config{Listen: cfg.API.Listen, Token: cfg.API.Token},
			executor, hub, log.WithComponent("api"))
		go func() {
			if err := server.Start(ctx); err != nil && ctx.Err() == nil {
				logger.Error("api server failed", "error", err)
			}
		}()
	}

	exitCode := executor.ExecuteSupervised(ctx, action)
	logger.Info("finished survey action", "action", action.String(), "exit_code", exitCode)
	return exitCode
}

func openBus(cfg *config.Config) (bus.Bus, error) {
	switch cfg.Bus.Mode {
	case "redis":
		r, err := bus.NewRedis(bus.RedisConfig{
			Addr:     cfg.Bus.Redis.Addr,
			Password: cfg.Bus.Redis.Password,
			DB:       cfg.Bus.Redis.DB,
		}, cfg.Bus.Namespace, log.WithComponent("bus"))
		if err != nil {
			return nil, err
		}
		return r, nil
	default:
		return bus.NewMemory(32), nil
	}
}

func runAttach(args []string) int {
	if len(args) != 1 {
		fmt.Fprintln(os.Stderr, "Usage: surveyor attach <robot>")
		return 1
	}
	if err := tui.Run(args[0]); err != nil {
		fmt.Fprintf(os.Stderr, "Attach failed: %v\n", err)
		return 1
	}
	return 0
}

func runPano(args []string) int {
	fs := flag.NewFlagSet("pano", flag.ExitOnError)
	panRadius := fs.Float64("pan-radius", 180, "Cover pan -r .. +r degrees (180 wraps around)")
	tiltRadius := fs.Float64("tilt-radius", 90, "Cover tilt -r .. +r degrees")
	hFov := fs.Float64("hfov", 54.8, "Horizontal field of view, degrees")
	vFov := fs.Float64("vfov", 43.2, "Vertical field of view, degrees")
	overlap := fs.Float64("overlap", 0.3, "Overlap between consecutive images (0..1)")
	tolerance := fs.Float64("tolerance", 5, "Attitude tolerance, degrees")
	if err := fs.Parse(args); err != nil {
		return 1
	}

	grid, err := pano.Orientations(pano.Config{
		PanRadius:         *panRadius,
		TiltRadius:        *tiltRadius,
		HFov:              *hFov,
		VFov:              *vFov,
		Overlap:           *overlap,
		AttitudeTolerance: *tolerance,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Pano computation failed: %v\n", err)
		return 1
	}

	out := struct {
		Cols    int                `yaml:"cols"`
		Rows    int                `yaml:"rows"`
		Centers []pano.Orientation `yaml:"centers"`
	}{grid.Cols, grid.Rows, grid.Centers}

	data, err := yaml.Marshal(&out)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Encode failed: %v\n", err)
		return 1
	}
	os.Stdout.Write(data)
	return 0
}

func runConfigNoun(args []string) int {
	if len(args) < 1 {
		fmt.Fprintln(os.Stderr, "Usage: surveyor config <check|show|lock> [flags]")
		return 1
	}
	action := args[0]
	actionArgs := args[1:]

	switch action {
	case "check":
		return runConfigCheck(actionArgs)
	case "show":
		return runConfigShow(actionArgs)
	case "lock":
		return runConfigLock(actionArgs)
	default:
		fmt.Fprintf(os.Stderr, "Unknown config action: %s\n", action)
		return 1
	}
}

func runConfigCheck(args []string) int {
	fs := flag.NewFlagSet("check", flag.ExitOnError)
	var configPaths stringList
	fs.Var(&configPaths, "config", "Configuration file (repeatable)")
	asJSON := fs.Bool("json", false, "Emit the report as JSON")
	if err := fs.Parse(args); err != nil {
		return 1
	}

	cfg, err := loadConfigs(configPaths)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		return 1
	}

	result := doctor.New(cfg).Validate()
	if *asJSON {
		out, err := doctor.FormatJSON(result)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Encode failed: %v\n", err)
			return 1
		}
		fmt.Println(out)
	} else {
		fmt.Print(doctor.FormatHuman(result))
	}

	if !result.Valid {
		return 1
	}
	return 0
}

func runConfigShow(args []string) int {
	fs := flag.NewFlagSet("show", flag.ExitOnError)
	var configPaths stringList
	fs.Var(&configPaths, "config", "Configuration file (repeatable)")
	if err := fs.Parse(args); err != nil {
		return 1
	}

	cfg, err := loadConfigs(configPaths)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		return 1
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Encode failed: %v\n", err)
		return 1
	}
	os.Stdout.Write(data)
	return 0
}

func runConfigLock(args []string) int {
	fs := flag.NewFlagSet("lock", flag.ExitOnError)
	var configPaths stringList
	fs.Var(&configPaths, "config", "Configuration file (repeatable)")
	if err := fs.Parse(args); err != nil {
		return 1
	}
	if len(configPaths) == 0 {
		fmt.Fprintln(os.Stderr, "At least one --config file is required")
		return 1
	}

	manifestPath, err := config.Lock(configPaths...)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Lock failed: %v\n", err)
		return 1
	}
	fmt.Printf("Wrote %s\n", manifestPath)
	return 0
}
