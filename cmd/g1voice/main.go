// g1voice runs the motion-control core of the G1 voice interaction
// system: the 100Hz heartbeat, the task pipeline, the keyboard
// emergency stop and the dashboard/control server. The conversational
// frontend connects through the bridge's tool surface.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/teslashibe/go-g1/internal/config"
	"github.com/teslashibe/go-g1/internal/log"
	"github.com/teslashibe/go-g1/internal/metrics"
	"github.com/teslashibe/go-g1/pkg/action"
	"github.com/teslashibe/go-g1/pkg/bridge"
	"github.com/teslashibe/go-g1/pkg/estop"
	"github.com/teslashibe/go-g1/pkg/g1"
	"github.com/teslashibe/go-g1/pkg/web"
)

var version = "dev"

type options struct {
	robotIP     string
	mock        bool
	webPort     string
	metricsAddr string
	logLevel    string
	safetyFile  string
	noEstop     bool
}

func main() {
	opts := &options{}

	root := &cobra.Command{
		Use:          "g1voice",
		Short:        "G1 voice-interactive motion control core",
		SilenceUsage: true,
	}

	runCmd := &cobra.Command{
		Use:   "run",
		Short: "Run the motion core daemon",
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(opts)
		},
	}
	runCmd.Flags().StringVar(&opts.robotIP, "robot-ip", "", "Robot IP address (overrides ROBOT_IP env var)")
	runCmd.Flags().BoolVar(&opts.mock, "mock", false, "Run against an in-memory robot (no hardware)")
	runCmd.Flags().StringVar(&opts.webPort, "web-port", config.DefaultWebPort, "Dashboard/control server port")
	runCmd.Flags().StringVar(&opts.metricsAddr, "metrics-addr", config.DefaultMetrics, "Prometheus listen address (empty to disable)")
	runCmd.Flags().StringVar(&opts.logLevel, "log-level", "info", "Log level: debug, info, warn, error")
	runCmd.Flags().StringVar(&opts.safetyFile, "safety-config", "", "YAML safety envelope override file")
	runCmd.Flags().BoolVar(&opts.noEstop, "no-estop", false, "Disable the keyboard emergency stop listener")

	versionCmd := &cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Println("g1voice", version)
		},
	}

	root.AddCommand(runCmd, versionCmd)

	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

func run(opts *options) error {
	// .env is optional; real deployments set the environment directly.
	_ = godotenv.Load()
	log.Init(opts.logLevel)

	env, err := config.LoadSafety(opts.safetyFile)
	if err != nil {
		return fmt.Errorf("safety envelope: %w", err)
	}

	var (
		loco g1.LocoController
		arm  g1.ArmController
	)
	if opts.mock {
		log.Warn("running with mock robot, no hardware commands will be sent")
		loco = g1.NewMockLoco()
		arm = g1.NewMockArm()
	} else {
		robotIP := opts.robotIP
		if robotIP == "" {
			robotIP = config.RobotIP("")
		}
		if robotIP == "" {
			return fmt.Errorf("robot IP required: set ROBOT_IP or pass --robot-ip (or use --mock)")
		}
		loco = g1.NewHTTPLocoClient(robotIP)
		arm = g1.NewHTTPArmClient(robotIP)
		log.Info("robot command sink", "ip", robotIP)
	}

	mc := metrics.NewCollector()
	if opts.metricsAddr != "" {
		go func() {
			if err := metrics.Serve(opts.metricsAddr); err != nil {
				log.Error("metrics server failed", "error", err)
			}
		}()
		log.Info("metrics exposed", "addr", opts.metricsAddr)
	}

	var srv *web.Server
	mgr := action.New(loco,
		action.WithMetrics(mc),
		action.WithTaskListener(func(task action.Task) {
			if srv != nil {
				srv.TaskEvent(task)
			}
		}),
	)
	b := bridge.New(mgr, arm, env)
	srv = web.NewServer(opts.webPort, mgr, b)

	mgr.Start()
	defer mgr.Stop()

	if !opts.noEstop {
		listener := estop.NewListener(mgr, loco)
		if err := listener.Start(); err != nil {
			log.Warn("keyboard emergency stop unavailable", "error", err)
		} else {
			defer listener.Stop()
		}
	}

	go func() {
		if err := srv.Start(); err != nil {
			log.Error("web server failed", "error", err)
		}
	}()
	defer srv.Shutdown()

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()
	<-ctx.Done()

	log.Info("shutting down")
	return nil
}
