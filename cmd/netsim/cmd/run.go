package cmd

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/netfabrik/netsim/analysis"
	"github.com/netfabrik/netsim/internal/logging"
	"github.com/netfabrik/netsim/internal/observability"
	"github.com/netfabrik/netsim/internal/report"
	"github.com/netfabrik/netsim/sim"
	"github.com/netfabrik/netsim/topology"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Build a topology and run the live simulation",
	Long: `Run loads device configurations, builds the topology, performs
validation and traffic analysis, then starts the simulation engine with its
TCP control plane and serves Prometheus metrics until interrupted.`,
	RunE: runSimulation,
}

func init() {
	runCmd.Flags().StringP("devices", "d", "configs/devices.yaml", "device configuration YAML")
	runCmd.Flags().String("listen", sim.DefaultControlAddr, "control plane listen address")
	runCmd.Flags().Duration("tick", sim.DefaultTickInterval, "worker tick interval")
	runCmd.Flags().Duration("pause-poll", sim.DefaultPausePoll, "pause re-check interval")
	runCmd.Flags().String("metrics-addr", ":9090", "HTTP address for Prometheus /metrics (empty disables)")
	runCmd.Flags().String("report-db", "", "SQLite file to archive analysis reports (empty disables)")
	runCmd.Flags().Duration("duration", 0, "stop after this long (0 runs until interrupted)")
	runCmd.Flags().StringArray("fail-link", nil, "link to fail at startup, as \"nodeA,nodeB\" (repeatable)")
}

func runSimulation(cmd *cobra.Command, _ []string) error {
	log := newLogger()
	ctx := context.Background()

	devicesPath, _ := cmd.Flags().GetString("devices")
	listenAddr, _ := cmd.Flags().GetString("listen")
	tick, _ := cmd.Flags().GetDuration("tick")
	pausePoll, _ := cmd.Flags().GetDuration("pause-poll")
	metricsAddr, _ := cmd.Flags().GetString("metrics-addr")
	reportDB, _ := cmd.Flags().GetString("report-db")
	duration, _ := cmd.Flags().GetDuration("duration")
	failLinks, _ := cmd.Flags().GetStringArray("fail-link")

	configs, err := topology.LoadDeviceConfigs(devicesPath)
	if err != nil {
		return fmt.Errorf("load device configs: %w", err)
	}

	topo, err := topology.BuildFromConfigs(configs)
	if err != nil {
		return fmt.Errorf("build topology: %w", err)
	}
	log.Info(ctx, "topology built",
		logging.Int("nodes", topo.NodeCount()),
		logging.Int("links", topo.EdgeCount()))

	if err := runAnalysis(ctx, log, configs, topo, reportDB); err != nil {
		return err
	}

	shutdownTracing, err := observability.InitTracing(ctx, observability.TracingConfigFromEnv(), log)
	if err != nil {
		return fmt.Errorf("init tracing: %w", err)
	}
	defer observability.ShutdownWithTimeout(ctx, shutdownTracing, log)

	collector, err := observability.NewSimCollector(nil)
	if err != nil {
		return fmt.Errorf("init metrics collector: %w", err)
	}
	metricsSrv := serveMetrics(metricsAddr, collector, log)

	engine := sim.NewEngine(topo, sim.Config{
		ControlAddr:       listenAddr,
		TickInterval:      tick,
		PausePollInterval: pausePoll,
	}, sim.WithLogger(log), sim.WithMetrics(collector))

	if err := engine.Start(); err != nil {
		return fmt.Errorf("start simulation: %w", err)
	}

	for _, pair := range failLinks {
		u, v, ok := splitLinkPair(pair)
		if !ok {
			log.Warn(ctx, "ignoring malformed --fail-link value", logging.String("value", pair))
			continue
		}
		engine.InjectLinkFailure(u, v)
	}

	if addr := engine.ControlAddr(); addr != "" {
		color.Green("Simulation running; control plane on %s", addr)
	} else {
		color.Yellow("Simulation running; remote control unavailable")
	}

	stopCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if duration > 0 {
		select {
		case <-stopCtx.Done():
		case <-time.After(duration):
		}
	} else {
		<-stopCtx.Done()
	}

	log.Info(ctx, "shutting down")
	engine.Stop()

	if metricsSrv != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = metricsSrv.Shutdown(shutdownCtx)
	}
	return nil
}

// runAnalysis performs the validation, traffic, and day-2 passes, prints a
// compact summary, and archives the reports when a database path is set.
func runAnalysis(ctx context.Context, log logging.Logger, configs topology.DeviceConfigs, topo *topology.Graph, reportDB string) error {
	validation := analysis.NewValidator(configs, topo).ValidateAll()
	traffic := analysis.NewTrafficAnalyzer(topo).Analyze()
	day2 := analysis.NewDay2Tester(configs, topo).RunAll()

	printValidationSummary(validation)
	printTrafficSummary(traffic)
	fmt.Printf("Day-2 tests: %d total, %s, %s, %s\n",
		day2.Total,
		color.GreenString("%d passed", day2.Passed),
		color.RedString("%d failed", day2.Failed),
		color.YellowString("%d warnings", day2.Warnings))

	if reportDB == "" {
		return nil
	}

	store, err := report.Open(reportDB)
	if err != nil {
		return fmt.Errorf("open report archive: %w", err)
	}
	defer store.Close()

	for kind, r := range map[string]any{
		report.KindValidation: validation,
		report.KindTraffic:    traffic,
		report.KindDay2:       day2,
	} {
		id, err := store.Save(ctx, kind, r)
		if err != nil {
			return fmt.Errorf("archive %s report: %w", kind, err)
		}
		log.Debug(ctx, "report archived", logging.String("kind", kind), logging.String("id", id))
	}
	log.Info(ctx, "analysis reports archived", logging.String("path", reportDB))
	return nil
}

func printValidationSummary(v *analysis.ValidationReport) {
	if v.IssueCount() == 0 {
		color.Green("Validation: no issues found")
		return
	}
	color.Red("Validation: %d issues found", v.IssueCount())
	printIssueGroup("missing components", v.MissingComponents)
	printIssueGroup("duplicate IPs", v.DuplicateIPs)
	printIssueGroup("VLAN issues", v.VLANIssues)
	printIssueGroup("gateway issues", v.GatewayIssues)
	printIssueGroup("MTU mismatches", v.MTUMismatches)
	printIssueGroup("network loops", v.NetworkLoops)
}

func printIssueGroup(name string, issues []string) {
	if len(issues) == 0 {
		return
	}
	fmt.Printf("  %s:\n", name)
	for _, issue := range issues {
		fmt.Printf("    - %s\n", issue)
	}
}

func printTrafficSummary(t *analysis.TrafficReport) {
	if len(t.Bottlenecks) == 0 {
		color.Green("Traffic: no bottlenecks detected across %d links", len(t.LinkUtilization))
		return
	}
	for _, b := range t.Bottlenecks {
		color.Yellow("Link %s is heavily utilized (%.1f%%, %s)", b.Link, b.UtilizationPercent, b.Severity)
	}
	for _, rec := range t.LoadBalancingRecommendations {
		fmt.Printf("  - %s\n", rec)
	}
}

func serveMetrics(addr string, collector *observability.SimCollector, log logging.Logger) *http.Server {
	if addr == "" || collector == nil {
		return nil
	}
	mux := http.NewServeMux()
	mux.Handle("/metrics", collector.Handler())

	srv := &http.Server{Addr: addr, Handler: mux}
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Warn(context.Background(), "metrics server exited", logging.String("error", err.Error()))
		}
	}()

	log.Info(context.Background(), "serving Prometheus metrics", logging.String("addr", addr))
	return srv
}

func splitLinkPair(pair string) (string, string, bool) {
	parts := strings.SplitN(pair, ",", 2)
	if len(parts) != 2 {
		return "", "", false
	}
	u := strings.TrimSpace(parts[0])
	v := strings.TrimSpace(parts[1])
	if u == "" || v == "" {
		return "", "", false
	}
	return u, v, true
}
