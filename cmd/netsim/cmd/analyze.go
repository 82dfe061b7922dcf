package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/netfabrik/netsim/topology"
)

var analyzeCmd = &cobra.Command{
	Use:   "analyze",
	Short: "Run offline validation and traffic analysis",
	Long: `Analyze builds the topology from device configurations and runs the
validation, traffic, and day-2 passes without starting a simulation.`,
	RunE: runAnalyze,
}

func init() {
	analyzeCmd.Flags().StringP("devices", "d", "configs/devices.yaml", "device configuration YAML")
	analyzeCmd.Flags().String("report-db", "", "SQLite file to archive analysis reports (empty disables)")
}

func runAnalyze(cmd *cobra.Command, _ []string) error {
	log := newLogger()

	devicesPath, _ := cmd.Flags().GetString("devices")
	reportDB, _ := cmd.Flags().GetString("report-db")

	configs, err := topology.LoadDeviceConfigs(devicesPath)
	if err != nil {
		return fmt.Errorf("load device configs: %w", err)
	}

	topo, err := topology.BuildFromConfigs(configs)
	if err != nil {
		return fmt.Errorf("build topology: %w", err)
	}
	fmt.Printf("Built topology: %d nodes, %d links\n", topo.NodeCount(), topo.EdgeCount())

	return runAnalysis(context.Background(), log, configs, topo, reportDB)
}
