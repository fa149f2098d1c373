package cmd

import (
	"fmt"
	"os"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/bullwhip-sim/bullwhip-sim/sim"
	"github.com/bullwhip-sim/bullwhip-sim/sim/scenario"
	"github.com/bullwhip-sim/bullwhip-sim/store"
)

var (
	// CLI flags for the simulation run
	seed              int64  // Seed for demand generation
	weeks             int    // Simulation horizon in weeks
	logLevel          string // Log verbosity level
	initialInventory  int    // Starting on-hand inventory per node
	holdingCost       float64
	backlogCost       float64
	orderDelay        int
	shipmentDelay     int
	productionDelay   int
	productionCap     int
	demandType        string // constant, step, random, seasonal
	baseDemand        int
	retailerPolicy    string
	wholesalerPolicy  string
	distributorPolicy string
	factoryPolicy     string
	baseStockLevel    int

	scenarioID   string // Predefined scenario overriding individual flags
	scenarioFile string // YAML file with custom scenario definitions
	configFile   string // YAML file with a full simulation config
	archivePath  string // SQLite database to archive the run into

	// replay flags
	replayLimit int
)

// rootCmd is the base command for the CLI
var rootCmd = &cobra.Command{
	Use:   "bullwhip-sim",
	Short: "Discrete-event simulator for a four-echelon supply chain",
}

// runCmd executes a simulation using parameters from CLI flags
var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run a supply chain simulation",
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := setupLogging(); err != nil {
			return err
		}

		cfg, err := resolveConfig(cmd)
		if err != nil {
			return err
		}

		env, err := sim.NewEnvironment(cfg)
		if err != nil {
			return err
		}

		results, err := env.Run(weeks)
		if err != nil {
			return err
		}

		results.Summary.Print()

		if archivePath != "" {
			s, err := store.NewStore(archivePath)
			if err != nil {
				return err
			}
			defer s.Close()
			if err := s.SaveRun(results); err != nil {
				return err
			}
			logrus.Infof("run %s archived to %s", results.SimulationID, archivePath)
		}
		return nil
	},
}

// scenariosCmd lists the available predefined scenarios
var scenariosCmd = &cobra.Command{
	Use:   "scenarios",
	Short: "List available scenarios",
	RunE: func(cmd *cobra.Command, args []string) error {
		catalog := scenario.NewCatalog()
		if scenarioFile != "" {
			if _, err := catalog.LoadFile(scenarioFile); err != nil {
				return err
			}
		}
		for _, def := range catalog.List() {
			fmt.Printf("%-14s %-12s %s\n", def.ID, def.Difficulty, def.Description)
		}
		return nil
	},
}

// replayCmd lists archived runs or prints the summary of one
var replayCmd = &cobra.Command{
	Use:   "replay [simulation-id]",
	Short: "List archived runs, or replay one by ID",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if archivePath == "" {
			return fmt.Errorf("--archive is required for replay")
		}
		s, err := store.NewStore(archivePath)
		if err != nil {
			return err
		}
		defer s.Close()

		if len(args) == 0 {
			records, err := s.ListRuns(replayLimit)
			if err != nil {
				return err
			}
			for _, r := range records {
				fmt.Printf("%s  %s  %3d weeks  %-9s cost=%-10s fill=%.3f bullwhip=%.2f\n",
					r.SimulationID, r.CreatedAt.Format("2006-01-02 15:04"),
					r.Weeks, r.DemandType, r.TotalCost, r.FillRate, r.BullwhipRatio)
			}
			return nil
		}

		results, err := s.GetRun(args[0])
		if err != nil {
			return err
		}
		results.Summary.Print()
		return nil
	},
}

func setupLogging() error {
	level, err := logrus.ParseLevel(logLevel)
	if err != nil {
		return fmt.Errorf("invalid log level: %s", logLevel)
	}
	logrus.SetLevel(level)
	return nil
}

// resolveConfig builds the simulation config from, in order of precedence:
// explicit flags, then a --config file, then a --scenario, then defaults.
func resolveConfig(cmd *cobra.Command) (sim.SimulationConfig, error) {
	cfg := sim.DefaultConfig()

	if scenarioID != "" {
		catalog := scenario.NewCatalog()
		if scenarioFile != "" {
			if _, err := catalog.LoadFile(scenarioFile); err != nil {
				return cfg, err
			}
		}
		def, err := catalog.Get(scenarioID)
		if err != nil {
			return cfg, err
		}
		cfg = def.Config
		logrus.Infof("using scenario %q (%s)", def.ID, def.Name)
	}

	if configFile != "" {
		loaded, err := LoadConfigFile(configFile, cfg)
		if err != nil {
			return cfg, err
		}
		cfg = loaded
	}

	applyFlagOverrides(cmd, &cfg)
	return cfg, nil
}

// applyFlagOverrides copies any explicitly set flag over the resolved config,
// so flags always win over scenario and file values.
func applyFlagOverrides(cmd *cobra.Command, cfg *sim.SimulationConfig) {
	flags := cmd.Flags()
	if flags.Changed("seed") {
		cfg.Seed = seed
	}
	if flags.Changed("weeks") {
		cfg.Weeks = weeks
	}
	if flags.Changed("initial-inventory") {
		cfg.InitialInventory = initialInventory
	}
	if flags.Changed("holding-cost") {
		cfg.HoldingCostPerUnit = holdingCost
	}
	if flags.Changed("backlog-cost") {
		cfg.BacklogCostPerUnit = backlogCost
	}
	if flags.Changed("order-delay") {
		cfg.OrderDelay = orderDelay
	}
	if flags.Changed("shipment-delay") {
		cfg.ShipmentDelay = shipmentDelay
	}
	if flags.Changed("production-delay") {
		cfg.ProductionDelay = productionDelay
	}
	if flags.Changed("production-capacity") {
		cfg.ProductionCapacity = productionCap
	}
	if flags.Changed("demand") {
		cfg.DemandType = demandType
	}
	if flags.Changed("base-demand") {
		cfg.DemandParams.BaseDemand = baseDemand
	}
	if flags.Changed("retailer-policy") {
		cfg.RetailerPolicy = retailerPolicy
	}
	if flags.Changed("wholesaler-policy") {
		cfg.WholesalerPolicy = wholesalerPolicy
	}
	if flags.Changed("distributor-policy") {
		cfg.DistributorPolicy = distributorPolicy
	}
	if flags.Changed("factory-policy") {
		cfg.FactoryPolicy = factoryPolicy
	}
	if flags.Changed("base-stock-level") {
		cfg.PolicyParams.BaseStockLevel = baseStockLevel
	}
}

// Execute runs the CLI root command
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// init sets up CLI flags and subcommands
func init() {
	registerFlags()

	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(scenariosCmd)
	rootCmd.AddCommand(replayCmd)
}

func registerFlags() {
	runCmd.Flags().Int64Var(&seed, "seed", 42, "Seed for random demand generation")
	runCmd.Flags().IntVar(&weeks, "weeks", 0, "Simulation horizon in weeks (0 uses config value)")
	runCmd.Flags().StringVar(&logLevel, "log", "error", "Log level (trace, debug, info, warn, error, fatal, panic)")

	// Chain configs
	runCmd.Flags().IntVar(&initialInventory, "initial-inventory", 12, "Starting on-hand inventory per node")
	runCmd.Flags().Float64Var(&holdingCost, "holding-cost", 0.5, "Holding cost per unit per week")
	runCmd.Flags().Float64Var(&backlogCost, "backlog-cost", 1.0, "Backlog cost per unit per week")
	runCmd.Flags().IntVar(&orderDelay, "order-delay", 2, "Weeks for an order to travel upstream")
	runCmd.Flags().IntVar(&shipmentDelay, "shipment-delay", 2, "Weeks for a shipment to travel downstream")
	runCmd.Flags().IntVar(&productionDelay, "production-delay", 2, "Weeks for factory production to complete")
	runCmd.Flags().IntVar(&productionCap, "production-capacity", 100, "Max units the factory can schedule per week")

	// Demand configs
	runCmd.Flags().StringVar(&demandType, "demand", "constant", "Demand pattern (constant, step, random, seasonal)")
	runCmd.Flags().IntVar(&baseDemand, "base-demand", 4, "Baseline customer demand per week")

	// Policy configs
	runCmd.Flags().StringVar(&retailerPolicy, "retailer-policy", "default", "Ordering policy for the retailer")
	runCmd.Flags().StringVar(&wholesalerPolicy, "wholesaler-policy", "default", "Ordering policy for the wholesaler")
	runCmd.Flags().StringVar(&distributorPolicy, "distributor-policy", "default", "Ordering policy for the distributor")
	runCmd.Flags().StringVar(&factoryPolicy, "factory-policy", "default", "Ordering policy for the factory")
	runCmd.Flags().IntVar(&baseStockLevel, "base-stock-level", 20, "Target inventory position for base_stock")

	// Scenario and file inputs
	runCmd.Flags().StringVar(&scenarioID, "scenario", "", "Predefined scenario ID (see 'scenarios')")
	runCmd.Flags().StringVar(&scenarioFile, "scenario-file", "", "YAML file with custom scenario definitions")
	runCmd.Flags().StringVar(&configFile, "config", "", "YAML file with a full simulation config")
	runCmd.Flags().StringVar(&archivePath, "archive", "", "SQLite database to archive the run into")

	scenariosCmd.Flags().StringVar(&scenarioFile, "scenario-file", "", "YAML file with custom scenario definitions")

	replayCmd.Flags().StringVar(&archivePath, "archive", "", "SQLite database holding archived runs")
	replayCmd.Flags().IntVar(&replayLimit, "limit", 20, "Max archived runs to list")
}
