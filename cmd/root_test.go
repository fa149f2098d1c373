package cmd

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bullwhip-sim/bullwhip-sim/sim"
)

func TestLoadConfigFile_OverlaysOnBase(t *testing.T) {
	content := `weeks: 30
demand_type: step
demand_params:
  base_demand: 6
`
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	cfg, err := LoadConfigFile(path, sim.DefaultConfig())
	require.NoError(t, err)

	assert.Equal(t, 30, cfg.Weeks)
	assert.Equal(t, sim.DemandStep, cfg.DemandType)
	assert.Equal(t, 6, cfg.DemandParams.BaseDemand)

	// Untouched fields keep the base values.
	assert.Equal(t, 12, cfg.InitialInventory)
	assert.Equal(t, 2, cfg.ShipmentDelay)
	assert.Equal(t, sim.PolicyDefault, cfg.FactoryPolicy)
}

func TestLoadConfigFile_MissingFile_Errors(t *testing.T) {
	_, err := LoadConfigFile(filepath.Join(t.TempDir(), "nope.yaml"), sim.DefaultConfig())
	assert.Error(t, err)
}

func TestApplyFlagOverrides_OnlyChangedFlagsWin(t *testing.T) {
	cfg := sim.DefaultConfig()
	cfg.Weeks = 30
	cfg.DemandType = sim.DemandStep

	require.NoError(t, runCmd.Flags().Set("weeks", "10"))
	require.NoError(t, runCmd.Flags().Set("factory-policy", "base_stock"))
	defer func() {
		runCmd.ResetFlags()
		scenariosCmd.ResetFlags()
		replayCmd.ResetFlags()
		registerFlags()
	}()

	applyFlagOverrides(runCmd, &cfg)

	assert.Equal(t, 10, cfg.Weeks)
	assert.Equal(t, "base_stock", cfg.FactoryPolicy)
	// Flags left at defaults do not override the resolved config.
	assert.Equal(t, sim.DemandStep, cfg.DemandType)
}

func TestResolveConfig_ScenarioSelectsCatalogEntry(t *testing.T) {
	scenarioID = "step_change"
	defer func() { scenarioID = "" }()

	cfg, err := resolveConfig(runCmd)
	require.NoError(t, err)
	assert.Equal(t, sim.DemandStep, cfg.DemandType)
	assert.Equal(t, 40, cfg.Weeks)
}

func TestResolveConfig_UnknownScenario_Errors(t *testing.T) {
	scenarioID = "atlantis"
	defer func() { scenarioID = "" }()

	_, err := resolveConfig(runCmd)
	assert.Error(t, err)
}
