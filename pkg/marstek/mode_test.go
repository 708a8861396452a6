package marstek

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildModeConfigAuto(t *testing.T) {
	cfg, err := BuildModeConfig(ModeAuto, 0)
	require.NoError(t, err)

	assert.Equal(t, ModeAuto, cfg["mode"])
	assert.Equal(t, 1, cfg["auto_cfg"].(map[string]any)["enable"])
}

func TestBuildModeConfigAI(t *testing.T) {
	cfg, err := BuildModeConfig(ModeAI, 0)
	require.NoError(t, err)

	assert.Equal(t, ModeAI, cfg["mode"])
	assert.Equal(t, 1, cfg["ai_cfg"].(map[string]any)["enable"])
}

func TestBuildModeConfigManual(t *testing.T) {
	cfg, err := BuildModeConfig(ModeManual, 0)
	require.NoError(t, err)

	assert.Equal(t, ModeManual, cfg["mode"])
	manual := cfg["manual_cfg"].(map[string]any)
	assert.Equal(t, 0, manual["time_num"])
	assert.Equal(t, "00:00", manual["start_time"])
	assert.Equal(t, "23:59", manual["end_time"])
	assert.Equal(t, WeekdaysAll, manual["week_set"])
	assert.Equal(t, 0, manual["power"])
	assert.Equal(t, 0, manual["enable"])
}

func TestBuildModeConfigManualWithPower(t *testing.T) {
	cfg, err := BuildModeConfig(ModeManual, -800)
	require.NoError(t, err)

	manual := cfg["manual_cfg"].(map[string]any)
	assert.Equal(t, -800, manual["power"])
	assert.Equal(t, 1, manual["enable"])
}

func TestBuildModeConfigPassive(t *testing.T) {
	cfg, err := BuildModeConfig(ModePassive, 0)
	require.NoError(t, err)

	assert.Equal(t, ModePassive, cfg["mode"])
	passive := cfg["passive_cfg"].(map[string]any)
	assert.Equal(t, 0, passive["power"])
	assert.Equal(t, 3600, passive["cd_time"])
}

func TestBuildModeConfigUnknownMode(t *testing.T) {
	_, err := BuildModeConfig("invalid_mode", 0)
	assert.ErrorContains(t, err, "unknown mode: invalid_mode")
}
