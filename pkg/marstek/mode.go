package marstek

import "fmt"

// Operating modes accepted by ES.SetMode.
const (
	ModeAuto    = "Auto"
	ModeAI      = "AI"
	ModeManual  = "Manual"
	ModePassive = "Passive"
)

// WeekdaysAll is the full 7-bit weekday mask of a manual schedule.
const WeekdaysAll = 127

// BuildModeConfig builds the ES.SetMode config payload for a mode.
// powerWatt is signed: negative charges the battery, positive
// discharges it. It only applies to Manual and Passive.
func BuildModeConfig(mode string, powerWatt int) (map[string]any, error) {
	switch mode {
	case ModeAuto:
		return map[string]any{
			"mode": ModeAuto,
			"auto_cfg": map[string]any{
				"enable": 1,
			},
		}, nil
	case ModeAI:
		return map[string]any{
			"mode": ModeAI,
			"ai_cfg": map[string]any{
				"enable": 1,
			},
		}, nil
	case ModeManual:
		enable := 0
		if powerWatt != 0 {
			enable = 1
		}
		return map[string]any{
			"mode": ModeManual,
			"manual_cfg": map[string]any{
				"time_num":   0,
				"start_time": "00:00",
				"end_time":   "23:59",
				"week_set":   WeekdaysAll,
				"power":      powerWatt,
				"enable":     enable,
			},
		}, nil
	case ModePassive:
		return map[string]any{
			"mode": ModePassive,
			"passive_cfg": map[string]any{
				"power":   powerWatt,
				"cd_time": 3600,
			},
		}, nil
	default:
		return nil, fmt.Errorf("unknown mode: %s", mode)
	}
}
