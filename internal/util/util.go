package util

import (
	"github.com/Jojo-A/has-marstek-local-api/internal/config"

	"go.uber.org/zap"
)

func LoadTestConfig() config.Config {
	return config.Config{
		LogLevel: zap.DebugLevel,
		Device: config.DeviceConfig{
			Host:                      "127.0.0.1",
			Port:                      30000,
			BLEMAC:                    "11:22:33:44:55:66",
			RequestDelaySeconds:       1,
			RequestTimeoutSeconds:     5,
			FailuresBeforeUnavailable: 3,
		},
		Polling: config.PollingConfig{
			FastIntervalSeconds:   30,
			MediumIntervalSeconds: 60,
			SlowIntervalSeconds:   300,
		},
		Scanner: config.ScannerConfig{
			SweepIntervalSeconds: 300,
			DiscoveryWaitSeconds: 2,
		},
		Command: config.CommandConfig{
			ActionChargePower:    800,
			ActionDischargePower: 800,
			SocketLimitEnabled:   true,
		},
		MQTT: config.MQTTConfig{
			Host:      "localhost",
			Port:      1883,
			BaseTopic: "marstek",
		},
		Port: 8080,
	}
}
