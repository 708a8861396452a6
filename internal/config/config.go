package config

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"go.uber.org/zap/zapcore"
)

type Config struct {
	LogLevel zapcore.Level
	Device   DeviceConfig  `mapstructure:"device"`
	Polling  PollingConfig `mapstructure:"polling"`
	Scanner  ScannerConfig `mapstructure:"scanner"`
	Command  CommandConfig `mapstructure:"command"`
	MQTT     MQTTConfig    `mapstructure:"mqtt"`
	Port     uint          `mapstructure:"port"`
	HttpLog  bool          `mapstructure:"http_log"`
}

type DeviceConfig struct {
	Host                      string
	Port                      uint
	BLEMAC                    string `mapstructure:"ble_mac"`
	RequestDelaySeconds       uint   `mapstructure:"request_delay"`
	RequestTimeoutSeconds     uint   `mapstructure:"request_timeout"`
	FailuresBeforeUnavailable uint   `mapstructure:"failures_before_unavailable"`
}

type PollingConfig struct {
	FastIntervalSeconds   uint `mapstructure:"fast_interval"`
	MediumIntervalSeconds uint `mapstructure:"medium_interval"`
	SlowIntervalSeconds   uint `mapstructure:"slow_interval"`
}

type ScannerConfig struct {
	SweepIntervalSeconds uint `mapstructure:"sweep_interval"`
	DiscoveryWaitSeconds uint `mapstructure:"discovery_wait"`
	NetworkCheckSeconds  uint `mapstructure:"network_check_interval"`
}

type CommandConfig struct {
	ActionChargePower    uint `mapstructure:"action_charge_power"`
	ActionDischargePower uint `mapstructure:"action_discharge_power"`
	SocketLimitEnabled   bool `mapstructure:"socket_limit_enabled"`
}

type MQTTConfig struct {
	Host      string
	Port      int
	Username  string
	Password  string
	BaseTopic string `mapstructure:"base_topic"`
}

func (c DeviceConfig) RequestDelay() time.Duration {
	return time.Duration(c.RequestDelaySeconds) * time.Second
}

func (c DeviceConfig) RequestTimeout() time.Duration {
	return time.Duration(c.RequestTimeoutSeconds) * time.Second
}

func (c PollingConfig) FastInterval() time.Duration {
	return time.Duration(c.FastIntervalSeconds) * time.Second
}

func (c PollingConfig) MediumInterval() time.Duration {
	return time.Duration(c.MediumIntervalSeconds) * time.Second
}

func (c PollingConfig) SlowInterval() time.Duration {
	return time.Duration(c.SlowIntervalSeconds) * time.Second
}

func (c ScannerConfig) SweepInterval() time.Duration {
	return time.Duration(c.SweepIntervalSeconds) * time.Second
}

func (c ScannerConfig) DiscoveryWait() time.Duration {
	return time.Duration(c.DiscoveryWaitSeconds) * time.Second
}

func (c ScannerConfig) NetworkCheckInterval() time.Duration {
	return time.Duration(c.NetworkCheckSeconds) * time.Second
}

// Validate enforces the documented bounds on the tunables. Values are
// rejected instead of clamped so a typo in an env var is visible at
// startup rather than silently changed.
func (c *Config) Validate() error {
	if c.Device.Host == "" && c.Device.BLEMAC == "" {
		return errors.New("device: host or ble_mac is required")
	}
	if c.Device.RequestDelaySeconds < 1 || c.Device.RequestDelaySeconds > 30 {
		return fmt.Errorf("device: request_delay must be between 1 and 30 seconds, got %d", c.Device.RequestDelaySeconds)
	}
	if c.Device.RequestTimeoutSeconds < 5 || c.Device.RequestTimeoutSeconds > 60 {
		return fmt.Errorf("device: request_timeout must be between 5 and 60 seconds, got %d", c.Device.RequestTimeoutSeconds)
	}
	if c.Device.FailuresBeforeUnavailable < 1 || c.Device.FailuresBeforeUnavailable > 10 {
		return fmt.Errorf("device: failures_before_unavailable must be between 1 and 10, got %d", c.Device.FailuresBeforeUnavailable)
	}
	if c.Polling.FastIntervalSeconds == 0 || c.Polling.MediumIntervalSeconds == 0 || c.Polling.SlowIntervalSeconds == 0 {
		return errors.New("polling: intervals must be greater than zero")
	}
	return nil
}

func CheckMQTTTopic(baseTopic string) (string, error) {
	// check and fix base topic
	lowerBaseTopic := strings.ToLower(baseTopic)
	baseTopicRegexp := regexp.MustCompile("^[a-z0-9_]+$")
	matches := baseTopicRegexp.FindAllStringSubmatch(lowerBaseTopic, 1)
	if len(matches) <= 0 {
		return "", errors.New("invalid topic. can only contain letters, numbers and underscores")
	}
	return lowerBaseTopic, nil
}
