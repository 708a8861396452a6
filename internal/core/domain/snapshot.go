package domain

import (
	"time"
)

// Snapshot keys. Each key is owned by exactly one tier (KeyTiers).
const (
	KeyDeviceMode      = "device_mode"
	KeyBatterySOC      = "battery_soc"
	KeyBatteryPower    = "battery_power"
	KeyBatteryCapacity = "battery_capacity"
	KeyOngridPower     = "ongrid_power"
	KeyOffgridPower    = "offgrid_power"
	KeyMeterPhaseA     = "meter_a_power"
	KeyMeterPhaseB     = "meter_b_power"
	KeyMeterPhaseC     = "meter_c_power"
	KeyMeterTotal      = "meter_total_power"

	KeyPVPower   = "pv_power"
	KeyPVVoltage = "pv_voltage"
	KeyPVCurrent = "pv_current"

	KeyWifiSSID         = "wifi_ssid"
	KeyWifiRSSI         = "wifi_rssi"
	KeyBatteryTemp      = "battery_temperature"
	KeyBatteryRatedCap  = "battery_rated_capacity"
	KeyBatteryCharging  = "battery_charging"
	KeyBatteryDischarge = "battery_discharging"
)

// KeyTiers maps every snapshot key to the tier that owns it.
var KeyTiers = map[string]PollTier{
	KeyDeviceMode:      TierFast,
	KeyBatterySOC:      TierFast,
	KeyBatteryPower:    TierFast,
	KeyBatteryCapacity: TierFast,
	KeyOngridPower:     TierFast,
	KeyOffgridPower:    TierFast,
	KeyMeterPhaseA:     TierFast,
	KeyMeterPhaseB:     TierFast,
	KeyMeterPhaseC:     TierFast,
	KeyMeterTotal:      TierFast,

	KeyPVPower:   TierMedium,
	KeyPVVoltage: TierMedium,
	KeyPVCurrent: TierMedium,

	KeyWifiSSID:         TierSlow,
	KeyWifiRSSI:         TierSlow,
	KeyBatteryTemp:      TierSlow,
	KeyBatteryRatedCap:  TierSlow,
	KeyBatteryCharging:  TierSlow,
	KeyBatteryDischarge: TierSlow,
}

// SnapshotValue is one last-known value plus the time of its last
// successful update.
type SnapshotValue struct {
	Value     any       `json:"value"`
	UpdatedAt time.Time `json:"updated_at"`
	Tier      PollTier  `json:"-"`
}

// StateSnapshot holds the merged latest-known state of all polled
// keys. It has a single writer (the poller actor); consumers only ever
// see copies.
type StateSnapshot struct {
	values map[string]SnapshotValue
}

func NewStateSnapshot() *StateSnapshot {
	return &StateSnapshot{
		values: make(map[string]SnapshotValue),
	}
}

// Merge writes the given values at the given update time, restricted
// to keys the tier owns. Keys owned by other tiers and unregistered
// keys are dropped. Returns the keys actually written.
func (s *StateSnapshot) Merge(tier PollTier, at time.Time, values map[string]any) []string {
	var written []string
	for key, value := range values {
		owner, known := KeyTiers[key]
		if !known || owner != tier {
			continue
		}
		s.values[key] = SnapshotValue{
			Value:     value,
			UpdatedAt: at,
			Tier:      tier,
		}
		written = append(written, key)
	}
	return written
}

func (s *StateSnapshot) Get(key string) (SnapshotValue, bool) {
	v, ok := s.values[key]
	return v, ok
}

func (s *StateSnapshot) Len() int {
	return len(s.values)
}

// Values returns a copy safe to hand to other goroutines.
func (s *StateSnapshot) Values() map[string]SnapshotValue {
	out := make(map[string]SnapshotValue, len(s.values))
	for k, v := range s.values {
		out[k] = v
	}
	return out
}
