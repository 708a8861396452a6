package domain

import (
	"github.com/Jojo-A/has-marstek-local-api/pkg/marstek"
)

// DeviceIdentity is the permanent key of a device: its normalized BLE
// MAC. It never changes, no matter how often the IP does.
type DeviceIdentity string

func NewDeviceIdentity(mac string) DeviceIdentity {
	return DeviceIdentity(marstek.NormalizeMAC(mac))
}

// DeviceAddress is the host:port currently believed to reach the
// device. Owned by the scanner, replaced wholesale on rediscovery.
type DeviceAddress string

// PollTier groups queries refreshed at one cadence.
type PollTier int

const (
	TierFast PollTier = iota
	TierMedium
	TierSlow
)

func (t PollTier) String() string {
	switch t {
	case TierFast:
		return "fast"
	case TierMedium:
		return "medium"
	case TierSlow:
		return "slow"
	default:
		return "unknown"
	}
}

// PollTiers lists all tiers in scheduling order.
var PollTiers = []PollTier{TierFast, TierMedium, TierSlow}

// TierQueries is the fixed set of queries each tier owns, in issue
// order. Queries never migrate tiers at runtime.
var TierQueries = map[PollTier][]marstek.Method{
	TierFast:   {marstek.MethodESGetMode, marstek.MethodESGetStatus, marstek.MethodEMGetStatus},
	TierMedium: {marstek.MethodPVGetStatus},
	TierSlow:   {marstek.MethodWifiGetStatus, marstek.MethodBatGetStatus},
}

// MethodTier returns the tier that owns a poll query.
func MethodTier(method marstek.Method) (PollTier, bool) {
	for tier, methods := range TierQueries {
		for _, m := range methods {
			if m == method {
				return tier, true
			}
		}
	}
	return 0, false
}

// CommandAction is a battery action requested by a consumer.
type CommandAction int

const (
	ActionCharge CommandAction = iota
	ActionDischarge
	ActionStop
)

func (a CommandAction) String() string {
	switch a {
	case ActionCharge:
		return "charge"
	case ActionDischarge:
		return "discharge"
	case ActionStop:
		return "stop"
	default:
		return "unknown"
	}
}
