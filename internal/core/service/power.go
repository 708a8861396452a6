package service

import (
	"fmt"

	"github.com/Jojo-A/has-marstek-local-api/internal/core/domain"
)

// DeviceMaxPowerWatt is the intrinsic charge/discharge limit of the
// device hardware. It applies even when no socket limit is configured.
const DeviceMaxPowerWatt = 2500

type OutOfRangeError struct {
	PowerWatt int
	LimitWatt int
}

func (e *OutOfRangeError) Error() string {
	return fmt.Sprintf("power out of range: %d W exceeds limit of %d W", e.PowerWatt, e.LimitWatt)
}

// PowerLimits validates requested command power. With the socket limit
// enabled, the configured per-action power is a strict upper bound.
// The device-intrinsic maximum always applies.
type PowerLimits struct {
	SocketLimitEnabled bool
	ChargeLimitWatt    int
	DischargeLimitWatt int
}

func (l PowerLimits) Validate(action domain.CommandAction, powerWatt int) error {
	if action == domain.ActionStop {
		return nil
	}
	limit := DeviceMaxPowerWatt
	if l.SocketLimitEnabled {
		switch action {
		case domain.ActionCharge:
			limit = l.ChargeLimitWatt
		case domain.ActionDischarge:
			limit = l.DischargeLimitWatt
		}
		if limit > DeviceMaxPowerWatt {
			limit = DeviceMaxPowerWatt
		}
	}
	if powerWatt < 0 || powerWatt > limit {
		return &OutOfRangeError{PowerWatt: powerWatt, LimitWatt: limit}
	}
	return nil
}
