package service

import (
	"github.com/Jojo-A/has-marstek-local-api/internal/core/domain"
	"github.com/Jojo-A/has-marstek-local-api/pkg/marstek"
)

// QueryValues maps a raw device response to snapshot key/value pairs.
// Fields the firmware did not report produce no pair at all, so a
// merge never overwrites a known value with a made-up zero.
func QueryValues(method marstek.Method, resp *marstek.Response) (map[string]any, error) {
	values := make(map[string]any)

	switch method {
	case marstek.MethodESGetMode:
		mode, err := marstek.DecodeESMode(resp)
		if err != nil {
			return nil, err
		}
		putString(values, domain.KeyDeviceMode, mode.Mode)
	case marstek.MethodESGetStatus:
		status, err := marstek.DecodeESStatus(resp)
		if err != nil {
			return nil, err
		}
		putInt(values, domain.KeyBatterySOC, status.BatterySOC)
		putInt(values, domain.KeyBatteryPower, status.BatteryPower)
		putFloat(values, domain.KeyBatteryCapacity, status.BatteryCapacity)
		putInt(values, domain.KeyOngridPower, status.OngridPower)
		putInt(values, domain.KeyOffgridPower, status.OffgridPower)
	case marstek.MethodEMGetStatus:
		status, err := marstek.DecodeEMStatus(resp)
		if err != nil {
			return nil, err
		}
		putInt(values, domain.KeyMeterPhaseA, status.PhaseAPower)
		putInt(values, domain.KeyMeterPhaseB, status.PhaseBPower)
		putInt(values, domain.KeyMeterPhaseC, status.PhaseCPower)
		putInt(values, domain.KeyMeterTotal, status.TotalPower)
	case marstek.MethodPVGetStatus:
		status, err := marstek.DecodePVStatus(resp)
		if err != nil {
			return nil, err
		}
		putFloat(values, domain.KeyPVPower, status.Power)
		putFloat(values, domain.KeyPVVoltage, status.Voltage)
		putFloat(values, domain.KeyPVCurrent, status.Current)
	case marstek.MethodWifiGetStatus:
		status, err := marstek.DecodeWifiStatus(resp)
		if err != nil {
			return nil, err
		}
		putString(values, domain.KeyWifiSSID, status.SSID)
		putInt(values, domain.KeyWifiRSSI, status.RSSI)
	case marstek.MethodBatGetStatus:
		status, err := marstek.DecodeBatStatus(resp)
		if err != nil {
			return nil, err
		}
		putFloat(values, domain.KeyBatteryTemp, status.Temperature)
		putFloat(values, domain.KeyBatteryRatedCap, status.RatedCapacity)
		putFlag(values, domain.KeyBatteryCharging, status.ChargingFlag)
		putFlag(values, domain.KeyBatteryDischarge, status.DischargeFlag)
	default:
		return nil, &marstek.ProtocolError{Method: method, Reason: "not a poll query"}
	}

	return values, nil
}

func putInt(values map[string]any, key string, v *int) {
	if v != nil {
		values[key] = *v
	}
}

func putFloat(values map[string]any, key string, v *float64) {
	if v != nil {
		values[key] = *v
	}
}

func putString(values map[string]any, key string, v *string) {
	if v != nil {
		values[key] = *v
	}
}

func putFlag(values map[string]any, key string, v *int) {
	if v != nil {
		values[key] = *v != 0
	}
}
