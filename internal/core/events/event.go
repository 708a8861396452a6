package events

import (
	. "github.com/Jojo-A/has-marstek-local-api/internal/core/domain"
)

// decimals published for float sensors, by snapshot key.
var floatDecimals = map[string]uint{
	KeyBatteryTemp: 1,
	KeyPVPower:     2,
	KeyPVVoltage:   2,
	KeyPVCurrent:   2,
}

// SnapshotUpdateEvents converts freshly written snapshot values into
// sensor update events. Sensor ids are the snapshot keys, so MQTT
// topics stay stable across releases.
func SnapshotUpdateEvents(values map[string]any, keys []string) []any {
	var events []any
	for _, key := range keys {
		if ev := SnapshotValueToUpdateEvent(key, values[key]); ev != nil {
			events = append(events, ev)
		}
	}
	return events
}

func SnapshotValueToUpdateEvent(key string, value any) any {
	switch v := value.(type) {
	case int:
		return FloatSensorUpdateEvent{
			SensorUpdateEventMixIn: SensorUpdateEventMixIn{
				Id: key,
			},
			Value:    float64(v),
			Decimals: 0,
		}
	case float64:
		return FloatSensorUpdateEvent{
			SensorUpdateEventMixIn: SensorUpdateEventMixIn{
				Id: key,
			},
			Value:    v,
			Decimals: floatDecimals[key],
		}
	case bool:
		return BinarySensorUpdateEvent{
			SensorUpdateEventMixIn: SensorUpdateEventMixIn{
				Id: key,
			},
			Value: v,
		}
	case string:
		return TextSensorUpdateEvent{
			SensorUpdateEventMixIn: SensorUpdateEventMixIn{
				Id: key,
			},
			Value: v,
		}
	default:
		return nil
	}
}
