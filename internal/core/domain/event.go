package domain

import "fmt"

type SensorUpdateEventMixIn struct {
	Id string
}

type SensorUpdateEvent interface {
	SensorUpdateEvent() string
	SensorId() string
}

func (e SensorUpdateEventMixIn) SensorUpdateEvent() string {
	return fmt.Sprintf("%T", e)
}

func (e SensorUpdateEventMixIn) SensorId() string {
	return e.Id
}

type FloatSensorUpdateEvent struct {
	SensorUpdateEventMixIn
	Value    float64
	Decimals uint
}

type BinarySensorUpdateEvent struct {
	SensorUpdateEventMixIn
	Value bool
}

type TextSensorUpdateEvent struct {
	SensorUpdateEventMixIn
	Value string
}

type BridgeStateUpdateEvent struct {
	SensorUpdateEventMixIn
	Value bool
}

// DeviceAvailabilityEvent is published on every availability
// transition: exactly once per state change, never per failed request.
type DeviceAvailabilityEvent struct {
	Identity  DeviceIdentity
	Available bool
}

// DeviceAddressChangedEvent is published when the scanner rebinds the
// device to a new address.
type DeviceAddressChangedEvent struct {
	Identity DeviceIdentity
	Previous DeviceAddress
	Current  DeviceAddress
}
