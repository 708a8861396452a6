package domain

import (
	"github.com/Jojo-A/has-marstek-local-api/pkg/marstek"
)

const (
	ACTOR_ID_MASTER  = "master"
	ACTOR_ID_DEVICE  = "device"
	ACTOR_ID_POLLER  = "poller"
	ACTOR_ID_SCANNER = "scanner"
	ACTOR_ID_CONTROL = "control"
	ACTOR_ID_MQTT    = "mqtt"
)

// Device actor messages. Queries feed the failure tracker, commands do
// not: a failed command never marks the device unavailable by itself.

type DeviceQueryRequest struct {
	ActorRequestMixIn
	Method marstek.Method
}

type DeviceQueryResponse struct {
	ActorResponseMixIn
	Method   marstek.Method
	Response *marstek.Response
}

type DeviceCommandRequest struct {
	ActorRequestMixIn
	Method marstek.Method
	Params any
}

type DeviceCommandResponse struct {
	ActorResponseMixIn
	Response *marstek.Response
}

type UpdateDeviceAddressRequest struct {
	ActorRequestMixIn
	Address DeviceAddress
}

type UpdateDeviceAddressResponse struct {
	ActorResponseMixIn
	Previous DeviceAddress
}

type GetDeviceStateRequest struct {
	ActorRequestMixIn
}

type GetDeviceStateResponse struct {
	ActorResponseMixIn
	Identity            DeviceIdentity
	Address             DeviceAddress
	Available           bool
	ConsecutiveFailures int
}

// Poller actor messages.

type GetSnapshotRequest struct {
	ActorRequestMixIn
}

type GetSnapshotResponse struct {
	ActorResponseMixIn
	Values map[string]SnapshotValue
}

type PausePollingRequest struct {
	ActorRequestMixIn
}

type PausePollingResponse struct {
	ActorResponseMixIn
}

type ResumePollingRequest struct {
	ActorRequestMixIn
}

type ResumePollingResponse struct {
	ActorResponseMixIn
}

// Control actor messages.

type BatteryCommandRequest struct {
	ActorRequestMixIn
	Action    CommandAction
	PowerWatt int
}

type BatteryCommandResponse struct {
	ActorResponseMixIn
	Accepted     bool
	RejectReason string
}

// Health check, master fans this out to every child.

type ActorHealthRequest struct {
	ActorRequestMixIn
}

type ActorHealthResponse struct {
	ActorResponseMixIn
	Id      string
	Healthy bool
	State   string
}
