package marstek

import (
	"encoding/json"
)

// Method identifies a query or command of the Marstek local API.
type Method string

const (
	MethodGetDevice     Method = "Marstek.GetDevice"
	MethodESGetMode     Method = "ES.GetMode"
	MethodESGetStatus   Method = "ES.GetStatus"
	MethodESSetMode     Method = "ES.SetMode"
	MethodEMGetStatus   Method = "EM.GetStatus"
	MethodPVGetStatus   Method = "PV.GetStatus"
	MethodBatGetStatus  Method = "Bat.GetStatus"
	MethodWifiGetStatus Method = "Wifi.GetStatus"
)

// Request is the wire envelope sent to the device. Params must be
// JSON-marshalable; queries use {"id": 0}.
type Request struct {
	ID     int    `json:"id"`
	Method Method `json:"method"`
	Params any    `json:"params,omitempty"`
}

// Response is the wire envelope received from the device. Result is
// decoded once per method with the typed decode functions below.
type Response struct {
	ID     int             `json:"id"`
	Src    string          `json:"src,omitempty"`
	Result json.RawMessage `json:"result,omitempty"`
	Error  *APIError       `json:"error,omitempty"`
}

type APIError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

// QueryParams is the params payload shared by all Get* methods.
type QueryParams struct {
	ID int `json:"id"`
}

// SetModeParams is the params payload of ES.SetMode.
type SetModeParams struct {
	ID     int            `json:"id"`
	Config map[string]any `json:"config"`
}

// Typed results. All fields are pointers: an absent field stays nil
// instead of turning into a zero value, firmware revisions differ in
// which fields they report.

type ESMode struct {
	Mode *string `json:"mode"`
}

type ESStatus struct {
	BatterySOC      *int     `json:"bat_soc"`
	BatteryPower    *int     `json:"bat_power"`
	BatteryCapacity *float64 `json:"bat_cap"`
	OngridPower     *int     `json:"ongrid_power"`
	OffgridPower    *int     `json:"offgrid_power"`
}

type EMStatus struct {
	PhaseAPower *int `json:"a_power"`
	PhaseBPower *int `json:"b_power"`
	PhaseCPower *int `json:"c_power"`
	TotalPower  *int `json:"total_power"`
}

type PVStatus struct {
	Power   *float64 `json:"pv_power"`
	Voltage *float64 `json:"pv_voltage"`
	Current *float64 `json:"pv_current"`
}

type BatStatus struct {
	SOC           *int     `json:"soc"`
	Temperature   *float64 `json:"temp"`
	RatedCapacity *float64 `json:"rated_cap"`
	ChargingFlag  *int     `json:"charg_flag"`
	DischargeFlag *int     `json:"dischrg_flag"`
}

type WifiStatus struct {
	SSID *string `json:"ssid"`
	RSSI *int    `json:"rssi"`
	IP   *string `json:"sta_ip"`
	MAC  *string `json:"sta_mac"`
}

// DeviceInfo is the Marstek.GetDevice result used by discovery. BLEMAC
// is the stable hardware identity of a device, the IP is not.
type DeviceInfo struct {
	Device  *string `json:"device"`
	Version *string `json:"ver"`
	BLEMAC  *string `json:"ble_mac"`
	WifiMAC *string `json:"wifi_mac"`
	IP      *string `json:"ip"`
}

type SetModeResult struct {
	SetResult *bool `json:"set_result"`
}

func decodeResult[T any](resp *Response, method Method) (*T, error) {
	if resp.Error != nil {
		return nil, &ProtocolError{Method: method, Reason: resp.Error.Message}
	}
	if len(resp.Result) == 0 {
		return nil, &ProtocolError{Method: method, Reason: "empty result"}
	}
	var out T
	if err := json.Unmarshal(resp.Result, &out); err != nil {
		return nil, &ProtocolError{Method: method, Reason: err.Error()}
	}
	return &out, nil
}

func DecodeESMode(resp *Response) (*ESMode, error) {
	return decodeResult[ESMode](resp, MethodESGetMode)
}

func DecodeESStatus(resp *Response) (*ESStatus, error) {
	return decodeResult[ESStatus](resp, MethodESGetStatus)
}

func DecodeEMStatus(resp *Response) (*EMStatus, error) {
	return decodeResult[EMStatus](resp, MethodEMGetStatus)
}

func DecodePVStatus(resp *Response) (*PVStatus, error) {
	return decodeResult[PVStatus](resp, MethodPVGetStatus)
}

func DecodeBatStatus(resp *Response) (*BatStatus, error) {
	return decodeResult[BatStatus](resp, MethodBatGetStatus)
}

func DecodeWifiStatus(resp *Response) (*WifiStatus, error) {
	return decodeResult[WifiStatus](resp, MethodWifiGetStatus)
}

func DecodeDeviceInfo(resp *Response) (*DeviceInfo, error) {
	return decodeResult[DeviceInfo](resp, MethodGetDevice)
}

func DecodeSetModeResult(resp *Response) (*SetModeResult, error) {
	return decodeResult[SetModeResult](resp, MethodESSetMode)
}
