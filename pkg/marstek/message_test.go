package marstek

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeESStatus(t *testing.T) {
	resp := &Response{
		ID:     1,
		Result: json.RawMessage(`{"bat_soc": 73, "bat_power": -500, "ongrid_power": 120}`),
	}

	status, err := DecodeESStatus(resp)
	require.NoError(t, err)

	require.NotNil(t, status.BatterySOC)
	assert.Equal(t, 73, *status.BatterySOC)
	require.NotNil(t, status.BatteryPower)
	assert.Equal(t, -500, *status.BatteryPower)
	require.NotNil(t, status.OngridPower)
	assert.Equal(t, 120, *status.OngridPower)

	// fields the firmware did not report stay absent
	assert.Nil(t, status.OffgridPower)
	assert.Nil(t, status.BatteryCapacity)
}

func TestDecodeWifiStatus(t *testing.T) {
	resp := &Response{
		ID:     2,
		Result: json.RawMessage(`{"ssid": "mynet", "rssi": -61, "sta_ip": "192.168.1.50"}`),
	}

	status, err := DecodeWifiStatus(resp)
	require.NoError(t, err)
	assert.Equal(t, "mynet", *status.SSID)
	assert.Equal(t, -61, *status.RSSI)
	assert.Equal(t, "192.168.1.50", *status.IP)
	assert.Nil(t, status.MAC)
}

func TestDecodeDeviceInfo(t *testing.T) {
	resp := &Response{
		ID:     3,
		Result: json.RawMessage(`{"device": "VenusE", "ver": "151", "ble_mac": "AA:BB:CC:DD:EE:FF", "ip": "192.168.1.50"}`),
	}

	info, err := DecodeDeviceInfo(resp)
	require.NoError(t, err)
	assert.Equal(t, "VenusE", *info.Device)
	assert.Equal(t, "AA:BB:CC:DD:EE:FF", *info.BLEMAC)
}

func TestDecodeEmptyResultIsProtocolError(t *testing.T) {
	_, err := DecodeESMode(&Response{ID: 4})

	var perr *ProtocolError
	require.ErrorAs(t, err, &perr)
	assert.Equal(t, MethodESGetMode, perr.Method)
}

func TestDecodeAPIErrorIsProtocolError(t *testing.T) {
	resp := &Response{
		ID:    5,
		Error: &APIError{Code: -1, Message: "busy"},
	}

	_, err := DecodeBatStatus(resp)

	var perr *ProtocolError
	require.ErrorAs(t, err, &perr)
	assert.Contains(t, perr.Error(), "busy")
}

func TestDecodeMalformedResultIsProtocolError(t *testing.T) {
	resp := &Response{
		ID:     6,
		Result: json.RawMessage(`"not an object"`),
	}

	_, err := DecodePVStatus(resp)

	var perr *ProtocolError
	assert.ErrorAs(t, err, &perr)
}

func TestNormalizeMAC(t *testing.T) {
	assert.Equal(t, "aabbccddeeff", NormalizeMAC("AA:BB:CC:DD:EE:FF"))
	assert.Equal(t, "aabbccddeeff", NormalizeMAC("aa-bb-cc-dd-ee-ff"))
	assert.Equal(t, "aabbccddeeff", NormalizeMAC("aabbccddeeff"))
}
