package mqtt

import (
	"testing"

	"github.com/Jojo-A/has-marstek-local-api/internal/core/domain"

	"github.com/stretchr/testify/assert"
)

func TestBatteryCommandTopicMatch(t *testing.T) {

	assert := assert.New(t)

	baseTopic := "loremTopic"
	r := batteryCommandExtractor(baseTopic)

	assert.NotEmpty(r.FindAllStringSubmatch("loremTopic/battery/set", 1), "command topic match")
	assert.Empty(r.FindAllStringSubmatch("loremTopic/battery/state", 1), "state topic no match")
	assert.Empty(r.FindAllStringSubmatch("otherTopic/battery/set", 1), "foreign base topic no match")
}

func TestParseCommandPayloadJSON(t *testing.T) {

	assert := assert.New(t)

	cmd, err := parseCommandPayload([]byte(`{"action": "charge", "power": 500}`))
	if err != nil {
		t.Error(err)
		return
	}
	assert.Equal(domain.ActionCharge, cmd.Action, "action")
	assert.Equal(500, cmd.PowerWatt, "power")
}

func TestParseCommandPayloadBareAction(t *testing.T) {

	assert := assert.New(t)

	cmd, err := parseCommandPayload([]byte("stop"))
	if err != nil {
		t.Error(err)
		return
	}
	assert.Equal(domain.ActionStop, cmd.Action, "action")
}

func TestParseCommandPayloadUnknownAction(t *testing.T) {

	assert := assert.New(t)

	_, err := parseCommandPayload([]byte("boost"))
	assert.Error(err, "unknown action rejected")

	_, err = parseCommandPayload([]byte(`{"action": "boost"}`))
	assert.Error(err, "unknown json action rejected")
}
