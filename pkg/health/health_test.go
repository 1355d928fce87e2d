package health

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	paho "github.com/eclipse/paho.mqtt.golang"
	"github.com/gaetancollaud/tplink-mqtt/pkg/config"
	"github.com/gaetancollaud/tplink-mqtt/pkg/mqtt/mqtttest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHealthReportsDisconnectedMqtt(t *testing.T) {
	h, err := NewHealth(config.HealthCheckConfig{Enabled: true, Port: 0}, mqtttest.NewClient("tplink"))
	require.NoError(t, err)

	server := httptest.NewServer(h.(*health).service())
	defer server.Close()

	for _, path := range []string{"/health", "/health/ready", "/health/live"} {
		response, err := http.Get(server.URL + path)
		require.NoError(t, err)
		assert.Equal(t, http.StatusServiceUnavailable, response.StatusCode, path)

		var body struct {
			Status    string `json:"status"`
			Component struct {
				Name string `json:"name"`
			} `json:"component"`
		}
		require.NoError(t, json.NewDecoder(response.Body).Decode(&body))
		response.Body.Close()
		assert.NotEqual(t, "OK", body.Status)
		assert.Equal(t, "tplink-mqtt", body.Component.Name)
	}
}

// openConnection only answers IsConnectionOpen, other calls panic.
type openConnection struct {
	paho.Client
}

func (openConnection) IsConnectionOpen() bool { return true }

type connectedClient struct {
	*mqtttest.Client
}

func (connectedClient) RawClient() paho.Client { return openConnection{} }

func TestHealthReportsConnectedMqtt(t *testing.T) {
	h, err := NewHealth(config.HealthCheckConfig{Enabled: true}, connectedClient{mqtttest.NewClient("tplink")})
	require.NoError(t, err)

	server := httptest.NewServer(h.(*health).service())
	defer server.Close()

	for _, path := range []string{"/health", "/health/ready", "/health/live"} {
		response, err := http.Get(server.URL + path)
		require.NoError(t, err)
		response.Body.Close()
		assert.Equal(t, http.StatusOK, response.StatusCode, path)
	}
}

func TestHealthStopWithoutStart(t *testing.T) {
	h, err := NewHealth(config.HealthCheckConfig{}, mqtttest.NewClient("tplink"))
	require.NoError(t, err)
	assert.NoError(t, h.Stop())
}
