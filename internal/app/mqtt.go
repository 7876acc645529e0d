package app

import (
	"encoding/json"
	"fmt"
	"strings"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/rs/zerolog"

	"github.com/relabs-tech/pubmarine/internal/gps"
	"github.com/relabs-tech/pubmarine/internal/protocol"
)

func connectMQTT(broker, clientID string, log zerolog.Logger) (mqtt.Client, error) {
	opts := mqtt.NewClientOptions().
		AddBroker(broker).
		SetClientID(clientID).
		SetAutoReconnect(true)

	client := mqtt.NewClient(opts)
	if token := client.Connect(); token.Wait() && token.Error() != nil {
		return nil, fmt.Errorf("MQTT connect %s: %w", broker, token.Error())
	}
	log.Info().Str("broker", broker).Str("client_id", clientID).Msg("connected to MQTT broker")
	return client, nil
}

// commandTopic is where decoded vehicle commands of a given name are
// published, e.g. pubmarine/stat.
func commandTopic(prefix, name string) string {
	return prefix + "/" + strings.ToLower(name)
}

// mqttRelay mirrors vehicle traffic onto the broker and feeds raw protocol
// lines from <prefix>/cmd back to the vehicle.
type mqttRelay struct {
	client mqtt.Client
	prefix string
	log    zerolog.Logger
}

func (m *mqttRelay) PublishCommand(cmd protocol.Command) {
	payload, err := protocol.MarshalEnvelope(cmd)
	if err != nil {
		m.log.Warn().Err(err).Msg("envelope marshal failed")
		return
	}
	// retain telemetry so late subscribers see the current state
	retained := cmd.Name() == protocol.NameState
	token := m.client.Publish(commandTopic(m.prefix, cmd.Name()), 0, retained, payload)
	token.Wait()
	if token.Error() != nil {
		m.log.Warn().Err(token.Error()).Msg("MQTT publish failed")
	}
}

func (m *mqttRelay) PublishFix(fix gps.Fix) {
	payload, err := json.Marshal(fix)
	if err != nil {
		m.log.Warn().Err(err).Msg("GPS marshal failed")
		return
	}
	token := m.client.Publish(m.prefix+"/gps", 0, true, payload)
	token.Wait()
	if token.Error() != nil {
		m.log.Warn().Err(token.Error()).Msg("MQTT publish failed")
	}
}

// SubscribeCommands forwards every line published on <prefix>/cmd.
func (m *mqttRelay) SubscribeCommands(send func(line string) error) error {
	topic := m.prefix + "/cmd"
	token := m.client.Subscribe(topic, 0, func(_ mqtt.Client, msg mqtt.Message) {
		line := strings.TrimSpace(string(msg.Payload()))
		if err := send(line); err != nil {
			m.log.Warn().Err(err).Str("line", line).Msg("MQTT command rejected")
		}
	})
	token.Wait()
	if token.Error() != nil {
		return fmt.Errorf("MQTT subscribe %s: %w", topic, token.Error())
	}
	m.log.Info().Str("topic", topic).Msg("accepting commands over MQTT")
	return nil
}
