package app

import (
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	mqtt "github.com/eclipse/paho.mqtt.golang"

	"github.com/relabs-tech/pubmarine/internal/config"
	"github.com/relabs-tech/pubmarine/internal/gps"
	"github.com/relabs-tech/pubmarine/internal/logging"
	"github.com/relabs-tech/pubmarine/internal/protocol"
)

const defaultConsoleBroker = "tcp://localhost:1883"

// mqttLine renders one message from the host's relay for the terminal.
// ok is false for topics the console does not show.
func mqttLine(prefix, topic string, payload []byte) (string, bool, error) {
	switch strings.TrimPrefix(topic, prefix+"/") {
	case "gps":
		var f gps.Fix
		if err := json.Unmarshal(payload, &f); err != nil {
			return "", false, err
		}
		return fmt.Sprintf("[GPS ] time=%s date=%s lat=%.6f lon=%.6f speed=%.1fkn course=%.1f° valid=%t",
			f.Time, f.Date, f.Latitude, f.Longitude, f.SpeedKnots, f.CourseDeg, f.Valid), true, nil

	case strings.ToLower(protocol.NameState):
		var env struct {
			Command protocol.State `json:"command"`
		}
		if err := json.Unmarshal(payload, &env); err != nil {
			return "", false, err
		}
		st := env.Command
		return fmt.Sprintf("[STAT] X=%+.2f Y=%+.2f Z=%+.2f depth=%.2f bat=%.2fV acc=%.2f,%.2f,%.2f",
			st.Throttle[protocol.X], st.Throttle[protocol.Y], st.Throttle[protocol.Z],
			st.Depth, st.Bat, st.Acc[0], st.Acc[1], st.Acc[2]), true, nil

	case strings.ToLower(protocol.NameFault):
		var env struct {
			Command protocol.Fault `json:"command"`
		}
		if err := json.Unmarshal(payload, &env); err != nil {
			return "", false, err
		}
		return "[ERR ] " + env.Command.Reason, true, nil
	}
	return "", false, nil
}

// RunConsoleMQTT prints the vehicle traffic the host relays to MQTT.
func RunConsoleMQTT() error {
	cfg := config.Get()
	log := logging.Component("console")

	broker := cfg.Host.MQTTBroker
	if broker == "" {
		broker = defaultConsoleBroker
	}
	client, err := connectMQTT(broker, cfg.Host.MQTTClientIDConsole, log)
	if err != nil {
		return err
	}
	defer client.Disconnect(250)

	prefix := cfg.Host.MQTTTopicPrefix
	topic := prefix + "/#"
	token := client.Subscribe(topic, 0, func(_ mqtt.Client, msg mqtt.Message) {
		line, ok, err := mqttLine(prefix, msg.Topic(), msg.Payload())
		if err != nil {
			log.Warn().Err(err).Str("topic", msg.Topic()).Msg("unmarshal failed")
			return
		}
		if ok {
			fmt.Println(line)
		}
	})
	token.Wait()
	if token.Error() != nil {
		return token.Error()
	}
	log.Info().Str("topic", topic).Msg("subscribed")

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	<-sigCh

	log.Info().Msg("shutting down")
	return nil
}
