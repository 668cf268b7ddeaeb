// Package mqttclient configures the paho MQTT client shared by the edge
// agent and the gateway: short keep-alive, clean sessions, and indefinite
// reconnection with a fixed retry delay.
package mqttclient

import (
	"fmt"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"

	"github.com/yavuzelcil/rustyflow-iot/core/logger"
)

// ReconnectDelay is the fixed delay between connection attempts. There is
// deliberately no backoff growth.
const ReconnectDelay = 5 * time.Second

// NewOptions returns client options for the given broker with the pipeline's
// connection policy applied. Callers add their own on-connect handler for
// subscriptions before dialing.
func NewOptions(brokerHost string, brokerPort int, clientID string) *mqtt.ClientOptions {
	return mqtt.NewClientOptions().
		AddBroker(fmt.Sprintf("tcp://%s:%d", brokerHost, brokerPort)).
		SetClientID(clientID).
		SetKeepAlive(5 * time.Second).
		SetCleanSession(true).
		SetAutoReconnect(true).
		SetConnectRetry(true).
		SetConnectRetryInterval(ReconnectDelay).
		SetMaxReconnectInterval(ReconnectDelay).
		SetConnectionLostHandler(func(_ mqtt.Client, err error) {
			logger.Default().Warnln("mqtt connection lost:", err)
		})
}

// Dial connects the client. With connect-retry enabled this blocks until
// the first successful connection; transport errors after that are handled
// by the client's automatic reconnect.
func Dial(opts *mqtt.ClientOptions) (mqtt.Client, error) {
	client := mqtt.NewClient(opts)
	token := client.Connect()
	token.Wait()
	if err := token.Error(); err != nil {
		return nil, err
	}
	return client, nil
}

// QoS0Publisher adapts a paho client to the fire-and-forget publisher used
// by the edge agent.
type QoS0Publisher struct {
	Client mqtt.Client
}

// Publish publishes the payload with QoS 0 and reports the submission error,
// if any. There is no retry and no acknowledgement.
func (p QoS0Publisher) Publish(topic string, payload []byte) error {
	token := p.Client.Publish(topic, 0, false, payload)
	token.Wait()
	return token.Error()
}
