// Package gateway implements the broker-to-HTTP bridge. It subscribes to
// the configured topic filters, decodes inbound envelopes into canonical
// sensor records and forwards each record to the ingestion sink with a
// single HTTP POST. Records that cannot be decoded or forwarded are logged
// and dropped; there is no retry and no queue.
package gateway

import (
	"bytes"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
	"unicode/utf8"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/goccy/go-json"
	"github.com/google/uuid"

	"github.com/yavuzelcil/rustyflow-iot/core/logger"
	"github.com/yavuzelcil/rustyflow-iot/telemetry"
)

// Gateway bridges MQTT telemetry into the HTTP ingestion sink.
type Gateway struct {
	topics     []string
	sinkURL    string
	httpClient *http.Client
}

// Builder is a builder helper for the Gateway.
type Builder struct {
	// Topics are the MQTT topic filters to subscribe to, wildcards
	// included. Defaults to "sensors/#".
	Topics []string
	// SinkURL is the ingestion endpoint records are posted to. This is mandatory.
	SinkURL string
	// HTTPClient is the client used for forwarding. Defaults to a client
	// with a 10 second timeout.
	HTTPClient *http.Client
}

// MustNewGateway returns a new gateway. The gateway does not receive
// anything until it is subscribed via OnConnect.
func MustNewGateway(b *Builder) *Gateway {
	if len(b.SinkURL) == 0 {
		panic("SinkURL is missing")
	}
	topics := b.Topics
	if len(topics) == 0 {
		topics = []string{"sensors/#"}
	}
	httpClient := b.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 10 * time.Second}
	}
	return &Gateway{
		topics:     topics,
		sinkURL:    b.SinkURL,
		httpClient: httpClient,
	}
}

// SplitFilters parses a comma-separated list of topic filters.
func SplitFilters(s string) []string {
	var filters []string
	for _, f := range strings.Split(s, ",") {
		f = strings.TrimSpace(f)
		if len(f) > 0 {
			filters = append(filters, f)
		}
	}
	return filters
}

// OnConnect subscribes to the configured topic filters. Install it as the
// paho on-connect handler so subscriptions are re-established after every
// reconnect. Messages are handled one at a time, in arrival order.
func (g *Gateway) OnConnect(client mqtt.Client) {
	rlog := logger.Default()
	for _, topic := range g.topics {
		token := client.Subscribe(topic, 0, func(_ mqtt.Client, m mqtt.Message) {
			g.handleMessage(m.Topic(), m.Payload())
		})
		token.Wait()
		if err := token.Error(); err != nil {
			rlog.Errorf("subscribe to %s failed: %v", topic, err)
			continue
		}
		rlog.Infoln("subscribed to", topic)
	}
}

// handleMessage decodes one inbound publish and forwards the resulting
// record. All decode failures are soft: the message is dropped and the
// receive loop continues.
func (g *Gateway) handleMessage(topic string, payload []byte) {
	rlog := logger.Default().WithField("topic", topic)
	if !utf8.Valid(payload) {
		rlog.Warnln("invalid UTF-8 in payload, dropping")
		return
	}
	var env telemetry.Envelope
	if err := json.Unmarshal(payload, &env); err != nil {
		rlog.Debugln("not an envelope, dropping:", err)
		return
	}
	if len(env.MessageType) == 0 || len(env.Payload) == 0 {
		rlog.Debugln("not an envelope, dropping")
		return
	}
	var reading telemetry.Reading
	if err := json.Unmarshal(env.Payload, &reading); err != nil {
		rlog.Debugln("envelope payload is not a reading, dropping:", err)
		return
	}
	record := convert(topic, env, reading)
	if err := g.forward(record); err != nil {
		rlog.Warnln("forward failed, record dropped:", err)
		return
	}
	rlog.Debugf("forwarded %s/%s = %v %s",
		record.DeviceID, record.SensorType, record.Value, record.Unit)
}

// convert derives the canonical record. The sensor kind comes from the
// trailing topic segment, not from the envelope; the device comes from the
// middle segment of sensors/<device>/<kind> topics and falls back to the
// envelope device ID for other topic shapes.
func convert(topic string, env telemetry.Envelope, reading telemetry.Reading) telemetry.SensorRecord {
	parts := strings.Split(topic, "/")
	kind := parts[len(parts)-1]
	device := env.DeviceID.String()
	if len(parts) >= 3 {
		device = parts[len(parts)-2]
	} else if env.DeviceID == uuid.Nil {
		device = ""
	}
	return telemetry.SensorRecord{
		DeviceID:   device,
		SensorType: kind,
		Value:      telemetry.ParseValue(reading.Value),
		Unit:       telemetry.UnitFor(kind),
		Timestamp:  reading.Timestamp.UTC().Format(time.RFC3339),
		Metadata:   reading.Metadata,
	}
}

func (g *Gateway) forward(record telemetry.SensorRecord) error {
	body, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("marshal record: %w", err)
	}
	resp, err := g.httpClient.Post(g.sinkURL, "application/json", bytes.NewReader(body))
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)
	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		return fmt.Errorf("sink returned status %d", resp.StatusCode)
	}
	return nil
}
