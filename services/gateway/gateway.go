package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/joeshaw/envdecode"
	"github.com/sirupsen/logrus"

	"github.com/yavuzelcil/rustyflow-iot/core/logger"
	"github.com/yavuzelcil/rustyflow-iot/iot/mqttclient"
	"github.com/yavuzelcil/rustyflow-iot/telemetry/gateway"
)

// Service holds the configuration for the MQTT gateway.
type Service struct {
	BrokerHost string `env:"MQTT_BROKER_HOST,default=localhost" description:"the MQTT broker host"`
	BrokerPort int    `env:"MQTT_BROKER_PORT,default=1883" description:"the MQTT broker port"`
	ClientID   string `env:"MQTT_CLIENT_ID,default=rustyflow-gateway" description:"the MQTT client ID"`
	Topics     string `env:"MQTT_TOPICS,default=sensors/#" description:"comma-separated MQTT topic filters"`
	SinkURL    string `env:"SINK_URL,default=http://localhost:3000/api/sensors" description:"the ingestion endpoint records are posted to"`
	LogLevel   string `env:"LOG_LEVEL,default=info" description:"the log level"`
}

func main() {
	service := &Service{}
	if err := envdecode.Decode(service); err != nil {
		panic(err)
	}

	level, err := logrus.ParseLevel(service.LogLevel)
	if err != nil {
		level = logrus.InfoLevel
	}
	logger.InitLogger(level)
	rlog := logger.Default()

	gw := gateway.MustNewGateway(&gateway.Builder{
		Topics:  gateway.SplitFilters(service.Topics),
		SinkURL: service.SinkURL,
	})

	opts := mqttclient.NewOptions(service.BrokerHost, service.BrokerPort, service.ClientID)
	opts.SetOnConnectHandler(func(client mqtt.Client) {
		gw.OnConnect(client)
	})
	client, err := mqttclient.Dial(opts)
	if err != nil {
		panic(err)
	}
	rlog.Infof("gateway connected to %s:%d, forwarding to %s",
		service.BrokerHost, service.BrokerPort, service.SinkURL)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	<-ctx.Done()
	rlog.Infoln("gateway stopping")
	client.Disconnect(250)
}
