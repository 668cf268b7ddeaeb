package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/joeshaw/envdecode"
	"github.com/sirupsen/logrus"

	"github.com/yavuzelcil/rustyflow-iot/core/logger"
	"github.com/yavuzelcil/rustyflow-iot/iot/mqttclient"
	"github.com/yavuzelcil/rustyflow-iot/telemetry/edge"
)

// Service holds the configuration for the edge agent.
//
// Every device needs its own DEVICE_ID; without one a fresh UUID is
// generated on every start.
type Service struct {
	DeviceID     string `env:"DEVICE_ID" description:"the unique device ID (uuid), generated when unset"`
	DeviceName   string `env:"DEVICE_NAME,default=edge-agent" description:"the human-readable device name used in topics"`
	BrokerHost   string `env:"MQTT_BROKER_HOST,default=localhost" description:"the MQTT broker host"`
	BrokerPort   int    `env:"MQTT_BROKER_PORT,default=1883" description:"the MQTT broker port"`
	IntervalSecs int    `env:"SENSOR_INTERVAL_SECS,default=5" description:"the sensor read period in seconds"`
	LogLevel     string `env:"LOG_LEVEL,default=info" description:"the log level"`
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

	deviceID, err := uuid.Parse(service.DeviceID)
	if err != nil {
		deviceID = uuid.New()
		rlog.Infoln("no valid DEVICE_ID configured, generated", deviceID)
	}

	opts := mqttclient.NewOptions(service.BrokerHost, service.BrokerPort, "edge-"+deviceID.String())
	client, err := mqttclient.Dial(opts)
	if err != nil {
		panic(err)
	}

	agent := edge.MustNewAgent(&edge.Builder{
		DeviceID:   deviceID,
		DeviceName: service.DeviceName,
		Interval:   time.Duration(service.IntervalSecs) * time.Second,
		Publisher:  mqttclient.QoS0Publisher{Client: client},
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	agent.Run(ctx)
	client.Disconnect(250)
}
