package main

import (
	"github.com/joeshaw/envdecode"
	"github.com/sirupsen/logrus"

	"github.com/yavuzelcil/rustyflow-iot/core/logger"
	"github.com/yavuzelcil/rustyflow-iot/iot/mqtt"
)

// Service holds the configuration for the embedded MQTT broker.
type Service struct {
	Port     int    `env:"MQTT_PORT,default=1883" description:"the TCP port the broker listens on"`
	LogLevel string `env:"LOG_LEVEL,default=info" description:"the log level"`
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

	broker := mqtt.MustNewBroker(&mqtt.Builder{Port: service.Port})
	broker.Run()
}
