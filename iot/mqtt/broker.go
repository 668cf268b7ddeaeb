/*Package mqtt provides the embedded MQTT broker of the telemetry pipeline.

The broker relays messages between the edge agents publishing sensor
readings and the gateway subscribing to them. Topics follow the shape

	sensors/{device_name}/{sensor_kind}

There is no authentication and no topic policy: delivery is best effort
with broker-side retention only, which is all the pipeline requires.
*/
package mqtt

import (
	"context"
	"fmt"
	"net"
	"os"
	"os/signal"
	"syscall"

	"github.com/DrmagicE/gmqtt"
	"github.com/DrmagicE/gmqtt/pkg/packets"

	"github.com/yavuzelcil/rustyflow-iot/core/logger"
)

// Broker is the MQTT broker for sensor telemetry.
type Broker struct {
	p *plugin
}

// Builder is a builder helper for the Broker.
type Builder struct {
	// Port is the TCP port to listen on. Defaults to 1883.
	Port int
}

// plugin is the plugin for GMQTT
type plugin struct {
	ln net.Listener
}

// MustNewBroker returns a new broker. The broker will not actually run
// until you call Run().
func MustNewBroker(b *Builder) *Broker {
	port := b.Port
	if port == 0 {
		port = 1883
	}
	ln, err := net.Listen("tcp", fmt.Sprintf(":%d", port))
	if err != nil {
		panic(err)
	}
	return &Broker{
		p: &plugin{ln: ln},
	}
}

// Run is blocking and runs the server. It listens on syscall.SIGTERM and
// shuts down gracefully.
func (b *Broker) Run() {
	s := gmqtt.NewServer(
		gmqtt.WithTCPListener(b.p.ln),
		gmqtt.WithPlugin(b.p),
	)
	s.Run()

	logger.Default().Infoln("broker listening on", b.p.ln.Addr())
	signalCh := make(chan os.Signal, 1)
	signal.Notify(signalCh, os.Interrupt, syscall.SIGTERM)
	<-signalCh
	s.Stop(context.Background())
	logger.Default().Infoln("broker stopped")
}

// Load implements plugin interface
func (p *plugin) Load(service gmqtt.Server) error {
	return nil
}

// Unload implements plugin interface
func (p *plugin) Unload() error {
	return nil
}

// Name implements plugin interface
func (p *plugin) Name() string { return "rustyflow broker" }

// HookWrapper implements plugin interface
func (p *plugin) HookWrapper() gmqtt.HookWrapper {
	return gmqtt.HookWrapper{
		OnConnectWrapper:    p.OnConnectWrapper,
		OnSubscribedWrapper: p.OnSubscribedWrapper,
		OnMsgArrivedWrapper: p.OnMsgArrivedWrapper,
	}
}

// OnConnectWrapper logs every client connect
func (p *plugin) OnConnectWrapper(connect gmqtt.OnConnect) gmqtt.OnConnect {
	return func(ctx context.Context, client gmqtt.Client) (code uint8) {
		logger.Default().Infoln("connect", client.OptionsReader().ClientID())
		return connect(ctx, client)
	}
}

// OnSubscribedWrapper logs every subscription
func (p *plugin) OnSubscribedWrapper(subscribed gmqtt.OnSubscribed) gmqtt.OnSubscribed {
	return func(ctx context.Context, client gmqtt.Client, topic packets.Topic) {
		logger.Default().Infoln("subscribed", client.OptionsReader().ClientID(), topic.Name)
		subscribed(ctx, client, topic)
	}
}

// OnMsgArrivedWrapper logs inbound telemetry at debug level
func (p *plugin) OnMsgArrivedWrapper(arrived gmqtt.OnMsgArrived) gmqtt.OnMsgArrived {
	return func(ctx context.Context, client gmqtt.Client, msg packets.Message) (valid bool) {
		logger.Default().Debugf("message from %s on %s (%d bytes)",
			client.OptionsReader().ClientID(), msg.Topic(), len(msg.Payload()))
		return arrived(ctx, client, msg)
	}
}
