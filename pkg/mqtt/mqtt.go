package mqtt

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"time"

	mqttv2 "github.com/mochi-mqtt/server/v2"
	"github.com/mochi-mqtt/server/v2/hooks/auth"
	"github.com/mochi-mqtt/server/v2/listeners"
	"github.com/mochi-mqtt/server/v2/packets"
	"github.com/nergy-se/smartrce/pkg/api/v1/meter"
	"github.com/nergy-se/smartrce/pkg/state"
	"github.com/nergy-se/smartrce/pkg/telemetry"
	"github.com/sirupsen/logrus"
)

const P1ibTopic = "p1ib/sensor_state"

// Broker is an embedded MQTT broker. Telemetry is received and decisions are
// published through its inline client.
type Broker struct {
	server *mqttv2.Server
	prefix string
}

// Start runs the broker on address until ctx is done.
func Start(ctx context.Context, wg *sync.WaitGroup, address, prefix string) (*Broker, error) {
	server := mqttv2.New(&mqttv2.Options{
		InlineClient: true,
	})

	// Allow all connections.
	_ = server.AddHook(new(auth.AllowHook), nil)

	tcp := listeners.NewTCP(listeners.Config{ID: "t1", Address: address})
	err := server.AddListener(tcp)
	if err != nil {
		return nil, err
	}

	err = server.Serve()
	if err != nil {
		return nil, err
	}

	wg.Add(1)
	go func() {
		defer wg.Done()
		<-ctx.Done()
		server.Close()
	}()
	return &Broker{server: server, prefix: prefix}, nil
}

// Topic returns the topic below the configured prefix.
func (b *Broker) Topic(parts ...string) string {
	return b.prefix + "/" + strings.Join(parts, "/")
}

// SubscribeInputs feeds {prefix}/input/{signal} messages into store.
func (b *Broker) SubscribeInputs(store *telemetry.Store) error {
	return b.server.Subscribe(b.Topic("input", "+"), 1, func(cl *mqttv2.Client, sub packets.Subscription, pk packets.Packet) {
		name := pk.TopicName[strings.LastIndex(pk.TopicName, "/")+1:]
		sig, err := state.ParseSignal(name)
		if err != nil {
			logrus.Errorf("mqtt: %s", err)
			return
		}
		store.SetRaw(sig, string(pk.Payload))
	})
}

// SubscribeP1ib calls fn with every meter reading published by a p1ib dongle.
func (b *Broker) SubscribeP1ib(fn func(meter.Data)) error {
	return b.server.Subscribe(P1ibTopic, 2, func(cl *mqttv2.Client, sub packets.Subscription, pk packets.Packet) {
		p := P1ib{}
		err := json.Unmarshal(pk.Payload, &p)
		if err != nil {
			logrus.Errorf("mqtt: error decoding p1ib payload: %s", err)
			return
		}
		fn(p.AsMeterData(p.P1IbWifiMac, time.Now()))
	})
}

// Publish sends payload retained on the prefixed topic.
func (b *Broker) Publish(topic string, payload []byte) error {
	err := b.server.Publish(b.Topic(topic), payload, true, 0)
	if err != nil {
		return fmt.Errorf("error publishing to %s: %w", topic, err)
	}
	return nil
}

func (b *Broker) PublishJSON(topic string, v interface{}) error {
	payload, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return b.Publish(topic, payload)
}

func OnOff(b bool) []byte {
	if b {
		return []byte("on")
	}
	return []byte("off")
}
