// Package mqtt publishes the unit's input levels and interlock state to a
// broker. The announcer only publishes: a subscribe surface would be a
// fourth writer to the interlock, and the unit has exactly three.
package mqtt

import (
	"context"
	"fmt"
	"net/url"
	"os"
	"strconv"
	"time"

	"github.com/charmbracelet/log"
	"github.com/eclipse/paho.golang/autopaho"
	"github.com/eclipse/paho.golang/paho"
)

const (
	connectTimeout    = 5 * time.Second
	publishTimeout    = 4 * time.Second
	disconnectTimeout = time.Second
	announceQueueSize = 64

	keepAlive            = 20
	sessionExpirySeconds = 60
)

type message struct {
	topic   string
	payload []byte
}

// Announcer queues retained state messages and publishes them from its own
// goroutine, so observer calls from the io task never wait on the network.
type Announcer struct {
	config autopaho.ClientConfig
	logger *log.Logger
	prefix string
	queue  chan message
}

func NewAnnouncer(broker, unitName string) (*Announcer, error) {
	addr, err := url.Parse(broker)
	if err != nil {
		return nil, fmt.Errorf("failed to parse mqtt broker url: %w", err)
	}

	an := &Announcer{
		logger: log.NewWithOptions(os.Stderr, log.Options{Prefix: "mqtt", Level: log.GetLevel()}),
		prefix: "riokit/" + unitName,
		queue:  make(chan message, announceQueueSize),
	}

	an.config = autopaho.ClientConfig{
		ServerUrls:            []*url.URL{addr},
		KeepAlive:             keepAlive,
		SessionExpiryInterval: sessionExpirySeconds,
		OnConnectionUp:        an.onConnectionUp,
		OnConnectError:        an.onConnectError,
		ClientConfig: paho.ClientConfig{
			ClientID:           "riokit-" + unitName,
			OnClientError:      an.onConnectError,
			OnServerDisconnect: an.onServerDisconnect,
		},
	}

	return an, nil
}

func (an *Announcer) onConnectionUp(*autopaho.ConnectionManager, *paho.Connack) {
	an.logger.Info("connected to broker")
}

func (an *Announcer) onConnectError(err error) {
	an.logger.Error("connection error", "err", err)
}

func (an *Announcer) onServerDisconnect(*paho.Disconnect) {
	an.logger.Info("disconnected from broker")
}

// Run connects and drains the publish queue until ctx is cancelled. The
// connection manager keeps reconnecting on its own; publishes attempted
// while offline fail and are logged, not retried.
func (an *Announcer) Run(ctx context.Context) error {
	conn, err := autopaho.NewConnection(ctx, an.config)
	if err != nil {
		return fmt.Errorf("failed to create mqtt connection: %w", err)
	}

	awaitCtx, cancel := context.WithTimeout(ctx, connectTimeout)
	err = conn.AwaitConnection(awaitCtx)
	cancel()
	if err != nil && ctx.Err() == nil {
		an.logger.Warn("broker not reachable yet, will keep trying", "err", err)
	}

	for {
		select {
		case <-ctx.Done():
			disconnectCtx, cancel := context.WithTimeout(context.Background(), disconnectTimeout)
			conn.Disconnect(disconnectCtx)
			cancel()
			return ctx.Err()
		case msg := <-an.queue:
			publishCtx, cancel := context.WithTimeout(ctx, publishTimeout)
			_, err := conn.Publish(publishCtx, &paho.Publish{
				Topic:   msg.topic,
				QoS:     1,
				Retain:  true,
				Payload: msg.payload,
			})
			cancel()
			if err != nil && ctx.Err() == nil {
				an.logger.Warn("failed to publish", "topic", msg.topic, "err", err)
			}
		}
	}
}

// enqueue runs on observer goroutines and must not block: a full queue
// drops the message. Retained topics make the next successful publish
// carry the current state anyway.
func (an *Announcer) enqueue(topic string, payload string) {
	select {
	case an.queue <- message{topic: topic, payload: []byte(payload)}:
	default:
		an.logger.Warn("announce queue full, dropping", "topic", topic)
	}
}

func (an *Announcer) LevelChanged(channel int, level bool) {
	an.enqueue(an.prefix+"/input/"+strconv.Itoa(channel), boolPayload(level))
}

func (an *Announcer) EnableChanged(enabled bool) {
	an.enqueue(an.prefix+"/outputs/enabled", boolPayload(enabled))
}

// AnnounceDropped publishes the running count of edge events dropped on a
// full event queue.
func (an *Announcer) AnnounceDropped(total uint64) {
	an.enqueue(an.prefix+"/events/dropped", strconv.FormatUint(total, 10))
}

func boolPayload(value bool) string {
	if value {
		return "1"
	}
	return "0"
}
