package mqtt

import (
	"fmt"
	"sync"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"
	log "github.com/sirupsen/logrus"

	"github.com/sweeney/drivebot/internal/logic"
)

// ClientID identifies the daemon to the broker.
const ClientID = "drivebot"

// bufferSize is how many messages are kept while the broker is unreachable.
const bufferSize = 256

// RealPublisher publishes to an actual MQTT broker.
// Messages published while disconnected are buffered and replayed in order
// once the connection is back.
type RealPublisher struct {
	client paho.Client

	mu            sync.Mutex
	buffer        *ringBuffer
	connectedOnce bool
	// replaying is set while onConnect drains the buffer. New messages
	// queue behind the backlog until it is empty.
	replaying bool
}

// NewRealPublisher creates a publisher for the given broker. If the broker
// cannot be reached within the connect timeout the publisher keeps retrying
// in the background and buffers until it connects.
func NewRealPublisher(broker string) (*RealPublisher, error) {
	p := &RealPublisher{buffer: newRingBuffer(bufferSize)}

	will, err := FormatSystemPayload(SystemEvent{
		Timestamp: time.Now(),
		Event:     "OFFLINE",
		Reason:    "MQTT_DISCONNECT",
	})
	if err != nil {
		return nil, fmt.Errorf("format will payload: %w", err)
	}

	opts := paho.NewClientOptions().
		AddBroker(broker).
		SetClientID(ClientID).
		SetAutoReconnect(true).
		SetConnectRetry(true).
		SetConnectRetryInterval(5*time.Second).
		SetWill(TopicSystem, string(will), 1, true).
		SetOnConnectHandler(p.onConnect).
		SetConnectionLostHandler(func(_ paho.Client, err error) {
			log.Warnf("mqtt: connection lost: %v", err)
		})

	p.client = paho.NewClient(opts)
	token := p.client.Connect()
	if !token.WaitTimeout(10 * time.Second) {
		log.Warnf("mqtt: broker %s not reachable yet, buffering until connected", broker)
		return p, nil
	}
	if err := token.Error(); err != nil {
		return nil, fmt.Errorf("connect to broker: %w", err)
	}

	return p, nil
}

func (p *RealPublisher) onConnect(_ paho.Client) {
	p.mu.Lock()
	reconnect := p.connectedOnce
	p.connectedOnce = true
	p.replaying = true
	p.mu.Unlock()

	if reconnect {
		log.Infof("mqtt: reconnected")
		payload, err := FormatSystemPayload(SystemEvent{Timestamp: time.Now(), Event: "RECONNECTED"})
		if err == nil {
			err = p.send(bufferedMsg{topic: TopicSystem, payload: payload, qos: 1})
		}
		if err != nil {
			log.Warnf("mqtt: failed to publish reconnect event: %v", err)
		}
	}

	replayed := 0
	for {
		p.mu.Lock()
		pending, dropped := p.buffer.drainAll()
		if len(pending) == 0 {
			p.replaying = false
			p.mu.Unlock()
			break
		}
		p.mu.Unlock()

		if dropped > 0 {
			log.Warnf("mqtt: buffer overflowed, %d messages dropped", dropped)
		}
		for _, msg := range pending {
			if err := p.send(msg); err != nil {
				log.Warnf("mqtt: replay to %s failed: %v", msg.topic, err)
			}
		}
		replayed += len(pending)
	}
	if replayed > 0 {
		log.Infof("mqtt: replayed %d buffered messages", replayed)
	}
}

// Publish sends a drive event to the MQTT broker.
func (p *RealPublisher) Publish(event logic.Event) error {
	payload, err := FormatPayload(event)
	if err != nil {
		return fmt.Errorf("format payload: %w", err)
	}

	// QoS 0 (at-most-once), not retained
	return p.publish(bufferedMsg{topic: Topic, payload: payload})
}

// PublishSystem sends a system lifecycle event to the MQTT broker.
func (p *RealPublisher) PublishSystem(event SystemEvent) error {
	payload, err := FormatSystemPayload(event)
	if err != nil {
		return fmt.Errorf("format system payload: %w", err)
	}

	// QoS 1 (at-least-once) for lifecycle events
	return p.publish(bufferedMsg{topic: TopicSystem, payload: payload, qos: 1, retained: event.Retained})
}

// publish sends msg, or buffers it while disconnected or while older
// messages are still waiting to be replayed.
func (p *RealPublisher) publish(msg bufferedMsg) error {
	p.mu.Lock()
	if p.replaying || p.buffer.len() > 0 || !p.client.IsConnectionOpen() {
		p.buffer.push(msg)
		n := p.buffer.len()
		p.mu.Unlock()
		log.Debugf("mqtt: buffered message for %s (%d pending)", msg.topic, n)
		return nil
	}
	p.mu.Unlock()
	return p.send(msg)
}

func (p *RealPublisher) send(msg bufferedMsg) error {
	token := p.client.Publish(msg.topic, msg.qos, msg.retained, msg.payload)
	if !token.WaitTimeout(5 * time.Second) {
		return fmt.Errorf("publish to %s: timeout", msg.topic)
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("publish to %s: %w", msg.topic, err)
	}
	return nil
}

// IsConnected reports whether the broker connection is currently open.
func (p *RealPublisher) IsConnected() bool {
	return p.client.IsConnectionOpen()
}

// Close disconnects from the broker.
func (p *RealPublisher) Close() error {
	p.client.Disconnect(1000) // 1 second timeout
	return nil
}
