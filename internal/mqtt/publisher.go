// Package mqtt publishes the current fix as JSON to an MQTT broker at a
// fixed interval.
package mqtt

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/benbjohnson/clock"
	paho "github.com/eclipse/paho.mqtt.golang"
	"go.uber.org/zap"

	"gpsbeacon/internal/gps"
)

const publishTimeout = 5 * time.Second

var errPublishTimeout = errors.New("mqtt publish timed out")

type Config struct {
	Broker   string
	ClientID string
	Topic    string
	Interval time.Duration
	QoS      byte
	Retained bool
}

// client is the subset of paho.Client the publisher uses.
type client interface {
	Connect() paho.Token
	Publish(topic string, qos byte, retained bool, payload interface{}) paho.Token
	Disconnect(quiesce uint)
}

// Message is the JSON body published on each interval.
type Message struct {
	Fix     gps.Snapshot `json:"fix"`
	Display gps.Display  `json:"display"`
}

type Publisher struct {
	cfg       Config
	log       *zap.SugaredLogger
	clk       clock.Clock
	client    client
	onPublish func(error)
}

type Option func(*Publisher)

func WithClock(clk clock.Clock) Option {
	return func(p *Publisher) { p.clk = clk }
}

// WithResultHook is called after every publish attempt with its outcome.
func WithResultHook(fn func(error)) Option {
	return func(p *Publisher) { p.onPublish = fn }
}

func withClient(c client) Option {
	return func(p *Publisher) { p.client = c }
}

func New(cfg Config, logger *zap.SugaredLogger, opts ...Option) *Publisher {
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	if cfg.Interval <= 0 {
		cfg.Interval = time.Second
	}
	p := &Publisher{cfg: cfg, log: logger.Named("mqtt"), clk: clock.New()}
	for _, o := range opts {
		o(p)
	}
	if p.client == nil {
		po := paho.NewClientOptions().
			AddBroker(cfg.Broker).
			SetClientID(cfg.ClientID).
			SetAutoReconnect(true).
			SetConnectRetry(true).
			SetConnectionLostHandler(func(_ paho.Client, err error) {
				p.log.Warnw("connection lost", "broker", cfg.Broker, "err", err)
			}).
			SetOnConnectHandler(func(paho.Client) {
				p.log.Infow("connected", "broker", cfg.Broker)
			})
		p.client = paho.NewClient(po)
	}
	return p
}

// Connect starts the broker connection. With connect-retry enabled paho keeps
// trying in the background, so this only fails on a definite error or ctx.
func (p *Publisher) Connect(ctx context.Context) error {
	tok := p.client.Connect()
	select {
	case <-tok.Done():
		if err := tok.Error(); err != nil {
			return fmt.Errorf("mqtt connect %s: %w", p.cfg.Broker, err)
		}
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-p.clk.After(publishTimeout):
		// Still retrying; publishes queue until the link is up.
		return nil
	}
}

func (p *Publisher) Publish(snap gps.Snapshot) error {
	payload, err := json.Marshal(Message{Fix: snap, Display: snap.Display()})
	if err != nil {
		return fmt.Errorf("marshal fix: %w", err)
	}
	tok := p.client.Publish(p.cfg.Topic, p.cfg.QoS, p.cfg.Retained, payload)
	if !tok.WaitTimeout(publishTimeout) {
		return errPublishTimeout
	}
	return tok.Error()
}

// Run publishes snapshot() every interval until ctx is done.
func (p *Publisher) Run(ctx context.Context, snapshot func() gps.Snapshot) error {
	t := p.clk.Ticker(p.cfg.Interval)
	defer t.Stop()

	var lastErr string
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-t.C:
		}
		err := p.Publish(snapshot())
		if p.onPublish != nil {
			p.onPublish(err)
		}
		// Log transitions only; a dead broker would otherwise flood the log.
		switch {
		case err != nil && err.Error() != lastErr:
			p.log.Warnw("publish failed", "topic", p.cfg.Topic, "err", err)
			lastErr = err.Error()
		case err == nil && lastErr != "":
			p.log.Infow("publish recovered", "topic", p.cfg.Topic)
			lastErr = ""
		}
	}
}

func (p *Publisher) Close() {
	p.client.Disconnect(250)
}
