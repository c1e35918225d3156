// Package mqtt publishes ranked induction plans to an MQTT broker so depot
// systems can pick up the nightly decision.
package mqtt

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"
	"github.com/google/uuid"

	"github.com/kilianp07/induction/core/model"
	"github.com/kilianp07/induction/core/pipeline"
	"github.com/kilianp07/induction/infra/logger"
)

// Config defines the connection parameters for the Paho MQTT client.
type Config struct {
	Broker      string      `json:"broker"`
	ClientID    string      `json:"client_id"`
	Username    string      `json:"username"`
	Password    string      `json:"password"`
	TopicPrefix string      `json:"topic_prefix"`
	QoS         byte        `json:"qos"`
	Retain      bool        `json:"retain"`
	PerVehicle  bool        `json:"per_vehicle"`
	UseTLS      bool        `json:"use_tls"`
	ClientCert  string      `json:"client_cert"`
	ClientKey   string      `json:"client_key"`
	CABundle    string      `json:"ca_bundle"`
	Status      bool        `json:"status"`
	MaxRetries  int         `json:"max_retries"`
	BackoffMS   int         `json:"backoff_ms"`
	TLSConfig   *tls.Config `json:"-"`
}

// SetDefaults fills in the client id, topic prefix and retry policy.
func (c *Config) SetDefaults() {
	if c.ClientID == "" {
		c.ClientID = "induction-planner-" + uuid.NewString()[:8]
	}
	if c.TopicPrefix == "" {
		c.TopicPrefix = "depot/induction"
	}
	c.TopicPrefix = strings.TrimSuffix(c.TopicPrefix, "/")
	if c.MaxRetries <= 0 {
		c.MaxRetries = 3
	}
	if c.BackoffMS <= 0 {
		c.BackoffMS = 100
	}
}

// Validate checks the configuration.
func (c Config) Validate() error {
	if c.Broker == "" {
		return fmt.Errorf("mqtt: broker is required")
	}
	if c.QoS > 2 {
		return fmt.Errorf("mqtt: qos must be 0, 1 or 2")
	}
	if (c.ClientCert == "") != (c.ClientKey == "") {
		return fmt.Errorf("mqtt: client_cert and client_key go together")
	}
	return nil
}

// Presence payloads sent on the status topic.
const (
	StatusOnline  = "online"
	StatusOffline = "offline"
)

type pahoClient interface {
	IsConnected() bool
	Connect() paho.Token
	Disconnect(quiesce uint)
	Publish(topic string, qos byte, retained bool, payload interface{}) paho.Token
}

var newMQTTClient = func(opts *paho.ClientOptions) pahoClient {
	return paho.NewClient(opts)
}

// PlanPublisher implements pipeline.Publisher over MQTT.
type PlanPublisher struct {
	cli        pahoClient
	prefix     string
	qos        byte
	retain     bool
	perVehicle bool
	status     bool
	maxRetries int
	backoff    time.Duration
	logger     logger.Logger
}

// NewPlanPublisher connects to the broker. With Status set the planner
// announces itself on the status topic and the broker marks it offline if
// the connection drops.
func NewPlanPublisher(cfg Config) (*PlanPublisher, error) {
	cfg.SetDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	opts, err := NewClientOptions(cfg)
	if err != nil {
		return nil, err
	}
	log := logger.New("mqtt_publisher")
	opts.OnConnect = func(paho.Client) { log.Infof("MQTT connected to %s", cfg.Broker) }
	opts.OnConnectionLost = func(_ paho.Client, err error) {
		log.Errorf("connection lost: %v", err)
	}
	opts.OnReconnecting = func(_ paho.Client, _ *paho.ClientOptions) {
		log.Warnf("reconnecting to MQTT broker")
	}
	c := newMQTTClient(opts)
	if token := c.Connect(); token.Wait() && token.Error() != nil {
		return nil, fmt.Errorf("mqtt connect %s: %w", cfg.Broker, token.Error())
	}
	p := &PlanPublisher{
		cli:        c,
		prefix:     cfg.TopicPrefix,
		qos:        cfg.QoS,
		retain:     cfg.Retain,
		perVehicle: cfg.PerVehicle,
		status:     cfg.Status,
		maxRetries: cfg.MaxRetries,
		backoff:    time.Duration(cfg.BackoffMS) * time.Millisecond,
		logger:     log,
	}
	if p.status {
		p.announce(StatusOnline)
	}
	return p, nil
}

// NewClientOptions builds the paho options for cfg. The status topic, when
// enabled, doubles as the last will.
func NewClientOptions(cfg Config) (*paho.ClientOptions, error) {
	opts := paho.NewClientOptions().
		AddBroker(cfg.Broker).
		SetClientID(cfg.ClientID).
		SetConnectTimeout(5 * time.Second).
		SetAutoReconnect(true).
		SetCleanSession(true)
	if cfg.Username != "" {
		opts.SetUsername(cfg.Username)
		opts.SetPassword(cfg.Password)
	}
	if cfg.UseTLS {
		tlsCfg, err := cfg.LoadTLSConfig()
		if err != nil {
			return nil, err
		}
		opts.SetTLSConfig(tlsCfg)
	}
	if cfg.Status {
		opts.SetWill(statusTopic(cfg.TopicPrefix), StatusOffline, 1, true)
	}
	return opts, nil
}

// LoadTLSConfig builds the TLS settings. A CA bundle alone verifies the
// broker; a client pair adds mutual authentication.
func (c Config) LoadTLSConfig() (*tls.Config, error) {
	if c.TLSConfig != nil {
		return c.TLSConfig, nil
	}
	if c.CABundle == "" && c.ClientCert == "" {
		return nil, fmt.Errorf("mqtt: tls requires ca_bundle or client_cert/client_key")
	}
	tc := &tls.Config{MinVersion: tls.VersionTLS12}
	if c.CABundle != "" {
		pem, err := os.ReadFile(c.CABundle)
		if err != nil {
			return nil, fmt.Errorf("read ca bundle: %w", err)
		}
		pool := x509.NewCertPool()
		if !pool.AppendCertsFromPEM(pem) {
			return nil, fmt.Errorf("ca bundle %s: no certificates found", c.CABundle)
		}
		tc.RootCAs = pool
	}
	if c.ClientCert != "" {
		pair, err := tls.LoadX509KeyPair(c.ClientCert, c.ClientKey)
		if err != nil {
			return nil, fmt.Errorf("load client pair: %w", err)
		}
		tc.Certificates = []tls.Certificate{pair}
	}
	return tc, nil
}

func statusTopic(prefix string) string { return prefix + "/status" }

// StatusTopic carries the presence of the planner.
func (p *PlanPublisher) StatusTopic() string { return statusTopic(p.prefix) }

func (p *PlanPublisher) announce(state string) {
	token := p.cli.Publish(p.StatusTopic(), 1, true, []byte(state))
	if token.WaitTimeout(2*time.Second) && token.Error() != nil {
		p.logger.Warnf("status %s not published: %v", state, token.Error())
	}
}

// PlanTopic is where the whole publication is sent.
func (p *PlanPublisher) PlanTopic() string { return p.prefix + "/plan" }

// VehicleTopic is where the recommendation of one vehicle is sent.
func (p *PlanPublisher) VehicleTopic(id string) string { return p.prefix + "/vehicles/" + id }

// Publish implements pipeline.Publisher.
func (p *PlanPublisher) Publish(ctx context.Context, pub pipeline.Publication) error {
	payload, err := json.Marshal(pub)
	if err != nil {
		return err
	}
	if err := p.publish(ctx, p.PlanTopic(), payload); err != nil {
		return err
	}
	if !p.perVehicle {
		return nil
	}
	for _, rec := range pub.Recommendations {
		b, err := json.Marshal(struct {
			RunID string `json:"run_id"`
			model.RankedRecommendation
		}{pub.RunID, rec})
		if err != nil {
			return err
		}
		if err := p.publish(ctx, p.VehicleTopic(rec.VehicleID), b); err != nil {
			return err
		}
	}
	return nil
}

func (p *PlanPublisher) publish(ctx context.Context, topic string, payload []byte) error {
	var publishErr error
	for attempt := 0; attempt <= p.maxRetries; attempt++ {
		token := p.cli.Publish(topic, p.qos, p.retain, payload)
		token.Wait()
		publishErr = token.Error()
		if publishErr == nil {
			p.logger.Debugf("published %d bytes to %s", len(payload), topic)
			return nil
		}
		p.logger.Errorf("publish attempt %d to %s failed: %v", attempt+1, topic, publishErr)
		if attempt == p.maxRetries {
			break
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(p.backoff * time.Duration(1<<attempt)):
		}
	}
	return fmt.Errorf("mqtt publish %s: %w", topic, publishErr)
}

// Disconnect marks the planner offline and closes the connection.
func (p *PlanPublisher) Disconnect() {
	if p.cli == nil || !p.cli.IsConnected() {
		return
	}
	if p.status {
		p.announce(StatusOffline)
	}
	p.cli.Disconnect(250)
}
