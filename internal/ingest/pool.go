package ingest

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/resolutpro/Tranformacion-digital-cerdo-2026-sub000/internal/domain"
	"github.com/resolutpro/Tranformacion-digital-cerdo-2026-sub000/internal/fieldpath"
	"github.com/resolutpro/Tranformacion-digital-cerdo-2026-sub000/internal/repository"
	"github.com/resolutpro/Tranformacion-digital-cerdo-2026-sub000/internal/service"
	"github.com/resolutpro/Tranformacion-digital-cerdo-2026-sub000/pkg/mqttutil"
)

// connKey identifies one broker connection. Sensors sharing the same
// credentials on the same broker are multiplexed over a single connection.
type connKey struct {
	Host     string
	Port     int
	Username string
}

func (k connKey) String() string {
	return fmt.Sprintf("%s:%d/%s", k.Host, k.Port, k.Username)
}

// binding ties one sensor to a topic with its compiled payload path.
type binding struct {
	sensor *domain.Sensor
	path   *fieldpath.Path
}

// brokerConn is one live connection plus its topic subscriptions. Several
// sensors may listen on the same topic; each gets its own field path.
type brokerConn struct {
	client *mqttutil.Client
	// topic -> sensorID -> binding
	topics map[string]map[string]*binding
}

// PoolConfig tunes the broker pool.
type PoolConfig struct {
	QoS               byte
	ClientIDPrefix    string
	ReconcileInterval time.Duration
}

// Pool maintains broker connections for all active broker-configured sensors
// and reconciles them against the sensors table on a fixed interval, so
// configuration changes are picked up without restarts.
type Pool struct {
	cfg         PoolConfig
	sensorsRepo repository.SensorsRepository
	ingest      service.IngestService
	logger      *zap.Logger

	mu    sync.Mutex
	conns map[connKey]*brokerConn

	cancel context.CancelFunc
	done   chan struct{}
}

// NewPool creates an idle pool; Start brings up connections.
func NewPool(cfg PoolConfig, sensorsRepo repository.SensorsRepository, ingest service.IngestService, logger *zap.Logger) *Pool {
	if cfg.ReconcileInterval <= 0 {
		cfg.ReconcileInterval = 60 * time.Second
	}
	return &Pool{
		cfg:         cfg,
		sensorsRepo: sensorsRepo,
		ingest:      ingest,
		logger:      logger,
		conns:       make(map[connKey]*brokerConn),
	}
}

// Start runs an immediate reconcile and then keeps reconciling in the
// background until Stop is called. A failed initial reconcile is not fatal;
// the ticker retries it.
func (p *Pool) Start(ctx context.Context) {
	ctx, p.cancel = context.WithCancel(ctx)
	p.done = make(chan struct{})

	if err := p.Reconcile(ctx); err != nil {
		p.logger.Error("initial broker reconcile failed", zap.Error(err))
	}

	go func() {
		defer close(p.done)
		ticker := time.NewTicker(p.cfg.ReconcileInterval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if err := p.Reconcile(ctx); err != nil {
					p.logger.Error("broker reconcile failed", zap.Error(err))
				}
			}
		}
	}()
}

// Stop ends the reconcile loop and tears down all connections.
func (p *Pool) Stop() {
	if p.cancel != nil {
		p.cancel()
		<-p.done
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	for key, conn := range p.conns {
		conn.client.Disconnect()
		delete(p.conns, key)
	}
	p.logger.Info("broker pool stopped")
}

// Reconcile diffs the desired subscription set (active sensors with broker
// config) against the live one: new connections are dialed, new topics
// subscribed, stale sensors unsubscribed and orphaned connections closed.
func (p *Pool) Reconcile(ctx context.Context) error {
	sensors, err := p.sensorsRepo.ListBrokerSensors(ctx)
	if err != nil {
		return fmt.Errorf("failed to list broker sensors: %w", err)
	}

	desired := make(map[connKey]map[string]map[string]*binding) // key -> topic -> sensorID
	for _, sensor := range sensors {
		if !sensor.HasBrokerConfig() {
			continue
		}

		path, err := fieldpath.Compile(sensor.FieldPath)
		if err != nil {
			// Misconfigured sensors are skipped, not fatal to the pool.
			p.logger.Warn("sensor has invalid field path",
				zap.String("sensor_id", sensor.SensorID),
				zap.String("field_path", sensor.FieldPath),
				zap.Error(err),
			)
			continue
		}

		key := connKey{Host: sensor.BrokerHost, Port: sensor.BrokerPort, Username: sensor.BrokerUsername}
		if desired[key] == nil {
			desired[key] = make(map[string]map[string]*binding)
		}
		if desired[key][sensor.BrokerTopic] == nil {
			desired[key][sensor.BrokerTopic] = make(map[string]*binding)
		}
		desired[key][sensor.BrokerTopic][sensor.SensorID] = &binding{sensor: sensor, path: path}
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	// Tear down connections and topics that are no longer desired.
	for key, conn := range p.conns {
		wantTopics, keep := desired[key]
		if !keep {
			conn.client.Disconnect()
			delete(p.conns, key)
			p.logger.Info("broker connection closed", zap.String("broker", key.String()))
			continue
		}
		for topic := range conn.topics {
			if _, ok := wantTopics[topic]; !ok {
				if err := conn.client.Unsubscribe(topic); err != nil {
					p.logger.Warn("failed to unsubscribe stale topic",
						zap.String("broker", key.String()),
						zap.String("topic", topic),
						zap.Error(err),
					)
				}
				delete(conn.topics, topic)
			}
		}
	}

	// Bring up what is missing.
	for key, wantTopics := range desired {
		conn, ok := p.conns[key]
		if !ok {
			// All sensors on a connection share credentials; take the password
			// from any of them.
			password := firstPassword(wantTopics)
			client, err := mqttutil.NewClient(mqttutil.Options{
				Broker:   fmt.Sprintf("tcp://%s:%d", key.Host, key.Port),
				ClientID: fmt.Sprintf("%s-%s-%d", p.cfg.ClientIDPrefix, key.Host, key.Port),
				Username: key.Username,
				Password: password,
			})
			if err != nil {
				p.logger.Error("failed to connect to broker",
					zap.String("broker", key.String()),
					zap.Error(err),
				)
				continue
			}

			conn = &brokerConn{client: client, topics: make(map[string]map[string]*binding)}
			p.conns[key] = conn
			p.logger.Info("broker connection established", zap.String("broker", key.String()))
		}

		for topic, bindings := range wantTopics {
			if _, subscribed := conn.topics[topic]; !subscribed {
				if err := conn.client.Subscribe(topic, p.cfg.QoS, p.makeHandler(key, topic)); err != nil {
					p.logger.Error("failed to subscribe",
						zap.String("broker", key.String()),
						zap.String("topic", topic),
						zap.Error(err),
					)
					continue
				}
			}
			// Refresh bindings so field path or threshold edits take effect.
			conn.topics[topic] = bindings
		}
	}

	return nil
}

// makeHandler builds the message callback for one (connection, topic) pair. It
// looks bindings up at delivery time so reconciles swap sensors in and out
// without resubscribing.
func (p *Pool) makeHandler(key connKey, topic string) mqttutil.MessageHandler {
	return func(_ string, payload []byte) error {
		p.mu.Lock()
		conn, ok := p.conns[key]
		var bindings []*binding
		if ok {
			for _, b := range conn.topics[topic] {
				bindings = append(bindings, b)
			}
		}
		p.mu.Unlock()

		for _, b := range bindings {
			value, ok := b.path.ExtractJSON(payload)
			if !ok {
				// Payloads missing the configured field are dropped per sensor,
				// silently at this volume.
				p.logger.Debug("payload missing configured field",
					zap.String("sensor_id", b.sensor.SensorID),
					zap.String("topic", topic),
				)
				continue
			}

			_, err := p.ingest.HandleReading(context.Background(), service.HandleReadingRequest{
				SensorID: b.sensor.SensorID,
				Value:    value,
			})
			if err != nil {
				p.logger.Error("failed to ingest broker reading",
					zap.String("sensor_id", b.sensor.SensorID),
					zap.Error(err),
				)
			}
		}
		return nil
	}
}

// ConnectionCount reports the number of live broker connections.
func (p *Pool) ConnectionCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.conns)
}

func firstPassword(topics map[string]map[string]*binding) string {
	for _, bindings := range topics {
		for _, b := range bindings {
			if b.sensor.BrokerPassword != "" {
				return b.sensor.BrokerPassword
			}
		}
	}
	return ""
}
