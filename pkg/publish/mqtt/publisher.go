package mqtt

import (
	"context"
	"encoding/json"
	"errors"
	"sync/atomic"
	"time"

	"github.com/golang/glog"

	"github.com/robotalks/maxsonar.go/pkg/monitor"
	"github.com/robotalks/maxsonar.go/pkg/reading"
)

const (
	// TopicRoot is the first level of all sensor topics.
	TopicRoot = "maxsonar"

	// DefaultPublishTimeout bounds the delivery of a message to the broker.
	DefaultPublishTimeout = 5 * time.Second

	topicMeta     = "meta"
	topicDistance = "distance"
	topicStatus   = "status"
	topicRead     = "cmd/read"

	shutdownTimeout = time.Second
)

// ErrNotConnected is returned when publishing while the broker is
// unreachable. The message is kept by the client and sent on reconnect.
var ErrNotConnected = errors.New("MQTT broker not connected, message queued")

// Meta describes the sensor, published retained on the meta topic.
type Meta struct {
	ID     string         `json:"id"`
	Device string         `json:"device"`
	Unit   string         `json:"unit"`
	Format reading.Format `json:"format"`
}

// Publisher publishes readings and health of a single sensor.
type Publisher struct {
	Queue          *Queue
	Meta           Meta
	PublishTimeout time.Duration
	// OnRequest is invoked when a reading is requested on the cmd/read topic.
	OnRequest func()

	metaJSON  []byte
	connected int32
}

// SensorTopic builds the topic for name under sensor id.
func SensorTopic(id, name string) string {
	return TopicRoot + "/" + id + "/" + name
}

// DistanceTopic is the topic readings of sensor id are published to.
func DistanceTopic(id string) string {
	return SensorTopic(id, topicDistance)
}

// StatusTopic is the topic the health of sensor id is published to.
func StatusTopic(id string) string {
	return SensorTopic(id, topicStatus)
}

// NewPublisher creates a Publisher.
func NewPublisher(brokerURL string, meta Meta) (*Publisher, error) {
	metaJSON, err := json.Marshal(&meta)
	if err != nil {
		panic(err)
	}
	opts, prefix, err := ClientOptionsFromURL(brokerURL)
	if err != nil {
		return nil, err
	}
	opts.SetBinaryWill(prefix+SensorTopic(meta.ID, topicMeta), nil, 1, true)
	if opts.ClientID == "" {
		opts.SetClientID("maxsonar:" + meta.ID)
	}
	p := &Publisher{
		Queue:          NewQueue(opts, prefix),
		Meta:           meta,
		PublishTimeout: DefaultPublishTimeout,
		metaJSON:       metaJSON,
	}
	p.Queue.OnConnect = func(*Queue) { p.onConnected() }
	p.Queue.OnDisconnect = func(*Queue) { p.setConnected(false) }
	return p, nil
}

// Connected indicates the broker is reachable.
func (p *Publisher) Connected() bool {
	return atomic.LoadInt32(&p.connected) != 0
}

func (p *Publisher) setConnected(connected bool) {
	var val int32
	if connected {
		val = 1
	}
	atomic.StoreInt32(&p.connected, val)
}

// Publish implements publish.Publisher.
func (p *Publisher) Publish(ctx context.Context, r *reading.Reading) error {
	format := p.Meta.Format
	if format == "" {
		format = reading.FormatJSON
	}
	data, err := format.Encode(r)
	if err != nil {
		return err
	}
	return p.send(ctx, DistanceTopic(p.Meta.ID), data)
}

// PublishStatus implements monitor.StatusPublisher.
func (p *Publisher) PublishStatus(ctx context.Context, status monitor.Status) error {
	data, err := json.Marshal(&status)
	if err != nil {
		return err
	}
	return p.send(ctx, StatusTopic(p.Meta.ID), data)
}

func (p *Publisher) send(ctx context.Context, topic string, data []byte) error {
	token := p.Queue.Publish(topic, data)
	if !p.Connected() {
		return ErrNotConnected
	}
	return Wait(ctx, token, p.PublishTimeout)
}

// Run implements Runnable.
func (p *Publisher) Run(ctx context.Context) error {
	sub := p.Queue.Sub(SensorTopic(p.Meta.ID, topicRead), p.requested)
	p.Queue.Connect()
	<-ctx.Done()
	if p.Connected() {
		sub.Close()
		if err := Wait(context.Background(), p.Queue.Publish(SensorTopic(p.Meta.ID, topicMeta), nil), shutdownTimeout); err != nil {
			glog.Warningf("MQTT clear meta: %v", err)
		}
	}
	p.Queue.Close()
	return nil
}

func (p *Publisher) requested(topic string, payload []byte) {
	glog.V(1).Infof("reading requested on %q", topic)
	if fn := p.OnRequest; fn != nil {
		fn()
	}
}

func (p *Publisher) onConnected() {
	p.setConnected(true)
	p.Queue.Publish(SensorTopic(p.Meta.ID, topicMeta), p.metaJSON)
}
