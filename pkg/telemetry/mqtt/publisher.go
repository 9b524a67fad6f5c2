package mqtt

import (
	"context"
	"encoding/json"

	paho "github.com/eclipse/paho.mqtt.golang"
	"github.com/golang/glog"

	"github.com/robotalks/uartcheck/pkg/telemetry"
)

// Topics relative to "<prefix><device-id>/".
const (
	TopicStatus = "status"
	TopicMeta   = "meta"
)

// Meta describes the device, published retained on TopicMeta.
type Meta struct {
	Device   string `json:"device"`
	Line     string `json:"line"`
	BaudRate int    `json:"baud"`
	Capacity int    `json:"capacity"`
	Interval string `json:"interval"`
}

// Publisher implements telemetry.Publisher using MQTT.
type Publisher struct {
	Queue    *Queue
	DeviceID string

	metaJSON []byte
}

// NewPublisher creates a Publisher. The meta topic is cleared by the broker
// when the connection is lost.
func NewPublisher(brokerURL, deviceID string, meta Meta) (*Publisher, error) {
	metaJSON, err := json.Marshal(&meta)
	if err != nil {
		return nil, err
	}
	opts, topicPrefix, err := ClientOptionsFromURL(brokerURL)
	if err != nil {
		return nil, err
	}
	opts.SetBinaryWill(topicPrefix+deviceID+"/"+TopicMeta, nil, 1, true)
	if opts.ClientID == "" {
		opts.SetClientID("uartcheck:" + deviceID)
	}
	p := &Publisher{
		Queue:    NewQueue(opts, topicPrefix),
		DeviceID: deviceID,
		metaJSON: metaJSON,
	}
	p.Queue.OnConnect = func(q *Queue) {
		q.PubWith(p.topic(TopicMeta), p.metaJSON, 1, true)
	}
	return p, nil
}

func (p *Publisher) topic(name string) string {
	return p.DeviceID + "/" + name
}

// Name implements framework.Named.
func (p *Publisher) Name() string {
	return "mqtt-publisher"
}

// Run implements Runnable.
func (p *Publisher) Run(ctx context.Context) error {
	token := p.Queue.Connect()
	go func() {
		if token.Wait() && token.Error() != nil {
			glog.Errorf("mqtt connect: %v", token.Error())
		}
	}()
	<-ctx.Done()
	if p.Queue.Client.IsConnected() {
		p.Queue.PubWith(p.topic(TopicMeta), nil, 1, true).Wait()
	}
	p.Queue.Close()
	return ctx.Err()
}

// Publish implements telemetry.Publisher. It doesn't wait for delivery.
func (p *Publisher) Publish(ctx context.Context, r *telemetry.Report) error {
	payload, err := r.Encode()
	if err != nil {
		return err
	}
	token := p.Queue.Pub(p.topic(TopicStatus), payload)
	go func() {
		if token.Wait() && token.Error() != nil {
			glog.V(1).Infof("mqtt publish: %v", token.Error())
		}
	}()
	return nil
}

// Watch subscribes status reports of all devices under the prefix.
func Watch(q *Queue, fn func(deviceID string, r *telemetry.Report, err error)) paho.Token {
	return q.Sub("+/"+TopicStatus, func(topic string, payload []byte) {
		deviceID := topic[:len(topic)-len(TopicStatus)-1]
		r, err := telemetry.Decode(payload)
		fn(deviceID, r, err)
	})
}
