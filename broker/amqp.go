package broker

import (
	"fmt"
	"sync"
	"time"

	"github.com/zllovesuki/subpulse/spec"

	extErrors "github.com/pkg/errors"
	"github.com/streadway/amqp"
	"go.uber.org/zap"
	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/types/known/structpb"
)

var _ spec.Sink = &AMQPBroker{}

type publisher interface {
	Publish(exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
}

// AMQPBroker publishes every metric point to a fanout exchange on RabbitMQ
type AMQPBroker struct {
	logger     *zap.Logger
	connection *amqp.Connection
	channel    publisher

	mu sync.Mutex // amqp.Channel is not safe for concurrent publishing
}

// Metric is a decoded metric point
type Metric struct {
	Name   string
	Values []float64
	Series bool
	At     time.Time
}

// NewAMQPBroker returns a metrics Sink over RabbitMQ
func NewAMQPBroker(logger *zap.Logger, amqpURI string) (*AMQPBroker, error) {
	if logger == nil {
		return nil, fmt.Errorf("nil Logger is invalid")
	}
	amqpConn, err := amqp.Dial(amqpURI)
	if err != nil {
		return nil, extErrors.Wrap(err, "Cannot connect to Message Broker")
	}
	amqpChan, err := amqpConn.Channel()
	if err != nil {
		amqpConn.Close()
		return nil, extErrors.Wrap(err, "Cannot create broker channel")
	}
	if err := setupMetricsExchange(amqpChan); err != nil {
		amqpConn.Close()
		return nil, extErrors.Wrap(err, "Cannot declare exchange for metrics")
	}
	return &AMQPBroker{
		logger:     logger,
		connection: amqpConn,
		channel:    amqpChan,
	}, nil
}

func setupMetricsExchange(ch *amqp.Channel) error {
	return ch.ExchangeDeclare(
		spec.MetricsExchange, // name
		"fanout",             // type
		true,                 // durable
		false,                // auto-deleted
		false,                // internal
		false,                // no-wait
		nil,                  // arguments
	)
}

// Close will close the connection and its channel to release resources
func (a *AMQPBroker) Close() {
	if a.connection != nil {
		a.connection.Close()
	}
}

// Encode serializes a metric point as a protobuf Struct
func Encode(name string, values []float64, series bool, at time.Time) ([]byte, error) {
	list := make([]interface{}, 0, len(values))
	for _, v := range values {
		list = append(list, v)
	}
	msg, err := structpb.NewStruct(map[string]interface{}{
		"name":   name,
		"values": list,
		"series": series,
		"at":     at.Format(time.RFC3339Nano),
	})
	if err != nil {
		return nil, extErrors.Wrap(err, "Cannot build metric message")
	}
	return proto.Marshal(msg)
}

// Decode parses a message produced by Encode
func Decode(body []byte) (*Metric, error) {
	var msg structpb.Struct
	if err := proto.Unmarshal(body, &msg); err != nil {
		return nil, extErrors.Wrap(err, "Cannot decode metric message")
	}
	fields := msg.GetFields()
	at, err := time.Parse(time.RFC3339Nano, fields["at"].GetStringValue())
	if err != nil {
		return nil, extErrors.Wrap(err, "Cannot parse metric timestamp")
	}
	m := &Metric{
		Name:   fields["name"].GetStringValue(),
		Series: fields["series"].GetBoolValue(),
		At:     at,
	}
	for _, v := range fields["values"].GetListValue().GetValues() {
		m.Values = append(m.Values, v.GetNumberValue())
	}
	return m, nil
}

func (a *AMQPBroker) publish(name string, values []float64, series bool, at time.Time) {
	logger := a.logger.With(zap.String("Name", name))

	body, err := Encode(name, values, series, at)
	if err != nil {
		logger.Error("Cannot encode message into bytes",
			zap.Error(err),
		)
		return
	}

	a.mu.Lock()
	defer a.mu.Unlock()
	if err := a.channel.Publish(
		spec.MetricsExchange,
		"",
		false,
		false,
		amqp.Publishing{
			ContentType: "application/x-protobuf",
			Timestamp:   at,
			Body:        body,
		},
	); err != nil {
		logger.Error("Cannot publish metric",
			zap.Error(err),
		)
	}
}

func (a *AMQPBroker) Set(name string, value float64, at time.Time) {
	a.publish(name, []float64{value}, false, at)
}

func (a *AMQPBroker) SetSeries(name string, values []float64, at time.Time) {
	a.publish(name, values, true, at)
}
