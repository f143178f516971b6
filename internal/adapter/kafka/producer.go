package kafka

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/niksmo/shopfront/internal/core/domain"
	"github.com/niksmo/shopfront/internal/core/port"
	"github.com/twmb/franz-go/pkg/kgo"
)

var _ port.ClientEventsProducer = ClientEventsProducer{}

const headerEventKind = "event_kind"

// A producer is used for composition.
//
// Producing records to kafka broker and closing underlying [kgo.Client].
type producer struct {
	opPrefix     string
	cl           ProducerClient
	flushTimeout time.Duration
}

func (p producer) close() {
	const op = "close"
	log := slog.With("op", makeOp(p.opPrefix, op))
	log.Info("closing producer...")

	ctx, cancel := context.WithTimeout(context.Background(), p.flushTimeout)
	defer cancel()
	if err := p.cl.Flush(ctx); err != nil {
		log.Warn("unsent records are dropped", "err", err)
	}
	p.cl.Close()
	log.Info("producer is closed")
}

// produce hands the record to the client buffer and returns. The delivery
// outcome only reaches the log.
func (p producer) produce(ctx context.Context, r *kgo.Record) {
	const op = "produce"
	p.cl.Produce(context.WithoutCancel(ctx), r, func(r *kgo.Record, err error) {
		if err != nil {
			slog.Warn("record is not delivered",
				"op", makeOp(p.opPrefix, op), "topic", r.Topic, "err", err)
		}
	})
}

// A ClientEventsProducer used for produce [domain.ClientEvent]
type ClientEventsProducer struct {
	producer producer
	encoder  Encoder
	opPrefix string
	newID    func() string
}

func NewClientEventsProducer(
	opts ...ProducerOpt,
) (ClientEventsProducer, error) {
	const op = "NewClientEventsProducer"

	if len(opts) != 2 {
		return ClientEventsProducer{}, opErr(ErrTooFewOpts, op)
	}

	var options producerOpts
	for _, opt := range opts {
		if err := opt(&options); err != nil {
			return ClientEventsProducer{}, opErr(err, op)
		}
	}

	opPrefix := "ClientEventsProducer"
	p := producer{
		opPrefix:     opPrefix,
		cl:           options.cl,
		flushTimeout: options.deliveryTimeout,
	}

	return ClientEventsProducer{
		producer: p,
		encoder:  options.encoder,
		opPrefix: opPrefix,
		newID:    uuid.NewString,
	}, nil
}

func (p ClientEventsProducer) Close() {
	p.producer.close()
}

// Publish encodes the event and queues it for delivery without waiting for
// the broker. Only encoding errors are returned.
func (p ClientEventsProducer) Publish(
	ctx context.Context, e domain.ClientEvent,
) error {
	const op = "Publish"

	if err := ctx.Err(); err != nil {
		return opErr(err, p.opPrefix, op)
	}

	r, err := p.createRecord(e)
	if err != nil {
		return opErr(err, p.opPrefix, op)
	}

	p.producer.produce(ctx, r)

	slog.Debug("client event queued",
		"op", makeOp(p.opPrefix, op), "kind", e.Kind, "key", e.Key())
	return nil
}

func (p ClientEventsProducer) createRecord(
	e domain.ClientEvent,
) (*kgo.Record, error) {
	const op = "createRecord"

	s := clientEventToSchemaV1(p.newID(), e)
	b, err := p.encoder.Encode(s)
	if err != nil {
		return nil, opErr(err, p.opPrefix, op)
	}

	return &kgo.Record{
		Key:   []byte(e.Key()),
		Value: b,
		Headers: []kgo.RecordHeader{
			{Key: headerEventKind, Value: []byte(e.Kind)},
		},
		Timestamp: e.At,
	}, nil
}
