package kafka

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/niksmo/shopfront/internal/core/domain"
	"github.com/niksmo/shopfront/pkg/schema"
	"github.com/twmb/franz-go/pkg/kgo"
)

var (
	ErrTooFewOpts = errors.New("too few options")
)

// DefaultDeliveryTimeout bounds how long a record may wait for the broker.
// Client events are best-effort and must not stall user commands.
const DefaultDeliveryTimeout = 5 * time.Second

type ProducerOpt func(*producerOpts) error

type producerOpts struct {
	cl              ProducerClient
	encoder         Encoder
	deliveryTimeout time.Duration
}

type ClientConfig struct {
	SeedBrokers     []string
	Topic           string
	TLSConfig       *tls.Config
	DeliveryTimeout time.Duration
}

func ProducerClientOpt(ctx context.Context, cfg ClientConfig) ProducerOpt {
	return func(opts *producerOpts) error {
		if len(cfg.SeedBrokers) == 0 {
			return errors.New("no seed brokers")
		}
		if cfg.Topic == "" {
			return errors.New("topic is empty string")
		}

		timeout := cfg.DeliveryTimeout
		if timeout <= 0 {
			timeout = DefaultDeliveryTimeout
		}

		kopts := []kgo.Opt{
			kgo.SeedBrokers(cfg.SeedBrokers...),
			kgo.DefaultProduceTopicAlways(),
			kgo.DefaultProduceTopic(cfg.Topic),
			kgo.RequiredAcks(kgo.AllISRAcks()),
			kgo.RecordDeliveryTimeout(timeout),
			kgo.ProducerLinger(0),
		}
		if cfg.TLSConfig != nil {
			kopts = append(kopts, kgo.DialTLSConfig(cfg.TLSConfig))
		}

		cl, err := kgo.NewClient(kopts...)
		if err != nil {
			return err
		}

		pingCtx, cancel := context.WithTimeout(ctx, timeout)
		defer cancel()
		if err := cl.Ping(pingCtx); err != nil {
			cl.Close()
			return err
		}
		opts.cl = cl
		opts.deliveryTimeout = timeout
		return nil
	}
}

// ProducerUseClientOpt sets an already created client.
func ProducerUseClientOpt(cl ProducerClient) ProducerOpt {
	return func(opts *producerOpts) error {
		if cl == nil {
			return errors.New("client is nil")
		}
		opts.cl = cl
		opts.deliveryTimeout = DefaultDeliveryTimeout
		return nil
	}
}

func ProducerEncoderOpt(encoder Encoder) ProducerOpt {
	return func(opts *producerOpts) error {
		if encoder == nil {
			return errors.New("encoder is nil")
		}
		opts.encoder = encoder
		return nil
	}
}

type ProducerClient interface {
	Produce(ctx context.Context, r *kgo.Record, promise func(*kgo.Record, error))
	Flush(ctx context.Context) error
	Close()
}

type Encoder interface {
	Encode(v any) ([]byte, error)
}

func makeOp(s ...string) string {
	return strings.Join(s, ".")
}

func opErr(err error, op ...string) error {
	return fmt.Errorf("%s: %w", makeOp(op...), err)
}

func clientEventToSchemaV1(id string, v domain.ClientEvent) (s schema.ClientEventV1) {
	s.EventID = id
	s.Kind = string(v.Kind)
	s.Username = v.Username
	s.ClientID = v.ClientID
	s.ProductID = int64(v.ProductID)
	s.Qty = int64(v.Qty)
	s.OrderID = v.OrderID
	s.At = v.At.UTC()
	return
}
