package schema

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/hamba/avro/v2"
	"github.com/twmb/franz-go/pkg/sr"
)

var (
	ErrTooFewOpts      = errors.New("too few options")
	ErrIncompleteEvent = errors.New("client event without id or kind")
)

const valueSubjectSuffix = "-value"

// ValueSubject names the registry subject for record values of topic.
func ValueSubject(topic string) string {
	return topic + valueSubjectSuffix
}

// A Serde frames client events in the registry wire format: a zero magic
// byte, the big-endian schema id and the Avro body.
type Serde interface {
	Encode(v any) ([]byte, error)
	Decode(data []byte, v any) error
}

type clientEventSerde struct {
	avroSchema avro.Schema
	srSerde    *sr.Serde
}

func (s clientEventSerde) Encode(v any) ([]byte, error) {
	const op = "schema.Encode"
	if err := checkClientEvent(v); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	b, err := s.srSerde.Encode(v)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return b, nil
}

func (s clientEventSerde) Decode(data []byte, v any) error {
	const op = "schema.Decode"
	if err := s.srSerde.Decode(data, v); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

func (s clientEventSerde) encodeFn(v any) ([]byte, error) {
	return avro.Marshal(s.avroSchema, v)
}

func (s clientEventSerde) decodeFn(data []byte, v any) error {
	return avro.Unmarshal(s.avroSchema, data, v)
}

// Consumers key their stores by event id, so an event without one is
// rejected before it reaches the topic.
func checkClientEvent(v any) error {
	var e ClientEventV1
	switch t := v.(type) {
	case ClientEventV1:
		e = t
	case *ClientEventV1:
		if t == nil {
			return ErrIncompleteEvent
		}
		e = *t
	default:
		return nil
	}
	if e.EventID == "" || e.Kind == "" {
		return ErrIncompleteEvent
	}
	return nil
}

type Opt func(*serdeOpts) error

type serdeOpts struct {
	subject string
	si      SchemaIdentifier
}

// SubjectOpt sets the value subject, see [ValueSubject].
func SubjectOpt(subject string) Opt {
	return func(so *serdeOpts) error {
		if subject == "" {
			return errors.New("subject is empty string")
		}
		if !strings.HasSuffix(subject, valueSubjectSuffix) ||
			subject == valueSubjectSuffix {
			return fmt.Errorf("subject %q is not a topic value subject", subject)
		}
		so.subject = subject
		return nil
	}
}

func SchemaIdentifierOpt(sc SchemaIdentifier) Opt {
	return func(so *serdeOpts) error {
		if sc == nil {
			return errors.New("schema identifier is nil")
		}
		so.si = sc
		return nil
	}
}

// NewSerdeClientEventV1 registers [ClientEventSchemaTextV1] under the
// subject and returns a serde for [ClientEventV1] values. Both
// [SubjectOpt] and [SchemaIdentifierOpt] are required.
func NewSerdeClientEventV1(ctx context.Context, opts ...Opt) (Serde, error) {
	const op = "schema.NewSerdeClientEventV1"

	if len(opts) != 2 {
		return clientEventSerde{}, fmt.Errorf("%s: %w", op, ErrTooFewOpts)
	}

	var so serdeOpts
	for _, o := range opts {
		if err := o(&so); err != nil {
			return clientEventSerde{}, fmt.Errorf("%s: %w", op, err)
		}
	}

	avroSchema, err := avro.Parse(ClientEventSchemaTextV1)
	if err != nil {
		return clientEventSerde{}, fmt.Errorf("%s: %w", op, err)
	}

	id, err := so.si.DetermineID(ctx, so.subject, ClientEventSchemaTextV1)
	if err != nil {
		return clientEventSerde{}, fmt.Errorf(
			"%s: register %q: %w", op, so.subject, err,
		)
	}

	s := clientEventSerde{avroSchema: avroSchema, srSerde: new(sr.Serde)}
	s.srSerde.Register(
		id,
		ClientEventV1{},
		sr.EncodeFn(s.encodeFn),
		sr.DecodeFn(s.decodeFn),
	)
	return s, nil
}
