package schema

import "time"

const ClientEventSchemaTextV1 = `{
	"type": "record",
	"namespace": "shopfront",
	"name": "client_event",
	"fields" : [
		{"name": "event_id", "type": "string"},
		{"name": "kind", "type": "string"},
		{"name": "username", "type": "string"},
		{"name": "client_id", "type": "string"},
		{"name": "product_id", "type": "long"},
		{"name": "qty", "type": "long"},
		{"name": "order_id", "type": "string"},
		{"name": "at", "type": {"type": "long", "logicalType": "timestamp-millis"}}
	]
}`

type ClientEventV1 struct {
	EventID   string    `avro:"event_id"`
	Kind      string    `avro:"kind"`
	Username  string    `avro:"username"`
	ClientID  string    `avro:"client_id"`
	ProductID int64     `avro:"product_id"`
	Qty       int64     `avro:"qty"`
	OrderID   string    `avro:"order_id"`
	At        time.Time `avro:"at"`
}
