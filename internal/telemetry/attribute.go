package telemetry

import (
	"go.opentelemetry.io/otel/attribute"

	"ChordDHT/internal/ring"
)

// IdAttributes renders a ring identifier as a set of span/resource
// attributes under prefix, in both decimal and hex form.
func IdAttributes(prefix string, id ring.ID) []attribute.KeyValue {
	return []attribute.KeyValue{
		attribute.String(prefix+".dec", id.ToBigInt().String()),
		attribute.String(prefix+".hex", id.ToHexString()),
	}
}
