package outreach

import "time"

// Envelope is the wire shape handed to reporting consumers. Timestamp is
// the watermark the consumer polls from next.
type Envelope[T any] struct {
	Data      []T       `json:"data"`
	Timestamp time.Time `json:"timestamp"`
}

func ToEnvelope[T any](data []T, at time.Time) Envelope[T] {
	if data == nil {
		data = []T{}
	}
	return Envelope[T]{Data: data, Timestamp: at.UTC()}
}
