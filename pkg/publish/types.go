// Package publish delivers readings to consumers.
package publish

import (
	"context"

	fx "github.com/robotalks/maxsonar.go/pkg/framework"
	"github.com/robotalks/maxsonar.go/pkg/reading"
)

// Publisher delivers a reading.
type Publisher interface {
	Publish(context.Context, *reading.Reading) error
}

// PublishFunc is the func form of Publisher.
type PublishFunc func(context.Context, *reading.Reading) error

// Publish implements Publisher.
func (f PublishFunc) Publish(ctx context.Context, r *reading.Reading) error {
	return f(ctx, r)
}

// Mux publishes to multiple Publishers.
// A failing Publisher doesn't prevent delivery to the others.
type Mux struct {
	Publishers []Publisher
}

// Add adds more publishers.
func (m *Mux) Add(pubs ...Publisher) {
	m.Publishers = append(m.Publishers, pubs...)
}

// Publish implements Publisher.
func (m *Mux) Publish(ctx context.Context, r *reading.Reading) error {
	var errs fx.AggregatedError
	for _, pub := range m.Publishers {
		errs.Add(pub.Publish(ctx, r))
	}
	return errs.Aggregate()
}
