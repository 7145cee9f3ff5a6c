package exporter

import (
	"context"

	"github.com/grafana/dskit/multierror"

	"github.com/spanstream/spanstream-go/pkg/trace"
)

type multiExporter struct {
	exporters []SpanExporter
}

// NewMulti fans every batch out to each exporter. A failing exporter does
// not stop delivery to the others; the errors are collected and returned
// together so the caller can still count the batch as failed.
func NewMulti(exporters ...SpanExporter) SpanExporter {
	return &multiExporter{exporters: exporters}
}

func (m *multiExporter) Export(ctx context.Context, batch []*trace.SpanData) error {
	errs := multierror.New()
	for _, e := range m.exporters {
		errs.Add(e.Export(ctx, batch))
	}
	return errs.Err()
}

func (m *multiExporter) Shutdown(ctx context.Context) error {
	errs := multierror.New()
	for _, e := range m.exporters {
		errs.Add(e.Shutdown(ctx))
	}
	return errs.Err()
}

func (m *multiExporter) ForceFlush(ctx context.Context) error {
	errs := multierror.New()
	for _, e := range m.exporters {
		errs.Add(e.ForceFlush(ctx))
	}
	return errs.Err()
}
