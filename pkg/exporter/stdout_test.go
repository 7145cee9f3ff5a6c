package exporter

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/spanstream/spanstream-go/pkg/trace"
)

func TestStdoutWritesOneObjectPerSpan(t *testing.T) {
	var buf bytes.Buffer
	e := NewStdout(&buf)

	batch := []*trace.SpanData{testSpan("first", 1), testSpan("second", 2)}
	require.NoError(t, e.Export(context.Background(), batch))

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 2)

	var decoded struct {
		Name        string `json:"name"`
		Kind        string `json:"kind"`
		SpanContext struct {
			TraceID string `json:"TraceID"`
			SpanID  string `json:"SpanID"`
		} `json:"span_context"`
	}
	require.NoError(t, json.Unmarshal([]byte(lines[0]), &decoded))
	require.Equal(t, "first", decoded.Name)
	require.Equal(t, "internal", decoded.Kind)
	require.Equal(t, "01000000000000000000000000000000", decoded.SpanContext.TraceID)
	require.Equal(t, "0100000000000000", decoded.SpanContext.SpanID)
}

func TestStdoutAfterShutdownWritesNothing(t *testing.T) {
	var buf bytes.Buffer
	e := NewStdout(&buf)

	require.NoError(t, e.Shutdown(context.Background()))
	require.NoError(t, e.Export(context.Background(), []*trace.SpanData{testSpan("late", 1)}))
	require.Zero(t, buf.Len())
}

func TestStdoutHonorsContext(t *testing.T) {
	var buf bytes.Buffer
	e := NewStdout(&buf)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	require.Error(t, e.Export(ctx, []*trace.SpanData{testSpan("op", 1)}))
	require.Zero(t, buf.Len())
}
