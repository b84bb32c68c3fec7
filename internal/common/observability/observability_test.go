package observability

import (
	"context"
	"strings"
	"testing"
	"time"

	promclient "github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
)

func TestNew_WithoutTracing(t *testing.T) {
	reg := promclient.NewRegistry()
	o := New(Config{ServiceName: "chatdb-test", Registerer: reg})
	defer o.Shutdown()

	ctx, span := o.StartSpan(context.Background(), "translate-query", attribute.String("backend", "sql"))
	assert.NotNil(t, ctx)
	assert.False(t, span.SpanContext().IsValid())
	span.End()

	o.RecordJobProcessed(ctx, "translate-query", "completed")
	o.RecordJobDuration(ctx, "translate-query", 15*time.Millisecond, "completed")

	families, err := reg.Gather()
	require.NoError(t, err)

	found := false
	for _, f := range families {
		if strings.HasPrefix(f.GetName(), "jobs_processed") {
			found = true
		}
	}
	assert.True(t, found)
}

func TestNilObservability(t *testing.T) {
	var o *Observability

	ctx, span := o.StartSpan(context.Background(), "query-sql")
	assert.NotNil(t, ctx)
	span.End()

	o.RecordJobProcessed(ctx, "query-sql", "failed")
	o.RecordJobDuration(ctx, "query-sql", time.Second, "failed")
}
