package tracing

import (
	"testing"

	"github.com/opentracing/opentracing-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInitTracerRegistersGlobal(t *testing.T) {
	old := SetServiceName("market_maker_test")
	defer SetServiceName(old)
	defer opentracing.SetGlobalTracer(opentracing.NoopTracer{})

	tracer, closeFn, err := InitTracer(Config{Host: "127.0.0.1", Port: 6831})
	require.NoError(t, err)
	defer closeFn()

	assert.Same(t, tracer, opentracing.GlobalTracer())
	span := tracer.StartSpan("ladder.refresh")
	span.Finish()
}
