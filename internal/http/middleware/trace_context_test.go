package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/trace"

	"github.com/yungbote/dreamworld-backend/internal/platform/ctxutil"
)

func traceEngine(seen **ctxutil.TraceData) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(AttachTraceContext())
	r.GET("/api/dreams", func(c *gin.Context) {
		*seen = ctxutil.GetTraceData(c.Request.Context())
		c.Status(http.StatusOK)
	})
	return r
}

func TestTraceContextKeepsWellFormedInboundIDs(t *testing.T) {
	var seen *ctxutil.TraceData
	r := traceEngine(&seen)

	req := httptest.NewRequest(http.MethodGet, "/api/dreams", nil)
	req.Header.Set(headerRequestID, "req-42")
	req.Header.Set(headerTraceID, "trace.abc_1")
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	require.NotNil(t, seen)
	assert.Equal(t, "req-42", seen.RequestID)
	assert.Equal(t, "trace.abc_1", seen.TraceID)
	assert.Equal(t, "req-42", rec.Header().Get(headerRequestID))
	assert.Equal(t, "trace.abc_1", rec.Header().Get(headerTraceID))
}

func TestTraceContextReplacesMalformedInboundIDs(t *testing.T) {
	var seen *ctxutil.TraceData
	r := traceEngine(&seen)

	req := httptest.NewRequest(http.MethodGet, "/api/dreams", nil)
	req.Header.Set(headerRequestID, "bad id\r\n")
	req.Header.Set(headerTraceID, strings.Repeat("a", maxInboundIDLen+1))
	r.ServeHTTP(httptest.NewRecorder(), req)

	require.NotNil(t, seen)
	assert.NotEqual(t, "bad id\r\n", seen.RequestID)
	assert.Len(t, seen.RequestID, 36)
	assert.Len(t, seen.TraceID, 36)
}

func TestTraceContextPrefersActiveSpan(t *testing.T) {
	var seen *ctxutil.TraceData
	r := traceEngine(&seen)

	tid, err := trace.TraceIDFromHex("4bf92f3577b34da6a3ce929d0e0e4736")
	require.NoError(t, err)
	sid, err := trace.SpanIDFromHex("00f067aa0ba902b7")
	require.NoError(t, err)
	ctx := trace.ContextWithSpanContext(context.Background(), trace.NewSpanContext(trace.SpanContextConfig{
		TraceID: tid,
		SpanID:  sid,
	}))

	req := httptest.NewRequest(http.MethodGet, "/api/dreams", nil).WithContext(ctx)
	req.Header.Set(headerTraceID, "client-trace")
	r.ServeHTTP(httptest.NewRecorder(), req)

	require.NotNil(t, seen)
	assert.Equal(t, tid.String(), seen.TraceID)
}
