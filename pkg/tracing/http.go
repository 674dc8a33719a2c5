package tracing

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"go.opentelemetry.io/otel/trace"

	"qprofile/pkg/logging"
)

var untracedPrefixes = []string{"/health", "/metrics", "/swagger"}

// GinMiddleware traces API requests. Probes and docs are not traced.
func GinMiddleware(serviceName string) gin.HandlerFunc {
	return otelgin.Middleware(serviceName, otelgin.WithFilter(traced))
}

func traced(r *http.Request) bool {
	for _, prefix := range untracedPrefixes {
		if strings.HasPrefix(r.URL.Path, prefix) {
			return false
		}
	}
	return true
}

// TraceIDMiddleware copies the trace id of the request span into the logging
// context. It must run after GinMiddleware.
func TraceIDMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		sc := trace.SpanContextFromContext(c.Request.Context())
		if sc.HasTraceID() {
			c.Request = c.Request.WithContext(logging.WithTraceID(c.Request.Context(), sc.TraceID().String()))
		}
		c.Next()
	}
}
