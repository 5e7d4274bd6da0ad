package handlers

import (
	"net/http"
	"strings"

	"github.com/getsentry/sentry-go"
	"github.com/getsentry/sentry-go/attribute"

	"github.com/artframerapp/artframer/internal/observability"
)

// MetricsContext adds a request-scoped, pre-attributed meter to the context.
func (h *Handlers) MetricsContext(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		requestID := requestIDFromRequest(r)

		attrs := []attribute.Builder{
			attribute.String("http.request_id", requestID),
			attribute.String("http.method", r.Method),
			attribute.String("network.client.ip", clientIP(r)),
		}
		if route := routeLabel(r); route != "" {
			attrs = append(attrs, attribute.String("http.route", route))
		}
		if userAgent := strings.TrimSpace(r.UserAgent()); userAgent != "" {
			attrs = append(attrs, attribute.String("http.user_agent", userAgent))
		}
		if r.ContentLength >= 0 {
			attrs = append(attrs, attribute.Int64("http.request_content_length", r.ContentLength))
		}

		meter := sentry.NewMeter(ctx).WithCtx(ctx)
		meter.SetAttributes(attrs...)

		ctx = observability.WithMeter(ctx, meter)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
