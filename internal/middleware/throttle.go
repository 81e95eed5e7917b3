package middleware

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"eduplatform/internal/metrics"
	"eduplatform/internal/response"
)

// AttemptCounter is satisfied by *cache.AttemptCounter.
type AttemptCounter interface {
	Hit(ctx context.Context, key string, window time.Duration) (int64, error)
}

// Throttle limits attempts per client IP and route within window. A
// maxAttempts of zero disables it. Counter failures let the request through.
func Throttle(counter AttemptCounter, maxAttempts int, window time.Duration, m *metrics.Metrics, log zerolog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		if counter == nil || maxAttempts <= 0 {
			c.Next()
			return
		}

		route := c.FullPath()
		count, err := counter.Hit(c.Request.Context(), route+":"+c.ClientIP(), window)
		if err != nil {
			log.Warn().Err(err).Str("route", route).Msg("throttle counter unavailable")
			c.Next()
			return
		}

		if count > int64(maxAttempts) {
			m.Throttled(route)
			c.Header("Retry-After", strconv.Itoa(int(window.Seconds())))
			response.Abort(c, http.StatusTooManyRequests, "TOO_MANY_ATTEMPTS", "Too many attempts, try again later")
			return
		}

		c.Next()
	}
}
