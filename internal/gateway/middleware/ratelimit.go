package middleware

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/ulule/limiter/v3"
	mgin "github.com/ulule/limiter/v3/drivers/middleware/gin"
	"github.com/ulule/limiter/v3/drivers/store/memory"
)

// NewLimiterStore returns an in-memory counter store whose keys all carry
// prefix. Several routes may share one store.
func NewLimiterStore(prefix string) limiter.Store {
	return memory.NewStoreWithOptions(limiter.StoreOptions{
		Prefix:          prefix,
		CleanUpInterval: limiter.DefaultCleanUpInterval,
	})
}

// RateLimit limits requests per client IP on one route. formatted uses the
// limiter syntax, e.g. "10-M" for ten requests per minute. Counters are keyed
// by route so limits sharing a store stay independent.
func RateLimit(store limiter.Store, route, formatted string) (gin.HandlerFunc, error) {
	rate, err := limiter.NewRateFromFormatted(formatted)
	if err != nil {
		return nil, fmt.Errorf("invalid rate limit %q for %s: %w", formatted, route, err)
	}

	return mgin.NewMiddleware(
		limiter.New(store, rate),
		mgin.WithKeyGetter(func(c *gin.Context) string {
			return route + ":" + c.ClientIP()
		}),
		mgin.WithLimitReachedHandler(func(c *gin.Context) {
			c.JSON(http.StatusTooManyRequests, gin.H{
				"success": false,
				"message": "Too many requests, slow down",
			})
		}),
		mgin.WithErrorHandler(func(c *gin.Context, err error) {
			c.JSON(http.StatusInternalServerError, gin.H{
				"success": false,
				"message": "Rate limiter unavailable",
			})
		}),
	), nil
}
