package handler

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/use-agent/taxsale/cache"
	"github.com/use-agent/taxsale/config"
	"github.com/use-agent/taxsale/models"
	"github.com/use-agent/taxsale/scraper"
	"github.com/use-agent/taxsale/webhook"
)

// Scrape returns a handler for GET /scrape.
//
// Orchestration flow:
//  1. Resolve the freshness window (?max_age_ms= overrides the configured
//     default) and serve from cache when a fresh result exists.
//  2. Session.Scrape → fetch + extract + canonicalize + normalize.
//  3. Push the outcome to the webhook endpoint, if one is configured.
//  4. Store in cache and respond with the bare ScrapeResult JSON.
//
// Cache state is reported in the X-Cache header, never in the body: the
// response body shape is fixed.
func Scrape(sess *scraper.Session, cc *cache.Cache, cacheCfg config.CacheConfig, whCfg config.WebhookConfig) gin.HandlerFunc {
	return func(c *gin.Context) {
		// ── 1. Freshness window + cache lookup ──────────────────────
		maxAgeMs := int(cacheCfg.DefaultMaxAge / time.Millisecond)
		if raw, ok := c.GetQuery("max_age_ms"); ok {
			parsed, err := strconv.Atoi(raw)
			if err != nil || parsed < 0 {
				respondError(c, models.NewScrapeError(
					models.ErrCodeInvalidInput,
					"max_age_ms must be a non-negative integer",
					err,
				))
				return
			}
			maxAgeMs = parsed
		}

		cacheKey := cache.Key(sess.SourceURL(), sess.FetchMode())
		if cc != nil {
			if cached, hit := cc.Get(cacheKey, maxAgeMs); hit {
				c.Header("X-Cache", "hit")
				c.JSON(http.StatusOK, cached)
				return
			}
		}

		// ── 2. Scrape ───────────────────────────────────────────────
		start := time.Now()
		result, err := sess.Scrape(c.Request.Context())
		if err != nil {
			if whCfg.URL != "" {
				webhook.DeliverAsync(whCfg.URL, whCfg.Secret,
					webhook.NewEvent(webhook.EventScrapeFailed, sess.SourceURL(), errorDetail(err)))
			}
			respondError(c, err)
			return
		}

		// ── 3. Webhook push ─────────────────────────────────────────
		if whCfg.URL != "" {
			webhook.DeliverAsync(whCfg.URL, whCfg.Secret,
				webhook.NewEvent(webhook.EventScrapeCompleted, sess.SourceURL(), result))
		}

		// ── 4. Cache store + respond ────────────────────────────────
		if cc != nil {
			cc.Set(cacheKey, result)
			c.Header("X-Cache", "miss")
		}
		c.Header("X-Scrape-Duration-Ms", strconv.FormatInt(time.Since(start).Milliseconds(), 10))

		c.JSON(http.StatusOK, result)
	}
}

// respondError maps a ScrapeError to the correct HTTP status code and writes
// a structured JSON error response.
func respondError(c *gin.Context, err error) {
	c.JSON(statusFor(err), models.ErrorResponse{Error: errorDetail(err)})
}

// errorDetail converts any error to the API-facing detail shape.
func errorDetail(err error) *models.ErrorDetail {
	if scrapeErr, ok := err.(*models.ScrapeError); ok {
		return scrapeErr.ToDetail()
	}
	return &models.ErrorDetail{Code: models.ErrCodeInternal, Message: err.Error()}
}

// statusFor translates error codes to HTTP status codes.
func statusFor(err error) int {
	scrapeErr, ok := err.(*models.ScrapeError)
	if !ok {
		return http.StatusInternalServerError
	}
	switch scrapeErr.Code {
	case models.ErrCodeTimeout:
		return http.StatusGatewayTimeout // 504
	case models.ErrCodeNavigation:
		return http.StatusBadGateway // 502
	case models.ErrCodeRobots:
		return http.StatusForbidden // 403
	case models.ErrCodeInvalidInput:
		return http.StatusBadRequest // 400
	case models.ErrCodeRateLimited:
		return http.StatusTooManyRequests // 429
	case models.ErrCodeUnauthorized:
		return http.StatusUnauthorized // 401
	default:
		return http.StatusInternalServerError // 500
	}
}
