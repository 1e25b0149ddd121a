package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/use-agent/taxsale/scraper"
	"github.com/use-agent/taxsale/snapshot"
)

// Page returns a handler for GET /page: the markdown audit view of the
// source page, fetched fresh. It shares the fetch path with /scrape but
// skips extraction, so an operator can diff what the scraper saw against
// what it extracted.
func Page(sess *scraper.Session, rend *snapshot.Renderer) gin.HandlerFunc {
	return func(c *gin.Context) {
		fetched, err := sess.Fetch(c.Request.Context())
		if err != nil {
			respondError(c, err)
			return
		}

		resp, err := rend.Render(fetched.HTML, sess.SourceURL(), fetched.Title)
		if err != nil {
			respondError(c, err)
			return
		}

		c.JSON(http.StatusOK, resp)
	}
}
