package scraper

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/temoto/robotstxt"
	"github.com/use-agent/taxsale/models"
)

// robotsAgent is the product token matched against robots.txt groups.
const robotsAgent = "taxsale"

// robotsGate checks the source host's robots.txt before a fetch. The file
// is retrieved once per session and cached for its lifetime; a failed
// retrieval fails open since the gate is an opt-in courtesy, not a fence.
type robotsGate struct {
	once sync.Once
	data *robotstxt.RobotsData
}

func (g *robotsGate) check(ctx context.Context, target *url.URL) error {
	g.once.Do(func() {
		g.data = fetchRobots(ctx, target)
	})
	if g.data == nil {
		return nil
	}

	path := target.Path
	if path == "" {
		path = "/"
	}
	if g.data.TestAgent(path, robotsAgent) {
		return nil
	}
	return models.NewScrapeError(
		models.ErrCodeRobots,
		fmt.Sprintf("robots.txt disallows %s for %s", path, robotsAgent),
		nil,
	)
}

func fetchRobots(ctx context.Context, target *url.URL) *robotstxt.RobotsData {
	robotsURL := target.Scheme + "://" + target.Host + "/robots.txt"

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, robotsURL, nil)
	if err != nil {
		return nil
	}
	client := &http.Client{Timeout: 10 * time.Second}
	resp, err := client.Do(req)
	if err != nil {
		return nil
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1024*1024))
	if err != nil {
		return nil
	}

	// FromStatusAndBytes applies the de facto status-code semantics:
	// 4xx means no restrictions, 5xx means closed.
	data, err := robotstxt.FromStatusAndBytes(resp.StatusCode, body)
	if err != nil {
		return nil
	}
	return data
}
