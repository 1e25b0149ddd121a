package scraper

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/use-agent/taxsale/models"
)

func TestAcceptLanguage(t *testing.T) {
	tests := []struct {
		locale string
		want   string
	}{
		{"en-US", "en-US,en;q=0.9"},
		{"pt-BR", "pt-BR,pt;q=0.9"},
		{"en", "en"},
		{"", ""},
	}
	for _, tt := range tests {
		if got := acceptLanguage(tt.locale); got != tt.want {
			t.Errorf("acceptLanguage(%q) = %q, want %q", tt.locale, got, tt.want)
		}
	}
}

func TestCategorizeError(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		wantCode string
	}{
		{"deadline", fmt.Errorf("navigate: %w", context.DeadlineExceeded), models.ErrCodeTimeout},
		{"canceled", context.Canceled, models.ErrCodeTimeout},
		{"other", errors.New("net::ERR_NAME_NOT_RESOLVED"), models.ErrCodeNavigation},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			se := categorizeError(tt.err, "boom")
			if se.Code != tt.wantCode {
				t.Errorf("code = %s, want %s", se.Code, tt.wantCode)
			}
			if !errors.Is(se, tt.err) {
				t.Errorf("categorized error should wrap the original")
			}
		})
	}
}

func TestSettle_HonorsContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	start := time.Now()
	settle(ctx, 5*time.Second)
	if elapsed := time.Since(start); elapsed > time.Second {
		t.Errorf("settle blocked %v after context cancel", elapsed)
	}
}

func TestSettle_ZeroDelay(t *testing.T) {
	settle(context.Background(), 0) // must return immediately, not panic
}
