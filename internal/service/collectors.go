package service

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/temoto/robotstxt"
)

// maxHTMLBytes caps how much of a target page is read into memory.
const maxHTMLBytes = 2 * 1024 * 1024

// HTMLResult is the raw-HTML collector output.
type HTMLResult struct {
	HTML       string
	StatusCode int
	Measured   bool
}

// SpeedResult is the performance collector output.
type SpeedResult struct {
	LoadTimeMs int64
	Score      int // 0-100 derived speed score
	Measured   bool
}

// SecurityResult is the baseline security collector output.
type SecurityResult struct {
	HTTPS              bool
	HSTSHeader         bool
	ContentTypeOptions bool
	CSPHeader          bool
	Measured           bool
}

// DiscoverabilityResult is the sitemap/robots collector output.
type DiscoverabilityResult struct {
	HasSitemap   bool
	HasRobotsTxt bool
	RobotsValid  bool
	Measured     bool
}

// CollectorResults combines the four collector outputs positionally. Each
// carries its own Measured flag, so downstream stages can tell a real value
// from a fallback default.
type CollectorResults struct {
	HTML            HTMLResult
	Speed           SpeedResult
	Security        SecurityResult
	Discoverability DiscoverabilityResult
}

// CollectorService runs the independent signal collectors against a target
// URL. Each collector is bounded by its own timeout; one collector failing
// never aborts the others.
type CollectorService struct {
	client    *http.Client
	timeout   time.Duration
	userAgent string
	logger    *slog.Logger
}

// NewCollectorService creates a collector service.
func NewCollectorService(timeout time.Duration, userAgent string, logger *slog.Logger) *CollectorService {
	if logger == nil {
		logger = slog.Default()
	}
	return &CollectorService{
		client: &http.Client{
			// Per-request deadlines come from the collector contexts.
			CheckRedirect: func(req *http.Request, via []*http.Request) error {
				if len(via) >= 10 {
					return fmt.Errorf("too many redirects")
				}
				return nil
			},
		},
		timeout:   timeout,
		userAgent: userAgent,
		logger:    logger.With("component", "collectors"),
	}
}

// CollectAll fans out the four collectors concurrently and gathers every
// outcome. It never short-circuits: a timed-out or failed collector simply
// yields its zero-value result with Measured=false.
func (s *CollectorService) CollectAll(ctx context.Context, target string) CollectorResults {
	var results CollectorResults
	var wg sync.WaitGroup

	wg.Add(4)
	go func() {
		defer wg.Done()
		results.HTML = s.collectHTML(ctx, target)
	}()
	go func() {
		defer wg.Done()
		results.Speed = s.collectSpeed(ctx, target)
	}()
	go func() {
		defer wg.Done()
		results.Security = s.collectSecurity(ctx, target)
	}()
	go func() {
		defer wg.Done()
		results.Discoverability = s.collectDiscoverability(ctx, target)
	}()
	wg.Wait()

	return results
}

func (s *CollectorService) collectHTML(ctx context.Context, target string) HTMLResult {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	resp, err := s.get(ctx, target)
	if err != nil {
		s.logger.Debug("html collector failed", "url", target, "error", err)
		return HTMLResult{}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 400 {
		return HTMLResult{StatusCode: resp.StatusCode}
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxHTMLBytes))
	if err != nil {
		s.logger.Debug("html collector read failed", "url", target, "error", err)
		return HTMLResult{StatusCode: resp.StatusCode}
	}
	if len(body) == 0 {
		return HTMLResult{StatusCode: resp.StatusCode}
	}

	return HTMLResult{HTML: string(body), StatusCode: resp.StatusCode, Measured: true}
}

func (s *CollectorService) collectSpeed(ctx context.Context, target string) SpeedResult {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	start := time.Now()
	resp, err := s.get(ctx, target)
	if err != nil {
		s.logger.Debug("speed collector failed", "url", target, "error", err)
		return SpeedResult{}
	}
	defer resp.Body.Close()

	// Load time covers the full body transfer, not just the first byte.
	if _, err := io.Copy(io.Discard, io.LimitReader(resp.Body, maxHTMLBytes)); err != nil {
		return SpeedResult{}
	}
	elapsed := time.Since(start).Milliseconds()

	if resp.StatusCode < 200 || resp.StatusCode >= 400 {
		return SpeedResult{}
	}

	return SpeedResult{
		LoadTimeMs: elapsed,
		Score:      speedScoreFromLoadTime(elapsed),
		Measured:   true,
	}
}

// speedScoreFromLoadTime maps a load time onto a 0-100 score via a monotonic
// step table.
func speedScoreFromLoadTime(ms int64) int {
	switch {
	case ms <= 1000:
		return 100
	case ms <= 1500:
		return 85
	case ms <= 2000:
		return 70
	case ms <= 3000:
		return 50
	case ms <= 5000:
		return 30
	default:
		return 10
	}
}

func (s *CollectorService) collectSecurity(ctx context.Context, target string) SecurityResult {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	u, err := url.Parse(target)
	if err != nil {
		return SecurityResult{}
	}

	resp, err := s.get(ctx, target)
	if err != nil {
		s.logger.Debug("security collector failed", "url", target, "error", err)
		return SecurityResult{}
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, io.LimitReader(resp.Body, 1024))

	// The final scheme matters: an http URL that redirects to https counts.
	scheme := u.Scheme
	if resp.Request != nil && resp.Request.URL != nil {
		scheme = resp.Request.URL.Scheme
	}

	return SecurityResult{
		HTTPS:              scheme == "https",
		HSTSHeader:         resp.Header.Get("Strict-Transport-Security") != "",
		ContentTypeOptions: strings.EqualFold(resp.Header.Get("X-Content-Type-Options"), "nosniff"),
		CSPHeader:          resp.Header.Get("Content-Security-Policy") != "",
		Measured:           true,
	}
}

func (s *CollectorService) collectDiscoverability(ctx context.Context, target string) DiscoverabilityResult {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	origin, err := originOf(target)
	if err != nil {
		return DiscoverabilityResult{}
	}

	result := DiscoverabilityResult{Measured: true}

	sitemapResp, err := s.get(ctx, origin+"/sitemap.xml")
	if err != nil {
		// Origin unreachable: report the whole check as not measured rather
		// than "no sitemap".
		s.logger.Debug("sitemap check failed", "url", origin, "error", err)
		return DiscoverabilityResult{}
	}
	io.Copy(io.Discard, io.LimitReader(sitemapResp.Body, 1024))
	sitemapResp.Body.Close()
	result.HasSitemap = sitemapResp.StatusCode == http.StatusOK

	robotsResp, err := s.get(ctx, origin+"/robots.txt")
	if err != nil {
		s.logger.Debug("robots check failed", "url", origin, "error", err)
		return DiscoverabilityResult{}
	}
	defer robotsResp.Body.Close()
	if robotsResp.StatusCode == http.StatusOK {
		result.HasRobotsTxt = true
		body, err := io.ReadAll(io.LimitReader(robotsResp.Body, 512*1024))
		if err == nil {
			if _, perr := robotstxt.FromBytes(body); perr == nil {
				result.RobotsValid = true
			}
		}
	}

	return result
}

func (s *CollectorService) get(ctx context.Context, target string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", s.userAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml,*/*")
	return s.client.Do(req)
}

// originOf reduces a URL to its scheme://host origin.
func originOf(target string) (string, error) {
	u, err := url.Parse(target)
	if err != nil {
		return "", err
	}
	if u.Scheme == "" || u.Host == "" {
		return "", fmt.Errorf("url %q has no origin", target)
	}
	return u.Scheme + "://" + u.Host, nil
}
