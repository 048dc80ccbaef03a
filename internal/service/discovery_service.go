package service

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"sync"

	"github.com/gocolly/colly/v2"

	"github.com/jmylchreest/siteaudit-api/internal/config"
)

// DiscoveredSite is one candidate website found by the discovery crawler.
type DiscoveredSite struct {
	URL    string
	Domain string
}

// DiscoveryService crawls a seed page (typically a directory or association
// listing) and harvests external websites as analysis candidates.
type DiscoveryService struct {
	cfg    *config.Config
	logger *slog.Logger
}

// NewDiscoveryService creates a discovery service.
func NewDiscoveryService(cfg *config.Config, logger *slog.Logger) *DiscoveryService {
	return &DiscoveryService{
		cfg:    cfg,
		logger: logger.With("service", "discovery"),
	}
}

// FindWebsites crawls from seedURL and returns up to maxSites distinct
// external domains. The seed's own domain is never returned.
func (s *DiscoveryService) FindWebsites(ctx context.Context, seedURL string, maxSites int) ([]DiscoveredSite, error) {
	seed, err := url.Parse(seedURL)
	if err != nil || seed.Host == "" {
		return nil, ErrInvalidURL
	}
	if maxSites <= 0 || maxSites > s.cfg.DiscoveryMaxSites {
		maxSites = s.cfg.DiscoveryMaxSites
	}

	seedDomain := strings.TrimPrefix(strings.ToLower(seed.Hostname()), "www.")

	c := colly.NewCollector(
		colly.MaxDepth(s.cfg.DiscoveryMaxDepth),
		colly.UserAgent(s.cfg.UserAgent),
		colly.Async(true),
	)
	c.SetRequestTimeout(s.cfg.CollectorTimeout)
	if err := c.Limit(&colly.LimitRule{DomainGlob: "*", Parallelism: 4}); err != nil {
		return nil, fmt.Errorf("failed to configure crawler: %w", err)
	}

	var (
		mu    sync.Mutex
		seen  = make(map[string]bool)
		sites []DiscoveredSite
	)

	c.OnHTML("a[href]", func(e *colly.HTMLElement) {
		select {
		case <-ctx.Done():
			return
		default:
		}

		link := e.Request.AbsoluteURL(e.Attr("href"))
		normalized, domain, err := NormalizeURL(link)
		if err != nil {
			return
		}

		if domain == seedDomain {
			// Stay on the seed site to find more listings.
			mu.Lock()
			full := len(sites) >= maxSites
			mu.Unlock()
			if !full && e.Request.Depth < s.cfg.DiscoveryMaxDepth {
				e.Request.Visit(link)
			}
			return
		}

		// External site: record its landing page, one entry per domain.
		origin, err := originOf(normalized)
		if err != nil {
			return
		}
		mu.Lock()
		defer mu.Unlock()
		if seen[domain] || len(sites) >= maxSites {
			return
		}
		seen[domain] = true
		sites = append(sites, DiscoveredSite{URL: origin, Domain: domain})
	})

	c.OnError(func(r *colly.Response, err error) {
		s.logger.Debug("discovery request failed", "url", r.Request.URL.String(), "error", err)
	})

	if err := c.Visit(seed.String()); err != nil {
		return nil, fmt.Errorf("failed to crawl seed: %w", err)
	}
	c.Wait()

	s.logger.Info("discovery finished", "seed", seedDomain, "found", len(sites))
	return sites, nil
}
