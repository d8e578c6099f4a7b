// Package clock resolves the authoritative current time for the bot.
//
// The Provider asks a public world-time API for the time in the target zone,
// caches the answer for a minute, and falls back to the system clock when the
// API is slow or unreachable. It never returns an error.
package clock

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"
	_ "time/tzdata"

	"golang.org/x/sync/singleflight"

	"keuangan/internal/cache"
	"keuangan/internal/log"
)

const (
	DefaultBaseURL  = "https://timeapi.io/api/Time/current/zone"
	DefaultTimeout  = 5 * time.Second
	DefaultCacheTTL = time.Minute

	cacheKey = "now"
)

// Source is what consumers depend on.
type Source interface {
	Now(ctx context.Context) Info
}

type Provider struct {
	client    *http.Client
	baseURL   string
	zone      string
	loc       *time.Location
	timeout   time.Duration
	cache     *cache.LRUCache[Info]
	group     singleflight.Group
	systemNow func() time.Time
	logger    *log.Logger
}

type Option func(*Provider)

func WithHTTPClient(c *http.Client) Option { return func(p *Provider) { p.client = c } }
func WithBaseURL(u string) Option          { return func(p *Provider) { p.baseURL = u } }
func WithTimeout(d time.Duration) Option   { return func(p *Provider) { p.timeout = d } }
func WithLogger(l *log.Logger) Option      { return func(p *Provider) { p.logger = l } }

// WithSystemClock replaces time.Now for the fallback path and cache expiry.
func WithSystemClock(now func() time.Time) Option {
	return func(p *Provider) { p.systemNow = now }
}

var _ Source = (*Provider)(nil)

// New creates a Provider for zone (e.g. "Asia/Jakarta").
func New(zone string, opts ...Option) (*Provider, error) {
	if zone == "" {
		zone = DefaultZone
	}
	loc, err := time.LoadLocation(zone)
	if err != nil {
		return nil, fmt.Errorf("load location %q: %w", zone, err)
	}
	p := &Provider{
		client:    &http.Client{},
		baseURL:   DefaultBaseURL,
		zone:      zone,
		loc:       loc,
		timeout:   DefaultTimeout,
		systemNow: time.Now,
		logger:    log.FromContext(context.Background()).WithComponent(log.ComponentClock),
	}
	for _, opt := range opts {
		opt(p)
	}
	p.cache = cache.NewLRUCacheWithClock[Info](1, DefaultCacheTTL, p.systemNow)
	return p, nil
}

// Cache exposes the backing cache so a cache.Manager can sweep it.
func (p *Provider) Cache() *cache.LRUCache[Info] {
	return p.cache
}

// Now returns the current time info, from cache when fresh.
func (p *Provider) Now(ctx context.Context) Info {
	if info, ok := p.cache.Get(cacheKey); ok {
		return info
	}
	v, _, _ := p.group.Do(cacheKey, func() (any, error) {
		info, err := p.fetch(ctx)
		if err != nil {
			p.logger.WarnContext(ctx, "Time API unavailable, using system clock",
				log.FieldOperation, log.OpFetch,
				log.FieldError, err.Error())
			return p.fallback(), nil
		}
		p.cache.Set(cacheKey, info)
		return info, nil
	})
	return v.(Info)
}

// fallback converts the system clock into the target zone.
func (p *Provider) fallback() Info {
	return FromTime(p.systemNow().In(p.loc), true)
}

type apiResponse struct {
	Year     int    `json:"year"`
	Month    int    `json:"month"`
	Day      int    `json:"day"`
	Hour     int    `json:"hour"`
	Minute   int    `json:"minute"`
	Seconds  int    `json:"seconds"`
	TimeZone string `json:"timeZone"`
}

func (p *Provider) fetch(ctx context.Context) (Info, error) {
	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	u := p.baseURL + "?timeZone=" + url.QueryEscape(p.zone)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return Info{}, fmt.Errorf("build request: %w", err)
	}
	resp, err := p.client.Do(req)
	if err != nil {
		return Info{}, fmt.Errorf("get %s: %w", p.baseURL, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return Info{}, fmt.Errorf("time api status %d", resp.StatusCode)
	}

	var body apiResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return Info{}, fmt.Errorf("decode time api response: %w", err)
	}
	if body.Year == 0 || body.Month < 1 || body.Month > 12 || body.Day < 1 {
		return Info{}, fmt.Errorf("time api returned incomplete date %d-%d-%d", body.Year, body.Month, body.Day)
	}
	t := time.Date(body.Year, time.Month(body.Month), body.Day, body.Hour, body.Minute, body.Seconds, 0, p.loc)
	return FromTime(t, false), nil
}
