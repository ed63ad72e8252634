// Package seo builds and serves the search-engine parity report: per-page
// impressions and clicks from Google, Bing and Naver, with Naver and Bing
// expressed as ratios of Google and flagged when they fall under the
// configured thresholds.
package seo

import (
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/admitai/admitai-korea/internal/config"
)

// Engine names a search engine in a parity row
type Engine string

const (
	EngineGoogle Engine = "google"
	EngineBing   Engine = "bing"
	EngineNaver  Engine = "naver"
)

// Threshold keys as stored in a snapshot's parityThresholds object.
const (
	NaverToGoogleImpressions = "naverToGoogleImpressions"
	NaverToGoogleClicks      = "naverToGoogleClicks"
	BingToGoogleImpressions  = "bingToGoogleImpressions"
	BingToGoogleClicks       = "bingToGoogleClicks"
)

// Windows are the reporting windows the dashboard labels the data with.
var Windows = []string{"7d", "28d"}

// ParseEngine validates an engine name, case-insensitively.
func ParseEngine(s string) (Engine, error) {
	switch e := Engine(strings.ToLower(strings.TrimSpace(s))); e {
	case EngineGoogle, EngineBing, EngineNaver:
		return e, nil
	default:
		return "", fmt.Errorf("unknown engine %q (must be google, bing or naver)", s)
	}
}

// Metrics are one engine's numbers for a page
type Metrics struct {
	Impressions int64   `json:"impressions"`
	Clicks      int64   `json:"clicks"`
	CTR         float64 `json:"ctr"`
}

// Page holds every engine's metrics for one path. An engine with no data is null.
type Page struct {
	Path   string   `json:"path"`
	Google *Metrics `json:"google"`
	Bing   *Metrics `json:"bing"`
	Naver  *Metrics `json:"naver"`
}

func (p *Page) set(engine Engine, m *Metrics) {
	switch engine {
	case EngineGoogle:
		p.Google = m
	case EngineBing:
		p.Bing = m
	case EngineNaver:
		p.Naver = m
	}
}

// Snapshot is the document persisted in object storage.
type Snapshot struct {
	GeneratedAt      time.Time          `json:"generatedAt"`
	Pages            []Page             `json:"pages"`
	ParityThresholds map[string]float64 `json:"parityThresholds"`
}

// Row is one ingested (path, engine) measurement
type Row struct {
	Path        string  `json:"path" binding:"required"`
	Engine      string  `json:"engine" binding:"required"`
	Impressions int64   `json:"impressions"`
	Clicks      int64   `json:"clicks"`
	CTR         float64 `json:"ctr"`
}

// DefaultThresholds returns the configured thresholds keyed the way snapshots store them.
func DefaultThresholds(cfg config.SEOConfig) map[string]float64 {
	return map[string]float64{
		NaverToGoogleImpressions: cfg.NaverToGoogleThreshold,
		NaverToGoogleClicks:      cfg.NaverToGoogleThreshold,
		BingToGoogleImpressions:  cfg.BingToGoogleThreshold,
		BingToGoogleClicks:       cfg.BingToGoogleThreshold,
	}
}

// BuildSnapshot groups rows by path, keeping the order in which paths first
// appear. A later row for the same path and engine replaces the earlier one.
func BuildSnapshot(rows []Row, thresholds map[string]float64, now time.Time) (*Snapshot, error) {
	snap := &Snapshot{
		GeneratedAt:      now.UTC(),
		Pages:            []Page{},
		ParityThresholds: thresholds,
	}
	index := make(map[string]int)

	for i, r := range rows {
		path := strings.TrimSpace(r.Path)
		if path == "" {
			return nil, fmt.Errorf("row %d: missing path", i+1)
		}
		engine, err := ParseEngine(r.Engine)
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", i+1, err)
		}
		if r.Impressions < 0 || r.Clicks < 0 {
			return nil, fmt.Errorf("row %d: impressions and clicks must not be negative", i+1)
		}

		pos, ok := index[path]
		if !ok {
			pos = len(snap.Pages)
			index[path] = pos
			snap.Pages = append(snap.Pages, Page{Path: path})
		}
		snap.Pages[pos].set(engine, &Metrics{Impressions: r.Impressions, Clicks: r.Clicks, CTR: r.CTR})
	}
	return snap, nil
}

// Ratio returns a/b rounded to two decimals, or 0 when b is 0.
func Ratio(a, b int64) float64 {
	if b == 0 {
		return 0
	}
	return math.Round(float64(a)/float64(b)*100) / 100
}

// PageReport is a page with its engine ratios and threshold flags.
type PageReport struct {
	Page
	NaverToGoogleImpressions float64 `json:"naverToGoogleImpressions"`
	NaverToGoogleClicks      float64 `json:"naverToGoogleClicks"`
	BingToGoogleImpressions  float64 `json:"bingToGoogleImpressions"`
	BingToGoogleClicks       float64 `json:"bingToGoogleClicks"`
	// BelowThreshold is keyed like parityThresholds. Only set when Google has
	// data for the compared metric.
	BelowThreshold map[string]bool `json:"belowThreshold"`
}

// Report is the GET /api/seo/parity payload
type Report struct {
	GeneratedAt      time.Time          `json:"generatedAt"`
	Windows          []string           `json:"windows"`
	Pages            []PageReport       `json:"pages"`
	ParityThresholds map[string]float64 `json:"parityThresholds"`
}

// EmptyReport is served when no snapshot can be read.
func EmptyReport(now time.Time) *Report {
	return &Report{
		GeneratedAt:      now.UTC(),
		Windows:          Windows,
		Pages:            []PageReport{},
		ParityThresholds: map[string]float64{},
	}
}

// BuildReport derives ratios and flags for every page of a snapshot.
func BuildReport(snap *Snapshot) *Report {
	thresholds := snap.ParityThresholds
	if thresholds == nil {
		thresholds = map[string]float64{}
	}
	rep := &Report{
		GeneratedAt:      snap.GeneratedAt,
		Windows:          Windows,
		Pages:            make([]PageReport, 0, len(snap.Pages)),
		ParityThresholds: thresholds,
	}

	for _, p := range snap.Pages {
		g, b, n := orZero(p.Google), orZero(p.Bing), orZero(p.Naver)
		pr := PageReport{
			Page:                     p,
			NaverToGoogleImpressions: Ratio(n.Impressions, g.Impressions),
			NaverToGoogleClicks:      Ratio(n.Clicks, g.Clicks),
			BingToGoogleImpressions:  Ratio(b.Impressions, g.Impressions),
			BingToGoogleClicks:       Ratio(b.Clicks, g.Clicks),
			BelowThreshold:           map[string]bool{},
		}
		ratios := map[string]struct {
			value float64
			base  int64
		}{
			NaverToGoogleImpressions: {pr.NaverToGoogleImpressions, g.Impressions},
			NaverToGoogleClicks:      {pr.NaverToGoogleClicks, g.Clicks},
			BingToGoogleImpressions:  {pr.BingToGoogleImpressions, g.Impressions},
			BingToGoogleClicks:       {pr.BingToGoogleClicks, g.Clicks},
		}
		for key, limit := range thresholds {
			r, ok := ratios[key]
			if !ok || r.base == 0 {
				continue
			}
			pr.BelowThreshold[key] = r.value < limit
		}
		rep.Pages = append(rep.Pages, pr)
	}
	return rep
}

func orZero(m *Metrics) Metrics {
	if m == nil {
		return Metrics{}
	}
	return *m
}
