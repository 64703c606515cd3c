package domain

import "time"

const (
	DefaultPageSize = 20
	MaxPageSize     = 100
)

type SearchRequest struct {
	Query    string
	Source   Source
	Sources  []Source
	Page     int
	PageSize int
}

// ProviderRequest is what a single source adapter receives.
type ProviderRequest struct {
	Query    string
	Page     int
	PageSize int
}

type ProviderPage struct {
	Tracks  []Track
	HasMore bool
}

type SourceStatus struct {
	Source    Source `json:"source"`
	OK        bool   `json:"ok"`
	Count     int    `json:"count"`
	HasMore   bool   `json:"hasMore"`
	Cancelled bool   `json:"cancelled,omitempty"`
	Error     string `json:"error,omitempty"`
}

type SearchPage struct {
	Query     string         `json:"query"`
	Items     []MergedTrack  `json:"items"`
	HasMore   bool           `json:"hasMore"`
	Page      int            `json:"page"`
	PageSize  int            `json:"pageSize"`
	Sources   []SourceStatus `json:"sources"`
	Cancelled bool           `json:"cancelled,omitempty"`
	ElapsedMS int64          `json:"elapsedMs"`
}

// AllFailed reports whether every queried source failed, which lets callers
// tell "search failed" apart from "no results".
func (p SearchPage) AllFailed() bool {
	if len(p.Sources) == 0 {
		return false
	}
	for _, status := range p.Sources {
		if status.OK {
			return false
		}
	}
	return true
}

type SourceInfo struct {
	Name       Source  `json:"name"`
	Label      string  `json:"label"`
	Kind       string  `json:"kind"`
	Enabled    bool    `json:"enabled"`
	Priority   int     `json:"priority"`
	Weight     float64 `json:"weight"`
	Aggregated bool    `json:"aggregated"`
}

type SourceDiagnostics struct {
	Name                Source     `json:"name"`
	Label               string     `json:"label"`
	Enabled             bool       `json:"enabled"`
	DynamicScore        float64    `json:"dynamicScore"`
	PlaybackSuccess     int64      `json:"playbackSuccess"`
	PlaybackFail        int64      `json:"playbackFail"`
	ConsecutiveFailures int        `json:"consecutiveFailures"`
	BlockedUntil        *time.Time `json:"blockedUntil,omitempty"`
	LastError           string     `json:"lastError,omitempty"`
	LastSuccessAt       *time.Time `json:"lastSuccessAt,omitempty"`
	LastFailureAt       *time.Time `json:"lastFailureAt,omitempty"`
	LastLatencyMS       int64      `json:"lastLatencyMs,omitempty"`
	LastTimeout         bool       `json:"lastTimeout,omitempty"`
	LastQuery           string     `json:"lastQuery,omitempty"`
	TotalRequests       int64      `json:"totalRequests,omitempty"`
	TotalFailures       int64      `json:"totalFailures,omitempty"`
	TimeoutCount        int64      `json:"timeoutCount,omitempty"`
}

// NormalizePageSize clamps a requested page size into [1, MaxPageSize].
func NormalizePageSize(size int) int {
	if size <= 0 {
		return DefaultPageSize
	}
	if size > MaxPageSize {
		return MaxPageSize
	}
	return size
}
