package apihttp

import (
	"context"
	"encoding/json"
	"net/http"
	"testing"
	"time"

	"ottermusic/searchservice/internal/domain"
	"ottermusic/searchservice/internal/quality"
	"ottermusic/searchservice/internal/search"
)

type staticProvider struct {
	source domain.Source
	tracks []domain.Track
}

func (p *staticProvider) Name() domain.Source { return p.source }

func (p *staticProvider) Info() domain.SourceInfo {
	return domain.SourceInfo{Name: p.source, Label: string(p.source), Kind: "static", Enabled: true}
}

func (p *staticProvider) Search(ctx context.Context, request domain.ProviderRequest) (domain.ProviderPage, error) {
	return domain.ProviderPage{Tracks: p.tracks, HasMore: len(p.tracks) >= request.PageSize}, nil
}

func newE2EHandler(t *testing.T) (http.Handler, *quality.Tracker) {
	t.Helper()
	joox := &staticProvider{source: domain.SourceJoox, tracks: []domain.Track{
		{ID: "j1", Name: "告白氣球", Artists: []string{"周杰倫"}, Source: domain.SourceJoox},
		{ID: "j2", Name: "晴天", Artists: []string{"周杰倫"}, Source: domain.SourceJoox},
	}}
	netease := &staticProvider{source: domain.SourceNetease, tracks: []domain.Track{
		{ID: "n1", Name: "告白气球", Artists: []string{"周杰伦"}, Source: domain.SourceNetease},
	}}
	tracker := quality.NewTracker(quality.WithStore(quality.NewMemoryStore()))
	service := search.NewService([]search.Provider{joox, netease}, 2*time.Second,
		search.WithQuality(tracker),
		search.WithAggregatedSources(domain.SourceJoox, domain.SourceNetease),
	)
	return NewServer(service, WithQuality(tracker)).Handler(), tracker
}

func TestE2EAggregatedSearchMergesVariants(t *testing.T) {
	handler, _ := newE2EHandler(t)

	rec := serve(handler, http.MethodGet, "/search?q=告白气球&source=all", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d %s", rec.Code, rec.Body.String())
	}
	var page domain.SearchPage
	if err := json.Unmarshal(rec.Body.Bytes(), &page); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if len(page.Items) != 2 {
		t.Fatalf("expected 2 merged items, got %d: %#v", len(page.Items), page.Items)
	}
	first := page.Items[0]
	if first.Source != domain.SourceJoox || first.ID != "j1" {
		t.Fatalf("expected joox primary for the merged cluster, got %s/%s", first.Source, first.ID)
	}
	if len(first.Variants) != 1 || first.Variants[0].Source != domain.SourceNetease {
		t.Fatalf("expected netease variant, got %#v", first.Variants)
	}
	if len(page.Sources) != 2 || !page.Sources[0].OK || !page.Sources[1].OK {
		t.Fatalf("unexpected statuses: %#v", page.Sources)
	}
}

func TestE2ESingleSourceKeepsProviderOrder(t *testing.T) {
	handler, _ := newE2EHandler(t)

	rec := serve(handler, http.MethodGet, "/search?q=周杰伦&source=joox", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var page domain.SearchPage
	if err := json.Unmarshal(rec.Body.Bytes(), &page); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if len(page.Items) != 2 || page.Items[0].ID != "j1" || page.Items[1].ID != "j2" {
		t.Fatalf("unexpected single-source items: %#v", page.Items)
	}

	rec = serve(handler, http.MethodGet, "/search?q=a&source=spotify", nil)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for unknown source, got %d", rec.Code)
	}
}

func TestE2EPlaybackEventsFeedQuality(t *testing.T) {
	handler, tracker := newE2EHandler(t)

	rec := serve(handler, http.MethodPost, "/quality/events", []byte(`{"source":"netease","outcome":"success"}`))
	if rec.Code != http.StatusAccepted {
		t.Fatalf("expected 202, got %d", rec.Code)
	}
	if tracker.DynamicScore(domain.SourceNetease) <= 0 {
		t.Fatal("expected a positive dynamic score after a successful playback")
	}
}
