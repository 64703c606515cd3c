package gdstudio

import (
	"context"
	"strings"

	"ottermusic/searchservice/internal/domain"
)

var sourceLabels = map[domain.Source]string{
	domain.SourceJoox:     "JOOX",
	domain.SourceNetease:  "NetEase Cloud Music",
	domain.SourceKuwo:     "Kuwo",
	domain.SourceBilibili: "Bilibili",
}

// Provider exposes one backend source of a shared Client as a search provider.
type Provider struct {
	client *Client
	source domain.Source
	label  string
}

func NewProvider(client *Client, source domain.Source) *Provider {
	source = domain.NormalizeSource(string(source))
	label, ok := sourceLabels[source]
	if !ok {
		label = strings.ToUpper(string(source))
	}
	return &Provider{client: client, source: source, label: label}
}

func (p *Provider) Name() domain.Source {
	return p.source
}

func (p *Provider) Info() domain.SourceInfo {
	return domain.SourceInfo{
		Name:    p.source,
		Label:   p.label,
		Kind:    "music-api",
		Enabled: true,
	}
}

func (p *Provider) Search(ctx context.Context, request domain.ProviderRequest) (domain.ProviderPage, error) {
	count := domain.NormalizePageSize(request.PageSize)
	page := request.Page
	if page < 1 {
		page = 1
	}
	tracks, returned, err := p.client.SearchTracks(ctx, p.source, strings.TrimSpace(request.Query), page, count)
	if err != nil {
		return domain.ProviderPage{}, err
	}
	return domain.ProviderPage{
		Tracks:  tracks,
		HasMore: returned >= count,
	}, nil
}
