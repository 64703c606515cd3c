package search

import (
	"strings"

	"ottermusic/searchservice/internal/domain"
	"ottermusic/searchservice/internal/musickey"
)

const (
	scoreExactName    = 100.0
	scoreNamePrefix   = 80.0
	scoreNameContains = 50.0
	scoreArtistMatch  = 40.0
	scorePerVariant   = 15.0
	maxVariantBonus   = 60.0
	nameLengthPenalty = 0.3

	// sourceRepeatPenalty is subtracted once per item already taken from the
	// same source during diversified selection.
	sourceRepeatPenalty = 10.0
)

// SourceTable holds the static per-source ranking configuration.
type SourceTable struct {
	Priority []domain.Source
	Weights  map[domain.Source]float64
}

func DefaultSourceTable() SourceTable {
	return SourceTable{
		Priority: []domain.Source{domain.SourceKuwo, domain.SourceJoox, domain.SourceNetease, domain.SourceBilibili},
		Weights: map[domain.Source]float64{
			domain.SourceKuwo:     30,
			domain.SourceJoox:     25,
			domain.SourceNetease:  20,
			domain.SourceBilibili: 15,
		},
	}
}

// Rank returns the position of source in the priority order. Unknown sources
// rank after every listed one.
func (t SourceTable) Rank(source domain.Source) int {
	for i, candidate := range t.Priority {
		if candidate == source {
			return i
		}
	}
	return len(t.Priority)
}

func (t SourceTable) Weight(source domain.Source) float64 {
	return t.Weights[source]
}

// QualityScorer supplies the learned per-source bonus.
type QualityScorer interface {
	DynamicScore(source domain.Source) float64
}

type rankedCluster struct {
	cluster
	score float64
}

// MergeAndRank deduplicates, clusters and orders tracks for query. scorer may
// be nil, in which case no learned bonus is applied.
func MergeAndRank(tracks []domain.Track, query string, table SourceTable, scorer QualityScorer) []domain.MergedTrack {
	if len(tracks) == 0 {
		return []domain.MergedTrack{}
	}
	clusters := table.clusterByArtist(table.dedupeExact(normalizeTracks(tracks)))
	ranked := table.rankClusters(clusters, musickey.Normalize(query), scorer)

	out := make([]domain.MergedTrack, 0, len(ranked))
	for _, item := range ranked {
		out = append(out, item.toMerged())
	}
	return out
}

// dedupeOnly applies the exact pass and keeps the order in which each
// recording first appeared.
func dedupeOnly(tracks []domain.Track, table SourceTable) []domain.MergedTrack {
	groups := table.dedupeExact(normalizeTracks(tracks))
	out := make([]domain.MergedTrack, 0, len(groups))
	for _, group := range groups {
		out = append(out, group.toMerged())
	}
	return out
}

func (c cluster) toMerged() domain.MergedTrack {
	merged := domain.MergedTrack{Track: domain.CloneTrack(c.primary.track)}
	if len(c.variants) > 0 {
		merged.Variants = make([]domain.Track, 0, len(c.variants))
		for _, variant := range c.variants {
			merged.Variants = append(merged.Variants, domain.CloneTrack(variant.track))
		}
	}
	return merged
}

func (t SourceTable) baseScore(c cluster, query string, scorer QualityScorer) float64 {
	source := c.primary.track.Source
	if query == "" {
		return t.Weight(source)
	}

	score := 0.0
	switch {
	case c.primary.name == query:
		score += scoreExactName
	case strings.HasPrefix(c.primary.name, query):
		score += scoreNamePrefix
	case strings.Contains(c.primary.name, query):
		score += scoreNameContains
	}
	if strings.Contains(c.primary.artistKey, query) {
		score += scoreArtistMatch
	}
	score += min(float64(len(c.variants))*scorePerVariant, maxVariantBonus)
	score += t.Weight(source)
	if scorer != nil {
		score += scorer.DynamicScore(source)
	}
	score -= float64(c.primary.nameLen) * nameLengthPenalty
	return score
}

// rankClusters greedily picks the cluster with the best score after the
// per-source repeat penalty. Quadratic in the number of clusters, which is
// bounded by a few result pages.
func (t SourceTable) rankClusters(clusters []cluster, query string, scorer QualityScorer) []rankedCluster {
	remaining := make([]rankedCluster, 0, len(clusters))
	for _, c := range clusters {
		remaining = append(remaining, rankedCluster{cluster: c, score: t.baseScore(c, query, scorer)})
	}

	chosen := make(map[domain.Source]int)
	out := make([]rankedCluster, 0, len(remaining))
	for len(remaining) > 0 {
		best := 0
		bestScore := remaining[0].score - sourceRepeatPenalty*float64(chosen[remaining[0].primary.track.Source])
		for i := 1; i < len(remaining); i++ {
			candidate := remaining[i]
			adjusted := candidate.score - sourceRepeatPenalty*float64(chosen[candidate.primary.track.Source])
			if adjusted > bestScore || (adjusted == bestScore && t.lessRanked(candidate, remaining[best])) {
				best = i
				bestScore = adjusted
			}
		}
		pick := remaining[best]
		out = append(out, pick)
		chosen[pick.primary.track.Source]++
		remaining = append(remaining[:best], remaining[best+1:]...)
	}
	return out
}

// lessRanked breaks score ties: source priority, display name length, then
// identity fields so equal inputs always produce the same order.
func (t SourceTable) lessRanked(a, b rankedCluster) bool {
	pa, pb := a.primary, b.primary
	if ra, rb := t.Rank(pa.track.Source), t.Rank(pb.track.Source); ra != rb {
		return ra < rb
	}
	if pa.nameLen != pb.nameLen {
		return pa.nameLen < pb.nameLen
	}
	if pa.exactKey != pb.exactKey {
		return pa.exactKey < pb.exactKey
	}
	if pa.track.Source != pb.track.Source {
		return pa.track.Source < pb.track.Source
	}
	return pa.track.ID < pb.track.ID
}
