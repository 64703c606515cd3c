package search

import (
	"sort"
	"strings"
	"unicode/utf8"

	"ottermusic/searchservice/internal/domain"
	"ottermusic/searchservice/internal/musickey"
)

// normalizedTrack carries the comparison keys of one track for the duration
// of a single merge pass.
type normalizedTrack struct {
	track     domain.Track
	name      string
	artists   []string
	artistKey string
	exactKey  string
	nameLen   int
}

type cluster struct {
	primary  normalizedTrack
	variants []normalizedTrack
}

func normalizeTracks(tracks []domain.Track) []normalizedTrack {
	out := make([]normalizedTrack, 0, len(tracks))
	for _, track := range tracks {
		name := musickey.Normalize(track.Name)
		artists := musickey.NormalizeArtists(track.Artists)
		artistKey := strings.Join(artists, "/")
		out = append(out, normalizedTrack{
			track:     domain.CloneTrack(track),
			name:      name,
			artists:   artists,
			artistKey: artistKey,
			exactKey:  name + "|" + artistKey,
			nameLen:   utf8.RuneCountInString(track.Name),
		})
	}
	return out
}

// lessTrack orders candidates for the primary slot: shorter display name
// first, then source priority, then stable identity fields.
func (t SourceTable) lessTrack(a, b normalizedTrack) bool {
	if a.nameLen != b.nameLen {
		return a.nameLen < b.nameLen
	}
	if ra, rb := t.Rank(a.track.Source), t.Rank(b.track.Source); ra != rb {
		return ra < rb
	}
	if a.track.Source != b.track.Source {
		return a.track.Source < b.track.Source
	}
	if a.track.ID != b.track.ID {
		return a.track.ID < b.track.ID
	}
	return a.track.Name < b.track.Name
}

func (t SourceTable) newCluster(members []normalizedTrack) cluster {
	sorted := append([]normalizedTrack(nil), members...)
	sort.SliceStable(sorted, func(i, j int) bool {
		return t.lessTrack(sorted[i], sorted[j])
	})
	c := cluster{primary: sorted[0]}
	if len(sorted) > 1 {
		c.variants = sorted[1:]
	}
	return c
}

// dedupeExact collapses tracks with identical exact keys. Groups keep the
// order in which their first member appeared.
func (t SourceTable) dedupeExact(tracks []normalizedTrack) []cluster {
	order := make([]string, 0, len(tracks))
	groups := make(map[string][]normalizedTrack, len(tracks))
	for _, track := range tracks {
		if _, ok := groups[track.exactKey]; !ok {
			order = append(order, track.exactKey)
		}
		groups[track.exactKey] = append(groups[track.exactKey], track)
	}

	out := make([]cluster, 0, len(order))
	for _, key := range order {
		out = append(out, t.newCluster(groups[key]))
	}
	return out
}

// clusterByArtist merges exact groups that share a normalized name and at
// least one normalized artist, directly or through other groups. The result
// does not depend on input order.
func (t SourceTable) clusterByArtist(groups []cluster) []cluster {
	order := make([]string, 0, len(groups))
	byName := make(map[string][]int, len(groups))
	for i, group := range groups {
		name := group.primary.name
		if _, ok := byName[name]; !ok {
			order = append(order, name)
		}
		byName[name] = append(byName[name], i)
	}

	out := make([]cluster, 0, len(groups))
	for _, name := range order {
		indexes := byName[name]
		if len(indexes) == 1 {
			out = append(out, groups[indexes[0]])
			continue
		}

		sets := newDisjointSet(len(indexes))
		owner := make(map[string]int)
		for member, idx := range indexes {
			for _, artist := range groups[idx].primary.artists {
				if first, ok := owner[artist]; ok {
					sets.union(first, member)
					continue
				}
				owner[artist] = member
			}
		}

		components := make(map[int][]normalizedTrack, len(indexes))
		roots := make([]int, 0, len(indexes))
		for member, idx := range indexes {
			root := sets.find(member)
			if _, ok := components[root]; !ok {
				roots = append(roots, root)
			}
			components[root] = append(components[root], groups[idx].primary)
			components[root] = append(components[root], groups[idx].variants...)
		}
		for _, root := range roots {
			out = append(out, t.newCluster(components[root]))
		}
	}
	return out
}

type disjointSet struct {
	parent []int
}

func newDisjointSet(size int) *disjointSet {
	parent := make([]int, size)
	for i := range parent {
		parent[i] = i
	}
	return &disjointSet{parent: parent}
}

func (d *disjointSet) find(x int) int {
	for d.parent[x] != x {
		d.parent[x] = d.parent[d.parent[x]]
		x = d.parent[x]
	}
	return x
}

func (d *disjointSet) union(a, b int) {
	ra, rb := d.find(a), d.find(b)
	if ra == rb {
		return
	}
	if rb < ra {
		ra, rb = rb, ra
	}
	d.parent[rb] = ra
}
