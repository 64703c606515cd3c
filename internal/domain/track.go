package domain

import "strings"

// Source identifies one independent music-search backend.
type Source string

const (
	SourceJoox     Source = "joox"
	SourceNetease  Source = "netease"
	SourceKuwo     Source = "kuwo"
	SourceBilibili Source = "bilibili"

	// SourceAll selects aggregated search over several sources.
	SourceAll Source = "all"
)

// KnownSources lists the backends the service ships adapters for.
func KnownSources() []Source {
	return []Source{SourceJoox, SourceNetease, SourceKuwo, SourceBilibili}
}

func NormalizeSource(raw string) Source {
	return Source(strings.ToLower(strings.TrimSpace(raw)))
}

func (s Source) String() string {
	return string(s)
}

// Track is a single search hit as returned by one source. ID is only unique
// within its source; the same recording from two sources yields two Tracks.
type Track struct {
	ID      string   `json:"id"`
	Name    string   `json:"name"`
	Artists []string `json:"artist"`
	Album   string   `json:"album,omitempty"`
	Source  Source   `json:"source"`
	PicID   string   `json:"pic_id,omitempty"`
	URLID   string   `json:"url_id,omitempty"`
	LyricID string   `json:"lyric_id,omitempty"`
}

// MergedTrack is a primary track plus the same recording as found on other
// sources. Variants never carry variants of their own.
type MergedTrack struct {
	Track
	Variants []Track `json:"variants,omitempty"`
}

func CloneTrack(track Track) Track {
	cloned := track
	cloned.Artists = append([]string(nil), track.Artists...)
	return cloned
}

func CloneMergedTracks(items []MergedTrack) []MergedTrack {
	if items == nil {
		return nil
	}
	out := make([]MergedTrack, len(items))
	for i, item := range items {
		out[i] = MergedTrack{Track: CloneTrack(item.Track)}
		if len(item.Variants) > 0 {
			out[i].Variants = make([]Track, len(item.Variants))
			for j, variant := range item.Variants {
				out[i].Variants[j] = CloneTrack(variant)
			}
		}
	}
	return out
}
