package domain

const (
	DefaultBitrate     = 192
	DefaultPictureSize = 800
)

// SongURL is a playable stream location for one track.
type SongURL struct {
	URL  string `json:"url"`
	BR   int    `json:"br,omitempty"`
	Size int64  `json:"size,omitempty"`
}

type Picture struct {
	URL string `json:"url"`
}

// Lyric holds LRC text and its optional translation.
type Lyric struct {
	Lyric  string `json:"lyric"`
	TLyric string `json:"tlyric,omitempty"`
}

// LookupKind names the reference data a track can be resolved to.
type LookupKind string

const (
	LookupURL     LookupKind = "url"
	LookupPicture LookupKind = "pic"
	LookupLyric   LookupKind = "lyric"
)
