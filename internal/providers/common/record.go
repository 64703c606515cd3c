package common

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"unicode/utf8"

	"ottermusic/searchservice/internal/domain"
)

// FlexString accepts a JSON string, number or null.
type FlexString string

func (f *FlexString) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*f = ""
		return nil
	}
	if data[0] == '"' {
		var value string
		if err := json.Unmarshal(data, &value); err != nil {
			return err
		}
		*f = FlexString(strings.TrimSpace(value))
		return nil
	}
	var number json.Number
	if err := json.Unmarshal(data, &number); err != nil {
		return fmt.Errorf("expected string or number, got %s", Snippet(string(data), 64))
	}
	if n, err := number.Int64(); err == nil {
		*f = FlexString(strconv.FormatInt(n, 10))
		return nil
	}
	*f = FlexString(number.String())
	return nil
}

// FlexStrings accepts a single string or an array of strings and numbers.
type FlexStrings []string

func (f *FlexStrings) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*f = nil
		return nil
	}
	if data[0] != '[' {
		var single FlexString
		if err := single.UnmarshalJSON(data); err != nil {
			return err
		}
		*f = FlexStrings{string(single)}
		return nil
	}
	var items []FlexString
	if err := json.Unmarshal(data, &items); err != nil {
		return err
	}
	out := make(FlexStrings, 0, len(items))
	for _, item := range items {
		out = append(out, string(item))
	}
	*f = out
	return nil
}

// RawTrack is one search record as returned by a music API.
type RawTrack struct {
	ID      FlexString  `json:"id"`
	Name    string      `json:"name"`
	Artist  FlexStrings `json:"artist"`
	Album   string      `json:"album"`
	PicID   FlexString  `json:"pic_id"`
	URLID   FlexString  `json:"url_id"`
	LyricID FlexString  `json:"lyric_id"`
	Source  string      `json:"source"`
}

// ToTrack validates the record. Records without an id or a name are
// rejected; the requested source always wins over the one in the payload.
func (r RawTrack) ToTrack(source domain.Source) (domain.Track, bool) {
	id := strings.TrimSpace(string(r.ID))
	name := strings.TrimSpace(r.Name)
	if id == "" || name == "" {
		return domain.Track{}, false
	}
	artists := make([]string, 0, len(r.Artist))
	for _, artist := range r.Artist {
		if trimmed := strings.TrimSpace(artist); trimmed != "" {
			artists = append(artists, trimmed)
		}
	}
	return domain.Track{
		ID:      id,
		Name:    name,
		Artists: artists,
		Album:   strings.TrimSpace(r.Album),
		Source:  source,
		PicID:   string(r.PicID),
		URLID:   string(r.URLID),
		LyricID: string(r.LyricID),
	}, true
}

// DecodeTracks decodes a JSON array of records, skipping elements that do
// not decode or validate. It fails only when the payload is not an array.
func DecodeTracks(payload []byte, source domain.Source) ([]domain.Track, int, error) {
	var elements []json.RawMessage
	if err := json.Unmarshal(payload, &elements); err != nil {
		return nil, 0, fmt.Errorf("decode search payload: %w", err)
	}
	tracks := make([]domain.Track, 0, len(elements))
	skipped := 0
	for _, element := range elements {
		var raw RawTrack
		if err := json.Unmarshal(element, &raw); err != nil {
			skipped++
			continue
		}
		track, ok := raw.ToTrack(source)
		if !ok {
			skipped++
			continue
		}
		tracks = append(tracks, track)
	}
	return tracks, skipped, nil
}

// Snippet collapses whitespace in raw and keeps at most maxRunes runes of it,
// for error messages and logs.
func Snippet(raw string, maxRunes int) string {
	value := strings.Join(strings.Fields(raw), " ")
	if maxRunes <= 0 || utf8.RuneCountInString(value) <= maxRunes {
		return value
	}
	return string([]rune(value)[:maxRunes]) + "..."
}
