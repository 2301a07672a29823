package trip

import (
	"encoding/json"
	"strconv"
	"strings"
	"time"
)

// Traveler is one member of the trip. Name is unique within a trip.
type Traveler struct {
	Name               string   `json:"name"`
	Age                *float64 `json:"age,omitempty"`
	VoiceReferenceFile *string  `json:"voiceReferenceFile,omitempty"`
}

// Display renders "Alice (age 9)" or just the name when no age is known.
func (t Traveler) Display() string {
	if t.Age == nil {
		return t.Name
	}
	return t.Name + " (age " + strconv.FormatFloat(*t.Age, 'f', -1, 64) + ")"
}

// Trip is the immutable trip header.
type Trip struct {
	ID         string
	Name       string
	CreatedAt  string
	ExportedAt string
	Status     string
	Travelers  []Traveler
}

// StoryBeat is a narrative fragment clips can link to.
type StoryBeat struct {
	ID        string `json:"id"`
	Location  string `json:"location,omitempty"`
	Text      string `json:"text"`
	Starred   bool   `json:"starred"`
	CreatedAt string `json:"createdAt,omitempty"`
}

// Location is the optional geolocation of a clip.
type Location struct {
	Lat       *float64 `json:"lat,omitempty"`
	Lng       *float64 `json:"lng,omitempty"`
	PlaceName string   `json:"placeName,omitempty"`
	Accuracy  *float64 `json:"accuracy,omitempty"`
}

// Clip is one audio recording and the unit of enrichment work.
type Clip struct {
	ID               string            `json:"id"`
	Filename         string            `json:"filename"`
	RecordedAt       string            `json:"recordedAt,omitempty"`
	DurationSeconds  float64           `json:"durationSeconds,omitempty"`
	MimeType         string            `json:"mimeType,omitempty"`
	Location         *Location         `json:"location,omitempty"`
	Highlights       []json.RawMessage `json:"highlights,omitempty"`
	StoryBeatID      *string           `json:"storyBeatId,omitempty"`
	StoryBeatContext string            `json:"storyBeatContext,omitempty"`
}

// PlaceName returns the location's place name, or "".
func (c Clip) PlaceName() string {
	if c.Location == nil {
		return ""
	}
	return strings.TrimSpace(c.Location.PlaceName)
}

// LinkedStoryBeatID returns the referenced story beat id when one is set.
func (c Clip) LinkedStoryBeatID() (string, bool) {
	if c.StoryBeatID == nil {
		return "", false
	}
	id := strings.TrimSpace(*c.StoryBeatID)
	return id, id != ""
}

// Recorded parses RecordedAt. The second result is false when the field is
// missing or not RFC 3339.
func (c Clip) Recorded() (time.Time, bool) {
	value := strings.TrimSpace(c.RecordedAt)
	if value == "" {
		return time.Time{}, false
	}
	ts, err := time.Parse(time.RFC3339Nano, value)
	if err != nil {
		return time.Time{}, false
	}
	return ts, true
}
