package trip

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"chronicle/internal/services"
)

// MetadataFile is the manifest at the trip root.
const MetadataFile = "metadata.json"

// Document is a parsed metadata manifest. It keeps the raw JSON so unknown
// fields survive into the enriched output.
type Document struct {
	Root       string
	Trip       Trip
	Clips      []Clip
	StoryBeats []StoryBeat
	// Warnings lists data problems found while parsing (ignored story beats,
	// duplicate clip ids).
	Warnings []string

	beats    map[string]StoryBeat
	raw      map[string]json.RawMessage
	rawClips []map[string]json.RawMessage
}

// Load reads root/metadata.json.
func Load(root string) (*Document, error) {
	path := filepath.Join(root, MetadataFile)
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, services.Wrap(services.ErrNotFound, "trip", "read metadata", path, err)
	}
	doc, err := Parse(data)
	if err != nil {
		return nil, err
	}
	doc.Root = root
	return doc, nil
}

type tripHeader struct {
	ID         string          `json:"id"`
	Name       string          `json:"name"`
	CreatedAt  string          `json:"createdAt"`
	ExportedAt string          `json:"exportedAt"`
	Status     string          `json:"status"`
	Talent     []Traveler      `json:"talent"`
	StoryBeats json.RawMessage `json:"storyBeats"`
}

// Parse decodes a manifest. Both the current layout (trip.talent) and the
// legacy layout (top-level tripName/travelers) are accepted.
func Parse(data []byte) (*Document, error) {
	doc := &Document{beats: map[string]StoryBeat{}}
	if err := json.Unmarshal(data, &doc.raw); err != nil {
		return nil, services.Wrap(services.ErrValidation, "trip", "parse metadata", "", err)
	}
	if doc.raw == nil {
		return nil, services.Wrap(services.ErrValidation, "trip", "parse metadata", "manifest is not an object", nil)
	}

	var header tripHeader
	if rawTrip, ok := doc.raw["trip"]; ok && !isNull(rawTrip) {
		if err := json.Unmarshal(rawTrip, &header); err != nil {
			return nil, services.Wrap(services.ErrValidation, "trip", "parse trip", "", err)
		}
	}
	doc.Trip = Trip{
		ID:         header.ID,
		Name:       header.Name,
		CreatedAt:  header.CreatedAt,
		ExportedAt: header.ExportedAt,
		Status:     header.Status,
		Travelers:  header.Talent,
	}
	if doc.Trip.Name == "" {
		_ = decodeField(doc.raw, "tripName", &doc.Trip.Name)
	}
	if len(doc.Trip.Travelers) == 0 {
		if err := decodeField(doc.raw, "travelers", &doc.Trip.Travelers); err != nil {
			return nil, services.Wrap(services.ErrValidation, "trip", "parse travelers", "", err)
		}
	}
	travelers := doc.Trip.Travelers[:0]
	for _, traveler := range doc.Trip.Travelers {
		traveler.Name = strings.TrimSpace(traveler.Name)
		if traveler.Name == "" {
			doc.Warnings = append(doc.Warnings, "traveler without a name ignored")
			continue
		}
		travelers = append(travelers, traveler)
	}
	doc.Trip.Travelers = travelers

	beatsRaw := header.StoryBeats
	if top, ok := doc.raw["storyBeats"]; ok && !isNull(top) {
		beatsRaw = top
	}
	if len(beatsRaw) > 0 && !isNull(beatsRaw) {
		var beats []StoryBeat
		if err := json.Unmarshal(beatsRaw, &beats); err != nil {
			return nil, services.Wrap(services.ErrValidation, "trip", "parse story beats", "", err)
		}
		for _, beat := range beats {
			beat.ID = strings.TrimSpace(beat.ID)
			if beat.ID == "" {
				doc.Warnings = append(doc.Warnings, "story beat without an id ignored")
				continue
			}
			if _, dup := doc.beats[beat.ID]; dup {
				doc.Warnings = append(doc.Warnings, fmt.Sprintf("duplicate story beat id %q; first kept", beat.ID))
				continue
			}
			doc.beats[beat.ID] = beat
			doc.StoryBeats = append(doc.StoryBeats, beat)
		}
	}

	if err := decodeField(doc.raw, "clips", &doc.rawClips); err != nil {
		return nil, services.Wrap(services.ErrValidation, "trip", "parse clips", "", err)
	}
	seen := make(map[string]struct{}, len(doc.rawClips))
	for i, rawClip := range doc.rawClips {
		encoded, err := json.Marshal(rawClip)
		if err != nil {
			return nil, services.Wrap(services.ErrValidation, "trip", "parse clip", fmt.Sprintf("index %d", i), err)
		}
		var clip Clip
		if err := json.Unmarshal(encoded, &clip); err != nil {
			return nil, services.Wrap(services.ErrValidation, "trip", "parse clip", fmt.Sprintf("index %d", i), err)
		}
		clip.ID = strings.TrimSpace(clip.ID)
		if clip.ID == "" {
			clip.ID = fmt.Sprintf("clip_index_%03d", i+1)
			doc.Warnings = append(doc.Warnings, fmt.Sprintf("clip at index %d has no id; using %s", i, clip.ID))
		}
		if _, dup := seen[clip.ID]; dup {
			return nil, services.Wrap(services.ErrValidation, "trip", "parse clips", fmt.Sprintf("duplicate clip id %q", clip.ID), nil)
		}
		seen[clip.ID] = struct{}{}
		doc.Clips = append(doc.Clips, clip)
	}
	return doc, nil
}

// StoryBeat looks a story beat up by id.
func (d *Document) StoryBeat(id string) (StoryBeat, bool) {
	beat, ok := d.beats[strings.TrimSpace(id)]
	return beat, ok
}

// AudioPath resolves a clip's filename against the trip root. Filenames that
// escape the root are rejected.
func (d *Document) AudioPath(clip Clip) (string, error) {
	return d.resolve(clip.Filename)
}

// VoiceReferencePath resolves a traveler's voice reference file. The second
// result is false when the traveler has none.
func (d *Document) VoiceReferencePath(traveler Traveler) (string, bool, error) {
	if traveler.VoiceReferenceFile == nil || strings.TrimSpace(*traveler.VoiceReferenceFile) == "" {
		return "", false, nil
	}
	path, err := d.resolve(*traveler.VoiceReferenceFile)
	return path, true, err
}

func (d *Document) resolve(rel string) (string, error) {
	rel = strings.TrimSpace(rel)
	if rel == "" {
		return "", services.Wrap(services.ErrValidation, "trip", "resolve path", "empty filename", nil)
	}
	cleaned := filepath.Clean(filepath.FromSlash(rel))
	if filepath.IsAbs(cleaned) || cleaned == ".." || strings.HasPrefix(cleaned, ".."+string(filepath.Separator)) {
		return "", services.Wrap(services.ErrValidation, "trip", "resolve path", fmt.Sprintf("%q escapes the trip folder", rel), nil)
	}
	return filepath.Join(d.Root, cleaned), nil
}

func decodeField(raw map[string]json.RawMessage, key string, target any) error {
	value, ok := raw[key]
	if !ok || isNull(value) {
		return nil
	}
	return json.Unmarshal(value, target)
}

func isNull(raw json.RawMessage) bool {
	return len(bytes.TrimSpace(raw)) == 0 || bytes.Equal(bytes.TrimSpace(raw), []byte("null"))
}
