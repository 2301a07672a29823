package trip

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// Clip analysis states written to analysisStatus.
const (
	StatusEnriched = "enriched"
	StatusDegraded = "degraded"
	StatusSkipped  = "skipped"
)

// Annotation is the enrichment attached to one clip in the output document.
type Annotation struct {
	Status    string
	Analysis  json.RawMessage
	Warnings  []string
	Error     string
	StoryBeat *StoryBeat
}

// Render produces the enriched manifest: the input document with each
// annotated clip carrying analysis, analysisStatus, analysisWarnings,
// analysisError and storyBeat. Clips without an annotation are left untouched.
// Output is two-space indented with object keys sorted, so equal inputs
// render byte-identically.
func (d *Document) Render(annotations map[string]Annotation) ([]byte, error) {
	clips := make([]map[string]json.RawMessage, 0, len(d.rawClips))
	for i, rawClip := range d.rawClips {
		out := make(map[string]json.RawMessage, len(rawClip)+5)
		for key, value := range rawClip {
			out[key] = value
		}
		note, ok := annotations[d.Clips[i].ID]
		if ok {
			if err := applyAnnotation(out, note); err != nil {
				return nil, fmt.Errorf("render clip %s: %w", d.Clips[i].ID, err)
			}
		}
		clips = append(clips, out)
	}

	top := make(map[string]json.RawMessage, len(d.raw))
	for key, value := range d.raw {
		top[key] = value
	}
	encodedClips, err := marshal(clips)
	if err != nil {
		return nil, fmt.Errorf("render clips: %w", err)
	}
	top["clips"] = encodedClips

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(top); err != nil {
		return nil, fmt.Errorf("render document: %w", err)
	}
	return buf.Bytes(), nil
}

func applyAnnotation(out map[string]json.RawMessage, note Annotation) error {
	analysis := note.Analysis
	if len(bytes.TrimSpace(analysis)) == 0 {
		analysis = json.RawMessage("null")
	}
	out["analysis"] = analysis

	status, err := marshal(note.Status)
	if err != nil {
		return err
	}
	out["analysisStatus"] = status

	delete(out, "analysisWarnings")
	if len(note.Warnings) > 0 {
		warnings, err := marshal(note.Warnings)
		if err != nil {
			return err
		}
		out["analysisWarnings"] = warnings
	}

	delete(out, "analysisError")
	if note.Error != "" {
		msg, err := marshal(note.Error)
		if err != nil {
			return err
		}
		out["analysisError"] = msg
	}

	beat := json.RawMessage("null")
	if note.StoryBeat != nil {
		if beat, err = marshal(note.StoryBeat); err != nil {
			return err
		}
	}
	out["storyBeat"] = beat
	return nil
}

func marshal(value any) (json.RawMessage, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(value); err != nil {
		return nil, err
	}
	return json.RawMessage(bytes.TrimSpace(buf.Bytes())), nil
}
