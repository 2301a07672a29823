package voiceref

import (
	"encoding/base64"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"chronicle/internal/trip"
)

// LegacyReferenceFile is the single shared sample older exports carried at
// the trip root. It cannot be attributed to a traveler.
const LegacyReferenceFile = "voice_reference.webm"

// Reference is one traveler's loaded voice sample.
type Reference struct {
	Name string
	Path string
	Mime string
	Data []byte

	dataURL string
}

// DataURL returns the sample as a data: URL. Resolve encodes it once; a
// Reference built by hand is encoded on each call.
func (r Reference) DataURL() string {
	if r.dataURL != "" {
		return r.dataURL
	}
	return encodeDataURL(r.Mime, r.Data)
}

func encodeDataURL(mime string, data []byte) string {
	return "data:" + mime + ";base64," + base64.StdEncoding.EncodeToString(data)
}

// Set is the read-only mapping produced by Resolve. It is safe to share
// between clip workers.
type Set struct {
	refs     []Reference
	byName   map[string]Reference
	warnings []string
}

// Resolve reads every traveler's voice reference. Travelers without a
// reference, or whose file is missing or unreadable, are left out; those
// conditions are reported through Warnings.
func Resolve(doc *trip.Document) *Set {
	set := &Set{byName: map[string]Reference{}}
	if doc == nil {
		return set
	}
	for _, traveler := range doc.Trip.Travelers {
		path, has, err := doc.VoiceReferencePath(traveler)
		if !has {
			continue
		}
		if err != nil {
			set.warnings = append(set.warnings, fmt.Sprintf("voice reference for %s rejected: %v", traveler.Name, err))
			continue
		}
		data, err := os.ReadFile(path)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				set.warnings = append(set.warnings, fmt.Sprintf("voice reference for %s not found: %s", traveler.Name, path))
			} else {
				set.warnings = append(set.warnings, fmt.Sprintf("voice reference for %s unreadable: %v", traveler.Name, err))
			}
			continue
		}
		if len(data) == 0 {
			set.warnings = append(set.warnings, fmt.Sprintf("voice reference for %s is empty: %s", traveler.Name, path))
			continue
		}
		if _, dup := set.byName[traveler.Name]; dup {
			continue
		}
		mime := MimeType(path)
		ref := Reference{Name: traveler.Name, Path: path, Mime: mime, Data: data, dataURL: encodeDataURL(mime, data)}
		set.byName[traveler.Name] = ref
		set.refs = append(set.refs, ref)
	}
	if doc.Root != "" {
		if info, err := os.Stat(filepath.Join(doc.Root, LegacyReferenceFile)); err == nil && !info.IsDir() {
			set.warnings = append(set.warnings, fmt.Sprintf("%s found at the trip root; single shared references are not supported, re-export with per-traveler references", LegacyReferenceFile))
		}
	}
	return set
}

// References returns the loaded samples in traveler order.
func (s *Set) References() []Reference {
	if s == nil {
		return nil
	}
	return append([]Reference(nil), s.refs...)
}

// Lookup returns the sample for a traveler name.
func (s *Set) Lookup(name string) (Reference, bool) {
	if s == nil {
		return Reference{}, false
	}
	ref, ok := s.byName[name]
	return ref, ok
}

// Names lists travelers with a loaded sample, sorted.
func (s *Set) Names() []string {
	if s == nil {
		return nil
	}
	names := make([]string, 0, len(s.byName))
	for name := range s.byName {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Len reports how many samples were loaded.
func (s *Set) Len() int {
	if s == nil {
		return 0
	}
	return len(s.refs)
}

// Warnings lists references that were declared but could not be used.
func (s *Set) Warnings() []string {
	if s == nil {
		return nil
	}
	return append([]string(nil), s.warnings...)
}

var mimeTypes = map[string]string{
	".webm": "audio/webm",
	".mp3":  "audio/mpeg",
	".mp4":  "audio/mp4",
	".m4a":  "audio/mp4",
	".wav":  "audio/wav",
	".ogg":  "audio/ogg",
}

// MimeType maps an audio file extension to its MIME type, defaulting to audio/webm.
func MimeType(path string) string {
	if mime, ok := mimeTypes[strings.ToLower(filepath.Ext(path))]; ok {
		return mime
	}
	return "audio/webm"
}
