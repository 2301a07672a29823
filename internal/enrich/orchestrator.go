package enrich

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"chronicle/internal/analysis"
	"chronicle/internal/checkpoint"
	"chronicle/internal/logging"
	"chronicle/internal/services"
	"chronicle/internal/trip"
	"chronicle/internal/voiceref"
)

// Dependencies are the collaborators of an Orchestrator. Analyzers are only
// required for the calls Options enables.
type Dependencies struct {
	Speech     analysis.SpeechAnalyzer
	Scene      analysis.SceneAnalyzer
	Summarizer *analysis.Summarizer
	Observer   Observer
	Logger     *slog.Logger
}

// Orchestrator enriches every clip of a trip document.
type Orchestrator struct {
	opts       Options
	speech     analysis.SpeechAnalyzer
	scene      analysis.SceneAnalyzer
	summarizer *analysis.Summarizer
	observer   Observer
	logger     *slog.Logger
	sleep      sleeper
}

// ClipOutcome describes what happened to one clip during this run.
type ClipOutcome struct {
	ClipID   string
	State    ClipState
	Status   string
	Analysis *analysis.Analysis
	Warnings []string
	Err      error
	Duration time.Duration
}

// Result is the outcome of a batch.
type Result struct {
	// Annotations holds one entry per checkpointed clip, including clips
	// restored from an earlier run.
	Annotations     map[string]trip.Annotation
	Outcomes        []ClipOutcome
	Summary         Summary
	VoiceReferences *voiceref.Set
	// Resumed counts clips taken from the Progress State without processing.
	Resumed int
	// Interrupted counts clips abandoned because the batch was cancelled.
	Interrupted int
}

// New validates the dependencies against opts.
func New(opts Options, deps Dependencies) (*Orchestrator, error) {
	if !opts.SpeechEnabled && !opts.SceneEnabled {
		return nil, services.Wrap(services.ErrConfiguration, "enrich", "new", "no analyzer enabled", nil)
	}
	if opts.SpeechEnabled && deps.Speech == nil {
		return nil, services.Wrap(services.ErrConfiguration, "enrich", "new", "speech analyzer enabled but not configured", nil)
	}
	if opts.SceneEnabled && deps.Scene == nil {
		return nil, services.Wrap(services.ErrConfiguration, "enrich", "new", "scene analyzer enabled but not configured", nil)
	}
	if opts.Workers < 1 {
		opts.Workers = 1
	}
	observer := deps.Observer
	if observer == nil {
		observer = nopObserver{}
	}
	return &Orchestrator{
		opts:       opts,
		speech:     deps.Speech,
		scene:      deps.Scene,
		summarizer: deps.Summarizer,
		observer:   observer,
		logger:     logging.NewComponentLogger(deps.Logger, "enrich"),
		sleep:      sleepContext,
	}, nil
}

// batch is the state shared by the workers of one Run. Every field below mu
// is written only while holding it.
type batch struct {
	doc      *trip.Document
	refs     *voiceref.Set
	progress Progress
	pending  int

	mu          sync.Mutex
	result      *Result
	tracker     *logging.BatchProgress
	interrupted int
}

// Run enriches every clip of doc not yet present in progress. Voice
// references are resolved once before any analyzer call. Each finished clip
// is appended to progress before it counts as done; clips abandoned because
// ctx was cancelled are not recorded, so a later run retries them.
//
// The returned Result is populated even when an error is returned. Errors are
// either ErrFatal (progress could not be written) or the context error.
func (o *Orchestrator) Run(ctx context.Context, doc *trip.Document, progress Progress) (*Result, error) {
	if doc == nil {
		return nil, services.Wrap(services.ErrValidation, "enrich", "run", "no trip document", nil)
	}
	if progress == nil {
		progress = NewMemoryProgress()
	}
	logger := logging.WithContext(ctx, o.logger)

	refs := voiceref.Resolve(doc)
	o.logVoiceReferences(logger, refs)
	for _, warning := range doc.Warnings {
		logging.WarnWithContext(logger, "trip metadata warning", "metadata_warning",
			logging.String("detail", warning),
			logging.String(logging.FieldErrorHint, "check the trip export"),
			logging.String(logging.FieldImpact, "affected entries ignored"),
		)
	}

	result := &Result{
		Annotations:     make(map[string]trip.Annotation, len(doc.Clips)),
		VoiceReferences: refs,
	}
	completed := progress.Completed()
	pending := make([]trip.Clip, 0, len(doc.Clips))
	for _, clip := range doc.Clips {
		rec, ok := completed[clip.ID]
		if !ok {
			pending = append(pending, clip)
			continue
		}
		note, err := annotationFromRecord(rec)
		if err != nil {
			logging.WarnWithContext(logger, "checkpoint record unreadable; clip will be processed again", "checkpoint_record_invalid",
				logging.String(logging.FieldClipID, clip.ID),
				logging.Error(err),
				logging.String(logging.FieldErrorHint, "the stored result is ignored"),
				logging.String(logging.FieldImpact, "clip is re-analyzed"),
			)
			pending = append(pending, clip)
			continue
		}
		result.Annotations[clip.ID] = note
		result.Resumed++
	}

	logger.Info("enrichment started",
		logging.Int("clips", len(doc.Clips)),
		logging.Int("resumed", result.Resumed),
		logging.Int("pending", len(pending)),
		logging.Int("workers", o.opts.Workers),
		logging.Int("voice_references", refs.Len()),
	)

	b := &batch{
		doc:      doc,
		refs:     refs,
		progress: progress,
		pending:  len(pending),
		result:   result,
		tracker:  logging.NewBatchProgress(len(pending), 10),
	}

	group, groupCtx := errgroup.WithContext(ctx)
	group.SetLimit(o.opts.Workers)
	for _, clip := range pending {
		if groupCtx.Err() != nil {
			break
		}
		group.Go(func() error {
			return o.processClip(groupCtx, b, clip)
		})
	}
	runErr := group.Wait()

	order := make(map[string]int, len(doc.Clips))
	for i, clip := range doc.Clips {
		order[clip.ID] = i
	}
	sort.SliceStable(result.Outcomes, func(i, j int) bool {
		return order[result.Outcomes[i].ClipID] < order[result.Outcomes[j].ClipID]
	})
	result.Interrupted = b.interrupted
	result.Summary = Summarize(doc, result.Annotations, refs)

	if runErr != nil {
		logging.ErrorWithContext(logger, "enrichment aborted", "batch_fatal",
			logging.Error(runErr),
			logging.Int("checkpointed", len(result.Annotations)),
		)
		return result, runErr
	}
	if err := ctx.Err(); err != nil {
		logger.Info("enrichment interrupted",
			logging.Int("checkpointed", len(result.Annotations)),
			logging.Int("remaining", result.Summary.Pending),
		)
		return result, err
	}
	logger.Info("enrichment finished",
		logging.Int("attempted", result.Summary.Attempted),
		logging.Int("enriched", result.Summary.Enriched),
		logging.Int("degraded", result.Summary.Degraded),
		logging.Int("skipped", result.Summary.Skipped),
	)
	return result, nil
}

func (o *Orchestrator) logVoiceReferences(logger *slog.Logger, refs *voiceref.Set) {
	for _, warning := range refs.Warnings() {
		logging.WarnWithContext(logger, "voice reference unavailable", "voice_reference_missing",
			logging.String("detail", warning),
			logging.String(logging.FieldErrorHint, "re-export the trip with voice samples"),
			logging.String(logging.FieldImpact, "speaker names may fall back to generic labels"),
		)
	}
	if !o.opts.SpeechEnabled {
		return
	}
	if refs.Len() == 0 {
		logging.WarnWithContext(logger, "no voice references (speaker ID may be less accurate)", "voice_references_absent",
			logging.String(logging.FieldErrorHint, "record voice samples for travelers in the app"),
			logging.String(logging.FieldImpact, "speakers labeled generically"),
		)
		return
	}
	logger.Info("voice references loaded", logging.Strings("travelers", refs.Names()))
}

// processClip walks one clip through the state machine. Only a failure to
// record progress is returned.
func (o *Orchestrator) processClip(ctx context.Context, b *batch, clip trip.Clip) error {
	started := time.Now()
	ctx = services.WithClipID(ctx, clip.ID)
	logger := logging.WithContext(ctx, o.logger)
	outcome := ClipOutcome{ClipID: clip.ID, State: StatePending}
	if ctx.Err() != nil {
		b.mu.Lock()
		b.interrupted++
		b.result.Outcomes = append(b.result.Outcomes, outcome)
		b.mu.Unlock()
		return nil
	}

	var warnings []string
	beat, beatText, starred := resolveStoryBeat(b.doc, clip)
	if id, linked := clip.LinkedStoryBeatID(); linked && beat == nil {
		warnings = append(warnings, fmt.Sprintf("story beat %q not found", id))
		logging.WarnWithContext(logger, "story beat reference not found", "story_beat_missing",
			logging.String("story_beat_id", id),
			logging.String(logging.FieldErrorHint, "the export references a story beat it does not contain"),
			logging.String(logging.FieldImpact, "clip analyzed without story context"),
		)
	}

	audioPath, err := checkAudio(b.doc, clip)
	if err != nil {
		logging.WarnWithContext(logger, "clip skipped", "clip_skipped",
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "check the clip file in the export"),
			logging.String(logging.FieldImpact, "clip has no analysis"),
		)
		rec, encErr := buildRecord(clip.ID, trip.StatusSkipped, nil, beat, warnings, err.Error())
		if encErr != nil {
			return services.Wrap(services.ErrFatal, "enrich", "encode record", clip.ID, encErr)
		}
		outcome.Status = trip.StatusSkipped
		outcome.Warnings = warnings
		outcome.Err = err
		return o.commit(ctx, b, rec, outcome, started)
	}

	speech, scene := o.callAnalyzers(ctx, b, clip, audioPath, beatText, starred, &outcome)
	if ctx.Err() != nil && (speech.Err != nil || scene.Err != nil) {
		logger.Info("clip interrupted; left for the next run", logging.String("state", outcome.State.String()))
		b.mu.Lock()
		b.interrupted++
		b.result.Outcomes = append(b.result.Outcomes, outcome)
		b.mu.Unlock()
		return nil
	}

	merged := Merge(o.opts.mergePolicy(b.doc.Trip.Travelers), speech, scene)
	outcome.State = StateMerged
	if speech.Err != nil {
		warnings = append(warnings, "speech analysis failed: "+speech.Err.Error())
	}
	if scene.Err != nil {
		warnings = append(warnings, "scene analysis failed: "+scene.Err.Error())
	}
	status := clipStatus(o.opts, speech, scene)

	rec, err := buildRecord(clip.ID, status, &merged, beat, warnings, "")
	if err != nil {
		return services.Wrap(services.ErrFatal, "enrich", "encode record", clip.ID, err)
	}
	outcome.Status = status
	outcome.Analysis = &merged
	outcome.Warnings = warnings
	outcome.Err = errors.Join(speech.Err, scene.Err)
	return o.commit(ctx, b, rec, outcome, started)
}

func (o *Orchestrator) callAnalyzers(ctx context.Context, b *batch, clip trip.Clip, audioPath, beatText string, starred bool, outcome *ClipOutcome) (SpeechOutcome, SceneOutcome) {
	var (
		speech SpeechOutcome
		scene  SceneOutcome
	)
	runSpeech := func() {
		if o.opts.SpeechEnabled {
			speech = o.callSpeech(ctx, analysis.SpeechRequest{
				ClipID:    clip.ID,
				AudioPath: audioPath,
				Speakers:  b.refs.References(),
			})
		}
	}
	runScene := func() {
		if o.opts.SceneEnabled {
			clipCtx := o.clipContext(ctx, b.doc, clip, beatText, starred)
			scene = o.callScene(ctx, analysis.SceneRequest{
				ClipID:    clip.ID,
				AudioPath: audioPath,
				Context:   clipCtx,
				Speakers:  b.refs.References(),
			})
		}
	}

	if o.opts.ParallelCalls && o.opts.SpeechEnabled && o.opts.SceneEnabled {
		var calls errgroup.Group
		calls.Go(func() error { runSpeech(); return nil })
		calls.Go(func() error { runScene(); return nil })
		_ = calls.Wait()
		outcome.State = StateSceneCalled
		return speech, scene
	}

	runSpeech()
	outcome.State = StateSpeechCalled
	if ctx.Err() != nil && speech.Err != nil {
		return speech, scene
	}
	runScene()
	outcome.State = StateSceneCalled
	return speech, scene
}

func (o *Orchestrator) callSpeech(ctx context.Context, req analysis.SpeechRequest) SpeechOutcome {
	ctx = services.WithAnalyzer(ctx, o.speech.Name())
	ctx = services.WithRequestID(ctx, uuid.NewString())
	started := time.Now()
	lines, attempts, err := withRetry(ctx, o.opts.Retry, o.sleep, func(callCtx context.Context) ([]analysis.Utterance, error) {
		return o.speech.Transcribe(callCtx, req)
	})
	o.observer.ObserveCall(o.speech.Name(), callOutcome(err), attempts, time.Since(started))
	if err != nil && ctx.Err() == nil {
		logging.WarnWithContext(logging.WithContext(ctx, o.logger), "speech analysis failed", "analyzer_soft_failure",
			logging.Error(err),
			logging.Int("attempts", attempts),
			logging.String(logging.FieldErrorHint, "check speech provider status and api key"),
			logging.String(logging.FieldImpact, "clip has no speech transcript"),
		)
	}
	return SpeechOutcome{Ran: true, Transcript: lines, Err: err, Attempts: attempts}
}

func (o *Orchestrator) callScene(ctx context.Context, req analysis.SceneRequest) SceneOutcome {
	ctx = services.WithAnalyzer(ctx, o.scene.Name())
	ctx = services.WithRequestID(ctx, uuid.NewString())
	started := time.Now()
	res, attempts, err := withRetry(ctx, o.opts.Retry, o.sleep, func(callCtx context.Context) (analysis.SceneResult, error) {
		return o.scene.Analyze(callCtx, req)
	})
	o.observer.ObserveCall(o.scene.Name(), callOutcome(err), attempts, time.Since(started))
	if err != nil && ctx.Err() == nil {
		logging.WarnWithContext(logging.WithContext(ctx, o.logger), "scene analysis failed", "analyzer_soft_failure",
			logging.Error(err),
			logging.Int("attempts", attempts),
			logging.String(logging.FieldErrorHint, "check scene model availability and api key"),
			logging.String(logging.FieldImpact, "audio type, events, description and tone are null"),
		)
	}
	return SceneOutcome{Ran: true, Result: res, Err: err, Attempts: attempts}
}

func (o *Orchestrator) clipContext(ctx context.Context, doc *trip.Document, clip trip.Clip, beatText string, starred bool) analysis.ClipContext {
	clipCtx := analysis.ClipContext{
		Travelers:        doc.Trip.Travelers,
		PlaceName:        clip.PlaceName(),
		StoryBeatText:    beatText,
		StoryBeatStarred: starred,
	}
	if recorded, ok := clip.Recorded(); ok {
		clipCtx.RecordedAt = recorded
	}
	if beatText == "" || o.summarizer == nil {
		return clipCtx
	}
	key := clip.StoryBeatContext
	if id, linked := clip.LinkedStoryBeatID(); linked {
		key = id
	}
	summary, err := o.summarizer.Summarize(ctx, key, beatText)
	if err != nil && ctx.Err() == nil {
		logging.WarnWithContext(logging.WithContext(ctx, o.logger), "story beat summary failed; using full text", "story_beat_summary_failed",
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "check scene api availability"),
			logging.String(logging.FieldImpact, "longer prompt context"),
		)
	}
	clipCtx.StoryBeatText = summary
	return clipCtx
}

// commit appends rec to the Progress State and publishes the clip's result.
// The write is not cancelled with ctx so an interrupt still flushes the
// clip that just finished.
func (o *Orchestrator) commit(ctx context.Context, b *batch, rec checkpoint.Record, outcome ClipOutcome, started time.Time) error {
	note, err := annotationFromRecord(rec)
	if err != nil {
		return services.Wrap(services.ErrFatal, "enrich", "decode record", rec.ClipID, err)
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	if err := b.progress.Append(context.WithoutCancel(ctx), rec); err != nil {
		return services.Wrap(services.ErrFatal, "enrich", "checkpoint", "clip "+rec.ClipID, err)
	}
	outcome.State = StateCheckpointed
	outcome.Duration = time.Since(started)
	b.result.Annotations[rec.ClipID] = note
	b.result.Outcomes = append(b.result.Outcomes, outcome)
	o.observer.ObserveClip(rec.Status, outcome.Duration)

	logger := logging.WithContext(ctx, o.logger)
	logger.Debug("clip checkpointed",
		logging.String("status", rec.Status),
		logging.Duration("elapsed", outcome.Duration),
	)
	if done, percent, emit := b.tracker.Advance(rec.Status == trip.StatusEnriched); emit {
		logger.Info("enrichment progress",
			logging.Int("done", done),
			logging.Int("total", b.pending),
			logging.String("percent", fmt.Sprintf("%.0f%%", percent)),
		)
	}
	return nil
}

// resolveStoryBeat returns the linked story beat (nil on a miss or when the
// clip has no id) and the text and star flag to use as scene context. Clips
// without an id fall back to their legacy free-text context.
func resolveStoryBeat(doc *trip.Document, clip trip.Clip) (*trip.StoryBeat, string, bool) {
	id, linked := clip.LinkedStoryBeatID()
	if !linked {
		return nil, strings.TrimSpace(clip.StoryBeatContext), false
	}
	beat, ok := doc.StoryBeat(id)
	if !ok {
		return nil, strings.TrimSpace(clip.StoryBeatContext), false
	}
	return &beat, strings.TrimSpace(beat.Text), beat.Starred
}

// checkAudio returns the clip's audio path when the file exists, is a
// non-empty regular file and can be read.
func checkAudio(doc *trip.Document, clip trip.Clip) (string, error) {
	path, err := doc.AudioPath(clip)
	if err != nil {
		return "", clipUnreadable("clip %s: %v", clip.ID, err)
	}
	info, err := os.Stat(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return path, clipUnreadable("audio file %s not found", clip.Filename)
		}
		return path, clipUnreadable("stat %s: %v", clip.Filename, err)
	}
	if !info.Mode().IsRegular() {
		return path, clipUnreadable("audio file %s is not a regular file", clip.Filename)
	}
	if info.Size() == 0 {
		return path, clipUnreadable("audio file %s is empty", clip.Filename)
	}
	f, err := os.Open(path)
	if err != nil {
		return path, clipUnreadable("open %s: %v", clip.Filename, err)
	}
	defer f.Close()
	if _, err := f.Read(make([]byte, 1)); err != nil && !errors.Is(err, io.EOF) {
		return path, clipUnreadable("read %s: %v", clip.Filename, err)
	}
	return path, nil
}

// buildRecord encodes a clip result exactly as it will be rendered, so a
// resumed run reproduces the same bytes.
func buildRecord(clipID, status string, result *analysis.Analysis, beat *trip.StoryBeat, warnings []string, errMsg string) (checkpoint.Record, error) {
	rec := checkpoint.Record{
		ClipID:   clipID,
		Status:   status,
		Warnings: append([]string(nil), warnings...),
		Error:    errMsg,
	}
	if result != nil {
		raw, err := encodeRaw(result)
		if err != nil {
			return rec, fmt.Errorf("encode analysis: %w", err)
		}
		rec.Analysis = raw
	}
	if beat != nil {
		raw, err := encodeRaw(beat)
		if err != nil {
			return rec, fmt.Errorf("encode story beat: %w", err)
		}
		rec.StoryBeat = raw
	}
	return rec, nil
}

func annotationFromRecord(rec checkpoint.Record) (trip.Annotation, error) {
	note := trip.Annotation{
		Status:   rec.Status,
		Analysis: rec.Analysis,
		Warnings: rec.Warnings,
		Error:    rec.Error,
	}
	if raw := bytes.TrimSpace(rec.StoryBeat); len(raw) > 0 && !bytes.Equal(raw, []byte("null")) {
		var beat trip.StoryBeat
		if err := json.Unmarshal(raw, &beat); err != nil {
			return note, fmt.Errorf("decode story beat for %s: %w", rec.ClipID, err)
		}
		note.StoryBeat = &beat
	}
	switch rec.Status {
	case trip.StatusEnriched, trip.StatusDegraded, trip.StatusSkipped:
	default:
		return note, fmt.Errorf("clip %s has unknown status %q", rec.ClipID, rec.Status)
	}
	return note, nil
}

func encodeRaw(value any) (json.RawMessage, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(value); err != nil {
		return nil, err
	}
	return json.RawMessage(bytes.TrimSpace(buf.Bytes())), nil
}
