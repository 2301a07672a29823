package enrich

// ClipState tracks a clip through one enrichment pass.
type ClipState int

// Clip states in processing order.
const (
	StatePending ClipState = iota
	StateSpeechCalled
	StateSceneCalled
	StateMerged
	StateCheckpointed
)

func (s ClipState) String() string {
	switch s {
	case StatePending:
		return "PENDING"
	case StateSpeechCalled:
		return "SPEECH_CALLED"
	case StateSceneCalled:
		return "SCENE_CALLED"
	case StateMerged:
		return "MERGED"
	case StateCheckpointed:
		return "CHECKPOINTED"
	default:
		return "UNKNOWN"
	}
}
