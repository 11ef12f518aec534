package pipeline

// Stage is the externally visible state of a run.
type Stage string

const (
	StageIdle       Stage = "idle"
	StageValidating Stage = "validating"
	StageUploading  Stage = "uploading"
	StageAnalyzing  Stage = "analyzing"
	StageSaving     Stage = "saving"
	StageComplete   Stage = "complete"
	StageFailed     Stage = "failed"
)

// next lists the forward transition out of each non-terminal stage.
var next = map[Stage]Stage{
	StageIdle:       StageValidating,
	StageValidating: StageUploading,
	StageUploading:  StageAnalyzing,
	StageAnalyzing:  StageSaving,
	StageSaving:     StageComplete,
}

// Terminal reports whether no further transitions are possible from s.
func (s Stage) Terminal() bool {
	return s == StageComplete || s == StageFailed
}

// CanTransition reports whether from -> to is a legal move. Failed is
// reachable from every non-idle, non-terminal stage.
func CanTransition(from, to Stage) bool {
	if from.Terminal() {
		return false
	}
	if to == StageFailed {
		return from != StageIdle
	}
	return next[from] == to
}
