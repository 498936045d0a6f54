package pipeline

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// Stage names one pipeline step.
type Stage string

const (
	StageExtract Stage = "extract"
	StageScore   Stage = "score"
	StageLetter  Stage = "letter"
)

// State is the progress of one application through the pipeline.
type State string

const (
	StateAwaitingResume  State = "AWAITING_RESUME"
	StateResumeExtracted State = "RESUME_EXTRACTED"
	StateScored          State = "SCORED"
	StateLetterGenerated State = "LETTER_GENERATED"
)

// Next returns the stage that moves s forward. A generated letter may be
// regenerated, so LETTER_GENERATED maps to the letter stage as well.
func (s State) Next() Stage {
	switch s {
	case StateAwaitingResume:
		return StageExtract
	case StateResumeExtracted:
		return StageScore
	case StateScored, StateLetterGenerated:
		return StageLetter
	default:
		return ""
	}
}

// Ref points at whatever ids a caller already holds.
type Ref struct {
	ResumeID      string
	PostingID     string
	ApplicationID string
}

// Progress is the resolved state together with the ids needed to resume.
type Progress struct {
	State         State  `json:"state"`
	Next          Stage  `json:"next_stage"`
	ResumeID      string `json:"resume_id,omitempty"`
	PostingID     string `json:"posting_id,omitempty"`
	ApplicationID string `json:"application_id,omitempty"`
}

// State derives the progress from persisted artifacts. It never runs a stage.
func (p *Pipeline) State(ctx context.Context, ref Ref) (*Progress, error) {
	ref.ResumeID = strings.TrimSpace(ref.ResumeID)
	ref.PostingID = strings.TrimSpace(ref.PostingID)
	ref.ApplicationID = strings.TrimSpace(ref.ApplicationID)

	if ref.ApplicationID != "" {
		application, err := p.store.FindApplication(ctx, ref.ApplicationID)
		if err != nil {
			return nil, err
		}
		state := StateScored
		if application.CoverLetter != nil && strings.TrimSpace(*application.CoverLetter) != "" {
			state = StateLetterGenerated
		}
		return &Progress{
			State:         state,
			Next:          state.Next(),
			ResumeID:      application.ResumeID,
			PostingID:     application.JobPostingID,
			ApplicationID: application.ID,
		}, nil
	}

	if ref.ResumeID == "" {
		return &Progress{State: StateAwaitingResume, Next: StageExtract, PostingID: ref.PostingID}, nil
	}

	resume, err := p.store.FindResume(ctx, ref.ResumeID)
	if err != nil {
		return nil, err
	}

	if ref.PostingID != "" {
		application, err := p.store.FindApplicationByResume(ctx, resume.ID, ref.PostingID)
		switch {
		case err == nil:
			return p.State(ctx, Ref{ApplicationID: application.ID})
		case !errors.Is(err, ErrNotFound):
			return nil, fmt.Errorf("looking up application: %w", err)
		}
	}

	return &Progress{
		State:     StateResumeExtracted,
		Next:      StageScore,
		ResumeID:  resume.ID,
		PostingID: ref.PostingID,
	}, nil
}
