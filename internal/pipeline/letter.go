package pipeline

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/spigell/applyflow/internal/ai"
	"github.com/spigell/applyflow/internal/database"
	"github.com/spigell/applyflow/internal/logger"
	"github.com/spigell/applyflow/internal/metrics"
	"github.com/spigell/applyflow/internal/notify"

	"go.uber.org/zap"
)

// Tone is the register of a generated cover letter.
type Tone string

const (
	ToneProfessional Tone = "professional"
	ToneEnthusiastic Tone = "enthusiastic"
	ToneFormal       Tone = "formal"
	ToneCasual       Tone = "casual"
)

// Tones lists the supported tones, default first.
var Tones = []Tone{ToneProfessional, ToneEnthusiastic, ToneFormal, ToneCasual}

// ParseTone maps user input to a Tone. Empty input selects professional.
func ParseTone(raw string) (Tone, error) {
	raw = strings.ToLower(strings.TrimSpace(raw))
	if raw == "" {
		return ToneProfessional, nil
	}
	for _, tone := range Tones {
		if string(tone) == raw {
			return tone, nil
		}
	}
	return "", fmt.Errorf("%w: unknown tone %q", ErrInvalidInput, raw)
}

// GenerateCoverLetter drafts a letter for the application and overwrites its
// cover letter field. Nothing else on the application changes, and a failed
// call leaves the record untouched.
func (p *Pipeline) GenerateCoverLetter(ctx context.Context, applicationID string, tone Tone) (letter string, err error) {
	done := metrics.TrackStage(string(StageLetter))
	defer func() {
		done(Outcome(err))
		err = stageError(StageLetter, err)
	}()

	tone, err = ParseTone(string(tone))
	if err != nil {
		return "", err
	}

	application, err := p.store.FindApplication(ctx, applicationID)
	if err != nil {
		return "", err
	}
	resume, err := p.store.FindResume(ctx, application.ResumeID)
	if err != nil {
		return "", err
	}
	posting, err := p.store.FindJobPosting(ctx, application.JobPostingID)
	if err != nil {
		return "", err
	}

	cred, err := p.credentials.Resolve(ctx, posting.ID)
	if err != nil {
		return "", err
	}

	log := logger.WithPipelineFields(p.logger, logger.PipelineRef{
		CorrelationID: logger.CorrelationID(ctx),
		Stage:         string(StageLetter),
		TenantID:      cred.TenantID,
		PostingID:     posting.ID,
		ResumeID:      resume.ID,
		ApplicationID: application.ID,
	})

	jobDescription, err := p.jobDescriptionText(ctx, log, cred, posting)
	if err != nil {
		if errors.Is(err, ai.ErrMalformedOutput) {
			return "", fmt.Errorf("%w: %w", ErrGenerationFailed, err)
		}
		return "", err
	}

	log.Info("generating cover letter", zap.String("tone", string(tone)))

	letter, err = p.completeText(ctx, log, ai.Request{
		Credential: cred,
		Prompt:     buildLetterPrompt(posting.Title, tone, resume.FullText, jobDescription),
	})
	if err != nil {
		if errors.Is(err, ai.ErrMalformedOutput) {
			return "", fmt.Errorf("%w: %w", ErrGenerationFailed, err)
		}
		return "", err
	}

	if err := p.store.UpdateCoverLetter(ctx, application.ID, letter); err != nil {
		return "", err
	}

	log.Info("cover letter generated", zap.Int("length", len([]rune(letter))))

	p.audit(ctx, log, database.AgentLog{
		TenantID:  cred.TenantID,
		AgentType: database.AgentCoverLetterGenerator,
		RawInput:  fmt.Sprintf("ApplicationID: %s, Tone: %s", application.ID, tone),
	}, map[string]string{"coverLetter": letter})

	p.publish(ctx, log, notify.Event{
		Type:          notify.EventLetterGenerated,
		ApplicationID: application.ID,
		PostingID:     posting.ID,
		CandidateID:   application.CandidateID,
		TenantID:      posting.TenantID,
		JobTitle:      posting.Title,
		Status:        string(application.Status),
		MatchScore:    application.MatchScore,
	})

	return letter, nil
}
