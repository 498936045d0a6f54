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

type skillEvidence struct {
	Skill    string `mapstructure:"skill"`
	Evidence string `mapstructure:"evidence"`
	Found    *bool  `mapstructure:"found"`
}

type scoreResponse struct {
	MustHave   []skillEvidence `mapstructure:"must_have"`
	NiceToHave []skillEvidence `mapstructure:"nice_to_have"`
	Score      *float64        `mapstructure:"score"`
	Reasoning  string          `mapstructure:"reasoning"`
	Feedback   string          `mapstructure:"feedback"`
}

func validateScoreResponse(resp *scoreResponse) error {
	for _, tier := range [][]skillEvidence{resp.MustHave, resp.NiceToHave} {
		for _, item := range tier {
			if strings.TrimSpace(item.Skill) != "" {
				return nil
			}
		}
	}
	return errors.New("rubric lists no skills")
}

// rubric gates every reported quote against the résumé text. The model's own
// score is advisory and only logged.
func (r *scoreResponse) rubric(resumeText string) Rubric {
	var rubric Rubric
	for _, item := range r.MustHave {
		rubric.MustHave = append(rubric.MustHave, NewSkillCheck(resumeText, item.Skill, item.Evidence, item.Found))
	}
	for _, item := range r.NiceToHave {
		rubric.NiceToHave = append(rubric.NiceToHave, NewSkillCheck(resumeText, item.Skill, item.Evidence, item.Found))
	}
	return rubric
}

// Score evaluates a résumé against a posting with the evidence-gated rubric and
// creates the Application. Nothing is stored when scoring fails.
func (p *Pipeline) Score(ctx context.Context, resumeID, postingID string) (application *database.Application, err error) {
	done := metrics.TrackStage(string(StageScore))
	defer func() {
		done(Outcome(err))
		err = stageError(StageScore, err)
	}()

	resume, err := p.store.FindResume(ctx, resumeID)
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(resume.FullText) == "" {
		return nil, fmt.Errorf("%w: resume %s has no text", ErrNotFound, resumeID)
	}

	posting, err := p.store.FindJobPosting(ctx, postingID)
	if err != nil {
		return nil, err
	}

	cred, err := p.credentials.Resolve(ctx, postingID)
	if err != nil {
		return nil, err
	}

	log := logger.WithPipelineFields(p.logger, logger.PipelineRef{
		CorrelationID: logger.CorrelationID(ctx),
		Stage:         string(StageScore),
		TenantID:      cred.TenantID,
		PostingID:     postingID,
		ResumeID:      resumeID,
	})

	jobDescription, err := p.jobDescriptionText(ctx, log, cred, posting)
	if err != nil {
		if errors.Is(err, ai.ErrMalformedOutput) {
			return nil, fmt.Errorf("%w: %w", ErrScoringFailed, err)
		}
		return nil, err
	}

	log.Info("scoring application", zap.Float64("threshold", float64(p.policy.Threshold)))

	resp, raw, err := completeStructured(ctx, p, log, ai.Request{
		Credential: cred,
		Prompt:     buildScorePrompt(resume.FullText, jobDescription),
	}, validateScoreResponse)
	if err != nil {
		if errors.Is(err, ai.ErrMalformedOutput) {
			return nil, fmt.Errorf("%w: %w", ErrScoringFailed, err)
		}
		return nil, err
	}

	rubric := resp.rubric(resume.FullText)
	score := rubric.Score()
	status := p.policy.StatusFor(score)

	application = &database.Application{
		JobPostingID:  posting.ID,
		ResumeID:      resume.ID,
		CandidateID:   resume.CandidateID,
		MatchScore:    score,
		MatchedSkills: rubric.Matched(),
		MissingSkills: rubric.Missing(),
		Reasoning:     strings.TrimSpace(resp.Reasoning),
		Feedback:      strings.TrimSpace(resp.Feedback),
		Status:        status,
		SubmittedAt:   p.now(),
	}

	if err := p.store.InsertApplication(ctx, application); err != nil {
		return nil, err
	}

	log = log.With(zap.String(logger.FieldApplicationID, application.ID))

	fields := []zap.Field{
		zap.Int("score", score),
		zap.String("status", string(status)),
		zap.Strings("matched", application.MatchedSkills),
		zap.Strings("missing", application.MissingSkills),
	}
	if resp.Score != nil {
		fields = append(fields, zap.Float64("model_score", *resp.Score))
	}
	log.Info("application scored", fields...)

	p.audit(ctx, log, database.AgentLog{
		TenantID:  cred.TenantID,
		AgentType: database.AgentSkillMatcher,
		RawInput:  fmt.Sprintf("ResumeID: %s, PostingID: %s", resumeID, postingID),
	}, raw.Structured)

	if status == database.StatusShortlisted {
		p.publish(ctx, log, notify.Event{
			Type:          notify.EventShortlisted,
			ApplicationID: application.ID,
			PostingID:     posting.ID,
			CandidateID:   application.CandidateID,
			TenantID:      posting.TenantID,
			JobTitle:      posting.Title,
			Status:        string(status),
			MatchScore:    score,
		})
	}

	return application, nil
}
