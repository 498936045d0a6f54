package pipeline

import (
	"context"
	"errors"
	"fmt"
	"mime"
	"strings"

	"github.com/spigell/applyflow/internal/ai"
	"github.com/spigell/applyflow/internal/database"
	"github.com/spigell/applyflow/internal/logger"
	"github.com/spigell/applyflow/internal/metrics"
	"github.com/spigell/applyflow/internal/storage"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

const (
	maxSkills     = 15
	maxStrengths  = 4
	maxWeaknesses = 3

	resumePrefix = "resumes"
)

// SupportedResumeTypes are the MIME types accepted for résumé uploads.
var SupportedResumeTypes = []string{
	"application/pdf",
	"application/msword",
	"application/vnd.openxmlformats-officedocument.wordprocessingml.document",
	"text/plain",
	"image/png",
	"image/jpeg",
}

// FileBlob is an uploaded file.
type FileBlob struct {
	Name     string
	MIMEType string
	Data     []byte
}

type extraction struct {
	FullText   string   `mapstructure:"fullText"`
	Summary    string   `mapstructure:"summary"`
	Skills     []string `mapstructure:"skills"`
	Strengths  []string `mapstructure:"strengths"`
	Weaknesses []string `mapstructure:"weaknesses"`
}

// Extract transcribes and analyses a résumé file and stores exactly one
// ResumeArtifact on success. Nothing is stored on failure.
func (p *Pipeline) Extract(ctx context.Context, candidateID, postingID string, file FileBlob) (resume *database.ResumeArtifact, err error) {
	done := metrics.TrackStage(string(StageExtract))
	defer func() {
		done(Outcome(err))
		err = stageError(StageExtract, err)
	}()

	if err := p.validateResume(file); err != nil {
		return nil, err
	}
	if strings.TrimSpace(candidateID) == "" {
		return nil, fmt.Errorf("%w: candidate id is required", ErrInvalidInput)
	}

	posting, err := p.store.FindJobPosting(ctx, postingID)
	if err != nil {
		return nil, err
	}
	if _, err := p.store.FindCandidate(ctx, candidateID); err != nil {
		return nil, err
	}

	cred, err := p.credentials.Resolve(ctx, postingID)
	if err != nil {
		return nil, err
	}

	log := logger.WithPipelineFields(p.logger, logger.PipelineRef{
		CorrelationID: logger.CorrelationID(ctx),
		Stage:         string(StageExtract),
		TenantID:      cred.TenantID,
		PostingID:     postingID,
	})
	log.Info("extracting resume",
		zap.String("candidate_id", candidateID),
		zap.String("file_name", file.Name),
		zap.Int("file_size", len(file.Data)),
	)

	var (
		stored *storage.Object
		result *extraction
		raw    *ai.Completion
	)

	var g errgroup.Group
	if p.files != nil {
		g.Go(func() error {
			obj, err := p.files.Store(ctx, resumePrefix+"/"+candidateID, file.Name, file.MIMEType, file.Data)
			if err != nil {
				log.Warn("storing resume file", zap.Error(err))
				return nil
			}
			stored = obj
			return nil
		})
	}
	g.Go(func() error {
		var err error
		result, raw, err = completeStructured[extraction](ctx, p, log, ai.Request{
			Credential: cred,
			Prompt:     buildExtractPrompt(posting.Title),
			Attachments: []ai.Attachment{{
				Name:     file.Name,
				MIMEType: file.MIMEType,
				Data:     file.Data,
			}},
		}, nil)
		return err
	})

	if err := g.Wait(); err != nil {
		p.discard(ctx, log, stored)
		return nil, err
	}

	if strings.TrimSpace(result.FullText) == "" {
		p.discard(ctx, log, stored)
		return nil, ErrExtractionFailed
	}

	resume = &database.ResumeArtifact{
		CandidateID: candidateID,
		FileName:    file.Name,
		MIMEType:    file.MIMEType,
		FullText:    strings.TrimSpace(result.FullText),
		Summary:     strings.TrimSpace(result.Summary),
		Skills:      cleanList(result.Skills, maxSkills),
		Strengths:   cleanList(result.Strengths, maxStrengths),
		Weaknesses:  cleanList(result.Weaknesses, maxWeaknesses),
		CreatedAt:   p.now(),
	}
	if stored != nil {
		resume.FileKey = stored.Key
		resume.FileURL = stored.URL
	}

	if err := p.store.InsertResume(ctx, resume); err != nil {
		p.discard(ctx, log, stored)
		return nil, err
	}

	log = log.With(zap.String(logger.FieldResumeID, resume.ID))
	log.Info("resume extracted",
		zap.Int("full_text_length", len([]rune(resume.FullText))),
		zap.Int("skills", len(resume.Skills)),
	)

	p.audit(ctx, log, database.AgentLog{
		TenantID:  cred.TenantID,
		AgentType: database.AgentResumeParser,
		FileName:  file.Name,
		RawInput:  fmt.Sprintf("CandidateID: %s, PostingID: %s", candidateID, postingID),
	}, raw.Structured)

	return resume, nil
}

func (p *Pipeline) validateResume(file FileBlob) error {
	if len(file.Data) == 0 {
		return fmt.Errorf("%w: resume file is empty", ErrInvalidInput)
	}
	if int64(len(file.Data)) > p.cfg.MaxResumeBytes {
		return fmt.Errorf("%w: resume file exceeds %d bytes", ErrInvalidInput, p.cfg.MaxResumeBytes)
	}

	mediaType, _, err := mime.ParseMediaType(file.MIMEType)
	if err != nil {
		return fmt.Errorf("%w: resume content type %q: %v", ErrInvalidInput, file.MIMEType, err)
	}
	for _, supported := range SupportedResumeTypes {
		if mediaType == supported {
			return nil
		}
	}
	return fmt.Errorf("%w: resume content type %q is not supported", ErrInvalidInput, mediaType)
}

func (p *Pipeline) discard(ctx context.Context, log *zap.Logger, obj *storage.Object) {
	if obj == nil || p.files == nil {
		return
	}
	if err := p.files.Delete(context.WithoutCancel(ctx), obj.Key); err != nil && !errors.Is(err, context.Canceled) {
		log.Warn("removing stored resume file", zap.String("key", obj.Key), zap.Error(err))
	}
}

func cleanList(items []string, limit int) []string {
	out := make([]string, 0, len(items))
	seen := make(map[string]struct{}, len(items))
	for _, item := range items {
		item = strings.TrimSpace(item)
		if item == "" {
			continue
		}
		key := strings.ToLower(item)
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, item)
		if limit > 0 && len(out) == limit {
			break
		}
	}
	return out
}
