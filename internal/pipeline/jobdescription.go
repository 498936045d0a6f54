package pipeline

import (
	"context"
	"errors"
	"fmt"
	"path"
	"strings"

	"github.com/spigell/applyflow/internal/ai"
	"github.com/spigell/applyflow/internal/database"
	"github.com/spigell/applyflow/internal/storage"

	"go.uber.org/zap"
)

const defaultDocumentMIMEType = "application/pdf"

// jobDescriptionText returns the plain text of a posting. An uploaded document
// is transcribed once and the result cached on the posting.
func (p *Pipeline) jobDescriptionText(ctx context.Context, log *zap.Logger, cred ai.Credential, posting *database.JobPosting) (string, error) {
	if text := strings.TrimSpace(posting.DescriptionText); text != "" {
		return text, nil
	}
	if text := strings.TrimSpace(posting.ExtractedText); text != "" {
		return text, nil
	}

	if strings.TrimSpace(posting.DocumentKey) == "" || p.files == nil {
		return "", fmt.Errorf("%w: job posting %s has no description", ErrNotFound, posting.ID)
	}

	data, err := p.files.Fetch(ctx, posting.DocumentKey)
	if errors.Is(err, storage.ErrObjectNotFound) {
		return "", fmt.Errorf("%w: job posting %s document: %v", ErrNotFound, posting.ID, err)
	}
	if err != nil {
		return "", fmt.Errorf("%w: fetching job posting %s document: %w", ErrStorageUnavailable, posting.ID, err)
	}

	mimeType := strings.TrimSpace(posting.DocumentMIMEType)
	if mimeType == "" {
		mimeType = defaultDocumentMIMEType
	}

	log.Info("transcribing job description document", zap.String("document_key", posting.DocumentKey))

	text, err := p.completeText(ctx, log, ai.Request{
		Credential: cred,
		Prompt:     buildTranscribePrompt(posting.Title),
		Attachments: []ai.Attachment{{
			Name:     path.Base(posting.DocumentKey),
			MIMEType: mimeType,
			Data:     data,
		}},
	})
	if err != nil {
		return "", fmt.Errorf("transcribing job description: %w", err)
	}

	if err := p.store.CacheJobDescriptionText(ctx, posting.ID, text); err != nil {
		log.Warn("caching job description text", zap.Error(err))
	} else {
		posting.ExtractedText = text
	}

	p.audit(ctx, log, database.AgentLog{
		TenantID:  cred.TenantID,
		AgentType: database.AgentDocumentTranscriber,
		FileName:  path.Base(posting.DocumentKey),
		RawInput:  fmt.Sprintf("PostingID: %s", posting.ID),
	}, map[string]int{"characters": len([]rune(text))})

	return text, nil
}
