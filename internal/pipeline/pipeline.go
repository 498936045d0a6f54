package pipeline

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/spigell/applyflow/internal/ai"
	"github.com/spigell/applyflow/internal/database"
	"github.com/spigell/applyflow/internal/logger"
	"github.com/spigell/applyflow/internal/notify"
	"github.com/spigell/applyflow/internal/utils"

	"go.uber.org/zap"
)

const (
	defaultMalformedRetries = 1
	defaultMaxResumeBytes   = 10 << 20
	defaultMaxLogLength     = 200
)

// Config holds pipeline policy knobs. Zero values fall back to defaults.
type Config struct {
	ShortlistThreshold int
	// MalformedRetries is how many times a call is repeated after output that
	// does not fit the expected shape.
	MalformedRetries int
	MaxResumeBytes   int64
	MaxLogLength     int
}

// Deps are the collaborators of the pipeline. Files and Notifier are optional.
type Deps struct {
	Store       Store
	Credentials CredentialResolver
	Completer   ai.Completer
	Files       FileStore
	Notifier    Notifier
	Logger      *zap.Logger
}

// Pipeline runs the extraction, scoring and cover letter stages. Stages never
// chain on their own: every call is made explicitly by the caller with the id
// produced by the previous stage.
type Pipeline struct {
	store       Store
	credentials CredentialResolver
	completer   ai.Completer
	files       FileStore
	notifier    Notifier
	policy      Policy
	cfg         Config
	logger      *zap.Logger
	now         func() time.Time
}

// New validates deps and returns a Pipeline.
func New(deps Deps, cfg Config) (*Pipeline, error) {
	if deps.Store == nil {
		return nil, errors.New("pipeline store is required")
	}
	if deps.Credentials == nil {
		return nil, errors.New("pipeline credential resolver is required")
	}
	if deps.Completer == nil {
		return nil, errors.New("pipeline completer is required")
	}

	if cfg.ShortlistThreshold <= 0 {
		cfg.ShortlistThreshold = DefaultShortlistThreshold
	}
	if cfg.ShortlistThreshold > 100 {
		return nil, fmt.Errorf("shortlist threshold %d is above 100", cfg.ShortlistThreshold)
	}
	if cfg.MalformedRetries < 0 {
		cfg.MalformedRetries = 0
	} else if cfg.MalformedRetries == 0 {
		cfg.MalformedRetries = defaultMalformedRetries
	}
	if cfg.MaxResumeBytes <= 0 {
		cfg.MaxResumeBytes = defaultMaxResumeBytes
	}
	if cfg.MaxLogLength <= 0 {
		cfg.MaxLogLength = defaultMaxLogLength
	}

	notifier := deps.Notifier
	if notifier == nil {
		notifier = notify.Nop{}
	}
	log := deps.Logger
	if log == nil {
		log = zap.NewNop()
	}

	return &Pipeline{
		store:       deps.Store,
		credentials: deps.Credentials,
		completer:   deps.Completer,
		files:       deps.Files,
		notifier:    notifier,
		policy:      Policy{Threshold: cfg.ShortlistThreshold},
		cfg:         cfg,
		logger:      log,
		now:         time.Now,
	}, nil
}

// Policy returns the status policy in effect.
func (p *Pipeline) Policy() Policy {
	return p.policy
}

// completeStructured calls the backend in JSON mode and decodes the result into
// a fresh T. Malformed output, including output rejected by validate, is
// retried up to cfg.MalformedRetries times with the identical request.
func completeStructured[T any](ctx context.Context, p *Pipeline, log *zap.Logger, req ai.Request, validate func(*T) error) (*T, *ai.Completion, error) {
	req.Mode = ai.ModeJSON

	var lastErr error
	for attempt := 0; attempt <= p.cfg.MalformedRetries; attempt++ {
		out, completion, err := decodeAttempt(ctx, p, req, validate)
		if err == nil {
			return out, completion, nil
		}
		if !errors.Is(err, ai.ErrMalformedOutput) {
			return nil, nil, err
		}

		lastErr = err
		log.Warn("malformed generative output",
			zap.Int("attempt", attempt+1),
			zap.Int("max_attempts", p.cfg.MalformedRetries+1),
			zap.String("response_preview", utils.TruncateForLog(completion.Content(), p.cfg.MaxLogLength)),
			zap.Error(err),
		)
	}

	return nil, nil, lastErr
}

func decodeAttempt[T any](ctx context.Context, p *Pipeline, req ai.Request, validate func(*T) error) (*T, *ai.Completion, error) {
	completion, err := p.completer.Complete(ctx, req)
	if err != nil {
		return nil, nil, err
	}

	out := new(T)
	if err := completion.Decode(out); err != nil {
		return nil, completion, err
	}
	if validate != nil {
		if err := validate(out); err != nil {
			return nil, completion, fmt.Errorf("%w: %v", ai.ErrMalformedOutput, err)
		}
	}

	return out, completion, nil
}

// completeText calls the backend in text mode. Empty output is retried like
// malformed output.
func (p *Pipeline) completeText(ctx context.Context, log *zap.Logger, req ai.Request) (string, error) {
	req.Mode = ai.ModeText

	var lastErr error
	for attempt := 0; attempt <= p.cfg.MalformedRetries; attempt++ {
		completion, err := p.completer.Complete(ctx, req)
		if err == nil {
			text := strings.TrimSpace(completion.Content())
			if text != "" {
				log.Debug("generated text",
					zap.Int("length", utf8.RuneCountInString(text)),
					zap.String("preview", utils.TruncateForLog(text, p.cfg.MaxLogLength)),
				)
				return text, nil
			}
			err = fmt.Errorf("%w: empty text", ai.ErrMalformedOutput)
		}
		if !errors.Is(err, ai.ErrMalformedOutput) {
			return "", err
		}

		lastErr = err
		log.Warn("empty generative output",
			zap.Int("attempt", attempt+1),
			zap.Int("max_attempts", p.cfg.MalformedRetries+1),
		)
	}

	return "", lastErr
}

// audit stores an AgentLog entry. Failures are logged and never fail the stage.
func (p *Pipeline) audit(ctx context.Context, log *zap.Logger, entry database.AgentLog, output any) {
	payload, err := json.Marshal(output)
	if err != nil {
		log.Warn("encoding agent log output", zap.Error(err))
		return
	}
	entry.Output = payload
	entry.CreatedAt = p.now()

	if err := p.store.InsertAgentLog(context.WithoutCancel(ctx), &entry); err != nil {
		log.Warn("writing agent log", zap.String("agent", string(entry.AgentType)), zap.Error(err))
	}
}

// publish sends evt. Failures are logged and never fail the stage.
func (p *Pipeline) publish(ctx context.Context, log *zap.Logger, evt notify.Event) {
	if evt.CorrelationID == "" {
		evt.CorrelationID = logger.CorrelationID(ctx)
	}
	if evt.OccurredAt.IsZero() {
		evt.OccurredAt = p.now().UTC()
	}
	if err := p.notifier.Publish(context.WithoutCancel(ctx), evt); err != nil {
		log.Warn("publishing pipeline event", zap.String("event", evt.Type), zap.Error(err))
	}
}
