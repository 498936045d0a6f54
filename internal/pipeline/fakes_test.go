package pipeline

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/spigell/applyflow/internal/ai"
	"github.com/spigell/applyflow/internal/credentials"
	"github.com/spigell/applyflow/internal/database"
	"github.com/spigell/applyflow/internal/notify"
	"github.com/spigell/applyflow/internal/storage"
	"github.com/spigell/applyflow/internal/store"

	"go.uber.org/zap"
)

type memoryStore struct {
	mu           sync.Mutex
	seq          int
	tenants      map[string]database.Tenant
	postings     map[string]database.JobPosting
	candidates   map[string]database.Candidate
	resumes      map[string]database.ResumeArtifact
	applications map[string]database.Application
	agentLogs    []database.AgentLog
	cacheWrites  int
}

func newMemoryStore() *memoryStore {
	return &memoryStore{
		tenants:      map[string]database.Tenant{},
		postings:     map[string]database.JobPosting{},
		candidates:   map[string]database.Candidate{},
		resumes:      map[string]database.ResumeArtifact{},
		applications: map[string]database.Application{},
	}
}

func (m *memoryStore) nextID(prefix string) string {
	m.seq++
	return fmt.Sprintf("%s-%d", prefix, m.seq)
}

func notFound(kind, id string) error {
	return fmt.Errorf("%w: %s %s", store.ErrNotFound, kind, id)
}

func (m *memoryStore) FindTenant(_ context.Context, id string) (*database.Tenant, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.tenants[id]
	if !ok {
		return nil, notFound("tenant", id)
	}
	return &t, nil
}

func (m *memoryStore) FindJobPosting(_ context.Context, id string) (*database.JobPosting, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.postings[id]
	if !ok {
		return nil, notFound("job posting", id)
	}
	return &p, nil
}

func (m *memoryStore) CacheJobDescriptionText(_ context.Context, id, text string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.postings[id]
	if !ok {
		return notFound("job posting", id)
	}
	p.ExtractedText = text
	m.postings[id] = p
	m.cacheWrites++
	return nil
}

func (m *memoryStore) FindCandidate(_ context.Context, id string) (*database.Candidate, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.candidates[id]
	if !ok {
		return nil, notFound("candidate", id)
	}
	return &c, nil
}

func (m *memoryStore) FindResume(_ context.Context, id string) (*database.ResumeArtifact, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.resumes[id]
	if !ok {
		return nil, notFound("resume", id)
	}
	return &r, nil
}

func (m *memoryStore) InsertResume(_ context.Context, resume *database.ResumeArtifact) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if resume.ID == "" {
		resume.ID = m.nextID("resume")
	}
	m.resumes[resume.ID] = *resume
	return nil
}

func (m *memoryStore) FindApplication(_ context.Context, id string) (*database.Application, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.applications[id]
	if !ok {
		return nil, notFound("application", id)
	}
	return &a, nil
}

func (m *memoryStore) FindApplicationByResume(_ context.Context, resumeID, postingID string) (*database.Application, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, a := range m.applications {
		if a.ResumeID == resumeID && a.JobPostingID == postingID {
			return &a, nil
		}
	}
	return nil, notFound("application for resume", resumeID)
}

func (m *memoryStore) InsertApplication(_ context.Context, application *database.Application) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if application.ID == "" {
		application.ID = m.nextID("application")
	}
	m.applications[application.ID] = *application
	return nil
}

func (m *memoryStore) UpdateCoverLetter(_ context.Context, id, letter string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.applications[id]
	if !ok {
		return notFound("application", id)
	}
	a.CoverLetter = &letter
	m.applications[id] = a
	return nil
}

func (m *memoryStore) UpdateStatus(_ context.Context, id string, status database.ApplicationStatus) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.applications[id]
	if !ok {
		return notFound("application", id)
	}
	a.Status = status
	m.applications[id] = a
	return nil
}

func (m *memoryStore) InsertAgentLog(_ context.Context, entry *database.AgentLog) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.agentLogs = append(m.agentLogs, *entry)
	return nil
}

// staticResolver resolves credentials straight from the memory store.
type staticResolver struct {
	store *memoryStore
}

func (r staticResolver) Resolve(ctx context.Context, postingID string) (ai.Credential, error) {
	posting, err := r.store.FindJobPosting(ctx, postingID)
	if err != nil {
		return ai.Credential{}, err
	}
	tenant, err := r.store.FindTenant(ctx, posting.TenantID)
	if err != nil || strings.TrimSpace(tenant.APIKey) == "" {
		return ai.Credential{}, fmt.Errorf("%w: tenant %s", credentials.ErrNotConfigured, posting.TenantID)
	}
	return ai.Credential{TenantID: tenant.ID, APIKey: tenant.APIKey, Model: tenant.Model}, nil
}

type scriptedReply struct {
	raw string
	err error
}

// scriptedCompleter replays queued replies per stage, detected from the prompt.
type scriptedCompleter struct {
	mu       sync.Mutex
	replies  map[string][]scriptedReply
	calls    map[string]int
	requests []ai.Request
}

const (
	callExtract    = "extract"
	callScore      = "score"
	callLetter     = "letter"
	callTranscribe = "transcribe"
)

func newScriptedCompleter() *scriptedCompleter {
	return &scriptedCompleter{replies: map[string][]scriptedReply{}, calls: map[string]int{}}
}

func (s *scriptedCompleter) enqueue(kind, raw string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.replies[kind] = append(s.replies[kind], scriptedReply{raw: raw})
}

func (s *scriptedCompleter) enqueueErr(kind string, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.replies[kind] = append(s.replies[kind], scriptedReply{err: err})
}

func (s *scriptedCompleter) count(kind string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls[kind]
}

func classifyPrompt(prompt string) string {
	switch {
	case strings.Contains(prompt, "résumé parser"):
		return callExtract
	case strings.Contains(prompt, "strict technical recruiter"):
		return callScore
	case strings.Contains(prompt, "career coach"):
		return callLetter
	case strings.Contains(prompt, "Transcribe ALL of its text"):
		return callTranscribe
	default:
		return "unknown"
	}
}

func (s *scriptedCompleter) Complete(_ context.Context, req ai.Request) (*ai.Completion, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	kind := classifyPrompt(req.Prompt)
	s.calls[kind]++
	s.requests = append(s.requests, req)

	queue := s.replies[kind]
	if len(queue) == 0 {
		return nil, errors.New("unexpected " + kind + " call")
	}
	reply := queue[0]
	s.replies[kind] = queue[1:]

	if reply.err != nil {
		return nil, reply.err
	}
	if strings.TrimSpace(reply.raw) == "" {
		return nil, fmt.Errorf("%w: empty response", ai.ErrMalformedOutput)
	}
	return ai.Coerce(reply.raw), nil
}

type memoryFiles struct {
	mu       sync.Mutex
	objects  map[string][]byte
	deleted  []string
	fetches  int
	seq      int
	fetchErr error
}

func newMemoryFiles() *memoryFiles {
	return &memoryFiles{objects: map[string][]byte{}}
}

func (f *memoryFiles) Store(_ context.Context, prefix, filename, _ string, data []byte) (*storage.Object, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.seq++
	key := fmt.Sprintf("%s/%d-%s", prefix, f.seq, filename)
	f.objects[key] = data
	return &storage.Object{Key: key, URL: "https://files.test/" + key}, nil
}

func (f *memoryFiles) Fetch(_ context.Context, key string) ([]byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.fetches++
	if f.fetchErr != nil {
		return nil, f.fetchErr
	}
	data, ok := f.objects[key]
	if !ok {
		return nil, storage.ErrObjectNotFound
	}
	return data, nil
}

func (f *memoryFiles) Delete(_ context.Context, key string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.objects, key)
	f.deleted = append(f.deleted, key)
	return nil
}

type recordingNotifier struct {
	mu     sync.Mutex
	events []notify.Event
}

func (r *recordingNotifier) Publish(_ context.Context, evt notify.Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, evt)
	return nil
}

type harness struct {
	store     *memoryStore
	completer *scriptedCompleter
	files     *memoryFiles
	notifier  *recordingNotifier
	pipeline  *Pipeline
}

func newHarness(cfg Config) *harness {
	s := newMemoryStore()
	s.tenants["tenant-1"] = database.Tenant{ID: "tenant-1", APIKey: "key-1", Model: "gemini-2.5-flash", SchedulingLink: "https://cal.test/acme"}
	s.tenants["tenant-blank"] = database.Tenant{ID: "tenant-blank"}
	s.postings["posting-1"] = database.JobPosting{
		ID:              "posting-1",
		TenantID:        "tenant-1",
		Title:           "Full-stack engineer",
		DescriptionText: "Must have: React, Node, SQL. Nice to have: Docker.",
	}
	s.postings["posting-unconfigured"] = database.JobPosting{
		ID:              "posting-unconfigured",
		TenantID:        "tenant-blank",
		Title:           "Designer",
		DescriptionText: "Figma.",
	}
	s.candidates["candidate-1"] = database.Candidate{ID: "candidate-1", Name: "Jane Doe", Email: "jane@example.com"}

	completer := newScriptedCompleter()
	files := newMemoryFiles()
	notifier := &recordingNotifier{}

	p, err := New(Deps{
		Store:       s,
		Credentials: staticResolver{store: s},
		Completer:   completer,
		Files:       files,
		Notifier:    notifier,
		Logger:      zap.NewNop(),
	}, cfg)
	if err != nil {
		panic(err)
	}

	return &harness{store: s, completer: completer, files: files, notifier: notifier, pipeline: p}
}

func (h *harness) addResume(id, text string) {
	h.store.resumes[id] = database.ResumeArtifact{ID: id, CandidateID: "candidate-1", FullText: text}
}

const extractionJSON = "```json\n" + `{
  "fullText": "Jane Doe\nSenior engineer. Built React frontends and Node services.",
  "summary": "Full-stack engineer with React and Node experience.",
  "skills": ["React", "Node", " ", "react", "TypeScript"],
  "strengths": ["Ownership", "Delivery", "Mentoring"],
  "weaknesses": ["Limited SQL exposure", "No cloud certifications"]
}` + "\n```"

const endToEndScoreJSON = `{
  "must_have": [
    {"skill": "React", "evidence": "Built React frontends"},
    {"skill": "Node", "evidence": "Node services"},
    {"skill": "SQL", "evidence": "NOT FOUND"}
  ],
  "nice_to_have": [
    {"skill": "Docker", "evidence": "containerised with Docker"}
  ],
  "score": 85,
  "reasoning": "Strong frontend match but SQL is missing.",
  "feedback": "Highlight any database work you have done."
}`

// scoreJSON scores posting-1 style rubrics: React as the must-have and Docker
// as the nice-to-have, with modelScore as the model's own number.
func scoreJSON(dockerEvidence string, modelScore int) string {
	return fmt.Sprintf(`{
  "must_have": [{"skill": "React", "evidence": "Built React frontends"}],
  "nice_to_have": [{"skill": "Docker", "evidence": %q}],
  "score": %d,
  "reasoning": "Solid match.",
  "feedback": "Consider adding container experience."
}`, dockerEvidence, modelScore)
}
