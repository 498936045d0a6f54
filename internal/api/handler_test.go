package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"sort"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/spigell/applyflow/internal/ai"
	"github.com/spigell/applyflow/internal/credentials"
	"github.com/spigell/applyflow/internal/database"
	"github.com/spigell/applyflow/internal/pipeline"
	"github.com/spigell/applyflow/internal/storage"
	"github.com/spigell/applyflow/internal/store"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type fakeStages struct {
	extracted  []pipeline.FileBlob
	tones      []pipeline.Tone
	statuses   []database.ApplicationStatus
	err        error
	progress   *pipeline.Progress
	lastRef    pipeline.Ref
	lastScored [2]string
}

func (f *fakeStages) Extract(_ context.Context, candidateID, _ string, file pipeline.FileBlob) (*database.ResumeArtifact, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.extracted = append(f.extracted, file)
	return &database.ResumeArtifact{ID: "resume-1", CandidateID: candidateID, FileName: file.Name, Skills: []string{"Go"}}, nil
}

func (f *fakeStages) Score(_ context.Context, resumeID, postingID string) (*database.Application, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.lastScored = [2]string{resumeID, postingID}
	return &database.Application{
		ID:            "application-1",
		ResumeID:      resumeID,
		JobPostingID:  postingID,
		MatchScore:    40,
		MatchedSkills: []string{"React"},
		MissingSkills: []string{"SQL"},
		Status:        database.StatusInReview,
	}, nil
}

func (f *fakeStages) GenerateCoverLetter(_ context.Context, _ string, tone pipeline.Tone) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	f.tones = append(f.tones, tone)
	return "Dear team", nil
}

func (f *fakeStages) State(_ context.Context, ref pipeline.Ref) (*pipeline.Progress, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.lastRef = ref
	return f.progress, nil
}

func (f *fakeStages) UpdateStatus(_ context.Context, id string, status database.ApplicationStatus) (*database.Application, error) {
	if f.err != nil {
		return nil, f.err
	}
	if !status.Valid() {
		return nil, fmt.Errorf("%w: unknown status", pipeline.ErrInvalidInput)
	}
	f.statuses = append(f.statuses, status)
	return &database.Application{ID: id, Status: status}, nil
}

type fakeRecords struct {
	postings     map[string]*database.JobPosting
	applications map[string]*database.Application
	candidates   []*database.Candidate
}

func newFakeRecords() *fakeRecords {
	return &fakeRecords{postings: map[string]*database.JobPosting{}, applications: map[string]*database.Application{}}
}

func (f *fakeRecords) FindJobPosting(_ context.Context, id string) (*database.JobPosting, error) {
	if p, ok := f.postings[id]; ok {
		return p, nil
	}
	return nil, fmt.Errorf("%w: job posting %s", store.ErrNotFound, id)
}

func (f *fakeRecords) InsertJobPosting(_ context.Context, posting *database.JobPosting) error {
	f.postings[posting.ID] = posting
	return nil
}

func (f *fakeRecords) ListJobPostings(_ context.Context, tenantID string) ([]database.JobPosting, error) {
	var out []database.JobPosting
	for _, p := range f.postings {
		if tenantID == "" || p.TenantID == tenantID {
			out = append(out, *p)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (f *fakeRecords) FindCandidate(_ context.Context, id string) (*database.Candidate, error) {
	for _, c := range f.candidates {
		if c.ID == id {
			return c, nil
		}
	}
	return nil, fmt.Errorf("%w: candidate %s", store.ErrNotFound, id)
}

func (f *fakeRecords) ListApplicationsByCandidate(_ context.Context, candidateID string) ([]database.Application, error) {
	var out []database.Application
	for _, a := range f.applications {
		if a.CandidateID == candidateID {
			out = append(out, *a)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].SubmittedAt.After(out[j].SubmittedAt) })
	return out, nil
}

func (f *fakeRecords) InsertCandidate(_ context.Context, candidate *database.Candidate) error {
	candidate.ID = fmt.Sprintf("candidate-%d", len(f.candidates)+1)
	f.candidates = append(f.candidates, candidate)
	return nil
}

func (f *fakeRecords) FindApplication(_ context.Context, id string) (*database.Application, error) {
	if a, ok := f.applications[id]; ok {
		return a, nil
	}
	return nil, fmt.Errorf("%w: application %s", store.ErrNotFound, id)
}

func (f *fakeRecords) ListApplications(_ context.Context, postingID string) ([]database.Application, error) {
	var out []database.Application
	for _, a := range f.applications {
		if a.JobPostingID == postingID {
			out = append(out, *a)
		}
	}
	return out, nil
}

type fakeTenants struct {
	settings map[string]credentials.Settings
}

func (f *fakeTenants) Configure(_ context.Context, tenantID string, settings credentials.Settings) error {
	if settings.Model == "gpt-unknown" {
		return fmt.Errorf("%w: model not supported", credentials.ErrInvalidSettings)
	}
	f.settings[tenantID] = settings
	return nil
}

type fakeDocuments struct {
	stored  map[string][]byte
	signErr error
	ttls    []time.Duration
}

func (f *fakeDocuments) Store(_ context.Context, prefix, filename, _ string, data []byte) (*storage.Object, error) {
	key := prefix + "/" + filename
	f.stored[key] = data
	return &storage.Object{Key: key, URL: "https://files.test/" + key}, nil
}

func (f *fakeDocuments) PresignedURL(_ context.Context, key string, ttl time.Duration) (string, error) {
	if f.signErr != nil {
		return "", f.signErr
	}
	f.ttls = append(f.ttls, ttl)
	return "https://files.test/signed/" + key + "?X-Amz-Expires=" + fmt.Sprint(int(ttl.Seconds())), nil
}

type testServer struct {
	router    *gin.Engine
	stages    *fakeStages
	records   *fakeRecords
	tenants   *fakeTenants
	documents *fakeDocuments
}

func newTestServer(t *testing.T, secret string) *testServer {
	t.Helper()

	s := &testServer{
		stages:    &fakeStages{},
		records:   newFakeRecords(),
		tenants:   &fakeTenants{settings: map[string]credentials.Settings{}},
		documents: &fakeDocuments{stored: map[string][]byte{}},
	}
	h := NewHandler(HandlerConfig{
		Stages:    s.stages,
		Records:   s.records,
		Tenants:   s.tenants,
		Documents: s.documents,
		Logger:    zap.NewNop(),
	})
	s.router = NewRouter(h, RouterConfig{InternalSecret: secret}, zap.NewNop())
	return s
}

func (s *testServer) do(req *http.Request) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	return w
}

func jsonRequest(method, path string, body any) *http.Request {
	var buf bytes.Buffer
	if body != nil {
		_ = json.NewEncoder(&buf).Encode(body)
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	return req
}

func multipartRequest(t *testing.T, path string, fields map[string]string, fileField, filename, contentType string, content []byte) *http.Request {
	t.Helper()

	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)
	for k, v := range fields {
		require.NoError(t, writer.WriteField(k, v))
	}
	if fileField != "" {
		h := make(textproto.MIMEHeader)
		h.Set("Content-Disposition", fmt.Sprintf(`form-data; name=%q; filename=%q`, fileField, filename))
		h.Set("Content-Type", contentType)
		part, err := writer.CreatePart(h)
		require.NoError(t, err)
		_, err = part.Write(content)
		require.NoError(t, err)
	}
	require.NoError(t, writer.Close())

	req := httptest.NewRequest(http.MethodPost, path, body)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	return req
}

func decodeError(t *testing.T, w *httptest.ResponseRecorder) ErrorResponse {
	t.Helper()
	var resp ErrorResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	return resp
}

func TestHealth(t *testing.T) {
	s := newTestServer(t, "secret")

	w := s.do(httptest.NewRequest(http.MethodGet, "/health", nil))
	require.Equal(t, http.StatusOK, w.Code)
	require.NotEmpty(t, w.Header().Get("X-Correlation-ID"))
}

func TestV1RequiresInternalSecret(t *testing.T) {
	s := newTestServer(t, "secret")

	w := s.do(jsonRequest(http.MethodPost, "/v1/applications", map[string]string{"resume_id": "r", "posting_id": "p"}))
	require.Equal(t, http.StatusUnauthorized, w.Code)

	req := jsonRequest(http.MethodPost, "/v1/applications", map[string]string{"resume_id": "r", "posting_id": "p"})
	req.Header.Set("X-Internal-Secret", "secret")
	w = s.do(req)
	require.Equal(t, http.StatusCreated, w.Code)
}

func TestScoreApplication(t *testing.T) {
	s := newTestServer(t, "")

	w := s.do(jsonRequest(http.MethodPost, "/v1/applications", map[string]string{"resume_id": "resume-1", "posting_id": "posting-1"}))
	require.Equal(t, http.StatusCreated, w.Code)
	require.Equal(t, [2]string{"resume-1", "posting-1"}, s.stages.lastScored)

	var resp applicationResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.Equal(t, 40, resp.MatchScore)
	require.Equal(t, []string{"SQL"}, resp.MissingSkills)
	require.Equal(t, "in-review", resp.Status)
	require.Nil(t, resp.CoverLetter)

	w = s.do(jsonRequest(http.MethodPost, "/v1/applications", map[string]string{"resume_id": "resume-1"}))
	require.Equal(t, http.StatusBadRequest, w.Code)
}

func TestStageErrorsMapToStatus(t *testing.T) {
	tests := []struct {
		name      string
		err       error
		status    int
		retryable bool
		stage     string
		message   string
	}{
		{
			name:    "configuration",
			err:     &pipeline.StageError{Stage: pipeline.StageScore, Err: fmt.Errorf("%w: tenant t", pipeline.ErrConfiguration)},
			status:  http.StatusPreconditionFailed,
			stage:   "score",
			message: "recruiter has not set up AI processing",
		},
		{
			name:   "not found",
			err:    fmt.Errorf("%w: resume r", pipeline.ErrNotFound),
			status: http.StatusNotFound,
		},
		{
			name:   "credential",
			err:    fmt.Errorf("%w: 401", ai.ErrCredential),
			status: http.StatusFailedDependency,
		},
		{
			name:      "transient",
			err:       &pipeline.StageError{Stage: pipeline.StageScore, Err: fmt.Errorf("%w: 503", ai.ErrTransient)},
			status:    http.StatusServiceUnavailable,
			retryable: true,
			stage:     "score",
		},
		{
			name:      "storage unavailable",
			err:       &pipeline.StageError{Stage: pipeline.StageScore, Err: fmt.Errorf("%w: dial tcp: connection refused", pipeline.ErrStorageUnavailable)},
			status:    http.StatusServiceUnavailable,
			retryable: true,
			stage:     "score",
			message:   "file storage is temporarily unavailable",
		},
		{
			name:      "scoring failed",
			err:       &pipeline.StageError{Stage: pipeline.StageScore, Err: fmt.Errorf("%w: %w", pipeline.ErrScoringFailed, ai.ErrMalformedOutput)},
			status:    http.StatusBadGateway,
			retryable: true,
			stage:     "score",
		},
		{
			name:   "unexpected",
			err:    errors.New("database is gone"),
			status: http.StatusInternalServerError,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newTestServer(t, "")
			s.stages.err = tt.err

			w := s.do(jsonRequest(http.MethodPost, "/v1/applications", map[string]string{"resume_id": "r", "posting_id": "p"}))
			require.Equal(t, tt.status, w.Code)

			resp := decodeError(t, w)
			require.Equal(t, tt.retryable, resp.Retryable)
			require.Equal(t, tt.stage, resp.Stage)
			if tt.message != "" {
				require.Equal(t, tt.message, resp.Error)
			}
			if tt.status == http.StatusInternalServerError {
				require.NotContains(t, resp.Error, "database")
			}
		})
	}
}

func TestUploadResume(t *testing.T) {
	s := newTestServer(t, "")

	req := multipartRequest(t, "/v1/resumes",
		map[string]string{"candidate_id": "candidate-1", "posting_id": "posting-1"},
		"file", "jane.pdf", "application/pdf", []byte("%PDF-1.4 resume"))
	w := s.do(req)
	require.Equal(t, http.StatusCreated, w.Code)

	require.Len(t, s.stages.extracted, 1)
	require.Equal(t, "application/pdf", s.stages.extracted[0].MIMEType)
	require.Equal(t, "jane.pdf", s.stages.extracted[0].Name)
	require.Equal(t, []byte("%PDF-1.4 resume"), s.stages.extracted[0].Data)

	var resp resumeResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.Equal(t, "resume-1", resp.ID)
	require.Equal(t, []string{"Go"}, resp.Skills)
}

func TestUploadResumeValidation(t *testing.T) {
	s := newTestServer(t, "")

	w := s.do(multipartRequest(t, "/v1/resumes", map[string]string{"candidate_id": "c"}, "file", "a.pdf", "application/pdf", []byte("x")))
	require.Equal(t, http.StatusBadRequest, w.Code)

	w = s.do(multipartRequest(t, "/v1/resumes", map[string]string{"candidate_id": "c", "posting_id": "p"}, "", "", "", nil))
	require.Equal(t, http.StatusBadRequest, w.Code)

	s.stages.err = fmt.Errorf("%w: unsupported", pipeline.ErrInvalidInput)
	w = s.do(multipartRequest(t, "/v1/resumes", map[string]string{"candidate_id": "c", "posting_id": "p"}, "file", "a.exe", "application/x-msdownload", []byte("MZ")))
	require.Equal(t, http.StatusBadRequest, w.Code)

	require.Empty(t, s.stages.extracted)
}

func TestCreatePostingWithDocument(t *testing.T) {
	s := newTestServer(t, "")

	w := s.do(multipartRequest(t, "/v1/postings",
		map[string]string{"tenant_id": "tenant-1", "title": "Platform engineer"},
		"document", "jd.pdf", "application/pdf", []byte("%PDF jd")))
	require.Equal(t, http.StatusCreated, w.Code)

	var resp postingResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.NotEmpty(t, resp.ID)
	require.Equal(t, "/jd/"+resp.ID, resp.PublicURL)
	require.True(t, strings.HasPrefix(resp.DocumentURL, "https://files.test/signed/postings/"+resp.ID), resp.DocumentURL)
	require.Contains(t, resp.DocumentURL, "X-Amz-Expires=900")

	stored := s.records.postings[resp.ID]
	require.NotNil(t, stored)
	require.Equal(t, "application/pdf", stored.DocumentMIMEType)
	require.True(t, strings.HasPrefix(stored.DocumentURL, "https://files.test/postings/"+resp.ID))
	require.Len(t, s.documents.stored, 1)

	w = s.do(httptest.NewRequest(http.MethodGet, "/jd/"+resp.ID, nil))
	require.Equal(t, http.StatusOK, w.Code)
	require.Contains(t, w.Body.String(), "https://files.test/signed/postings/")
	require.Equal(t, []time.Duration{15 * time.Minute, 15 * time.Minute}, s.documents.ttls)
}

func TestPublicPostingFallsBackWhenSigningFails(t *testing.T) {
	s := newTestServer(t, "")
	s.documents.signErr = errors.New("minio unreachable")
	s.records.postings["posting-doc"] = &database.JobPosting{
		ID:            "posting-doc",
		TenantID:      "tenant-1",
		Title:         "Platform engineer",
		DocumentKey:   "postings/posting-doc/jd.pdf",
		DocumentURL:   "https://files.test/postings/posting-doc/jd.pdf",
		ExtractedText: "Must have: Go.",
	}

	w := s.do(httptest.NewRequest(http.MethodGet, "/jd/posting-doc", nil))
	require.Equal(t, http.StatusOK, w.Code)

	var resp postingResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.Equal(t, "https://files.test/postings/posting-doc/jd.pdf", resp.DocumentURL)
	require.Equal(t, "Must have: Go.", resp.Description)
}

func TestPostingLists(t *testing.T) {
	s := newTestServer(t, "secret")
	base := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	s.records.postings["p-old"] = &database.JobPosting{ID: "p-old", TenantID: "tenant-1", Title: "Backend", DescriptionText: "Go", CreatedAt: base}
	s.records.postings["p-new"] = &database.JobPosting{ID: "p-new", TenantID: "tenant-1", Title: "Frontend", DescriptionText: "React", CreatedAt: base.Add(time.Hour)}
	s.records.postings["p-other"] = &database.JobPosting{ID: "p-other", TenantID: "tenant-2", Title: "Designer", DescriptionText: "Figma", CreatedAt: base.Add(2 * time.Hour)}

	decode := func(w *httptest.ResponseRecorder) []postingResponse {
		t.Helper()
		var body struct {
			Items []postingResponse `json:"items"`
		}
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
		return body.Items
	}

	w := s.do(httptest.NewRequest(http.MethodGet, "/jobs", nil))
	require.Equal(t, http.StatusOK, w.Code)
	board := decode(w)
	require.Len(t, board, 3)
	require.Equal(t, "p-other", board[0].ID)

	w = s.do(httptest.NewRequest(http.MethodGet, "/v1/tenants/tenant-1/postings", nil))
	require.Equal(t, http.StatusUnauthorized, w.Code)

	req := httptest.NewRequest(http.MethodGet, "/v1/tenants/tenant-1/postings", nil)
	req.Header.Set("X-Internal-Secret", "secret")
	w = s.do(req)
	require.Equal(t, http.StatusOK, w.Code)
	own := decode(w)
	require.Len(t, own, 2)
	require.Equal(t, "p-new", own[0].ID)
	require.Equal(t, "p-old", own[1].ID)
}

func TestListCandidateApplications(t *testing.T) {
	s := newTestServer(t, "")
	s.records.candidates = append(s.records.candidates, &database.Candidate{ID: "candidate-1", Name: "Jane"})
	base := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	s.records.applications["a-1"] = &database.Application{ID: "a-1", CandidateID: "candidate-1", JobPostingID: "p-1", SubmittedAt: base}
	s.records.applications["a-2"] = &database.Application{ID: "a-2", CandidateID: "candidate-1", JobPostingID: "p-2", SubmittedAt: base.Add(time.Hour)}
	s.records.applications["a-3"] = &database.Application{ID: "a-3", CandidateID: "candidate-2", JobPostingID: "p-1", SubmittedAt: base}

	w := s.do(httptest.NewRequest(http.MethodGet, "/v1/candidates/candidate-1/applications", nil))
	require.Equal(t, http.StatusOK, w.Code)

	var body struct {
		Items []applicationResponse `json:"items"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	require.Len(t, body.Items, 2)
	require.Equal(t, "a-2", body.Items[0].ID)
	require.Equal(t, "a-1", body.Items[1].ID)

	w = s.do(httptest.NewRequest(http.MethodGet, "/v1/candidates/nobody/applications", nil))
	require.Equal(t, http.StatusNotFound, w.Code)
}

func TestCreatePostingValidation(t *testing.T) {
	s := newTestServer(t, "")

	w := s.do(multipartRequest(t, "/v1/postings", map[string]string{"tenant_id": "tenant-1", "title": "Engineer"}, "", "", "", nil))
	require.Equal(t, http.StatusBadRequest, w.Code)

	w = s.do(multipartRequest(t, "/v1/postings",
		map[string]string{"tenant_id": "tenant-1", "title": "Engineer"},
		"document", "jd.png", "image/png", []byte("png")))
	require.Equal(t, http.StatusBadRequest, w.Code)

	w = s.do(multipartRequest(t, "/v1/postings",
		map[string]string{"tenant_id": "tenant-1", "title": "Engineer", "description": "Go, SQL"}, "", "", "", nil))
	require.Equal(t, http.StatusCreated, w.Code)
	require.Empty(t, s.documents.stored)
}

func TestGenerateCoverLetterTone(t *testing.T) {
	s := newTestServer(t, "")

	req := httptest.NewRequest(http.MethodPost, "/v1/applications/application-1/cover-letter", nil)
	w := s.do(req)
	require.Equal(t, http.StatusOK, w.Code)

	w = s.do(jsonRequest(http.MethodPost, "/v1/applications/application-1/cover-letter", map[string]string{"tone": "casual"}))
	require.Equal(t, http.StatusOK, w.Code)
	require.Equal(t, []pipeline.Tone{pipeline.ToneProfessional, pipeline.ToneCasual}, s.stages.tones)

	w = s.do(jsonRequest(http.MethodPost, "/v1/applications/application-1/cover-letter", map[string]string{"tone": "sarcastic"}))
	require.Equal(t, http.StatusBadRequest, w.Code)
	require.Len(t, s.stages.tones, 2)
}

func TestUpdateStatusAndGetApplication(t *testing.T) {
	s := newTestServer(t, "")
	s.records.applications["application-1"] = &database.Application{ID: "application-1", JobPostingID: "posting-1", MatchScore: 88, Status: database.StatusShortlisted}
	s.records.postings["posting-1"] = &database.JobPosting{ID: "posting-1", Title: "Engineer"}

	w := s.do(jsonRequest(http.MethodPatch, "/v1/applications/application-1/status", map[string]string{"status": "Interview-Scheduled"}))
	require.Equal(t, http.StatusOK, w.Code)
	require.Equal(t, []database.ApplicationStatus{database.StatusInterviewScheduled}, s.stages.statuses)

	w = s.do(jsonRequest(http.MethodPatch, "/v1/applications/application-1/status", map[string]string{"status": "ghosted"}))
	require.Equal(t, http.StatusBadRequest, w.Code)

	w = s.do(httptest.NewRequest(http.MethodGet, "/v1/applications/application-1", nil))
	require.Equal(t, http.StatusOK, w.Code)

	w = s.do(httptest.NewRequest(http.MethodGet, "/v1/applications/missing", nil))
	require.Equal(t, http.StatusNotFound, w.Code)

	w = s.do(httptest.NewRequest(http.MethodGet, "/v1/postings/posting-1/applications", nil))
	require.Equal(t, http.StatusOK, w.Code)
	var list struct {
		Items []applicationResponse `json:"items"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &list))
	require.Len(t, list.Items, 1)
	require.Equal(t, 88, list.Items[0].MatchScore)

	w = s.do(httptest.NewRequest(http.MethodGet, "/v1/postings/missing/applications", nil))
	require.Equal(t, http.StatusNotFound, w.Code)
}

func TestPipelineState(t *testing.T) {
	s := newTestServer(t, "")
	s.stages.progress = &pipeline.Progress{State: pipeline.StateScored, Next: pipeline.StageLetter, ApplicationID: "application-1"}

	w := s.do(httptest.NewRequest(http.MethodGet, "/v1/pipeline/state?resume_id=r-1&posting_id=p-1", nil))
	require.Equal(t, http.StatusOK, w.Code)
	require.Equal(t, pipeline.Ref{ResumeID: "r-1", PostingID: "p-1"}, s.stages.lastRef)

	var progress pipeline.Progress
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &progress))
	require.Equal(t, pipeline.StateScored, progress.State)
	require.Equal(t, pipeline.StageLetter, progress.Next)
}

func TestConfigureTenant(t *testing.T) {
	s := newTestServer(t, "")

	w := s.do(jsonRequest(http.MethodPut, "/v1/tenants/tenant-1/credential", map[string]string{"api_key": "k-1", "model": "gemini-2.5-pro"}))
	require.Equal(t, http.StatusOK, w.Code)
	require.NotContains(t, w.Body.String(), "k-1")
	require.Equal(t, "k-1", s.tenants.settings["tenant-1"].APIKey)

	w = s.do(jsonRequest(http.MethodPut, "/v1/tenants/tenant-1/credential", map[string]string{"model": "gpt-unknown"}))
	require.Equal(t, http.StatusBadRequest, w.Code)
}

func TestCreateCandidate(t *testing.T) {
	s := newTestServer(t, "")

	w := s.do(jsonRequest(http.MethodPost, "/v1/candidates", map[string]string{"name": "Jane", "email": "jane@example.com"}))
	require.Equal(t, http.StatusCreated, w.Code)
	require.Len(t, s.records.candidates, 1)

	w = s.do(jsonRequest(http.MethodPost, "/v1/candidates", map[string]string{"name": "Jane", "email": "not-an-email"}))
	require.Equal(t, http.StatusBadRequest, w.Code)
}
