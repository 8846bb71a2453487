package api_test

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"

	"github.com/garnizeh/careerhub/api"
	dbfs "github.com/garnizeh/careerhub/db"
	"github.com/garnizeh/careerhub/internal/config"
	dbpkg "github.com/garnizeh/careerhub/internal/db"
	"github.com/garnizeh/careerhub/internal/export"
	"github.com/garnizeh/careerhub/internal/gradio"
	"github.com/garnizeh/careerhub/internal/jobs"
	"github.com/garnizeh/careerhub/internal/notify"
	sqlite "github.com/garnizeh/careerhub/internal/repository/sqlite"
	"github.com/garnizeh/careerhub/internal/schema"
	"github.com/garnizeh/careerhub/internal/storage"
	"github.com/garnizeh/careerhub/internal/voice"
	"github.com/garnizeh/careerhub/internal/xp"
	"github.com/garnizeh/careerhub/pkg/models"
)

type fakeCV struct {
	mu     sync.Mutex
	review string
	err    error
}

func (f *fakeCV) fail(err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.err = err
}

func (f *fakeCV) ReviewCV(ctx context.Context, cvJSON string, temperature float64, maxTokens int) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.review, f.err
}

func (f *fakeCV) ReviewCVMultilingual(ctx context.Context, cvJSON string, temperature float64, maxTokens int) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return "ml: " + f.review, f.err
}

func (f *fakeCV) RewriteCV(ctx context.Context, cvJSON string, temperature float64, maxTokens int) (json.RawMessage, error) {
	return json.RawMessage(`{"summary":"rewritten"}`), nil
}

func (f *fakeCV) MatchJob(ctx context.Context, r gradio.MatchRequest) (string, error) {
	return "match: " + r.JobTitle, nil
}

func (f *fakeCV) ParseCV(ctx context.Context, engine, text string) (*gradio.ParseResult, error) {
	return &gradio.ParseResult{Display: text, JSON: json.RawMessage(`{"skills":["Go"]}`)}, nil
}

type fakeVoice struct {
	mu      sync.Mutex
	pending bool
}

func (f *fakeVoice) setPending(v bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.pending = v
}

func (f *fakeVoice) Setup(ctx context.Context, cvData json.RawMessage, job voice.JobDescription) (*voice.SetupResponse, error) {
	return &voice.SetupResponse{Success: true, SessionID: "sess-1", Status: "ready", Message: "Interview for " + job.Title}, nil
}

func (f *fakeVoice) Status(ctx context.Context, sessionID string) (*voice.SessionStatus, error) {
	return &voice.SessionStatus{Active: true, TotalSections: 3}, nil
}

func (f *fakeVoice) Report(ctx context.Context, sessionID string) (*voice.ReportResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.pending {
		return &voice.ReportResponse{Status: "pending"}, nil
	}
	return &voice.ReportResponse{Status: "complete", Report: []json.RawMessage{
		json.RawMessage(`{"section":"Intro","score":"70/100","strength":"clear","weaknesses":"short","general_overview":"ok"}`),
		json.RawMessage(`{"section":"Tech","score":91}`),
		json.RawMessage(`{"error":"section skipped"}`),
	}}, nil
}

func (f *fakeVoice) History(ctx context.Context, sessionID string) ([]voice.HistoryEntry, error) {
	return []voice.HistoryEntry{{Section: "Intro", Role: "interviewer", Content: "Hi"}, {Section: "Intro", Role: "candidate", Content: "Hello"}}, nil
}

func (f *fakeVoice) StreamURL(sessionID string) string {
	return "ws://voice.test/api/voice-interview/stream/" + sessionID
}

type fakeQueue struct {
	mu   sync.Mutex
	typs []string
}

func (q *fakeQueue) Enqueue(ctx context.Context, typ string, payload any, priority int, maxAttempts int) (int64, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.typs = append(q.typs, typ)
	return int64(len(q.typs)), nil
}

func (q *fakeQueue) enqueued() []string {
	q.mu.Lock()
	defer q.mu.Unlock()
	return append([]string(nil), q.typs...)
}

type testEnv struct {
	srv   *httptest.Server
	repo  *sqlite.SQLiteRepo
	cv    *fakeCV
	voice *fakeVoice
	queue *fakeQueue
}

func newEnv(t *testing.T) *testEnv {
	t.Helper()
	ctx := context.Background()
	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	d, err := dbpkg.New(ctx, "file:"+name+"?mode=memory&cache=shared", nil)
	if err != nil {
		t.Fatalf("db.New: %v", err)
	}
	t.Cleanup(func() { d.Close() })
	if err := dbpkg.Migrate(ctx, d, dbfs.Migrations, dbfs.SeedFiles); err != nil {
		t.Fatalf("migrate: %v", err)
	}

	repo := sqlite.New(d, nil)
	store, err := storage.NewLocalStore(t.TempDir())
	if err != nil {
		t.Fatalf("local store: %v", err)
	}
	schemas, err := schema.Default()
	if err != nil {
		t.Fatalf("schemas: %v", err)
	}
	notifier := notify.NewService(repo, nil, nil)
	e := &testEnv{repo: repo, cv: &fakeCV{review: "Looks solid"}, voice: &fakeVoice{}, queue: &fakeQueue{}}

	cfg := &config.Config{
		JWTSecret:            testSecret,
		TokenDuration:        time.Hour,
		RefreshTokenDuration: 24 * time.Hour,
		BcryptCost:           bcrypt.MinCost,
		MaxUploadBytes:       1 << 20,
		PublicURL:            "https://careerhub.test",
	}
	r := api.SetupRoutes(cfg, "test", "now", api.Services{
		Repo:     repo,
		XP:       xp.NewService(repo, repo, repo, notifier, nil),
		Schemas:  schemas,
		Store:    store,
		Queue:    e.queue,
		Notifier: notifier,
		CV:       e.cv,
		Voice:    e.voice,
	})
	e.srv = httptest.NewServer(r)
	t.Cleanup(e.srv.Close)
	return e
}

func (e *testEnv) do(t *testing.T, method, path, token string, body any) (int, []byte) {
	t.Helper()
	var rd io.Reader
	if body != nil {
		raw, _ := json.Marshal(body)
		rd = bytes.NewReader(raw)
	}
	req, err := http.NewRequest(method, e.srv.URL+path, rd)
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	res, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("%s %s: %v", method, path, err)
	}
	defer res.Body.Close()
	b, _ := io.ReadAll(res.Body)
	return res.StatusCode, b
}

func (e *testEnv) register(t *testing.T, email, role string) (string, int64) {
	t.Helper()
	code, b := e.do(t, http.MethodPost, "/v1/auth/register", "", map[string]string{"name": "Test " + role, "email": email, "password": "password123", "role": role})
	if code != http.StatusCreated {
		t.Fatalf("register %s: %d %s", email, code, b)
	}
	var tp tokenPair
	if err := json.Unmarshal(b, &tp); err != nil {
		t.Fatalf("decode register: %v", err)
	}
	return tp.AccessToken, tp.User.ID
}

func decode[T any](t *testing.T, b []byte) T {
	t.Helper()
	var v T
	if err := json.Unmarshal(b, &v); err != nil {
		t.Fatalf("decode %s: %v", b, err)
	}
	return v
}

type page[T any] struct {
	Data []T `json:"data"`
	Meta struct {
		Total      int64 `json:"total"`
		TotalPages int   `json:"totalPages"`
	} `json:"meta"`
}

func TestRouter_PublicAndPreflight(t *testing.T) {
	e := newEnv(t)

	if code, _ := e.do(t, http.MethodGet, "/health", "", nil); code != http.StatusOK {
		t.Fatalf("health: %d", code)
	}
	if code, _ := e.do(t, http.MethodGet, "/v1/users/me", "", nil); code != http.StatusUnauthorized {
		t.Fatalf("users/me without token: %d", code)
	}

	req, _ := http.NewRequest(http.MethodOptions, e.srv.URL+"/v1/users/me", nil)
	res, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("preflight: %v", err)
	}
	res.Body.Close()
	if res.StatusCode != http.StatusNoContent || res.Header.Get("Access-Control-Allow-Origin") != "*" {
		t.Fatalf("preflight: %d origin=%q", res.StatusCode, res.Header.Get("Access-Control-Allow-Origin"))
	}
}

func TestRouter_CompaniesAndJobs(t *testing.T) {
	e := newEnv(t)
	acme, _ := e.register(t, "owner@acme.test", models.RoleBusiness)
	other, _ := e.register(t, "owner@other.test", models.RoleBusiness)
	seeker, _ := e.register(t, "seeker@example.com", models.RoleUser)

	if code, _ := e.do(t, http.MethodPost, "/v1/companies", seeker, map[string]string{"name": "Nope"}); code != http.StatusForbidden {
		t.Fatalf("user creating company: want 403 got %d", code)
	}
	code, b := e.do(t, http.MethodPost, "/v1/companies", acme, map[string]any{"name": "Acme Corp!", "locations": []string{"Remote"}})
	if code != http.StatusCreated {
		t.Fatalf("create company: %d %s", code, b)
	}
	company := decode[models.Company](t, b)
	if company.Slug != "acme-corp" {
		t.Fatalf("slug = %q", company.Slug)
	}
	if code, _ := e.do(t, http.MethodPost, "/v1/companies", acme, map[string]string{"name": "Second"}); code != http.StatusConflict {
		t.Fatalf("second company: want 409 got %d", code)
	}
	code, b = e.do(t, http.MethodPost, "/v1/companies", other, map[string]string{"name": "ACME corp"})
	if code != http.StatusCreated || decode[models.Company](t, b).Slug != "acme-corp-2" {
		t.Fatalf("dedup slug: %d %s", code, b)
	}
	if code, _ := e.do(t, http.MethodGet, "/v1/companies/acme-corp", seeker, nil); code != http.StatusOK {
		t.Fatalf("get by slug: %d", code)
	}
	if code, _ := e.do(t, http.MethodPatch, fmt.Sprintf("/v1/companies/%d", company.ID), other, map[string]string{"tagline": "x"}); code != http.StatusForbidden {
		t.Fatalf("patch foreign company: want 403 got %d", code)
	}

	bad := map[string]any{"title": "Go Dev", "description": "Build APIs", "salaryMin": 200, "salaryMax": 100}
	if code, _ := e.do(t, http.MethodPost, "/v1/jobs", acme, bad); code != http.StatusBadRequest {
		t.Fatalf("salary range: want 400 got %d", code)
	}
	if code, _ := e.do(t, http.MethodPost, "/v1/jobs", seeker, map[string]any{"title": "x", "description": "y"}); code != http.StatusForbidden {
		t.Fatalf("user posting job: want 403 got %d", code)
	}
	code, b = e.do(t, http.MethodPost, "/v1/jobs", acme, map[string]any{
		"title": "Go Dev", "description": "Build APIs", "type": "contract", "experienceLevel": "SENIOR", "salaryMin": 100, "salaryMax": 200, "remote": true,
	})
	if code != http.StatusCreated {
		t.Fatalf("create job: %d %s", code, b)
	}
	job := decode[models.Job](t, b)
	if job.CompanyName != "Acme Corp!" || job.Type != "CONTRACT" || job.Status != models.JobStatusOpen {
		t.Fatalf("unexpected job: %+v", job)
	}

	code, b = e.do(t, http.MethodGet, "/v1/jobs?remote=true&type=CONTRACT", seeker, nil)
	if code != http.StatusOK || decode[page[models.Job]](t, b).Meta.Total != 1 {
		t.Fatalf("list jobs: %d %s", code, b)
	}
	code, b = e.do(t, http.MethodGet, fmt.Sprintf("/v1/companies/%d/jobs", company.ID), seeker, nil)
	if code != http.StatusOK || len(decode[page[models.Job]](t, b).Data) != 1 {
		t.Fatalf("company jobs: %d %s", code, b)
	}
	if code, _ := e.do(t, http.MethodPatch, fmt.Sprintf("/v1/jobs/%d", job.ID), other, map[string]string{"status": "CLOSED"}); code != http.StatusForbidden {
		t.Fatalf("foreign job update: want 403 got %d", code)
	}
	if code, _ := e.do(t, http.MethodPatch, fmt.Sprintf("/v1/jobs/%d", job.ID), acme, map[string]string{"status": "CLOSED"}); code != http.StatusOK {
		t.Fatalf("close job: %d", code)
	}
	code, b = e.do(t, http.MethodGet, "/v1/jobs", seeker, nil)
	if decode[page[models.Job]](t, b).Meta.Total != 0 {
		t.Fatalf("closed job still listed as open: %s", b)
	}
	if code, _ := e.do(t, http.MethodDelete, fmt.Sprintf("/v1/jobs/%d", job.ID), acme, nil); code != http.StatusOK {
		t.Fatalf("delete job: %d", code)
	}
}

type applicationJSON struct {
	models.JobApplication
	Source string `json:"source"`
}

func TestRouter_Applications(t *testing.T) {
	e := newEnv(t)
	biz, _ := e.register(t, "hr@acme.test", models.RoleBusiness)
	seeker, seekerID := e.register(t, "seeker@example.com", models.RoleUser)
	snoop, _ := e.register(t, "snoop@example.com", models.RoleUser)

	e.do(t, http.MethodPost, "/v1/companies", biz, map[string]string{"name": "Acme"})
	_, b := e.do(t, http.MethodPost, "/v1/jobs", biz, map[string]any{"title": "SRE", "description": "Keep it up", "salaryMin": 90, "salaryMax": 120, "location": "Lisbon"})
	job := decode[models.Job](t, b)

	code, b := e.do(t, http.MethodPost, "/v1/job-applications", seeker, map[string]any{"jobId": job.ID})
	if code != http.StatusCreated {
		t.Fatalf("apply: %d %s", code, b)
	}
	internal := decode[applicationJSON](t, b)
	if internal.JobTitle != "SRE" || internal.CompanyName != "Acme" || internal.Salary == nil || *internal.Salary != 120 || internal.Source != "internal" {
		t.Fatalf("not filled from job: %+v", internal)
	}
	if code, _ := e.do(t, http.MethodPost, "/v1/job-applications", seeker, map[string]any{"jobId": 9999}); code != http.StatusNotFound {
		t.Fatalf("unknown job: want 404 got %d", code)
	}
	if code, _ := e.do(t, http.MethodPost, "/v1/job-applications", seeker, map[string]any{"jobTitle": "Dev"}); code != http.StatusBadRequest {
		t.Fatalf("missing company: want 400 got %d", code)
	}
	if code, _ := e.do(t, http.MethodPost, "/v1/job-applications", seeker, map[string]any{"jobTitle": "Dev", "companyName": "X", "status": "ghosted"}); code != http.StatusBadRequest {
		t.Fatalf("bad status: want 400 got %d", code)
	}
	code, b = e.do(t, http.MethodPost, "/v1/job-applications", seeker, map[string]any{"jobTitle": "Dev", "companyName": "Globex"})
	if code != http.StatusCreated || decode[applicationJSON](t, b).Source != "external" {
		t.Fatalf("external apply: %d %s", code, b)
	}
	external := decode[applicationJSON](t, b)
	extPath := fmt.Sprintf("/v1/job-applications/%d", external.ID)
	if code, _ := e.do(t, http.MethodPatch, extPath, seeker, map[string]any{"jobId": 9999}); code != http.StatusNotFound {
		t.Fatalf("link unknown job: want 404 got %d", code)
	}
	code, b = e.do(t, http.MethodPatch, extPath, seeker, map[string]any{"jobId": job.ID})
	linked := decode[applicationJSON](t, b)
	if code != http.StatusOK || linked.JobID == nil || *linked.JobID != job.ID || linked.CompanyName != "Acme" || linked.Source != "internal" {
		t.Fatalf("link job: %d %s", code, b)
	}
	_, b = e.do(t, http.MethodGet, extPath, seeker, nil)
	if got := decode[applicationJSON](t, b); got.JobID == nil || *got.JobID != job.ID {
		t.Fatalf("link not persisted: %s", b)
	}

	path := fmt.Sprintf("/v1/job-applications/%d", internal.ID)
	if code, _ := e.do(t, http.MethodGet, path, snoop, nil); code != http.StatusForbidden {
		t.Fatalf("foreign read: want 403 got %d", code)
	}
	if code, _ := e.do(t, http.MethodGet, path, signToken(t, testSecret, jwt.MapClaims{"user_id": 999, "role": models.RoleAdmin}), nil); code != http.StatusOK {
		t.Fatalf("admin read: %d", code)
	}
	if code, _ := e.do(t, http.MethodPatch, path, seeker, map[string]string{"status": "interview"}); code != http.StatusOK {
		t.Fatalf("status change: %d", code)
	}

	_, b = e.do(t, http.MethodGet, "/v1/notifications", seeker, nil)
	var found bool
	for _, n := range decode[[]models.Notification](t, b) {
		found = found || n.Type == models.NotificationApplicationUpdate
	}
	if !found {
		t.Fatalf("no application update notification: %s", b)
	}
	_, b = e.do(t, http.MethodGet, "/v1/xp/status", seeker, nil)
	if st := decode[map[string]any](t, b); st["xp"].(float64) < 20 {
		t.Fatalf("interview insight not awarded: %s", b)
	}

	_, b = e.do(t, http.MethodGet, "/v1/job-applications/stats/me", seeker, nil)
	stats := decode[models.ApplicationStats](t, b)
	if stats.Total != 2 || stats.Internal != 2 || stats.External != 0 || stats.ByStatus["interview"] != 1 {
		t.Fatalf("stats: %+v", stats)
	}
	if code, _ := e.do(t, http.MethodGet, "/v1/job-applications/stats/global", seeker, nil); code != http.StatusForbidden {
		t.Fatalf("global stats as user: want 403 got %d", code)
	}
	code, b = e.do(t, http.MethodGet, fmt.Sprintf("/v1/job-applications/job/%d", job.ID), biz, nil)
	if code != http.StatusOK || decode[page[applicationJSON]](t, b).Meta.Total != 2 {
		t.Fatalf("applications by job: %d %s", code, b)
	}
	if code, _ := e.do(t, http.MethodGet, fmt.Sprintf("/v1/job-applications/job/%d", job.ID), snoop, nil); code != http.StatusForbidden {
		t.Fatalf("applications by job as stranger: want 403 got %d", code)
	}
	if code, _ := e.do(t, http.MethodGet, fmt.Sprintf("/v1/job-applications/user/%d", seekerID), snoop, nil); code != http.StatusForbidden {
		t.Fatalf("foreign user listing: want 403 got %d", code)
	}

	req, _ := http.NewRequest(http.MethodGet, e.srv.URL+"/v1/job-applications/me/export", nil)
	req.Header.Set("Authorization", "Bearer "+seeker)
	res, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("export: %v", err)
	}
	res.Body.Close()
	if res.StatusCode != http.StatusOK || res.Header.Get("Content-Type") != export.ContentType {
		t.Fatalf("export: %d %q", res.StatusCode, res.Header.Get("Content-Type"))
	}

	code, b = e.do(t, http.MethodDelete, path, seeker, nil)
	if code != http.StatusOK || !strings.Contains(string(b), "Job application deleted successfully") {
		t.Fatalf("delete: %d %s", code, b)
	}
}

func uploadFile(t *testing.T, url, token, field, name string, content []byte) (int, []byte) {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, err := mw.CreateFormFile(field, name)
	if err != nil {
		t.Fatalf("form file: %v", err)
	}
	fw.Write(content)
	mw.Close()
	req, _ := http.NewRequest(http.MethodPost, url, &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	req.Header.Set("Authorization", "Bearer "+token)
	res, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("upload: %v", err)
	}
	defer res.Body.Close()
	b, _ := io.ReadAll(res.Body)
	return res.StatusCode, b
}

func TestRouter_Resumes(t *testing.T) {
	e := newEnv(t)
	owner, _ := e.register(t, "owner@example.com", models.RoleUser)
	other, _ := e.register(t, "other@example.com", models.RoleUser)

	code, b := e.do(t, http.MethodPost, "/v1/resumes", owner, map[string]any{"data": map[string]any{"skills": []string{"Go"}}})
	if code != http.StatusCreated {
		t.Fatalf("create resume: %d %s", code, b)
	}
	res := decode[models.Resume](t, b)
	if res.Title != "My Resume" {
		t.Fatalf("default title: %q", res.Title)
	}
	base := fmt.Sprintf("/v1/resumes/%d", res.ID)
	if code, _ := e.do(t, http.MethodGet, base, other, nil); code != http.StatusForbidden {
		t.Fatalf("foreign resume: want 403 got %d", code)
	}

	if code, _ := uploadFile(t, e.srv.URL+base+"/upload", owner, "file", "cv.exe", []byte("MZ")); code != http.StatusUnsupportedMediaType {
		t.Fatalf("exe upload: want 415 got %d", code)
	}
	pdf := []byte("%PDF-1.4 fake")
	if code, b := uploadFile(t, e.srv.URL+base+"/upload", owner, "file", "cv.pdf", pdf); code != http.StatusOK {
		t.Fatalf("upload: %d %s", code, b)
	}
	if got := e.queue.enqueued(); len(got) != 1 || got[0] != jobs.TypeResumeExtract {
		t.Fatalf("extraction not queued: %v", got)
	}
	code, b = e.do(t, http.MethodGet, base+"/download", owner, nil)
	if code != http.StatusOK || !bytes.Equal(b, pdf) {
		t.Fatalf("download: %d %q", code, b)
	}

	code, b = e.do(t, http.MethodPost, base+"/review", owner, map[string]any{"temperature": 0.5})
	if code != http.StatusOK || !strings.Contains(string(b), "Looks solid") {
		t.Fatalf("review: %d %s", code, b)
	}
	if code, _ := e.do(t, http.MethodPost, base+"/review?async=true", owner, nil); code != http.StatusAccepted {
		t.Fatalf("async review: want 202 got %d", code)
	}
	code, b = e.do(t, http.MethodPost, base+"/review-multilingual", owner, nil)
	if code != http.StatusOK || decode[map[string]string](t, b)["review"] != "ml: Looks solid" {
		t.Fatalf("multilingual review: %d %s", code, b)
	}
	e.cv.fail(&gradio.Error{Endpoint: "review_cv", Message: "boom at http://10.0.0.7:7860"})
	code, b = e.do(t, http.MethodPost, base+"/review", owner, nil)
	if code != http.StatusBadGateway {
		t.Fatalf("gradio failure: want 502 got %d", code)
	}
	if strings.Contains(string(b), "boom") || strings.Contains(string(b), "10.0.0.7") {
		t.Fatalf("upstream detail leaked to client: %s", b)
	}
	if code, _ := e.do(t, http.MethodPost, base+"/review-multilingual", owner, nil); code != http.StatusBadGateway {
		t.Fatalf("multilingual gradio failure: want 502 got %d", code)
	}
	e.cv.fail(nil)

	if code, _ := e.do(t, http.MethodPost, "/v1/resumes/match-job", owner, map[string]string{"jobTitle": "Dev"}); code != http.StatusBadRequest {
		t.Fatalf("match without requirements: want 400 got %d", code)
	}
	code, b = e.do(t, http.MethodPost, "/v1/resumes/match-job", owner, map[string]string{"jobTitle": "Dev", "jobRequirements": "Go"})
	if code != http.StatusOK || !strings.Contains(string(b), "match: Dev") {
		t.Fatalf("match: %d %s", code, b)
	}

	code, b = e.do(t, http.MethodPost, base+"/share", owner, nil)
	if code != http.StatusOK {
		t.Fatalf("share: %d %s", code, b)
	}
	share := decode[struct {
		ShareURL  string `json:"shareUrl"`
		ShareSlug string `json:"shareSlug"`
	}](t, b)
	if !strings.HasPrefix(share.ShareURL, "https://careerhub.test/v1/public/resumes/") {
		t.Fatalf("share url: %q", share.ShareURL)
	}
	for range 2 {
		if code, _ := e.do(t, http.MethodGet, "/v1/public/resumes/"+share.ShareSlug, "", nil); code != http.StatusOK {
			t.Fatalf("public resume: %d", code)
		}
	}
	_, b = e.do(t, http.MethodGet, base+"/share/stats", owner, nil)
	if st := decode[map[string]any](t, b); st["shareViews"].(float64) != 2 {
		t.Fatalf("share views: %s", b)
	}
	e.do(t, http.MethodDelete, base+"/share", owner, nil)
	if code, _ := e.do(t, http.MethodGet, "/v1/public/resumes/"+share.ShareSlug, "", nil); code != http.StatusNotFound {
		t.Fatalf("unshared resume: want 404 got %d", code)
	}

	if code, _ := e.do(t, http.MethodDelete, base, owner, nil); code != http.StatusOK {
		t.Fatalf("delete resume: %d", code)
	}
	if code, _ := e.do(t, http.MethodGet, base, owner, nil); code != http.StatusNotFound {
		t.Fatalf("deleted resume: want 404 got %d", code)
	}
}

func TestRouter_VoiceInterviews(t *testing.T) {
	e := newEnv(t)
	user, _ := e.register(t, "candidate@example.com", models.RoleUser)
	other, _ := e.register(t, "other@example.com", models.RoleUser)

	if code, _ := e.do(t, http.MethodGet, "/v1/voice-interviews/report", user, nil); code != http.StatusNotFound {
		t.Fatalf("report without sessions: want 404 got %d", code)
	}
	setup := map[string]any{
		"cvData":         map[string]any{"personalInformation": map[string]any{"fullName": "Ada"}},
		"jobDescription": map[string]any{"description": "no title"},
	}
	if code, _ := e.do(t, http.MethodPost, "/v1/voice-interviews/setup", user, setup); code != http.StatusBadRequest {
		t.Fatalf("setup without title: want 400 got %d", code)
	}
	setup["jobDescription"] = map[string]any{"title": "Backend Engineer", "requirements": []string{"Go"}}
	code, b := e.do(t, http.MethodPost, "/v1/voice-interviews/setup", user, setup)
	if code != http.StatusCreated {
		t.Fatalf("setup: %d %s", code, b)
	}
	if got := decode[map[string]any](t, b); got["sessionId"] != "sess-1" || got["status"] != models.VoiceStatusActive {
		t.Fatalf("setup response: %s", b)
	}

	if code, _ := e.do(t, http.MethodGet, "/v1/voice-interviews/report?sessionId=sess-1", other, nil); code != http.StatusNotFound {
		t.Fatalf("foreign report: want 404 got %d", code)
	}
	e.voice.setPending(true)
	if code, _ := e.do(t, http.MethodGet, "/v1/voice-interviews/report?sessionId=undefined", user, nil); code != http.StatusAccepted {
		t.Fatalf("pending report: want 202 got %d", code)
	}
	e.voice.setPending(false)
	code, b = e.do(t, http.MethodGet, "/v1/voice-interviews/report?sessionId=null", user, nil)
	if code != http.StatusOK {
		t.Fatalf("report: %d %s", code, b)
	}
	rep := decode[struct {
		Report       []voice.Section `json:"report"`
		OverallScore int             `json:"overallScore"`
		Status       string          `json:"status"`
	}](t, b)
	if len(rep.Report) != 2 || rep.OverallScore != 81 || rep.Status != models.VoiceStatusCompleted {
		t.Fatalf("report: %+v", rep)
	}
	if rep.Report[0].GeneralOverview != "ok" || rep.Report[0].Score != 70 {
		t.Fatalf("section not normalised: %+v", rep.Report[0])
	}

	code, b = e.do(t, http.MethodGet, "/v1/voice-interviews/history?sessionId=sess-1", user, nil)
	if code != http.StatusOK || decode[map[string]any](t, b)["totalExchanges"].(float64) != 2 {
		t.Fatalf("history: %d %s", code, b)
	}
	_, b = e.do(t, http.MethodGet, "/v1/voice-interviews/sessions", user, nil)
	sessions := decode[[]models.VoiceSession](t, b)
	if len(sessions) != 1 || sessions[0].Status != models.VoiceStatusCompleted || sessions[0].OverallScore == nil {
		t.Fatalf("sessions: %s", b)
	}
	code, b = e.do(t, http.MethodGet, "/v1/voice-interviews/sess-1/stream-url", user, nil)
	if code != http.StatusOK || !strings.Contains(string(b), "ws://voice.test/") {
		t.Fatalf("stream url: %d %s", code, b)
	}
}

func TestRouter_ProfileAndAdmin(t *testing.T) {
	e := newEnv(t)
	user, userID := e.register(t, "me@example.com", models.RoleUser)
	admin := signToken(t, testSecret, jwt.MapClaims{"user_id": 999, "role": models.RoleAdmin})

	code, b := e.do(t, http.MethodPost, "/v1/users/me/skills", user, map[string]string{"name": "Go", "level": "EXPERT"})
	if code != http.StatusCreated {
		t.Fatalf("create skill: %d %s", code, b)
	}
	if code, _ := e.do(t, http.MethodPost, "/v1/users/me/skills", user, map[string]string{"name": "Go", "level": "GOD"}); code != http.StatusBadRequest {
		t.Fatalf("bad skill level: want 400 got %d", code)
	}

	cv := map[string]any{
		"personalInformation": map[string]any{"fullName": "Me Myself", "links": []string{"https://github.com/me"}},
		"skills":              []string{"Go", "Docker"},
		"workExperience":      []map[string]any{{"jobTitle": "Dev", "company": "Initech", "startDate": "2020-01"}},
	}
	code, b = e.do(t, http.MethodPost, "/v1/users/me/import-cv", user, map[string]any{"cvData": cv})
	if code != http.StatusOK {
		t.Fatalf("import cv: %d %s", code, b)
	}
	counts := decode[map[string]int](t, b)
	if counts["skills"] != 2 || counts["experiences"] != 1 || counts["socialLinks"] != 1 {
		t.Fatalf("import counts: %v", counts)
	}
	_, b = e.do(t, http.MethodGet, "/v1/users/me/skills", user, nil)
	if skills := decode[[]models.Skill](t, b); len(skills) != 2 {
		t.Fatalf("import did not replace skills: %s", b)
	}

	if code, _ := e.do(t, http.MethodGet, "/v1/admin/users", user, nil); code != http.StatusForbidden {
		t.Fatalf("admin list as user: want 403 got %d", code)
	}
	code, b = e.do(t, http.MethodGet, "/v1/admin/users", admin, nil)
	if code != http.StatusOK || decode[page[models.User]](t, b).Meta.Total != 1 {
		t.Fatalf("admin list: %d %s", code, b)
	}
	if code, _ := e.do(t, http.MethodPatch, fmt.Sprintf("/v1/admin/users/%d", userID), admin, map[string]any{"isActive": false}); code != http.StatusOK {
		t.Fatalf("deactivate: %d", code)
	}
	if code, _ := e.do(t, http.MethodPost, "/v1/auth/login", "", map[string]string{"email": "me@example.com", "password": "password123"}); code != http.StatusUnauthorized {
		t.Fatalf("login of inactive user: want 401 got %d", code)
	}
	if code, _ := e.do(t, http.MethodGet, "/v1/system/integrations", admin, nil); code != http.StatusOK {
		t.Fatalf("integrations: %d", code)
	}
}

func TestRouter_ResumeSections(t *testing.T) {
	e := newEnv(t)
	owner, _ := e.register(t, "builder@example.com", models.RoleUser)
	other, _ := e.register(t, "other@example.com", models.RoleUser)

	data := map[string]any{
		"personalInformation": map[string]any{"fullName": "Ada", "summary": "Engineer."},
		"workExperience":      []map[string]any{{"jobTitle": "Dev", "company": "Initech", "startDate": "2020-01"}},
		"skills":              []string{"Go"},
	}
	code, b := e.do(t, http.MethodPost, "/v1/resumes", owner, map[string]any{"data": data})
	if code != http.StatusCreated {
		t.Fatalf("create resume: %d %s", code, b)
	}
	res := decode[models.Resume](t, b)
	base := fmt.Sprintf("/v1/resumes/%d", res.ID)

	_, b = e.do(t, http.MethodGet, base+"/sections", owner, nil)
	secs := decode[[]models.ResumeSection](t, b)
	if len(secs) != 4 || secs[0].Type != models.SectionProfile || secs[3].Type != models.SectionSkills {
		t.Fatalf("generated sections: %s", b)
	}
	if code, _ := e.do(t, http.MethodGet, base+"/sections", other, nil); code != http.StatusForbidden {
		t.Fatalf("foreign sections: want 403 got %d", code)
	}

	if code, _ := e.do(t, http.MethodPost, base+"/sections", owner, map[string]any{"type": "HOBBIES"}); code != http.StatusBadRequest {
		t.Fatalf("unknown type: want 400 got %d", code)
	}
	code, b = e.do(t, http.MethodPost, base+"/sections", owner, map[string]any{"type": "awards", "content": map[string]any{"items": []string{"Prize"}}})
	if code != http.StatusCreated {
		t.Fatalf("create section: %d %s", code, b)
	}
	custom := decode[models.ResumeSection](t, b)
	if custom.Type != models.SectionCustom || custom.SortOrder != 4 || custom.Title != "Custom" {
		t.Fatalf("created section: %+v", custom)
	}
	secURL := fmt.Sprintf("/v1/resumes/sections/%d", custom.ID)
	if code, _ := e.do(t, http.MethodGet, secURL, other, nil); code != http.StatusForbidden {
		t.Fatalf("foreign section: want 403 got %d", code)
	}
	code, b = e.do(t, http.MethodPut, secURL, owner, map[string]any{"title": "Awards"})
	if code != http.StatusOK || decode[models.ResumeSection](t, b).Title != "Awards" {
		t.Fatalf("update section: %d %s", code, b)
	}

	reorder := map[string]any{"sectionOrders": []map[string]any{{"id": custom.ID, "order": 0}, {"id": secs[0].ID, "order": 4}}}
	code, b = e.do(t, http.MethodPut, base+"/sections/reorder", owner, reorder)
	if code != http.StatusOK {
		t.Fatalf("reorder: %d %s", code, b)
	}
	if got := decode[[]models.ResumeSection](t, b); got[0].ID != custom.ID || got[len(got)-1].ID != secs[0].ID {
		t.Fatalf("reorder result: %s", b)
	}
	bad := map[string]any{"sectionOrders": []map[string]any{{"id": custom.ID, "order": 1}, {"id": 999999, "order": 2}}}
	if code, _ := e.do(t, http.MethodPut, base+"/sections/reorder", owner, bad); code != http.StatusNotFound {
		t.Fatalf("reorder with foreign id: want 404 got %d", code)
	}
	_, b = e.do(t, http.MethodGet, secURL, owner, nil)
	if decode[models.ResumeSection](t, b).SortOrder != 0 {
		t.Fatalf("failed reorder was partially applied: %s", b)
	}

	summary := secs[1]
	sg := map[string]any{"sectionId": summary.ID, "type": "rewrite", "original": summary.Content, "suggested": map[string]string{"content": "Senior engineer."}, "reason": "stronger"}
	code, b = e.do(t, http.MethodPost, base+"/suggestions", owner, sg)
	if code != http.StatusCreated {
		t.Fatalf("create suggestion: %d %s", code, b)
	}
	created := decode[models.ResumeSuggestion](t, b)
	if created.Status != models.SuggestionPending {
		t.Fatalf("suggestion status: %s", created.Status)
	}
	_, b = e.do(t, http.MethodGet, base+"/sections", owner, nil)
	for _, s := range decode[[]models.ResumeSection](t, b) {
		if s.ID == summary.ID && len(s.Suggestions) != 1 {
			t.Fatalf("pending suggestion not attached: %s", b)
		}
	}

	_, b = e.do(t, http.MethodPost, "/v1/resumes", other, nil)
	foreign := decode[models.Resume](t, b)
	_, b = e.do(t, http.MethodPost, fmt.Sprintf("/v1/resumes/%d/sections", foreign.ID), other, map[string]any{"type": "SUMMARY"})
	foreignSec := decode[models.ResumeSection](t, b)
	sg["sectionId"] = foreignSec.ID
	if code, _ := e.do(t, http.MethodPost, base+"/suggestions", owner, sg); code != http.StatusBadRequest {
		t.Fatalf("suggestion for foreign section: want 400 got %d", code)
	}

	sgURL := fmt.Sprintf("/v1/resumes/suggestions/%d", created.ID)
	if code, _ := e.do(t, http.MethodPut, sgURL, owner, map[string]string{"status": "maybe"}); code != http.StatusBadRequest {
		t.Fatalf("bad status: want 400 got %d", code)
	}
	code, b = e.do(t, http.MethodPut, sgURL, owner, map[string]string{"status": "accepted"})
	if code != http.StatusOK || decode[models.ResumeSuggestion](t, b).AppliedAt == nil {
		t.Fatalf("accept suggestion: %d %s", code, b)
	}
	_, b = e.do(t, http.MethodGet, fmt.Sprintf("/v1/resumes/sections/%d", summary.ID), owner, nil)
	if !strings.Contains(string(decode[models.ResumeSection](t, b).Content), "Senior engineer.") {
		t.Fatalf("accepted suggestion not applied: %s", b)
	}

	_, b = e.do(t, http.MethodGet, base+"/suggestions?status=pending", owner, nil)
	if got := decode[[]models.ResumeSuggestion](t, b); len(got) != 0 {
		t.Fatalf("pending after accept: %s", b)
	}
	_, b = e.do(t, http.MethodGet, fmt.Sprintf("%s/suggestions?sectionId=%d", base, summary.ID), owner, nil)
	if got := decode[[]models.ResumeSuggestion](t, b); len(got) != 1 {
		t.Fatalf("suggestions by section: %s", b)
	}
	if code, _ := e.do(t, http.MethodDelete, sgURL, other, nil); code != http.StatusForbidden {
		t.Fatalf("foreign suggestion delete: want 403 got %d", code)
	}
	if code, _ := e.do(t, http.MethodDelete, sgURL, owner, nil); code != http.StatusNoContent {
		t.Fatalf("delete suggestion: %d", code)
	}
	if code, _ := e.do(t, http.MethodDelete, secURL, owner, nil); code != http.StatusNoContent {
		t.Fatalf("delete section: %d", code)
	}
	if code, _ := e.do(t, http.MethodGet, secURL, owner, nil); code != http.StatusNotFound {
		t.Fatalf("deleted section: want 404 got %d", code)
	}
}

func TestRouter_ProfileSectionUpdates(t *testing.T) {
	e := newEnv(t)
	user, _ := e.register(t, "sections@example.com", models.RoleUser)
	other, _ := e.register(t, "nosy@example.com", models.RoleUser)

	code, b := e.do(t, http.MethodPost, "/v1/users/me/experiences", user, map[string]string{"jobTitle": "Dev", "company": "Initech", "startDate": "2019", "endDate": "June 2020"})
	if code != http.StatusCreated {
		t.Fatalf("create experience: %d %s", code, b)
	}
	exp := decode[models.Experience](t, b)
	if exp.IsCurrent || exp.EndDate != "" {
		t.Fatalf("unparseable end date marked current: %+v", exp)
	}
	expURL := fmt.Sprintf("/v1/users/me/experiences/%d", exp.ID)
	code, b = e.do(t, http.MethodPatch, expURL, user, map[string]string{"location": "Remote"})
	if code != http.StatusOK {
		t.Fatalf("patch experience: %d %s", code, b)
	}
	if got := decode[models.Experience](t, b); got.Location != "Remote" || got.JobTitle != "Dev" || got.StartDate != "2019-01-01" {
		t.Fatalf("patched experience: %+v", got)
	}
	if code, _ := e.do(t, http.MethodPatch, expURL, other, map[string]string{"location": "Mars"}); code != http.StatusNotFound {
		t.Fatalf("foreign patch: want 404 got %d", code)
	}

	code, b = e.do(t, http.MethodPost, "/v1/users/me/certifications", user, map[string]string{"name": "CKA", "issuer": "CNCF", "issueDate": "2021-02"})
	if code != http.StatusCreated {
		t.Fatalf("create certification: %d %s", code, b)
	}
	cert := decode[models.Certification](t, b)
	if code, _ := e.do(t, http.MethodPatch, fmt.Sprintf("/v1/users/me/certifications/%d", cert.ID), user, map[string]string{"expiryDate": "2020-01-01"}); code != http.StatusBadRequest {
		t.Fatalf("expiry before issue: want 400 got %d", code)
	}
	if code, _ := e.do(t, http.MethodPost, "/v1/users/me/awards", user, map[string]string{"title": "Hackathon winner"}); code != http.StatusCreated {
		t.Fatalf("create award: %d", code)
	}
	if code, _ := e.do(t, http.MethodPost, "/v1/users/me/volunteer-work", user, map[string]string{"role": "Mentor", "organization": "Code Club"}); code != http.StatusCreated {
		t.Fatalf("create volunteer work: %d", code)
	}
	code, b = e.do(t, http.MethodPost, "/v1/users/me/social-links", user, map[string]string{"url": "https://github.com/me"})
	if code != http.StatusCreated || decode[models.SocialLink](t, b).Type != "GITHUB" {
		t.Fatalf("create social link: %d %s", code, b)
	}
	code, b = e.do(t, http.MethodPost, "/v1/users/me/languages", user, map[string]string{"language": "Portuguese", "proficiency": "native"})
	if code != http.StatusCreated || decode[models.Language](t, b).Proficiency != "NATIVE" {
		t.Fatalf("create language: %d %s", code, b)
	}

	_, b = e.do(t, http.MethodGet, "/v1/users/me", user, nil)
	me := decode[map[string]json.RawMessage](t, b)
	for _, key := range []string{"certifications", "awards", "volunteerWork", "languages", "socialLinks"} {
		var items []any
		if err := json.Unmarshal(me[key], &items); err != nil || len(items) != 1 {
			t.Fatalf("profile %s: %s", key, me[key])
		}
	}

	if code, _ := e.do(t, http.MethodDelete, fmt.Sprintf("/v1/users/me/certifications/%d", cert.ID), other, nil); code != http.StatusNotFound {
		t.Fatalf("foreign delete: want 404 got %d", code)
	}
	if code, _ := e.do(t, http.MethodDelete, fmt.Sprintf("/v1/users/me/certifications/%d", cert.ID), user, nil); code != http.StatusNoContent {
		t.Fatalf("delete certification: %d", code)
	}
}
