package processor

import (
	"context"
	"errors"
	"os"
	"strings"
	"sync"
	"testing"
	"time"

	"hiring-portal/internal/storage"
	"hiring-portal/internal/storage/models"
	"hiring-portal/internal/types"

	"github.com/cloudwego/eino/components/embedding"
	"github.com/stretchr/testify/require"
)

const sampleResume = `Jane Doe
jane.doe@example.com
+1 555 123 4567
Skills: Go, Kubernetes, SQL

Experience
Engineer at Acme
2018 - 2021
`

const sampleJD = "We need a Go engineer with Kubernetes and SQL experience"

var testClock = func() time.Time { return time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC) }

// fakeRepo 内存实现，事务内的写入先暂存，提交时才合并
type fakeRepo struct {
	mu                sync.Mutex
	nextApplicantID   uint64
	nextApplicationID uint64
	applicants        map[uint64]*models.Applicant
	applications      map[uint64]*models.Application
	outbox            []*models.OutboxMessage
	managers          map[string]bool

	failInsertApplication error
	failUpdateScores      error
	failCommit            error
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{
		applicants:   make(map[uint64]*models.Applicant),
		applications: make(map[uint64]*models.Application),
		managers:     map[string]bool{"alice": true},
	}
}

type fakeTx struct {
	repo         *fakeRepo
	applicants   map[uint64]*models.Applicant
	applications map[uint64]*models.Application
	outbox       []*models.OutboxMessage
}

func (r *fakeRepo) WithinTx(ctx context.Context, fn func(tx storage.ApplicationTx) error) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	tx := &fakeTx{
		repo:         r,
		applicants:   make(map[uint64]*models.Applicant),
		applications: make(map[uint64]*models.Application),
	}
	if err := fn(tx); err != nil {
		return err
	}
	if r.failCommit != nil {
		return r.failCommit
	}
	for id, a := range tx.applicants {
		r.applicants[id] = a
	}
	for id, a := range tx.applications {
		r.applications[id] = a
	}
	r.outbox = append(r.outbox, tx.outbox...)
	return nil
}

func (r *fakeRepo) GetApplication(_ context.Context, id uint64) (*models.Application, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if a, ok := r.applications[id]; ok {
		cp := *a
		return &cp, nil
	}
	return nil, storage.ErrNotFound
}

func (r *fakeRepo) GetApplicant(_ context.Context, id uint64) (*models.Applicant, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if a, ok := r.applicants[id]; ok {
		cp := *a
		return &cp, nil
	}
	return nil, storage.ErrNotFound
}

func (r *fakeRepo) GetJob(_ context.Context, id uint64) (*models.Job, error) {
	return nil, storage.ErrNotFound
}

func (r *fakeRepo) FindUserByNameAndRole(_ context.Context, name, role string) (*models.User, error) {
	if role == "Manager" && r.managers[name] {
		return &models.User{Username: name, Role: role}, nil
	}
	return nil, storage.ErrNotFound
}

func (r *fakeRepo) counts() (applicants, applications int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.applicants), len(r.applications)
}

func (tx *fakeTx) InsertApplicant(_ context.Context, a *models.Applicant) error {
	tx.repo.nextApplicantID++
	a.ApplicantID = tx.repo.nextApplicantID
	tx.applicants[a.ApplicantID] = a
	return nil
}

func (tx *fakeTx) UpdateApplicantResumeURL(_ context.Context, id uint64, url string) error {
	a, ok := tx.applicants[id]
	if !ok {
		return storage.ErrNotFound
	}
	a.ResumeURL = &url
	return nil
}

func (tx *fakeTx) InsertApplication(_ context.Context, app *models.Application) error {
	if tx.repo.failInsertApplication != nil {
		return tx.repo.failInsertApplication
	}
	tx.repo.nextApplicationID++
	app.ApplicationID = tx.repo.nextApplicationID
	tx.applications[app.ApplicationID] = app
	return nil
}

func (tx *fakeTx) UpdateApplicationScores(_ context.Context, id uint64, res types.MatchResult) error {
	if tx.repo.failUpdateScores != nil {
		return tx.repo.failUpdateScores
	}
	app, ok := tx.applications[id]
	if !ok {
		// 重新打分时更新已提交的记录
		committed, found := tx.repo.applications[id]
		if !found {
			return storage.ErrNotFound
		}
		cp := *committed
		app = &cp
		tx.applications[id] = app
	}
	kw, sem, overall := res.KeywordMatchScore, res.SemanticSimilarity, res.ResumeOverallScore
	app.SkillsMatchingScore = &kw
	app.JDMatchingScore = &sem
	app.ResumeOverallScore = &overall
	return nil
}

func (tx *fakeTx) EnqueueOutbox(_ context.Context, msg *models.OutboxMessage) error {
	tx.outbox = append(tx.outbox, msg)
	return nil
}

// fakeExtractor 把文件内容直接当作文本
type fakeExtractor struct {
	err error
}

func (f *fakeExtractor) ExtractFromFile(_ context.Context, path string) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

func (f *fakeExtractor) ExtractFromBytes(_ context.Context, data []byte, _ string) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	return string(data), nil
}

// fakeEmbedder 26 维字母频次向量，结果确定
type fakeEmbedder struct {
	mu    sync.Mutex
	calls int
	texts int
	err   error
}

func (f *fakeEmbedder) EmbedStrings(_ context.Context, texts []string, _ ...embedding.Option) ([][]float64, error) {
	f.mu.Lock()
	f.calls++
	f.texts += len(texts)
	f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	out := make([][]float64, len(texts))
	for i, t := range texts {
		out[i] = letterVector(t)
	}
	return out, nil
}

func (f *fakeEmbedder) Model() string { return "fake-letters-v1" }

func letterVector(s string) []float64 {
	v := make([]float64, 26)
	for _, r := range strings.ToLower(s) {
		if r >= 'a' && r <= 'z' {
			v[r-'a']++
		}
	}
	return v
}

// fakeProfiles 固定的岗位画像
type fakeProfiles struct {
	profiles map[uint64]*types.JobProfile
}

func (f *fakeProfiles) Profile(_ context.Context, jobID uint64) (*types.JobProfile, error) {
	p, ok := f.profiles[jobID]
	if !ok {
		return nil, NewNotFoundError("job_profile", ErrJobNotFound, "")
	}
	cp := *p
	return &cp, nil
}

func sampleProfile() *types.JobProfile {
	return &types.JobProfile{
		JobID:          7,
		Title:          "Backend Engineer",
		JD:             sampleJD,
		HighPriority:   []string{"go", "kubernetes"},
		NormalPriority: []string{"sql", "docker"},
	}
}

type testEnv struct {
	repo     *fakeRepo
	files    *storage.LocalFileStore
	embedder *fakeEmbedder
	tempDir  string
	proc     *ResumeProcessor
}

func newTestEnv(t *testing.T, setOpts ...SettingOpt) *testEnv {
	t.Helper()
	files, err := storage.NewLocalFileStore(t.TempDir())
	require.NoError(t, err)

	env := &testEnv{
		repo:     newFakeRepo(),
		files:    files,
		embedder: &fakeEmbedder{},
		tempDir:  t.TempDir(),
	}
	opts := append([]SettingOpt{WithsetTempDir(env.tempDir), WithsetClock(testClock)}, setOpts...)
	env.proc, err = CreateProcessor([]ComponentOpt{
		WithcompRepository(env.repo),
		WithcompFileStore(env.files),
		WithcompExtractor(&fakeExtractor{}),
		WithcompEmbedder(env.embedder),
		WithcompProfiles(&fakeProfiles{profiles: map[uint64]*types.JobProfile{7: sampleProfile()}}),
	}, opts)
	require.NoError(t, err)
	return env
}

func (e *testEnv) storedFiles(t *testing.T) []string {
	t.Helper()
	entries, err := os.ReadDir(e.files.Dir())
	require.NoError(t, err)
	names := make([]string, 0, len(entries))
	for _, en := range entries {
		names = append(names, en.Name())
	}
	return names
}

func (e *testEnv) tempFiles(t *testing.T) []string {
	t.Helper()
	entries, err := os.ReadDir(e.tempDir)
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	require.NoError(t, err)
	names := make([]string, 0, len(entries))
	for _, en := range entries {
		names = append(names, en.Name())
	}
	return names
}
