package processor

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"testing"
	"time"

	"hiring-portal/internal/constants"
	"hiring-portal/internal/parser"
	"hiring-portal/internal/storage"
	"hiring-portal/internal/storage/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeJobs struct {
	jobs  map[uint64]*models.Job
	calls int
	err   error
}

func (f *fakeJobs) GetJob(_ context.Context, id uint64) (*models.Job, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	if j, ok := f.jobs[id]; ok {
		return j, nil
	}
	return nil, fmt.Errorf("查询岗位 %d: %w", id, storage.ErrNotFound)
}

// fakeCache 模拟 Redis，err 非空时所有操作失败
type fakeCache struct {
	mu      sync.Mutex
	data    map[string]string
	vectors map[uint64]storage.CachedVector
	err     error
}

func newFakeCache() *fakeCache {
	return &fakeCache{data: make(map[string]string), vectors: make(map[uint64]storage.CachedVector)}
}

func (c *fakeCache) GetJSON(_ context.Context, key string, dest any) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.err != nil {
		return c.err
	}
	raw, ok := c.data[key]
	if !ok {
		return storage.ErrNotFound
	}
	return json.Unmarshal([]byte(raw), dest)
}

func (c *fakeCache) SetJSON(_ context.Context, key string, v any, _ time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.err != nil {
		return c.err
	}
	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	c.data[key] = string(b)
	return nil
}

func (c *fakeCache) Delete(_ context.Context, keys ...string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.err != nil {
		return c.err
	}
	for _, k := range keys {
		delete(c.data, k)
		var id uint64
		if _, err := fmt.Sscanf(k, constants.KeyJobDescriptionVector, &id); err == nil {
			delete(c.vectors, id)
		}
	}
	return nil
}

func (c *fakeCache) GetJobVector(_ context.Context, jobID uint64) (*storage.CachedVector, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.err != nil {
		return nil, c.err
	}
	v, ok := c.vectors[jobID]
	if !ok {
		return nil, storage.ErrNotFound
	}
	return &v, nil
}

func (c *fakeCache) SetJobVector(_ context.Context, jobID uint64, entry storage.CachedVector, _ time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.err != nil {
		return c.err
	}
	c.vectors[jobID] = entry
	return nil
}

func sampleJob() *models.Job {
	return &models.Job{
		JobID:            7,
		Title:            "Backend Engineer",
		JD:               sampleJD,
		KeySkills:        "Go, Kubernetes , go",
		AdditionalSkills: "SQL,,Docker",
	}
}

func TestSplitKeywords(t *testing.T) {
	assert.Equal(t, []string{"go", "kubernetes"}, SplitKeywords(" Go, Kubernetes , go,"))
	assert.Nil(t, SplitKeywords(""))
	assert.Nil(t, SplitKeywords(" , ,"))
}

func TestProfileFromJob(t *testing.T) {
	p := ProfileFromJob(sampleJob())
	assert.Equal(t, uint64(7), p.JobID)
	assert.Equal(t, []string{"go", "kubernetes"}, p.HighPriority)
	assert.Equal(t, []string{"sql", "docker"}, p.NormalPriority)
	assert.Equal(t, sampleJD, p.JD)
}

func TestJobProfileProviderCachesProfile(t *testing.T) {
	ctx := context.Background()
	jobs := &fakeJobs{jobs: map[uint64]*models.Job{7: sampleJob()}}
	cache := newFakeCache()
	p, err := NewJobProfileProvider(jobs, parser.NewNormalizer(), WithProfileCache(cache, time.Hour))
	require.NoError(t, err)

	first, err := p.Profile(ctx, 7)
	require.NoError(t, err)
	second, err := p.Profile(ctx, 7)
	require.NoError(t, err)

	assert.Equal(t, 1, jobs.calls, "第二次应命中缓存")
	assert.Equal(t, first.HighPriority, second.HighPriority)
	assert.Contains(t, cache.data, fmt.Sprintf(constants.KeyJobProfile, 7))
	assert.Nil(t, first.JDVector, "未配置 embedder 时不计算 JD 向量")

	require.NoError(t, p.Invalidate(ctx, 7))
	_, err = p.Profile(ctx, 7)
	require.NoError(t, err)
	assert.Equal(t, 2, jobs.calls)
}

func TestJobProfileProviderNotFound(t *testing.T) {
	p, err := NewJobProfileProvider(&fakeJobs{}, parser.NewNormalizer())
	require.NoError(t, err)

	_, err = p.Profile(context.Background(), 404)
	assert.ErrorIs(t, err, ErrJobNotFound)
	assert.Equal(t, http.StatusNotFound, StatusCodeOf(err))
}

func TestJobProfileProviderDatabaseError(t *testing.T) {
	p, err := NewJobProfileProvider(&fakeJobs{err: errors.New("too many connections")}, parser.NewNormalizer())
	require.NoError(t, err)

	_, err = p.Profile(context.Background(), 7)
	assert.ErrorIs(t, err, ErrPersistence)
}

func TestJobProfileProviderDegradesWhenCacheFails(t *testing.T) {
	jobs := &fakeJobs{jobs: map[uint64]*models.Job{7: sampleJob()}}
	cache := newFakeCache()
	cache.err = errors.New("dial tcp: connection refused")
	emb := &fakeEmbedder{}
	p, err := NewJobProfileProvider(jobs, parser.NewNormalizer(), WithProfileCache(cache, 0), WithJDEmbedder(emb, ""))
	require.NoError(t, err)

	profile, err := p.Profile(context.Background(), 7)
	require.NoError(t, err)
	assert.Equal(t, "Backend Engineer", profile.Title)
	assert.NotEmpty(t, profile.JDVector, "缓存不可用时仍然计算向量")
}

func TestJobProfileProviderVectorCache(t *testing.T) {
	ctx := context.Background()
	jobs := &fakeJobs{jobs: map[uint64]*models.Job{7: sampleJob()}}
	cache := newFakeCache()
	emb := &fakeEmbedder{}
	normalizer := parser.NewNormalizer()

	p, err := NewJobProfileProvider(jobs, normalizer, WithProfileCache(cache, time.Hour), WithJDEmbedder(emb, ""))
	require.NoError(t, err)

	profile, err := p.Profile(ctx, 7)
	require.NoError(t, err)
	assert.Equal(t, letterVector(normalizer.Normalize(sampleJD)), profile.JDVector)
	assert.Equal(t, 1, emb.calls)

	cached := cache.vectors[7]
	assert.Equal(t, "fake-letters-v1", cached.ModelVersion, "模型版本取自 embedder")
	assert.NotEmpty(t, cached.JDDigest)

	_, err = p.Profile(ctx, 7)
	require.NoError(t, err)
	assert.Equal(t, 1, emb.calls, "向量缓存命中")

	t.Run("模型版本变化后重新生成", func(t *testing.T) {
		stale := cache.vectors[7]
		stale.ModelVersion = "old-model"
		cache.vectors[7] = stale
		_, err := p.Profile(ctx, 7)
		require.NoError(t, err)
		assert.Equal(t, 2, emb.calls)
		assert.Equal(t, "fake-letters-v1", cache.vectors[7].ModelVersion)
	})

	t.Run("JD 内容变化后重新生成", func(t *testing.T) {
		stale := cache.vectors[7]
		stale.JDDigest = "0000"
		cache.vectors[7] = stale
		_, err := p.Profile(ctx, 7)
		require.NoError(t, err)
		assert.Equal(t, 3, emb.calls)
	})
}

func TestJobProfileProviderEmbedFailureLeavesVectorEmpty(t *testing.T) {
	jobs := &fakeJobs{jobs: map[uint64]*models.Job{7: sampleJob()}}
	p, err := NewJobProfileProvider(jobs, parser.NewNormalizer(), WithJDEmbedder(&fakeEmbedder{err: errors.New("429")}, "m"))
	require.NoError(t, err)

	profile, err := p.Profile(context.Background(), 7)
	require.NoError(t, err)
	assert.Nil(t, profile.JDVector)
}

func TestJobProfileProviderWarm(t *testing.T) {
	ctx := context.Background()
	job := sampleJob()
	jobs := &fakeJobs{jobs: map[uint64]*models.Job{7: job}}
	cache := newFakeCache()
	p, err := NewJobProfileProvider(jobs, parser.NewNormalizer(), WithProfileCache(cache, time.Hour))
	require.NoError(t, err)

	_, err = p.Profile(ctx, 7)
	require.NoError(t, err)

	job.KeySkills = "Rust"
	require.NoError(t, p.Warm(ctx, 7))

	profile, err := p.Profile(ctx, 7)
	require.NoError(t, err)
	assert.Equal(t, []string{"rust"}, profile.HighPriority)
	assert.Equal(t, 2, jobs.calls)
}

func TestNewJobProfileProviderValidates(t *testing.T) {
	_, err := NewJobProfileProvider(nil, parser.NewNormalizer())
	assert.Error(t, err)
	_, err = NewJobProfileProvider(&fakeJobs{}, nil)
	assert.Error(t, err)
}
