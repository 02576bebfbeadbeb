package processor

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"hiring-portal/internal/config"
	"hiring-portal/internal/logger"
	"hiring-portal/internal/parser"
	"hiring-portal/internal/storage"

	"github.com/rs/zerolog"
)

// Components 聚合所有功能组件依赖，便于集中管理和测试替换
type Components struct {
	Repo       storage.Repository
	Files      storage.FileStore
	Extractor  TextExtractor
	Embedder   TextEmbedder
	Parser     *parser.ResumeParser
	Normalizer *parser.Normalizer
	Profiles   ProfileSource
}

// Settings 纯配置项，不包含任何业务逻辑组件
type Settings struct {
	Weights                  Weights
	TempDir                  string
	BulkWorkers              int
	MaxBulkFiles             int
	DefaultApplicationStatus string
	DefaultSource            string
	Events                   EventRouting
	Clock                    func() time.Time
	Logger                   *zerolog.Logger
}

// DefaultSettings 默认设置
func DefaultSettings() Settings {
	return Settings{
		Weights:                  DefaultWeights(),
		TempDir:                  filepath.Join(os.TempDir(), "hiring-portal"),
		BulkWorkers:              1,
		MaxBulkFiles:             50,
		DefaultApplicationStatus: "pending",
		DefaultSource:            "bulk_upload",
		Clock:                    time.Now,
	}
}

// ResumeProcessor 简历流水线的组件集合：打分、匹配、单份入库、批量入库
type ResumeProcessor struct {
	Components
	Settings

	Scorer   *Scorer
	Matcher  *Matcher
	Ingestor *Ingestor
	Bulk     *BulkIngestor

	// JobProfiles 由 CreateProcessorFromConfig 创建，缓存预热消费者使用；自定义 Profiles 时为 nil
	JobProfiles *JobProfileProvider
}

// NewResumeProcessor 使用明确分离的组件和设置创建处理器
func NewResumeProcessor(comp *Components, set *Settings, opts ...SettingOpt) (*ResumeProcessor, error) {
	if comp == nil {
		return nil, fmt.Errorf("组件不能为空")
	}
	if set == nil {
		def := DefaultSettings()
		set = &def
	}
	for _, opt := range opts {
		opt(set)
	}

	switch {
	case comp.Repo == nil:
		return nil, fmt.Errorf("缺少关系存储组件")
	case comp.Files == nil:
		return nil, fmt.Errorf("缺少简历文件存储组件")
	case comp.Extractor == nil:
		return nil, fmt.Errorf("缺少PDF文本提取器")
	case comp.Embedder == nil:
		return nil, fmt.Errorf("缺少向量模型")
	case comp.Profiles == nil:
		return nil, fmt.Errorf("缺少岗位画像来源")
	}
	if comp.Parser == nil {
		comp.Parser = parser.NewResumeParser()
	}
	if comp.Normalizer == nil {
		comp.Normalizer = parser.NewNormalizer()
	}

	def := DefaultSettings()
	if set.Weights == (Weights{}) {
		set.Weights = def.Weights
	}
	if set.TempDir == "" {
		set.TempDir = def.TempDir
	}
	if set.BulkWorkers <= 0 {
		set.BulkWorkers = def.BulkWorkers
	}
	if set.DefaultApplicationStatus == "" {
		set.DefaultApplicationStatus = def.DefaultApplicationStatus
	}
	if set.DefaultSource == "" {
		set.DefaultSource = def.DefaultSource
	}
	if set.Clock == nil {
		set.Clock = time.Now
	}
	log := logger.Component("processor")
	if set.Logger != nil {
		log = *set.Logger
	}

	p := &ResumeProcessor{Components: *comp, Settings: *set}
	p.Scorer = NewScorer(comp.Embedder, set.Weights)
	p.Matcher = NewMatcher(comp.Repo, comp.Files, comp.Extractor, comp.Normalizer, p.Scorer, comp.Profiles)
	p.Matcher.log = log.With().Str("step", "match").Logger()
	p.Ingestor = &Ingestor{
		repo:          comp.Repo,
		files:         comp.Files,
		extractor:     comp.Extractor,
		parser:        comp.Parser,
		profiles:      comp.Profiles,
		matcher:       p.Matcher,
		tempDir:       set.TempDir,
		defaultStatus: set.DefaultApplicationStatus,
		defaultSource: set.DefaultSource,
		events:        set.Events,
		now:           set.Clock,
		log:           log.With().Str("step", "ingest").Logger(),
	}
	p.Bulk = &BulkIngestor{
		ingestor: p.Ingestor,
		workers:  set.BulkWorkers,
		maxFiles: set.MaxBulkFiles,
		log:      log.With().Str("step", "bulk").Logger(),
	}
	if jp, ok := comp.Profiles.(*JobProfileProvider); ok {
		p.JobProfiles = jp
	}
	return p, nil
}

// CreateProcessor 便捷工厂函数，用于创建组件和设置并构造处理器
func CreateProcessor(compOpts []ComponentOpt, setOpts []SettingOpt) (*ResumeProcessor, error) {
	components := &Components{}
	for _, opt := range compOpts {
		opt(components)
	}
	settings := DefaultSettings()
	return NewResumeProcessor(components, &settings, setOpts...)
}

// CreateProcessorFromConfig 从配置创建处理器，Redis/RabbitMQ 不可用时对应功能降级
func CreateProcessorFromConfig(ctx context.Context, cfg *config.Config, st *storage.Storage) (*ResumeProcessor, error) {
	if cfg == nil {
		return nil, fmt.Errorf("配置不能为空")
	}
	if st == nil || st.MySQL == nil || st.Files == nil {
		return nil, fmt.Errorf("存储组件未初始化")
	}

	extractor, err := BuildTextExtractor(ctx, cfg.Extractor)
	if err != nil {
		return nil, fmt.Errorf("创建PDF提取器失败: %w", err)
	}
	embedder, err := BuildEmbedder(cfg.Embedding)
	if err != nil {
		return nil, err
	}
	// 停用词表进程内只加载一次，注入各组件
	normalizer := parser.NewNormalizer()

	profileOpts := []JobProfileOption{WithJDEmbedder(embedder, cfg.Embedding.Model)}
	if st.Redis != nil {
		profileOpts = append(profileOpts, WithProfileCache(st.Redis, st.Redis.JobProfileTTL()))
	}
	profiles, err := NewJobProfileProvider(st.MySQL, normalizer, profileOpts...)
	if err != nil {
		return nil, err
	}

	settings := DefaultSettings()
	setOpts := []SettingOpt{
		WithsetWeights(WeightsFromConfig(cfg.Scoring)),
		WithsetTempDir(cfg.Ingestion.TempDir),
		WithsetBulkWorkers(cfg.Ingestion.BulkWorkers),
		WithsetMaxBulkFiles(cfg.Ingestion.MaxBulkFiles),
		WithsetDefaults(cfg.Ingestion.DefaultApplicationStatus, cfg.Ingestion.DefaultSource),
	}
	if st.RabbitMQ != nil {
		setOpts = append(setOpts, WithsetEvents(EventRouting{
			Exchange:   cfg.RabbitMQ.EventsExchange,
			RoutingKey: cfg.RabbitMQ.IngestedRoutingKey,
		}))
	}

	return NewResumeProcessor(&Components{
		Repo:       st.MySQL,
		Files:      st.Files,
		Extractor:  extractor,
		Embedder:   embedder,
		Parser:     parser.NewResumeParser(),
		Normalizer: normalizer,
		Profiles:   profiles,
	}, &settings, setOpts...)
}
