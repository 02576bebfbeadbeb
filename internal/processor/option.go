package processor

import (
	"time"

	"hiring-portal/internal/parser"
	"hiring-portal/internal/storage"

	"github.com/rs/zerolog"
)

// ComponentOpt 组件选项类型，仅改变 Components 结构体内的字段
type ComponentOpt func(*Components)

// SettingOpt 设置选项类型，仅改变 Settings 结构体内的字段
type SettingOpt func(*Settings)

// ----- 组件选项 -----

// WithcompRepository 设置关系存储
func WithcompRepository(repo storage.Repository) ComponentOpt {
	return func(c *Components) {
		c.Repo = repo
	}
}

// WithcompFileStore 设置简历文件存储
func WithcompFileStore(files storage.FileStore) ComponentOpt {
	return func(c *Components) {
		c.Files = files
	}
}

// WithcompExtractor 设置PDF文本提取器
func WithcompExtractor(extractor TextExtractor) ComponentOpt {
	return func(c *Components) {
		c.Extractor = extractor
	}
}

// WithcompEmbedder 设置向量模型
func WithcompEmbedder(embedder TextEmbedder) ComponentOpt {
	return func(c *Components) {
		c.Embedder = embedder
	}
}

// WithcompParser 设置简历字段解析器
func WithcompParser(p *parser.ResumeParser) ComponentOpt {
	return func(c *Components) {
		c.Parser = p
	}
}

// WithcompNormalizer 设置文本规范化器
func WithcompNormalizer(n *parser.Normalizer) ComponentOpt {
	return func(c *Components) {
		c.Normalizer = n
	}
}

// WithcompProfiles 设置岗位画像来源
func WithcompProfiles(profiles ProfileSource) ComponentOpt {
	return func(c *Components) {
		c.Profiles = profiles
	}
}

// ----- 设置选项 -----

// WithsetWeights 设置打分权重
func WithsetWeights(w Weights) SettingOpt {
	return func(s *Settings) {
		s.Weights = w
	}
}

// WithsetTempDir 设置临时文件目录
func WithsetTempDir(dir string) SettingOpt {
	return func(s *Settings) {
		if dir != "" {
			s.TempDir = dir
		}
	}
}

// WithsetBulkWorkers 批量上传并发数，1 为顺序处理
func WithsetBulkWorkers(n int) SettingOpt {
	return func(s *Settings) {
		if n > 0 {
			s.BulkWorkers = n
		}
	}
}

// WithsetMaxBulkFiles 单批最大文件数
func WithsetMaxBulkFiles(n int) SettingOpt {
	return func(s *Settings) {
		s.MaxBulkFiles = n
	}
}

// WithsetDefaults 设置默认投递状态和来源
func WithsetDefaults(status, source string) SettingOpt {
	return func(s *Settings) {
		if status != "" {
			s.DefaultApplicationStatus = status
		}
		if source != "" {
			s.DefaultSource = source
		}
	}
}

// WithsetEvents 设置 applicant.ingested 事件的投递目标
func WithsetEvents(r EventRouting) SettingOpt {
	return func(s *Settings) {
		s.Events = r
	}
}

// WithsetClock 设置时钟，测试用
func WithsetClock(now func() time.Time) SettingOpt {
	return func(s *Settings) {
		if now != nil {
			s.Clock = now
		}
	}
}

// WithsetLogger 设置日志记录器
func WithsetLogger(l zerolog.Logger) SettingOpt {
	return func(s *Settings) {
		s.Logger = &l
	}
}
