package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math/rand"
	"strings"
	"sync"
	"time"

	"hiring-portal/internal/config"
	"hiring-portal/internal/constants"
	"hiring-portal/internal/tracing"

	"github.com/google/uuid"
	"github.com/redis/go-redis/extra/redisotel/v9"
	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

var redisTracer = otel.Tracer("hiring-portal/storage/redis")

// 按 key 前缀采样业务 span，redisotel 已经记录了每条命令
var redisKeySamplingRates = map[string]float64{
	constants.AppPrefix + ":" + constants.JobModulePrefix + ":": 0.25,
	constants.AppPrefix + ":lock:":                              0.5,
}

var (
	rnd      = rand.New(rand.NewSource(time.Now().UnixNano()))
	rndMutex sync.Mutex
)

func shouldSampleRedisOp(key string) bool {
	if key == "" {
		return false
	}
	for prefix, rate := range redisKeySamplingRates {
		if strings.HasPrefix(key, prefix) {
			return randFloat() < rate
		}
	}
	return randFloat() < 0.05
}

func randFloat() float64 {
	rndMutex.Lock()
	defer rndMutex.Unlock()
	return rnd.Float64()
}

// CachedVector 缓存的 JD 向量。ModelVersion 或 JDDigest 变化即视为过期
type CachedVector struct {
	Vector       []float64
	ModelVersion string
	JDDigest     string
}

// Redis 岗位画像和 JD 向量缓存
type Redis struct {
	Client *redis.Client
	config *config.RedisConfig
}

// NewRedisAdapter 建立连接并挂载 OpenTelemetry 钩子
func NewRedisAdapter(cfg *config.RedisConfig) (*Redis, error) {
	if cfg == nil {
		return nil, fmt.Errorf("redis config cannot be nil")
	}
	if cfg.Address == "" {
		return nil, fmt.Errorf("redis address is required")
	}

	client := redis.NewClient(&redis.Options{
		Addr:         cfg.Address,
		Password:     cfg.Password,
		DB:           cfg.DB,
		PoolSize:     cfg.PoolSize,
		MinIdleConns: cfg.MinIdleConns,
		DialTimeout:  time.Duration(cfg.DialTimeoutSeconds) * time.Second,
		ReadTimeout:  time.Duration(cfg.ReadTimeoutSeconds) * time.Second,
		WriteTimeout: time.Duration(cfg.WriteTimeoutSeconds) * time.Second,
		MaxRetries:   cfg.MaxRetries,
	})

	if err := redisotel.InstrumentTracing(client); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to instrument Redis with OpenTelemetry: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to Redis at %s: %w", cfg.Address, err)
	}

	return &Redis{Client: client, config: cfg}, nil
}

// Close 关闭连接
func (r *Redis) Close() error {
	if r.Client != nil {
		return r.Client.Close()
	}
	return nil
}

// Ping 健康检查
func (r *Redis) Ping(ctx context.Context) error {
	if r.Client == nil {
		return fmt.Errorf("redis client is not initialized")
	}
	return r.Client.Ping(ctx).Err()
}

// JobProfileTTL 岗位画像缓存时长
func (r *Redis) JobProfileTTL() time.Duration {
	if r.config == nil {
		return 24 * time.Hour
	}
	return config.GetDuration(r.config.JobProfileTTL, 24*time.Hour)
}

// Get 读取字符串值，不存在时返回 ErrNotFound
func (r *Redis) Get(ctx context.Context, key string) (string, error) {
	if r.Client == nil {
		return "", fmt.Errorf("redis客户端未初始化")
	}

	var span trace.Span
	if shouldSampleRedisOp(key) {
		ctx, span = redisTracer.Start(ctx, "Redis.Get", trace.WithSpanKind(trace.SpanKindClient))
		defer span.End()
		span.SetAttributes(
			attribute.String("db.system", "redis"),
			attribute.String("db.operation", "GET"),
			attribute.String("db.redis.key", tracing.SafeRedisKey(key)),
		)
	}

	val, err := r.Client.Get(ctx, key).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			if span != nil {
				span.SetAttributes(attribute.Bool("db.redis.key_exists", false))
				span.SetStatus(codes.Ok, "key not found")
			}
			return "", fmt.Errorf("key %s: %w", key, ErrNotFound)
		}
		if span != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		return "", err
	}

	if span != nil {
		span.SetAttributes(
			attribute.Bool("db.redis.key_exists", true),
			attribute.Int("db.redis.value_length", len(val)),
		)
		span.SetStatus(codes.Ok, "")
	}
	return val, nil
}

// Set 写入字符串值
func (r *Redis) Set(ctx context.Context, key string, value string, expiration time.Duration) error {
	if r.Client == nil {
		return fmt.Errorf("redis客户端未初始化")
	}

	var span trace.Span
	if shouldSampleRedisOp(key) {
		ctx, span = redisTracer.Start(ctx, "Redis.Set", trace.WithSpanKind(trace.SpanKindClient))
		defer span.End()
		span.SetAttributes(
			attribute.String("db.system", "redis"),
			attribute.String("db.operation", "SET"),
			attribute.String("db.redis.key", tracing.SafeRedisKey(key)),
			attribute.Int("db.redis.value_length", len(value)),
		)
		if expiration > 0 {
			span.SetAttributes(attribute.Int64("db.redis.expiration_ms", expiration.Milliseconds()))
		}
	}

	if err := r.Client.Set(ctx, key, value, expiration).Err(); err != nil {
		if span != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		return err
	}
	if span != nil {
		span.SetStatus(codes.Ok, "")
	}
	return nil
}

// SetJSON 序列化后写入
func (r *Redis) SetJSON(ctx context.Context, key string, v any, expiration time.Duration) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("序列化缓存值失败: %w", err)
	}
	return r.Set(ctx, key, string(data), expiration)
}

// GetJSON 读取并反序列化到 dest
func (r *Redis) GetJSON(ctx context.Context, key string, dest any) error {
	raw, err := r.Get(ctx, key)
	if err != nil {
		return err
	}
	if err := json.Unmarshal([]byte(raw), dest); err != nil {
		return fmt.Errorf("反序列化缓存 %s 失败: %w", key, err)
	}
	return nil
}

// Delete 删除一个或多个 key
func (r *Redis) Delete(ctx context.Context, keys ...string) error {
	if r.Client == nil {
		return fmt.Errorf("redis client is not initialized")
	}
	if len(keys) == 0 {
		return nil
	}
	return r.Client.Del(ctx, keys...).Err()
}

// SetJobVector 用 HASH 保存 JD 向量、模型版本和 JD 摘要
func (r *Redis) SetJobVector(ctx context.Context, jobID uint64, entry CachedVector, expiration time.Duration) error {
	if r.Client == nil {
		return fmt.Errorf("redis client is not initialized")
	}

	vectorJSON, err := json.Marshal(entry.Vector)
	if err != nil {
		return fmt.Errorf("序列化向量失败: %w", err)
	}

	key := fmt.Sprintf(constants.KeyJobDescriptionVector, jobID)
	pipe := r.Client.TxPipeline()
	pipe.HSet(ctx, key,
		"vector", vectorJSON,
		"model_version", entry.ModelVersion,
		"jd_digest", entry.JDDigest,
	)
	if expiration > 0 {
		pipe.Expire(ctx, key, expiration)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("设置 JD 向量缓存失败: %w", err)
	}
	return nil
}

// GetJobVector 读取 JD 向量缓存，不存在时返回 ErrNotFound
func (r *Redis) GetJobVector(ctx context.Context, jobID uint64) (*CachedVector, error) {
	if r.Client == nil {
		return nil, fmt.Errorf("redis client is not initialized")
	}

	key := fmt.Sprintf(constants.KeyJobDescriptionVector, jobID)
	vals, err := r.Client.HMGet(ctx, key, "vector", "model_version", "jd_digest").Result()
	if err != nil {
		return nil, err
	}
	if len(vals) < 3 || vals[0] == nil {
		return nil, fmt.Errorf("未找到JD向量缓存，jobID=%d: %w", jobID, ErrNotFound)
	}

	vectorJSON, ok := vals[0].(string)
	if !ok || vectorJSON == "" {
		return nil, fmt.Errorf("向量缓存格式错误")
	}
	entry := &CachedVector{}
	if err := json.Unmarshal([]byte(vectorJSON), &entry.Vector); err != nil {
		return nil, fmt.Errorf("反序列化向量失败: %w", err)
	}
	entry.ModelVersion, _ = vals[1].(string)
	entry.JDDigest, _ = vals[2].(string)
	return entry, nil
}

// AcquireLock SET NX 获取锁，拿不到时返回空串
func (r *Redis) AcquireLock(ctx context.Context, lockKey string, expiration time.Duration) (string, error) {
	if r.Client == nil {
		return "", fmt.Errorf("redis client is not initialized")
	}
	token := uuid.NewString()
	ok, err := r.Client.SetNX(ctx, lockKey, token, expiration).Result()
	if err != nil {
		return "", err
	}
	if !ok {
		return "", nil
	}
	return token, nil
}

var releaseLockScript = redis.NewScript(`
if redis.call("get", KEYS[1]) == ARGV[1] then
	return redis.call("del", KEYS[1])
else
	return 0
end`)

// ReleaseLock 只释放自己持有的锁
func (r *Redis) ReleaseLock(ctx context.Context, lockKey, token string) (bool, error) {
	if r.Client == nil {
		return false, fmt.Errorf("redis client is not initialized")
	}
	n, err := releaseLockScript.Run(ctx, r.Client, []string{lockKey}, token).Int64()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}
