// Package config is the goctl-style settings struct for the judge
// worker entrypoint, grounded on judge_service/internal/config/config.go:
// one struct embedding rest.RestConf plus one nested struct per concern,
// with ToXConfig() converters translating settings into the collaborator
// packages' own config types.
//
// It drops the teacher's Mysql/go-zero cache.CacheConf/redis.RedisConf
// fields: this tree never grew a SQL-backed submission store (status is
// cache-only, see repository.StatusRepository), and internal/common/cache
// already carries its own RedisConfig, so there is no remaining concern
// for go-zero's redis/cache packages to serve here.
package config

import (
	"strings"
	"time"

	"fuzoj/internal/common/cache"
	"fuzoj/internal/common/mq"
	"fuzoj/internal/common/storage"
	"fuzoj/internal/judge/sandbox/engine"
	"fuzoj/internal/judge/sandbox/profile"

	"github.com/segmentio/kafka-go"
	"github.com/zeromicro/go-zero/rest"
)

// Config is the judge worker's top-level settings struct, loaded from
// etc/judge-worker.yaml via go-zero's conf.MustLoad.
type Config struct {
	rest.RestConf

	Redis    RedisConfig    `json:"redis"`
	Kafka    KafkaConfig    `json:"kafka"`
	MinIO    MinIOConfig    `json:"minio"`
	Cache    CacheConfig    `json:"cache"`
	Random   RandomConfig   `json:"random"`
	Worker   WorkerConfig   `json:"worker"`
	Source   SourceConfig   `json:"source"`
	Problem  ProblemConfig  `json:"problem"`
	Status   StatusConfig   `json:"status"`
	Judge    JudgeConfig    `json:"judge"`
	Sandbox  SandboxConfig  `json:"sandbox"`
	Language LanguageConfig `json:"language"`
}

// RedisConfig holds the status cache's Redis connection settings.
type RedisConfig struct {
	Addr     string `json:"addr"`
	Password string `json:"password,optional"`
	DB       int    `json:"db,optional"`
}

// KafkaConfig holds Kafka settings.
type KafkaConfig struct {
	Brokers       []string       `json:"brokers"`
	ClientID      string         `json:"clientID"`
	MinBytes      int            `json:"minBytes,optional"`
	MaxBytes      int            `json:"maxBytes,optional"`
	MaxWait       time.Duration  `json:"maxWait,optional"`
	BatchSize     int            `json:"batchSize,optional"`
	BatchTimeout  time.Duration  `json:"batchTimeout,optional"`
	DialTimeout   time.Duration  `json:"dialTimeout,optional"`
	ReadTimeout   time.Duration  `json:"readTimeout,optional"`
	WriteTimeout  time.Duration  `json:"writeTimeout,optional"`
	RequiredAcks  int            `json:"requiredAcks,optional"`
	Compression   string         `json:"compression,optional"`
	Topics        []string       `json:"topics"`
	ConsumerGroup string         `json:"consumerGroup"`
	PrefetchCount int            `json:"prefetchCount,optional"`
	Concurrency   int            `json:"concurrency,optional"`
	MaxRetries    int            `json:"maxRetries,optional"`
	RetryDelay    time.Duration  `json:"retryDelay,optional"`
	RetryTopic    string         `json:"retryTopic,optional"`
	PoolRetryMax  int            `json:"poolRetryMax,optional"`
	PoolRetryBase time.Duration  `json:"poolRetryBaseDelay,optional"`
	PoolRetryMaxD time.Duration  `json:"poolRetryMaxDelay,optional"`
	DeadLetter    string         `json:"deadLetter,optional"`
	MessageTTL    time.Duration  `json:"messageTTL,optional"`
	TopicWeights  map[string]int `json:"topicWeights,optional"`
}

// MinIOConfig holds object storage settings.
type MinIOConfig struct {
	Endpoint   string        `json:"endpoint"`
	AccessKey  string        `json:"accessKey"`
	SecretKey  string        `json:"secretKey"`
	UseSSL     bool          `json:"useSSL,optional"`
	Bucket     string        `json:"bucket"`
	PresignTTL time.Duration `json:"presignTTL,optional"`
}

// CacheConfig holds the problem data-pack cache's settings.
type CacheConfig struct {
	RootDir    string        `json:"rootDir"`
	TTL        time.Duration `json:"ttl"`
	LockWait   time.Duration `json:"lockWait,optional"`
	MaxEntries int           `json:"maxEntries,optional"`
	MaxBytes   int64         `json:"maxBytes,optional"`
}

// RandomConfig holds the random-data subcase cache's settings.
type RandomConfig struct {
	RootDir     string        `json:"rootDir"`
	MaxSubcases int           `json:"maxSubcases,optional"`
	LockWait    time.Duration `json:"lockWait,optional"`
}

// WorkerConfig holds worker pool settings.
type WorkerConfig struct {
	PoolSize int           `json:"poolSize"`
	CPUSet   []int         `json:"cpuSet,optional"`
	Timeout  time.Duration `json:"timeout"`
}

// SourceConfig holds submitted-source download settings.
type SourceConfig struct {
	Bucket  string        `json:"bucket,optional"`
	Timeout time.Duration `json:"timeout"`
}

// ProblemConfig holds problem-service gRPC client settings.
type ProblemConfig struct {
	Addr    string        `json:"addr"`
	Timeout time.Duration `json:"timeout"`
	MetaTTL time.Duration `json:"metaTTL"`
}

// StatusConfig holds status persistence settings.
type StatusConfig struct {
	TTL        time.Duration `json:"ttl"`
	Timeout    time.Duration `json:"timeout"`
	FinalTopic string        `json:"finalTopic"`
}

// JudgeConfig holds judge runtime settings.
type JudgeConfig struct {
	WorkRoot string `json:"workRoot"`
}

// SandboxConfig holds sandbox engine settings.
type SandboxConfig struct {
	CgroupRoot           string `json:"cgroupRoot,optional"`
	SeccompDir           string `json:"seccompDir,optional"`
	HelperPath           string `json:"helperPath"`
	StdoutStderrMaxBytes int64  `json:"stdoutStderrMaxBytes,optional"`
	EnableSeccomp        bool   `json:"enableSeccomp,optional"`
	EnableCgroup         bool   `json:"enableCgroup,optional"`
	EnableNamespaces     bool   `json:"enableNamespaces,optional"`
}

// LanguageConfig holds language and task-profile definitions.
type LanguageConfig struct {
	Languages []profile.LanguageSpec `json:"languages"`
	Profiles  []profile.TaskProfile  `json:"profiles"`
}

// ToMQConfig converts Kafka settings to mq.KafkaConfig.
func (k KafkaConfig) ToMQConfig() mq.KafkaConfig {
	cfg := mq.KafkaConfig{
		Brokers:      k.Brokers,
		ClientID:     k.ClientID,
		MinBytes:     k.MinBytes,
		MaxBytes:     k.MaxBytes,
		MaxWait:      k.MaxWait,
		BatchSize:    k.BatchSize,
		BatchTimeout: k.BatchTimeout,
		DialTimeout:  k.DialTimeout,
		ReadTimeout:  k.ReadTimeout,
		WriteTimeout: k.WriteTimeout,
		RequiredAcks: kafka.RequiredAcks(k.RequiredAcks),
	}
	cfg.Compression = parseCompression(k.Compression)
	return cfg
}

// ToStorageConfig converts MinIO settings to storage.MinIOConfig.
func (m MinIOConfig) ToStorageConfig() storage.MinIOConfig {
	return storage.MinIOConfig{
		Endpoint:   m.Endpoint,
		AccessKey:  m.AccessKey,
		SecretKey:  m.SecretKey,
		UseSSL:     m.UseSSL,
		Bucket:     m.Bucket,
		PresignTTL: m.PresignTTL,
	}
}

// ToEngineConfig converts sandbox settings to engine.Config.
func (s SandboxConfig) ToEngineConfig() engine.Config {
	return engine.Config{
		CgroupRoot:           s.CgroupRoot,
		SeccompDir:           s.SeccompDir,
		HelperPath:           s.HelperPath,
		StdoutStderrMaxBytes: s.StdoutStderrMaxBytes,
		EnableSeccomp:        s.EnableSeccomp,
		EnableCgroup:         s.EnableCgroup,
		EnableNamespaces:     s.EnableNamespaces,
	}
}

// ToCacheConfig converts redis settings to cache.RedisConfig, filling in
// the same defaults DefaultRedisConfig does for anything left zero.
func (r RedisConfig) ToCacheConfig() *cache.RedisConfig {
	cfg := cache.DefaultRedisConfig()
	cfg.Addr = r.Addr
	cfg.Password = r.Password
	cfg.DB = r.DB
	return cfg
}

func parseCompression(raw string) kafka.Compression {
	switch strings.ToLower(raw) {
	case "gzip":
		return kafka.Gzip
	case "snappy":
		return kafka.Snappy
	case "lz4":
		return kafka.Lz4
	case "zstd":
		return kafka.Zstd
	default:
		return kafka.Compression(0)
	}
}
