// Code scaffolded in the goctl style. Safe to edit.
package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"time"

	"fuzoj/internal/common/mq"
	"fuzoj/internal/common/storage"
	"fuzoj/internal/judge/cache"
	"fuzoj/internal/judge/config"
	"fuzoj/internal/judge/controller"
	"fuzoj/internal/judge/problemclient"
	"fuzoj/internal/judge/repository"
	"fuzoj/internal/judge/sandbox"
	sbconfig "fuzoj/internal/judge/sandbox/config"
	"fuzoj/internal/judge/sandbox/engine"
	"fuzoj/internal/judge/sandbox/runner"
	"fuzoj/internal/judge/scheduler"
	"fuzoj/internal/judge/service"
	"fuzoj/internal/judge/transport"
	"fuzoj/internal/judge/workerpool"

	problemv1 "fuzoj/api/gen/problem/v1"
	commoncache "fuzoj/internal/common/cache"

	"github.com/zeromicro/go-zero/core/conf"
	"github.com/zeromicro/go-zero/core/logx"
	"github.com/zeromicro/go-zero/rest"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
)

var configFile = flag.String("f", "etc/judge-worker.yaml", "the config file")

const (
	defaultPoolRetryBase = time.Second
	defaultPoolRetryMaxD = 30 * time.Second
)

func main() {
	flag.Parse()

	var c config.Config
	conf.MustLoad(*configFile, &c)
	applyDefaults(&c)
	if err := validateConfig(&c); err != nil {
		logx.Errorf("invalid config: %v", err)
		return
	}

	server := rest.MustNewServer(c.RestConf)
	defer server.Stop()

	statusCache, err := commoncache.NewRedisCacheWithConfig(c.Redis.ToCacheConfig())
	if err != nil {
		logx.Errorf("init status cache failed: %v", err)
		return
	}
	defer func() {
		_ = statusCache.Close()
	}()

	objStorage, err := storage.NewMinIOStorage(c.MinIO.ToStorageConfig())
	if err != nil {
		logx.Errorf("init minio failed: %v", err)
		return
	}

	mqClient, err := mq.NewKafkaQueue(c.Kafka.ToMQConfig())
	if err != nil {
		logx.Errorf("init kafka failed: %v", err)
		return
	}
	defer func() {
		_ = mqClient.Stop()
		_ = mqClient.Close()
	}()

	statusPublisher := repository.NewMQStatusEventPublisher(mqClient, c.Status.FinalTopic)
	statusRepo := repository.NewStatusRepository(statusCache, c.Status.TTL, statusPublisher)

	localRepo := sbconfig.NewLocalRepository(c.Language.Languages, c.Language.Profiles)
	eng, err := engine.NewEngine(c.Sandbox.ToEngineConfig(), localRepo)
	if err != nil {
		logx.Errorf("init sandbox engine failed: %v", err)
		return
	}
	jobRunner := runner.NewRunner(eng)

	randomCache := cache.NewRandomDataCache(c.Random.RootDir, c.Random.MaxSubcases, c.Random.LockWait)
	executor := sandbox.NewTaskExecutor(jobRunner, localRepo, localRepo, randomCache, http.DefaultClient)

	pool := &workerpool.Pool{}
	if err := pool.StartWorkers(c.Worker.CPUSet); err != nil {
		logx.Errorf("start worker pool failed: %v", err)
		return
	}
	sched := scheduler.New(pool, executor)

	problemCache := cache.NewProblemCache(c.Cache.RootDir, c.Cache.TTL, c.Cache.LockWait, c.Cache.MaxEntries, c.Cache.MaxBytes, c.MinIO.Bucket, objStorage)

	grpcCtx, cancel := context.WithTimeout(context.Background(), c.Problem.Timeout)
	defer cancel()
	grpcConn, err := grpc.DialContext(grpcCtx, c.Problem.Addr, grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		logx.Errorf("init problem grpc client failed: %v", err)
		return
	}
	defer func() {
		_ = grpcConn.Close()
	}()
	problemClient := problemclient.NewClient(problemv1.NewProblemServiceClient(grpcConn))

	judgeSvc, err := service.NewService(service.Config{
		Scheduler:      sched,
		StatusRepo:     statusRepo,
		ProblemClient:  problemClient,
		ProblemCache:   problemCache,
		RandomRoot:     c.Random.RootDir,
		Storage:        objStorage,
		SourceBucket:   c.Source.Bucket,
		WorkRoot:       c.Judge.WorkRoot,
		WorkerTimeout:  c.Worker.Timeout,
		ProblemTimeout: c.Problem.Timeout,
		StorageTimeout: c.Source.Timeout,
		StatusTimeout:  c.Status.Timeout,
		MetaTTL:        c.Problem.MetaTTL,
		WorkerPoolSize: c.Worker.PoolSize,
		Queue:          mqClient,
		RetryTopic:     c.Kafka.RetryTopic,
		DeadLetter:     c.Kafka.DeadLetter,
		PoolRetryMax:   c.Kafka.PoolRetryMax,
		PoolRetryBase:  c.Kafka.PoolRetryBase,
		PoolRetryMaxD:  c.Kafka.PoolRetryMaxD,
	})
	if err != nil {
		logx.Errorf("init judge service failed: %v", err)
		return
	}

	weights := c.Kafka.TopicWeights
	if len(weights) == 0 {
		weights = transport.DefaultTopicWeights(c.Kafka.Topics)
	}
	weightedTopics, err := transport.BuildWeightedTopics(c.Kafka.Topics, weights)
	if err != nil {
		logx.Errorf("build weighted topics failed: %v", err)
		return
	}

	limiter := mq.NewTokenLimiter(c.Worker.PoolSize)
	err = mqClient.SubscribeWeighted(context.Background(), weightedTopics, judgeSvc.HandleMessage, &mq.SubscribeOptions{
		ConsumerGroup:   c.Kafka.ConsumerGroup,
		PrefetchCount:   c.Kafka.PrefetchCount,
		Concurrency:     c.Kafka.Concurrency,
		MaxRetries:      c.Kafka.MaxRetries,
		RetryDelay:      c.Kafka.RetryDelay,
		DeadLetterTopic: c.Kafka.DeadLetter,
		MessageTTL:      c.Kafka.MessageTTL,
	}, limiter)
	if err != nil {
		logx.Errorf("subscribe kafka failed: %v", err)
		return
	}
	if err := mqClient.Start(); err != nil {
		logx.Errorf("start kafka consumer failed: %v", err)
		return
	}

	judgeController := controller.NewJudgeController(statusRepo)
	server.AddRoute(rest.Route{
		Method:  http.MethodGet,
		Path:    "/judge/status/:id",
		Handler: judgeController.GetStatus,
	})

	logx.Infof("starting judge worker at %s:%d...", c.Host, c.Port)
	server.Start()
}

func validateConfig(c *config.Config) error {
	if len(c.Kafka.Brokers) == 0 {
		return fmt.Errorf("kafka brokers are required")
	}
	if len(c.Kafka.Topics) == 0 {
		return fmt.Errorf("kafka topics are required")
	}
	if c.Problem.Addr == "" {
		return fmt.Errorf("problem addr is required")
	}
	if c.Sandbox.HelperPath == "" {
		return fmt.Errorf("sandbox helper path is required")
	}
	return nil
}

func applyDefaults(c *config.Config) {
	if c.Source.Bucket == "" {
		c.Source.Bucket = c.MinIO.Bucket
	}
	if c.Worker.PoolSize <= 0 {
		c.Worker.PoolSize = 1
	}
	if c.Status.FinalTopic == "" {
		c.Status.FinalTopic = "judge.status.final"
	}
	if c.Kafka.RetryTopic == "" {
		c.Kafka.RetryTopic = "judge.retry"
	}
	if c.Kafka.PoolRetryMax <= 0 {
		c.Kafka.PoolRetryMax = 5
	}
	if c.Kafka.PoolRetryBase == 0 {
		c.Kafka.PoolRetryBase = defaultPoolRetryBase
	}
	if c.Kafka.PoolRetryMaxD == 0 {
		c.Kafka.PoolRetryMaxD = defaultPoolRetryMaxD
	}
	if len(c.Kafka.TopicWeights) == 0 && len(c.Kafka.Topics) > 0 {
		c.Kafka.TopicWeights = transport.DefaultTopicWeights(c.Kafka.Topics)
	}
}
