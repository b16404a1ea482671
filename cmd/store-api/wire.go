package main

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"store-backend/internal/config"
	"store-backend/internal/obs"
	"store-backend/internal/reactions"
	"store-backend/middleware/activity"
	"store-backend/middleware/ipblock"
	"store-backend/middleware/perfmon"
	"store-backend/middleware/pipeline"
	"store-backend/middleware/ratelimit"
	"store-backend/middleware/ratelimit/domain"
	"store-backend/middleware/ratelimit/infra"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
)

// janitor é o que os stores em memória expõem para limpeza periódica.
type janitor interface {
	StartJanitor(ctx context.Context)
}

// policy agrupa o que o serve precisa do rate limit.
type policy struct {
	limiter domain.LimiterStore
	stats   domain.StatsStore
	janitor janitor
	// memStats só existe quando as estatísticas ficam em memória.
	memStats *infra.MemoryStatsStore
}

func newRedis(ctx context.Context, cfg config.Config) (*redis.Client, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})
	pingCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	if _, err := rdb.Ping(pingCtx).Result(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	return rdb, nil
}

func buildPolicy(cfg config.Config, rdb redis.UniversalClient) policy {
	var p policy
	switch {
	case cfg.RateStore == config.StoreRedis:
		p.limiter = infra.NewRedisWindowStore(rdb, cfg.RateMaxRequests, cfg.RateWindow)
	case cfg.RateAlgorithm == config.AlgorithmToken:
		s := infra.NewTokenBucketStore(cfg.RateMaxRequests, cfg.RateWindow)
		p.limiter, p.janitor = s, s
	default:
		s := infra.NewWindowStore(cfg.RateMaxRequests, cfg.RateWindow)
		p.limiter, p.janitor = s, s
	}

	switch {
	case !cfg.RateStatsEnabled:
	case rdb != nil:
		p.stats = infra.NewRedisStatsStore(
			rdb,
			infra.WithStatsPrefix(cfg.RateStatsPrefix),
			infra.WithStatsTTL(cfg.RateStatsTTL),
			infra.WithStatsBucket(cfg.RateStatsBucket),
			infra.WithStatsTrackKeys(cfg.RateStatsTrackKeys),
		)
	default:
		p.memStats = infra.NewMemoryStatsStore(infra.WithTrackKeys(cfg.RateStatsTrackKeys))
		p.stats = p.memStats
	}
	return p
}

// logStats resume as estatísticas em memória, que se perdem ao parar.
func (p policy) logStats(log logrus.FieldLogger) {
	if p.memStats == nil {
		return
	}
	total := p.memStats.Total()
	fields := logrus.Fields{"allowed": total.Allowed, "denied": total.Denied}
	for name, c := range p.memStats.ByPolicy() {
		fields[name+"_denied"] = c.Denied
	}
	log.WithFields(fields).Info("policy stats")
}

// buildStages monta a ordem padrão: activity, ipblock, ratelimit,
// concurrency, perfmon. Activity vem primeiro para enxergar todas as respostas,
// inclusive rejeições.
func buildStages(cfg config.Config, p policy, sink obs.Sink, log logrus.FieldLogger) []pipeline.Stage {
	var actOpts []activity.Option
	if !cfg.LogRejections {
		actOpts = append(actOpts, activity.WithoutRejections())
	}
	stages := []pipeline.Stage{
		activity.New(sink, actOpts...),
		ipblock.New(cfg.BlockedIPs, ipblock.WithStats(p.stats)),
	}
	if cfg.RateEnabled {
		stages = append(stages, ratelimit.New(ratelimit.Options{
			Store:               p.limiter,
			Stats:               p.stats,
			RejectStatus:        http.StatusTooManyRequests,
			AddRateLimitHeaders: cfg.RateHeaders,
			Log:                 log,
		}))
	}
	// NewConcurrency devolve nil quando desligado; não pode entrar como Stage
	if c := ratelimit.NewConcurrency(ratelimit.ConcurrencyOptions{
		Max:            cfg.ConcurrencyMax,
		RejectStatus:   http.StatusServiceUnavailable,
		AcquireTimeout: cfg.ConcurrencyTimeout,
	}); c != nil {
		stages = append(stages, c)
	}
	return append(stages, perfmon.New(sink))
}

// buildNotifier usa SQS quando há fila configurada; o log sempre registra.
func buildNotifier(ctx context.Context, cfg config.Config, log logrus.FieldLogger) (reactions.Notifier, error) {
	logN := &reactions.LogNotifier{Log: log}
	if cfg.InvoiceQueueURL == "" {
		return logN, nil
	}

	var opts []func(*awsconfig.LoadOptions) error
	if cfg.AWSRegion != "" {
		opts = append(opts, awsconfig.WithRegion(cfg.AWSRegion))
	}
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}
	return reactions.Multi{logN, reactions.NewSQSNotifier(sqs.NewFromConfig(awsCfg), cfg.InvoiceQueueURL)}, nil
}
