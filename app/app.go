// Package app assembles the stores, brokers and services from a Config.
package app

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/programme-lv/ojcore/batchsrvc"
	"github.com/programme-lv/ojcore/broker"
	"github.com/programme-lv/ojcore/broker/redisbroker"
	"github.com/programme-lv/ojcore/broker/sqsbroker"
	"github.com/programme-lv/ojcore/conf"
	"github.com/programme-lv/ojcore/contest"
	"github.com/programme-lv/ojcore/directory"
	"github.com/programme-lv/ojcore/fanout"
	"github.com/programme-lv/ojcore/judgesrvc"
	"github.com/programme-lv/ojcore/record"
	"github.com/programme-lv/ojcore/standings"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

type App struct {
	Records   record.Store
	Contests  contest.Store
	Directory directory.Directory
	Standings *standings.Service
	Judge     *judgesrvc.JudgeSrvc
	Batch     *batchsrvc.BatchSrvc
	Changes   *fanout.Publisher
	Registry  *prometheus.Registry

	pool  *pgxpool.Pool
	bus   *broker.Manager
	queue *broker.Manager
}

// New connects to every backing service. Both broker managers are connected
// eagerly so a bad url fails here rather than on the first submission.
func New(ctx context.Context, cfg conf.Config, log *slog.Logger) (_ *App, err error) {
	a := &App{}
	defer func() {
		if err != nil {
			a.Close(context.Background())
		}
	}()

	awsCfg, err := cfg.AwsConfig(ctx)
	if err != nil {
		return nil, err
	}
	ddbClient := dynamodb.NewFromConfig(awsCfg)
	a.Records = record.NewDdbStore(ddbClient, cfg.RecordTable)
	standingStore := standings.NewDdbStore(ddbClient, cfg.StandingTable)

	dsn, err := cfg.Postgres.ConnString(ctx, cfg.AwsRegion)
	if err != nil {
		return nil, err
	}
	if a.pool, err = pgxpool.New(ctx, dsn); err != nil {
		return nil, err
	}
	a.Contests = contest.NewPgStore(a.pool)
	a.Directory = directory.NewPgDirectory(a.pool)

	busDialer, err := redisbroker.NewDialer(cfg.RedisUrl, log)
	if err != nil {
		return nil, err
	}
	retry := broker.WithRetry(cfg.BrokerRetries, cfg.BrokerRetryDelay)
	a.bus = broker.NewManager(busDialer, retry, broker.WithLogger(log))
	a.queue = a.bus
	if cfg.QueueBackend == conf.QueueBackendSqs {
		sqsDialer := sqsbroker.NewDialer(sqs.NewFromConfig(awsCfg), map[string]string{
			cfg.JudgeQueue: cfg.JudgeSqsUrl,
		})
		a.queue = broker.NewManager(sqsDialer, retry, broker.WithLogger(log))
	}
	if _, err = a.queue.Connect(ctx); err != nil {
		return nil, err
	}
	if _, err = a.bus.Connect(ctx); err != nil {
		return nil, err
	}

	a.Changes = fanout.NewPublisher(a.bus, cfg.ChangeTopic, cfg.ChangeWindow, log)
	a.Standings = standings.NewService(standingStore, a.Contests, a.Directory, time.Now, log)
	a.Judge = judgesrvc.NewJudgeSrvc(judgesrvc.Deps{
		Records:   a.Records,
		Contests:  a.Contests,
		Directory: a.Directory,
		Standings: a.Standings,
		Queue:     a.queue,
		Changes:   a.Changes,
	},
		judgesrvc.WithQueue(cfg.JudgeQueue),
		judgesrvc.WithStaleAfter(cfg.ClaimStaleAfter),
		judgesrvc.WithLogger(log),
	)
	a.Batch = batchsrvc.NewBatchSrvc(a.Records, a.Contests, a.Standings, a.Judge, log)

	a.Registry = prometheus.NewRegistry()
	a.Registry.MustRegister(collectors.NewGoCollector())
	a.Registry.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	broker.RegisterMetrics(a.Registry)
	fanout.RegisterMetrics(a.Registry)
	judgesrvc.RegisterMetrics(a.Registry)
	standings.RegisterMetrics(a.Registry)
	return a, nil
}

// Close flushes pending change events and releases connections.
func (a *App) Close(ctx context.Context) error {
	var errs []error
	if a.Changes != nil {
		errs = append(errs, a.Changes.Close(ctx))
	}
	if a.queue != nil && a.queue != a.bus {
		errs = append(errs, a.queue.Shutdown())
	}
	if a.bus != nil {
		errs = append(errs, a.bus.Shutdown())
	}
	if a.pool != nil {
		a.pool.Close()
	}
	return errors.Join(errs...)
}
