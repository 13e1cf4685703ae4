// Package judgesrvc admits submissions and runs the claim protocol judge
// workers use to report on them.
package judgesrvc

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/programme-lv/ojcore/broker"
	"github.com/programme-lv/ojcore/contest"
	"github.com/programme-lv/ojcore/directory"
	"github.com/programme-lv/ojcore/record"
	"github.com/programme-lv/ojcore/standings"
)

const (
	DefaultQueue      = "judge"
	DefaultStaleAfter = 10 * time.Minute

	// queueChannelKey is the broker channel shared by all judge enqueues.
	queueChannelKey = "judge"
)

type ChannelSource interface {
	Channel(ctx context.Context, key string) (broker.Channel, error)
}

type ChangePublisher interface {
	PublishChange(rec record.Record)
}

type Standings interface {
	GetStatus(ctx context.Context, tid, uid uuid.UUID) (standings.Standing, error)
	UpdateStatus(ctx context.Context, p standings.UpdateParams) (standings.Standing, error)
}

type Deps struct {
	Records   record.Store
	Contests  contest.Store
	Directory directory.Directory
	Standings Standings
	Queue     ChannelSource
	Changes   ChangePublisher
}

type JudgeSrvc struct {
	records   record.Store
	contests  contest.Store
	dir       directory.Directory
	standings Standings
	queue     ChannelSource
	changes   ChangePublisher

	queueName  string
	staleAfter time.Duration
	now        func() time.Time
	logger     *slog.Logger
}

type Option func(*JudgeSrvc)

// WithQueue sets the work queue judge tasks are routed to.
func WithQueue(name string) Option {
	return func(s *JudgeSrvc) { s.queueName = name }
}

// WithStaleAfter sets how long a claim may go without finishing before
// another worker may take the record over.
func WithStaleAfter(d time.Duration) Option {
	return func(s *JudgeSrvc) { s.staleAfter = d }
}

func WithClock(now func() time.Time) Option {
	return func(s *JudgeSrvc) { s.now = now }
}

func WithLogger(log *slog.Logger) Option {
	return func(s *JudgeSrvc) { s.logger = log }
}

func NewJudgeSrvc(deps Deps, opts ...Option) *JudgeSrvc {
	s := &JudgeSrvc{
		records:    deps.Records,
		contests:   deps.Contests,
		dir:        deps.Directory,
		standings:  deps.Standings,
		queue:      deps.Queue,
		changes:    deps.Changes,
		queueName:  DefaultQueue,
		staleAfter: DefaultStaleAfter,
		now:        time.Now,
		logger:     slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.logger = s.logger.With(slog.String("module", "judge"))
	return s
}
