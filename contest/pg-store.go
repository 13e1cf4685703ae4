package contest

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type PgStore struct {
	pool *pgxpool.Pool
}

func NewPgStore(pool *pgxpool.Pool) *PgStore {
	return &PgStore{pool: pool}
}

const contestColumns = `
	tid, domain_id, kind, title, content, owner_uid, rule,
	begin_at, end_at, pids, penalty_since, penalty_rules,
	rate_limit, show_scoreboard, plagiarism_url`

func (s *PgStore) Create(ctx context.Context, c Contest) error {
	if err := c.Validate(); err != nil {
		return err
	}
	query := `INSERT INTO contests (` + contestColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)`
	_, err := s.pool.Exec(ctx, query, contestArgs(c)...)
	if err != nil {
		return fmt.Errorf("failed to insert contest: %w", err)
	}
	return nil
}

func (s *PgStore) Get(ctx context.Context, id uuid.UUID) (Contest, error) {
	query := `SELECT ` + contestColumns + ` FROM contests WHERE tid = $1`
	c, err := scanContest(s.pool.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Contest{}, ErrContestNotFound()
		}
		return Contest{}, fmt.Errorf("failed to query contest: %w", err)
	}
	return c, nil
}

func (s *PgStore) Update(ctx context.Context, c Contest) error {
	if err := c.Validate(); err != nil {
		return err
	}
	query := `
		UPDATE contests SET
			domain_id = $2, kind = $3, title = $4, content = $5, owner_uid = $6, rule = $7,
			begin_at = $8, end_at = $9, pids = $10, penalty_since = $11, penalty_rules = $12,
			rate_limit = $13, show_scoreboard = $14, plagiarism_url = $15
		WHERE tid = $1`
	tag, err := s.pool.Exec(ctx, query, contestArgs(c)...)
	if err != nil {
		return fmt.Errorf("failed to update contest: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrContestNotFound()
	}
	return nil
}

func (s *PgStore) List(ctx context.Context, f ListFilter) ([]Contest, error) {
	var where []string
	var args []any
	if f.DomainID != "" {
		args = append(args, f.DomainID)
		where = append(where, fmt.Sprintf("domain_id = $%d", len(args)))
	}
	if f.Kind != nil {
		args = append(args, int(*f.Kind))
		where = append(where, fmt.Sprintf("kind = $%d", len(args)))
	}
	if f.Rule != nil {
		args = append(args, int(*f.Rule))
		where = append(where, fmt.Sprintf("rule = $%d", len(args)))
	}
	query := `SELECT ` + contestColumns + ` FROM contests`
	if len(where) > 0 {
		query += ` WHERE ` + strings.Join(where, " AND ")
	}
	query += ` ORDER BY begin_at DESC`

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query contests: %w", err)
	}
	defer rows.Close()

	res := []Contest{}
	for rows.Next() {
		c, err := scanContest(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan contest: %w", err)
		}
		res = append(res, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate contests: %w", err)
	}
	return res, nil
}

func (s *PgStore) SetPlagiarismURL(ctx context.Context, id uuid.UUID, url string) error {
	tag, err := s.pool.Exec(ctx, `UPDATE contests SET plagiarism_url = $2 WHERE tid = $1`, id, url)
	if err != nil {
		return fmt.Errorf("failed to set plagiarism url: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrContestNotFound()
	}
	return nil
}

func contestArgs(c Contest) []any {
	penalty := c.Penalty
	if penalty == nil {
		penalty = Schedule{}
	}
	return []any{
		c.ID, c.DomainID, int(c.Kind), c.Title, c.Content, c.OwnerUID, int(c.Rule),
		c.BeginAt, c.EndAt, c.ProblemIDs, c.PenaltySince, penalty,
		c.RateLimit, c.ScoreboardOverride, c.PlagiarismURL,
	}
}

func scanContest(row pgx.Row) (Contest, error) {
	var c Contest
	var kind, rule int
	err := row.Scan(
		&c.ID, &c.DomainID, &kind, &c.Title, &c.Content, &c.OwnerUID, &rule,
		&c.BeginAt, &c.EndAt, &c.ProblemIDs, &c.PenaltySince, &c.Penalty,
		&c.RateLimit, &c.ScoreboardOverride, &c.PlagiarismURL,
	)
	if err != nil {
		return Contest{}, err
	}
	c.Kind = Kind(kind)
	c.Rule = RuleID(rule)
	c.BeginAt = c.BeginAt.UTC()
	c.EndAt = c.EndAt.UTC()
	if c.PenaltySince != nil {
		t := c.PenaltySince.UTC()
		c.PenaltySince = &t
	}
	if len(c.Penalty) == 0 {
		c.Penalty = nil
	}
	return c, nil
}
