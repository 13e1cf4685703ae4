package directory

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type PgDirectory struct {
	pool *pgxpool.Pool
}

func NewPgDirectory(pool *pgxpool.Pool) *PgDirectory {
	return &PgDirectory{pool: pool}
}

func (d *PgDirectory) GetProblem(ctx context.Context, domainID, pid string) (Problem, error) {
	query := `
		SELECT domain_id, pid, title, hidden, languages, num_submit, num_accept
		FROM problems
		WHERE domain_id = $1 AND pid = $2
	`
	var p Problem
	err := d.pool.QueryRow(ctx, query, domainID, pid).Scan(
		&p.DomainID, &p.ID, &p.Title, &p.Hidden, &p.Languages, &p.NumSubmit, &p.NumAccept,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Problem{}, ErrProblemNotFound().SetDebug(fmt.Errorf("problem %s/%s", domainID, pid))
		}
		return Problem{}, fmt.Errorf("failed to query problem: %w", err)
	}
	return p, nil
}

func (d *PgDirectory) GetProblems(ctx context.Context, domainID string, pids []string) (map[string]Problem, error) {
	query := `
		SELECT domain_id, pid, title, hidden, languages, num_submit, num_accept
		FROM problems
		WHERE domain_id = $1 AND pid = ANY($2)
	`
	rows, err := d.pool.Query(ctx, query, domainID, pids)
	if err != nil {
		return nil, fmt.Errorf("failed to query problems: %w", err)
	}
	defer rows.Close()

	res := make(map[string]Problem, len(pids))
	for rows.Next() {
		var p Problem
		err := rows.Scan(&p.DomainID, &p.ID, &p.Title, &p.Hidden, &p.Languages, &p.NumSubmit, &p.NumAccept)
		if err != nil {
			return nil, fmt.Errorf("failed to scan problem: %w", err)
		}
		res[p.ID] = p
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate problems: %w", err)
	}
	for _, pid := range pids {
		if _, ok := res[pid]; !ok {
			return nil, ErrProblemNotFound().SetDebug(fmt.Errorf("problem %s/%s", domainID, pid))
		}
	}
	return res, nil
}

func (d *PgDirectory) GetUsers(ctx context.Context, uids []uuid.UUID) (map[uuid.UUID]User, error) {
	rows, err := d.pool.Query(ctx, `SELECT uid, uname, display_name FROM users WHERE uid = ANY($1)`, uids)
	if err != nil {
		return nil, fmt.Errorf("failed to query users: %w", err)
	}
	defer rows.Close()

	res := make(map[uuid.UUID]User, len(uids))
	for rows.Next() {
		var u User
		if err := rows.Scan(&u.UID, &u.Uname, &u.DisplayName); err != nil {
			return nil, fmt.Errorf("failed to scan user: %w", err)
		}
		res[u.UID] = u
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate users: %w", err)
	}
	for _, uid := range uids {
		if _, ok := res[uid]; !ok {
			return nil, ErrUserNotFound().SetDebug(fmt.Errorf("user %s", uid))
		}
	}
	return res, nil
}

func (d *PgDirectory) SetHidden(ctx context.Context, domainID, pid string, hidden bool) error {
	tag, err := d.pool.Exec(ctx,
		`UPDATE problems SET hidden = $3 WHERE domain_id = $1 AND pid = $2`,
		domainID, pid, hidden)
	if err != nil {
		return fmt.Errorf("failed to update problem: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrProblemNotFound()
	}
	return nil
}

func (d *PgDirectory) IncSubmit(ctx context.Context, domainID, pid string, uid uuid.UUID) error {
	return d.inc(ctx, domainID, pid, uid, "num_submit")
}

func (d *PgDirectory) IncAccept(ctx context.Context, domainID, pid string, uid uuid.UUID) error {
	return d.inc(ctx, domainID, pid, uid, "num_accept")
}

// inc bumps column on both the problem and the domain member in one
// transaction. column is one of the two counter names, never user input.
func (d *PgDirectory) inc(ctx context.Context, domainID, pid string, uid uuid.UUID, column string) error {
	tx, err := d.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	tag, err := tx.Exec(ctx,
		`UPDATE problems SET `+column+` = `+column+` + 1 WHERE domain_id = $1 AND pid = $2`,
		domainID, pid)
	if err != nil {
		return fmt.Errorf("failed to bump problem %s: %w", column, err)
	}
	if tag.RowsAffected() == 0 {
		return ErrProblemNotFound()
	}

	_, err = tx.Exec(ctx, `
		INSERT INTO domain_users (domain_id, uid, `+column+`) VALUES ($1, $2, 1)
		ON CONFLICT (domain_id, uid) DO UPDATE SET `+column+` = domain_users.`+column+` + 1
	`, domainID, uid)
	if err != nil {
		return fmt.Errorf("failed to bump user %s: %w", column, err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}
