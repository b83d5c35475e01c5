package store

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresStore keeps every entity in a single JSONB records table
// (see migrations/001_create_records.up.sql).
type PostgresStore struct {
	pool *pgxpool.Pool
}

func NewPostgresStore(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

func (s *PostgresStore) FetchRecords(ctx context.Context, entity Entity, q Query) ([]Record, error) {
	args := []any{string(entity)}
	var order []string
	for _, o := range q.OrderBy {
		dir := "ASC"
		if o.Desc {
			dir = "DESC"
		}
		if o.Field == IDField {
			order = append(order, "id "+dir)
			continue
		}
		args = append(args, o.Field)
		order = append(order, fmt.Sprintf("data->>$%d::text %s", len(args), dir))
	}
	order = append(order, "id ASC")

	query := fmt.Sprintf(`
		SELECT id, data
		FROM records
		WHERE entity = $1
		ORDER BY %s`, strings.Join(order, ", "))
	if q.Paging.Limit > 0 {
		args = append(args, q.Paging.Limit)
		query += fmt.Sprintf(" LIMIT $%d", len(args))
	}
	if q.Paging.Offset > 0 {
		args = append(args, q.Paging.Offset)
		query += fmt.Sprintf(" OFFSET $%d", len(args))
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, s.mapError(err)
	}
	defer rows.Close()

	records := make([]Record, 0)
	for rows.Next() {
		r, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, Project(r, q.Fields))
	}
	return records, s.mapError(rows.Err())
}

func (s *PostgresStore) GetRecordByID(ctx context.Context, entity Entity, id int64, q Query) (Record, error) {
	r, err := scanRecord(s.pool.QueryRow(ctx, `
		SELECT id, data
		FROM records
		WHERE entity = $1 AND id = $2
	`, string(entity), id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrRecordNotFound
	}
	if err != nil {
		return nil, s.mapError(err)
	}
	return Project(r, q.Fields), nil
}

func (s *PostgresStore) CreateRecords(ctx context.Context, entity Entity, records []Record) (Response, error) {
	resp := Response{Success: true, Results: make([]Result, 0, len(records))}
	err := pgx.BeginFunc(ctx, s.pool, func(tx pgx.Tx) error {
		for _, in := range records {
			r, err := scanRecord(tx.QueryRow(ctx, `
				INSERT INTO records (entity, data)
				VALUES ($1, $2)
				RETURNING id, data
			`, string(entity), withoutID(in)))
			if err != nil {
				return err
			}
			resp.Results = append(resp.Results, Result{Success: true, Data: r})
		}
		return nil
	})
	if err != nil {
		return Response{}, s.mapError(err)
	}
	return resp, nil
}

func (s *PostgresStore) UpdateRecords(ctx context.Context, entity Entity, records []Record) (Response, error) {
	resp := Response{Success: true, Results: make([]Result, 0, len(records))}
	err := pgx.BeginFunc(ctx, s.pool, func(tx pgx.Tx) error {
		for _, in := range records {
			id, _ := in.ID()
			r, err := scanRecord(tx.QueryRow(ctx, `
				UPDATE records
				SET data = data || $3::jsonb
				WHERE entity = $1 AND id = $2
				RETURNING id, data
			`, string(entity), id, withoutID(in)))
			if errors.Is(err, pgx.ErrNoRows) {
				resp.Results = append(resp.Results, Result{Message: ErrRecordNotFound.Error(), NotFound: true})
				continue
			}
			if err != nil {
				return err
			}
			resp.Results = append(resp.Results, Result{Success: true, Data: r})
		}
		return nil
	})
	if err != nil {
		return Response{}, s.mapError(err)
	}
	return resp, nil
}

func (s *PostgresStore) DeleteRecords(ctx context.Context, entity Entity, ids []int64) (Response, error) {
	resp := Response{Success: true, Results: make([]Result, 0, len(ids))}
	for _, id := range ids {
		cmd, err := s.pool.Exec(ctx, "DELETE FROM records WHERE entity = $1 AND id = $2", string(entity), id)
		if err != nil {
			return Response{}, s.mapError(err)
		}
		if cmd.RowsAffected() == 0 {
			resp.Results = append(resp.Results, Result{Message: ErrRecordNotFound.Error(), NotFound: true})
			continue
		}
		resp.Results = append(resp.Results, Result{Success: true, Data: Record{IDField: id}})
	}
	return resp, nil
}

func scanRecord(row pgx.Row) (Record, error) {
	var (
		id   int64
		data map[string]any
	)
	if err := row.Scan(&id, &data); err != nil {
		return nil, err
	}
	r := Record(data)
	if r == nil {
		r = Record{}
	}
	r[IDField] = id
	return r, nil
}

func withoutID(r Record) Record {
	out := clone(r)
	delete(out, IDField)
	return out
}

func (s *PostgresStore) mapError(err error) error {
	if err == nil {
		return nil
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return fmt.Errorf("postgres %s: %s: %w", pgErr.Code, pgErr.Message, err)
	}
	return err
}
