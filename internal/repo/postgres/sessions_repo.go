package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/geocoder89/wellnesshub/internal/domain/session"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type SessionsRepo struct {
	pool *pgxpool.Pool
	obs  DBObserver
}

func NewSessionsRepo(pool *pgxpool.Pool, obs DBObserver) *SessionsRepo {
	return &SessionsRepo{
		pool: pool,
		obs:  obs,
	}
}

const sessionColumns = `id, user_id, title, tags, json_file_url, status, created_at, updated_at`

func (r *SessionsRepo) Insert(ctx context.Context, s session.Session) (session.Session, error) {
	if s.Tags == nil {
		s.Tags = []string{}
	}

	err := observe(r.obs, "sessions.insert", func() error {
		_, err := r.pool.Exec(ctx,
			`INSERT INTO sessions (`+sessionColumns+`) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
			s.ID, s.OwnerID, s.Title, s.Tags, s.JSONURL, string(s.Status), s.CreatedAt, s.UpdatedAt,
		)
		return err
	})

	if err != nil {
		return session.Session{}, err
	}

	return s, nil
}

// UpdateOwned rewrites the editable fields of a session owned by ownerID.
// updated_at always moves forward, even when now has not advanced past it.
func (r *SessionsRepo) UpdateOwned(ctx context.Context, ownerID, id string, f session.Fields, publish bool, now time.Time) (session.Session, error) {
	tags := f.Tags
	if tags == nil {
		tags = []string{}
	}

	var s session.Session

	err := observe(r.obs, "sessions.update_owned", func() error {
		row := r.pool.QueryRow(
			ctx,
			`UPDATE sessions
				SET title = $3,
					tags = $4,
					json_file_url = $5,
					status = CASE WHEN $6::boolean THEN 'published' ELSE status END,
					updated_at = GREATEST($7::timestamptz, updated_at + interval '1 microsecond')
			WHERE id = $1 AND user_id = $2
			RETURNING `+sessionColumns,
			id,
			ownerID,
			f.Title,
			tags,
			f.JSONURL,
			publish,
			now,
		)
		return scanSession(row, &s)
	})

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return session.Session{}, session.ErrNotFound
		}
		return session.Session{}, err
	}

	return s, nil
}

func (r *SessionsRepo) GetOwned(ctx context.Context, ownerID, id string) (session.Session, error) {
	var s session.Session

	err := observe(r.obs, "sessions.get_owned", func() error {
		row := r.pool.QueryRow(ctx,
			`SELECT `+sessionColumns+` FROM sessions WHERE id = $1 AND user_id = $2`,
			id, ownerID,
		)
		return scanSession(row, &s)
	})

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return session.Session{}, session.ErrNotFound
		}
		return session.Session{}, err
	}

	return s, nil
}

func (r *SessionsRepo) ListByOwner(ctx context.Context, ownerID string) ([]session.Session, error) {
	output := make([]session.Session, 0)

	err := observe(r.obs, "sessions.list_by_owner", func() error {
		rows, err := r.pool.Query(ctx,
			`SELECT `+sessionColumns+`
			FROM sessions
			WHERE user_id = $1
			ORDER BY updated_at DESC, id DESC`,
			ownerID,
		)
		if err != nil {
			return err
		}
		defer rows.Close()

		for rows.Next() {
			var s session.Session
			if err := scanSession(rows, &s); err != nil {
				return err
			}
			output = append(output, s)
		}

		return rows.Err()
	})

	if err != nil {
		return nil, err
	}

	return output, nil
}

func (r *SessionsRepo) ListPublished(ctx context.Context) ([]session.Public, error) {
	output := make([]session.Public, 0)

	err := observe(r.obs, "sessions.list_published", func() error {
		rows, err := r.pool.Query(ctx,
			`SELECT s.id, s.user_id, s.title, s.tags, s.json_file_url, s.status, s.created_at, s.updated_at,
				COALESCE(u.email, '')
			FROM sessions s
			LEFT JOIN users u ON u.id = s.user_id
			WHERE s.status = 'published'
			ORDER BY s.created_at DESC, s.id DESC`,
		)
		if err != nil {
			return err
		}
		defer rows.Close()

		for rows.Next() {
			var p session.Public
			var status string

			err := rows.Scan(
				&p.ID,
				&p.OwnerID,
				&p.Title,
				&p.Tags,
				&p.JSONURL,
				&status,
				&p.CreatedAt,
				&p.UpdatedAt,
				&p.OwnerEmail,
			)
			if err != nil {
				return err
			}

			p.Status = session.Status(status)
			output = append(output, p)
		}

		return rows.Err()
	})

	if err != nil {
		return nil, err
	}

	return output, nil
}

func scanSession(row pgx.Row, s *session.Session) error {
	var status string

	err := row.Scan(
		&s.ID,
		&s.OwnerID,
		&s.Title,
		&s.Tags,
		&s.JSONURL,
		&status,
		&s.CreatedAt,
		&s.UpdatedAt,
	)
	if err != nil {
		return err
	}

	s.Status = session.Status(status)
	if s.Tags == nil {
		s.Tags = []string{}
	}
	return nil
}
