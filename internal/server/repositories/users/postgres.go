package users

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"

	"github.com/resdex/resdex/internal/common"
	"github.com/resdex/resdex/internal/dbx"
	"github.com/resdex/resdex/internal/profile"
	"github.com/resdex/resdex/internal/server/models"
)

const uniqueViolation = "23505"

const profileColumns = `id, username, full_name, about, organization, interests,
		       profile_picture, contributions, research, documents`

type PostgresRepository struct {
	db dbx.DBTX
}

func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) Create(ctx context.Context, user *models.User) (*models.User, error) {
	query :=
		`INSERT INTO users (username, full_name, salt, master_key_verifier)
		 VALUES ($1, $2, $3, $4)
		 RETURNING id, created_at`

	err := r.db.QueryRowContext(ctx, query,
		user.Username, user.FullName, user.Salt, user.Verifier).Scan(&user.ID, &user.CreatedAt)
	if err != nil {
		return nil, wrapErr(err)
	}

	return user, nil
}

func (r *PostgresRepository) CreateHandle(ctx context.Context, handle, userID string) error {
	query :=
		`INSERT INTO usernames (username, user_id)
		 VALUES (lower($1), $2)`

	if _, err := r.db.ExecContext(ctx, query, handle, userID); err != nil {
		return wrapErr(err)
	}
	return nil
}

func (r *PostgresRepository) GetByHandle(ctx context.Context, handle string) (*models.User, error) {
	query :=
		`SELECT u.id, u.username, u.full_name, u.salt, u.master_key_verifier, u.created_at
		 FROM usernames n JOIN users u ON u.id = n.user_id
		 WHERE n.username = lower($1)`

	user := &models.User{}
	err := r.db.QueryRowContext(ctx, query, handle).
		Scan(&user.ID, &user.Username, &user.FullName, &user.Salt, &user.Verifier, &user.CreatedAt)
	if err != nil {
		return nil, wrapErr(err)
	}
	return user, nil
}

func (r *PostgresRepository) FindIDByHandle(ctx context.Context, handle string) (string, error) {
	query :=
		`SELECT user_id FROM usernames
		 WHERE username = lower($1)`

	var id string
	if err := r.db.QueryRowContext(ctx, query, handle).Scan(&id); err != nil {
		return "", wrapErr(err)
	}
	return id, nil
}

func (r *PostgresRepository) GetProfile(ctx context.Context, userID string) (*profile.UserProfile, error) {
	query := `SELECT ` + profileColumns + `
		 FROM users
		 WHERE id = $1`

	p, err := scanProfile(r.db.QueryRowContext(ctx, query, userID))
	if err != nil {
		return nil, wrapErr(err)
	}
	return p, nil
}

// UpdateProfile writes only the fields set in patch. An empty patch is a no-op.
func (r *PostgresRepository) UpdateProfile(ctx context.Context, userID string, patch profile.Patch) error {
	if patch.Empty() {
		return nil
	}

	sets := make([]string, 0, 6)
	args := []any{userID}
	add := func(col string, v any) {
		args = append(args, v)
		sets = append(sets, fmt.Sprintf("%s = $%d", col, len(args)))
	}

	if patch.About != nil {
		add("about", *patch.About)
	}
	if patch.Organization != nil {
		add("organization", *patch.Organization)
	}
	if patch.Interests != nil {
		add("interests", profile.JoinInterests(*patch.Interests))
	}
	if patch.ProfilePicture != nil {
		add("profile_picture", *patch.ProfilePicture)
	}
	if patch.Documents != nil {
		docs := *patch.Documents
		if docs == nil {
			docs = []profile.DocumentEntry{}
		}
		raw, err := json.Marshal(docs)
		if err != nil {
			return fmt.Errorf("encode documents: %w", err)
		}
		add("documents", raw)
	}
	sets = append(sets, "updated_at = now()")

	query := `UPDATE users SET ` + strings.Join(sets, ", ") + ` WHERE id = $1`

	res, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return wrapErr(err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return wrapErr(err)
	}
	if n == 0 {
		return common.ErrorNotFound
	}
	return nil
}

// ListProfiles returns the first limit profiles in registration order.
func (r *PostgresRepository) ListProfiles(ctx context.Context, limit int) ([]profile.UserProfile, error) {
	query := `SELECT ` + profileColumns + `
		 FROM users
		 ORDER BY created_at, id
		 LIMIT $1`

	rows, err := r.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, wrapErr(err)
	}
	defer rows.Close()

	out := make([]profile.UserProfile, 0, limit)
	for rows.Next() {
		p, err := scanProfile(rows)
		if err != nil {
			return nil, wrapErr(err)
		}
		out = append(out, *p)
	}
	if err := rows.Err(); err != nil {
		return nil, wrapErr(err)
	}
	return out, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanProfile(row scanner) (*profile.UserProfile, error) {
	var (
		p         profile.UserProfile
		interests string
		research  []byte
		documents []byte
	)
	err := row.Scan(&p.ID, &p.Username, &p.FullName, &p.About, &p.Organization, &interests,
		&p.ProfilePicture, &p.Contributions, &research, &documents)
	if err != nil {
		return nil, err
	}

	p.Interests = profile.SplitInterests(interests)
	if len(research) > 0 {
		if err := json.Unmarshal(research, &p.Research); err != nil {
			return nil, fmt.Errorf("decode research: %w", err)
		}
	}
	if len(documents) > 0 {
		if err := json.Unmarshal(documents, &p.Documents); err != nil {
			return nil, fmt.Errorf("decode documents: %w", err)
		}
	}
	return &p, nil
}

func wrapErr(err error) error {
	if errors.Is(err, sql.ErrNoRows) {
		return common.ErrorNotFound
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
		return fmt.Errorf("%w: %s", common.ErrorAlreadyExists, pgErr.ConstraintName)
	}
	return fmt.Errorf("db error: %w", err)
}
