package repository

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/dormdesk/maintenance-service/internal/domain"
)

// UserRepository defines persistence access for user accounts.
type UserRepository interface {
	Create(ctx context.Context, user *domain.User) error
	Update(ctx context.Context, user *domain.User) error
	GetByID(ctx context.Context, id int64) (*domain.User, error)
	GetByUsername(ctx context.Context, username string) (*domain.User, error)
	List(ctx context.Context) ([]domain.User, error)
	ListTechnicians(ctx context.Context) ([]domain.User, error)
}

type userRepository struct {
	pool *pgxpool.Pool
}

// NewUserRepository returns a Postgres-backed implementation.
func NewUserRepository(pool *pgxpool.Pool) UserRepository {
	return &userRepository{pool: pool}
}

const userColumns = `id, username, password, role, name, phone, avatar, created_at`

func (r *userRepository) Create(ctx context.Context, user *domain.User) error {
	const query = `
        INSERT INTO users (username, password, role, name, phone, avatar)
        VALUES ($1, $2, $3, $4, $5, $6)
        RETURNING id, created_at`

	return r.pool.QueryRow(ctx, query,
		user.Username,
		user.Password,
		user.Role,
		user.Name,
		user.Phone,
		user.Avatar,
	).Scan(&user.ID, &user.CreatedAt)
}

func (r *userRepository) Update(ctx context.Context, user *domain.User) error {
	const query = `
        UPDATE users SET username=$1, password=$2, role=$3, name=$4, phone=$5, avatar=$6
        WHERE id=$7`

	cmd, err := r.pool.Exec(ctx, query,
		user.Username,
		user.Password,
		user.Role,
		user.Name,
		user.Phone,
		user.Avatar,
		user.ID,
	)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (r *userRepository) GetByID(ctx context.Context, id int64) (*domain.User, error) {
	const query = `SELECT ` + userColumns + ` FROM users WHERE id=$1`
	return r.fetchSingle(ctx, query, id)
}

func (r *userRepository) GetByUsername(ctx context.Context, username string) (*domain.User, error) {
	const query = `SELECT ` + userColumns + ` FROM users WHERE username=$1`
	return r.fetchSingle(ctx, query, username)
}

func (r *userRepository) fetchSingle(ctx context.Context, query string, arg any) (*domain.User, error) {
	var user domain.User
	if err := r.pool.QueryRow(ctx, query, arg).Scan(
		&user.ID,
		&user.Username,
		&user.Password,
		&user.Role,
		&user.Name,
		&user.Phone,
		&user.Avatar,
		&user.CreatedAt,
	); err != nil {
		return nil, err
	}
	return &user, nil
}

func (r *userRepository) List(ctx context.Context) ([]domain.User, error) {
	const query = `SELECT ` + userColumns + ` FROM users ORDER BY role, name`
	return r.fetchMany(ctx, query)
}

func (r *userRepository) ListTechnicians(ctx context.Context) ([]domain.User, error) {
	const query = `SELECT ` + userColumns + ` FROM users WHERE role='technician' ORDER BY name`
	return r.fetchMany(ctx, query)
}

func (r *userRepository) fetchMany(ctx context.Context, query string, args ...any) ([]domain.User, error) {
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.User
	for rows.Next() {
		var user domain.User
		if err := rows.Scan(
			&user.ID,
			&user.Username,
			&user.Password,
			&user.Role,
			&user.Name,
			&user.Phone,
			&user.Avatar,
			&user.CreatedAt,
		); err != nil {
			return nil, err
		}
		result = append(result, user)
	}
	return result, rows.Err()
}
