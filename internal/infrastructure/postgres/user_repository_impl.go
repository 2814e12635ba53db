package postgres

import (
	"context"
	"errors"
	"time"

	"cloud.google.com/go/civil"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/oksasatya/go-user-directory/internal/domain/entity"
	"github.com/oksasatya/go-user-directory/internal/domain/repository"
)

// DB is the subset of *pgxpool.Pool the repository needs.
type DB interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

type UserRepository struct {
	db DB
}

func NewUserRepository(db DB) *UserRepository {
	return &UserRepository{db: db}
}

const userColumns = `id, email, first_name, last_name, birth_date, address, phone_number`

func (r *UserRepository) Save(ctx context.Context, u *entity.User) error {
	if u.ID == 0 {
		row := r.db.QueryRow(ctx, `
			INSERT INTO users (email, first_name, last_name, birth_date, address, phone_number)
			VALUES ($1, $2, $3, $4, $5, $6)
			RETURNING id
		`, u.Email, u.FirstName, u.LastName, toTime(u.BirthDate), u.Address, u.PhoneNumber)
		return row.Scan(&u.ID)
	}

	if _, err := r.db.Exec(ctx, `
		INSERT INTO users (id, email, first_name, last_name, birth_date, address, phone_number)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (id) DO UPDATE
		SET email = EXCLUDED.email,
		    first_name = EXCLUDED.first_name,
		    last_name = EXCLUDED.last_name,
		    birth_date = EXCLUDED.birth_date,
		    address = EXCLUDED.address,
		    phone_number = EXCLUDED.phone_number
	`, u.ID, u.Email, u.FirstName, u.LastName, toTime(u.BirthDate), u.Address, u.PhoneNumber); err != nil {
		return err
	}

	// explicit ids bypass the identity sequence; move it past them
	_, err := r.db.Exec(ctx, `
		SELECT setval(pg_get_serial_sequence('users', 'id'), GREATEST((SELECT MAX(id) FROM users), 1))
	`)
	return err
}

func (r *UserRepository) FindByID(ctx context.Context, id int64) (*entity.User, error) {
	row := r.db.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, id)
	u, err := scanUser(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, repository.ErrUserNotFound
		}
		return nil, err
	}
	return u, nil
}

func (r *UserRepository) DeleteByID(ctx context.Context, id int64) error {
	res, err := r.db.Exec(ctx, `DELETE FROM users WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if res.RowsAffected() == 0 {
		return repository.ErrUserNotFound
	}
	return nil
}

func (r *UserRepository) FindByBirthDateBetween(ctx context.Context, from, to civil.Date) ([]entity.User, error) {
	rows, err := r.db.Query(ctx, `
		SELECT `+userColumns+`
		FROM users
		WHERE birth_date BETWEEN $1 AND $2
		ORDER BY id
	`, toTime(from), toTime(to))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	users := make([]entity.User, 0)
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		users = append(users, *u)
	}
	return users, rows.Err()
}

func scanUser(row pgx.Row) (*entity.User, error) {
	u := &entity.User{}
	var birth time.Time
	if err := row.Scan(&u.ID, &u.Email, &u.FirstName, &u.LastName, &birth, &u.Address, &u.PhoneNumber); err != nil {
		return nil, err
	}
	u.BirthDate = civil.DateOf(birth)
	return u, nil
}

func toTime(d civil.Date) time.Time {
	return d.In(time.UTC)
}

var _ repository.UserRepository = (*UserRepository)(nil)
