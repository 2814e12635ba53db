package sqlite

import (
	"context"
	"database/sql"
	"errors"

	"cloud.google.com/go/civil"

	"github.com/oksasatya/go-user-directory/internal/domain/entity"
	"github.com/oksasatya/go-user-directory/internal/domain/repository"
)

type UserRepository struct {
	db *sql.DB
}

func NewUserRepository(db *sql.DB) *UserRepository {
	return &UserRepository{db: db}
}

const userColumns = `id, email, first_name, last_name, birth_date, address, phone_number`

// birth_date is stored as TEXT in YYYY-MM-DD form, which orders like the date itself.
func (r *UserRepository) Save(ctx context.Context, u *entity.User) error {
	if u.ID == 0 {
		row := r.db.QueryRowContext(ctx, `
			INSERT INTO users (email, first_name, last_name, birth_date, address, phone_number)
			VALUES (?, ?, ?, ?, ?, ?)
			RETURNING id
		`, u.Email, u.FirstName, u.LastName, u.BirthDate.String(), u.Address, u.PhoneNumber)
		return row.Scan(&u.ID)
	}

	_, err := r.db.ExecContext(ctx, `
		INSERT INTO users (id, email, first_name, last_name, birth_date, address, phone_number)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (id) DO UPDATE
		SET email = excluded.email,
		    first_name = excluded.first_name,
		    last_name = excluded.last_name,
		    birth_date = excluded.birth_date,
		    address = excluded.address,
		    phone_number = excluded.phone_number
	`, u.ID, u.Email, u.FirstName, u.LastName, u.BirthDate.String(), u.Address, u.PhoneNumber)
	return err
}

func (r *UserRepository) FindByID(ctx context.Context, id int64) (*entity.User, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE id = ?`, id)
	u, err := scanUser(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, repository.ErrUserNotFound
		}
		return nil, err
	}
	return u, nil
}

func (r *UserRepository) DeleteByID(ctx context.Context, id int64) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM users WHERE id = ?`, id)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return repository.ErrUserNotFound
	}
	return nil
}

func (r *UserRepository) FindByBirthDateBetween(ctx context.Context, from, to civil.Date) ([]entity.User, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT `+userColumns+`
		FROM users
		WHERE birth_date BETWEEN ? AND ?
		ORDER BY id
	`, from.String(), to.String())
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

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

type scanner interface {
	Scan(dest ...any) error
}

func scanUser(row scanner) (*entity.User, error) {
	u := &entity.User{}
	var birth string
	if err := row.Scan(&u.ID, &u.Email, &u.FirstName, &u.LastName, &birth, &u.Address, &u.PhoneNumber); err != nil {
		return nil, err
	}
	d, err := civil.ParseDate(birth)
	if err != nil {
		return nil, err
	}
	u.BirthDate = d
	return u, nil
}

var _ repository.UserRepository = (*UserRepository)(nil)
