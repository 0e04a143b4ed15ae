package directory

import (
	"context"
	"database/sql"
)

var _ Repository = (*PGRepository)(nil)

// PGRepository implements Repository using PostgreSQL.
type PGRepository struct {
	db *sql.DB
}

func NewPGRepository(db *sql.DB) *PGRepository {
	return &PGRepository{db: db}
}

func (r *PGRepository) List(ctx context.Context) ([]Employee, error) {
	rows, err := r.db.QueryContext(ctx,
		`select id, name, email, department from employees order by name asc`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var employees []Employee
	for rows.Next() {
		var e Employee
		if err := rows.Scan(&e.ID, &e.Name, &e.Email, &e.Department); err != nil {
			return nil, err
		}
		employees = append(employees, e)
	}
	return employees, rows.Err()
}

func (r *PGRepository) Get(ctx context.Context, id string) (Employee, error) {
	row := r.db.QueryRowContext(ctx,
		`select id, name, email, department from employees where id=$1`, id)
	var e Employee
	if err := row.Scan(&e.ID, &e.Name, &e.Email, &e.Department); err != nil {
		if err == sql.ErrNoRows {
			return Employee{}, ErrNotFound
		}
		return Employee{}, err
	}
	return e, nil
}
