package identity

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"

	"staffdir.org/internal/ids"
)

var _ Store = (*PGStore)(nil)

// PGStore implements Store using PostgreSQL.
type PGStore struct {
	db *sql.DB
}

func NewPGStore(db *sql.DB) *PGStore {
	return &PGStore{db: db}
}

// isUniqueViolation reports whether err is a PostgreSQL unique-constraint
// violation (class 23505).
func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}

func (s *PGStore) CreateUser(ctx context.Context, u *User) error {
	if u.ID == "" {
		u.ID = ids.New()
	}
	u.Email = NormalizeEmail(u.Email)
	_, err := s.db.ExecContext(ctx,
		`insert into users(id, email, password_hash, display_name, city, created_at, updated_at)
		 values($1,$2,$3,$4,$5,$6,$7)`,
		u.ID, u.Email, u.PasswordHash, u.DisplayName, u.City, u.CreatedAt, u.UpdatedAt,
	)
	if isUniqueViolation(err) {
		return ErrConflict
	}
	return err
}

func (s *PGStore) FindUserByID(ctx context.Context, id string) (*User, error) {
	return s.findUser(ctx,
		`select id, email, password_hash, display_name, city, created_at, updated_at from users where id=$1`, id)
}

func (s *PGStore) FindUserByEmail(ctx context.Context, email string) (*User, error) {
	return s.findUser(ctx,
		`select id, email, password_hash, display_name, city, created_at, updated_at from users where email=$1`,
		NormalizeEmail(email))
}

func (s *PGStore) findUser(ctx context.Context, query string, arg any) (*User, error) {
	row := s.db.QueryRowContext(ctx, query, arg)
	var u User
	if err := row.Scan(&u.ID, &u.Email, &u.PasswordHash, &u.DisplayName, &u.City, &u.CreatedAt, &u.UpdatedAt); err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrNotFound
		}
		return nil, err
	}
	if err := s.loadGrants(ctx, &u); err != nil {
		return nil, err
	}
	return &u, nil
}

func (s *PGStore) loadGrants(ctx context.Context, u *User) error {
	rows, err := s.db.QueryContext(ctx, `select role from user_roles where user_id=$1 order by role`, u.ID)
	if err != nil {
		return err
	}
	defer rows.Close()
	for rows.Next() {
		var role string
		if err := rows.Scan(&role); err != nil {
			return err
		}
		u.Roles = append(u.Roles, role)
	}
	if err := rows.Err(); err != nil {
		return err
	}

	claimRows, err := s.db.QueryContext(ctx,
		`select claim_type, claim_value from user_claims where user_id=$1 order by claim_type`, u.ID)
	if err != nil {
		return err
	}
	defer claimRows.Close()
	for claimRows.Next() {
		var c Claim
		if err := claimRows.Scan(&c.Type, &c.Value); err != nil {
			return err
		}
		u.Claims = append(u.Claims, c)
	}
	return claimRows.Err()
}

func (s *PGStore) ListUsers(ctx context.Context) ([]*User, error) {
	rows, err := s.db.QueryContext(ctx,
		`select id, email, password_hash, display_name, city, created_at, updated_at from users order by created_at asc`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var users []*User
	byID := make(map[string]*User)
	for rows.Next() {
		var u User
		if err := rows.Scan(&u.ID, &u.Email, &u.PasswordHash, &u.DisplayName, &u.City, &u.CreatedAt, &u.UpdatedAt); err != nil {
			return nil, err
		}
		users = append(users, &u)
		byID[u.ID] = &u
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	roleRows, err := s.db.QueryContext(ctx, `select user_id, role from user_roles order by role`)
	if err != nil {
		return nil, err
	}
	defer roleRows.Close()
	for roleRows.Next() {
		var userID, role string
		if err := roleRows.Scan(&userID, &role); err != nil {
			return nil, err
		}
		if u, ok := byID[userID]; ok {
			u.Roles = append(u.Roles, role)
		}
	}
	if err := roleRows.Err(); err != nil {
		return nil, err
	}

	claimRows, err := s.db.QueryContext(ctx, `select user_id, claim_type, claim_value from user_claims order by claim_type`)
	if err != nil {
		return nil, err
	}
	defer claimRows.Close()
	for claimRows.Next() {
		var userID string
		var c Claim
		if err := claimRows.Scan(&userID, &c.Type, &c.Value); err != nil {
			return nil, err
		}
		if u, ok := byID[userID]; ok {
			u.Claims = append(u.Claims, c)
		}
	}
	return users, claimRows.Err()
}

func (s *PGStore) SetRoles(ctx context.Context, userID string, roles []string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `delete from user_roles where user_id=$1`, userID); err != nil {
		return err
	}
	for _, role := range roles {
		role = strings.TrimSpace(strings.ToLower(role))
		if role == "" {
			continue
		}
		if _, err := tx.ExecContext(ctx,
			`insert into user_roles(user_id, role) values($1,$2) on conflict do nothing`,
			userID, role,
		); err != nil {
			return err
		}
	}
	if _, err := tx.ExecContext(ctx, `update users set updated_at=now() where id=$1`, userID); err != nil {
		return err
	}
	return tx.Commit()
}

func (s *PGStore) SetClaims(ctx context.Context, userID string, claims []Claim) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `delete from user_claims where user_id=$1`, userID); err != nil {
		return err
	}
	for _, c := range claims {
		claimType := strings.TrimSpace(c.Type)
		if claimType == "" {
			continue
		}
		if _, err := tx.ExecContext(ctx,
			`insert into user_claims(user_id, claim_type, claim_value) values($1,$2,$3)
			 on conflict (user_id, claim_type) do update set claim_value=excluded.claim_value`,
			userID, claimType, c.Value,
		); err != nil {
			return err
		}
	}
	if _, err := tx.ExecContext(ctx, `update users set updated_at=now() where id=$1`, userID); err != nil {
		return err
	}
	return tx.Commit()
}

func (s *PGStore) DeleteRole(ctx context.Context, role string) (int, error) {
	role = strings.TrimSpace(strings.ToLower(role))
	res, err := s.db.ExecContext(ctx, `delete from user_roles where role=$1`, role)
	if err != nil {
		return 0, err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return 0, err
	}
	return int(affected), nil
}

func (s *PGStore) FindExternalLogin(ctx context.Context, provider, providerKey string) (string, error) {
	row := s.db.QueryRowContext(ctx,
		`select user_id from external_logins where provider=$1 and provider_key=$2`,
		provider, providerKey)
	var userID string
	if err := row.Scan(&userID); err != nil {
		if err == sql.ErrNoRows {
			return "", ErrNotFound
		}
		return "", err
	}
	return userID, nil
}

func (s *PGStore) CreateExternalLogin(ctx context.Context, link *ExternalLogin) error {
	if link.ID == "" {
		link.ID = ids.New()
	}
	_, err := s.db.ExecContext(ctx,
		`insert into external_logins(id, provider, provider_key, user_id, created_at)
		 values($1,$2,$3,$4,$5)`,
		link.ID, link.Provider, link.ProviderKey, link.UserID, link.CreatedAt,
	)
	if isUniqueViolation(err) {
		return ErrConflict
	}
	return err
}
