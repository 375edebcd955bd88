// Package accounts is the admin-account registry: who may log in to the
// console and as which role.
package accounts

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/siwarga/rwrt-backend/internal/apperr"
	"github.com/siwarga/rwrt-backend/internal/rbac"
	"golang.org/x/crypto/bcrypt"
)

var ErrInvalidCredentials = errors.New("invalid email or password")

const minPasswordLength = 8

var areaCodePattern = regexp.MustCompile(`^[0-9]{2}$`)

type Account struct {
	ID            uuid.UUID  `json:"id"`
	Email         string     `json:"email"`
	Name          string     `json:"name"`
	PasswordHash  string     `json:"-"`
	Role          rbac.Role  `json:"role"`
	AreaCode      string     `json:"areaCode,omitempty"`
	Active        bool       `json:"active"`
	CreatedAt     time.Time  `json:"createdAt"`
	DeactivatedAt *time.Time `json:"deactivatedAt,omitempty"`
}

func (a Account) Session() rbac.Session {
	return rbac.Session{
		UserID:   a.ID,
		Email:    a.Email,
		Name:     a.Name,
		Role:     a.Role,
		AreaCode: a.AreaCode,
	}
}

type NewAccount struct {
	Email    string
	Name     string
	Password string
	Role     rbac.Role
	AreaCode string
}

// Normalize trims input and validates it. RT accounts need a two-digit area
// code, RW accounts must not carry one.
func (n NewAccount) Normalize() (NewAccount, error) {
	n.Email = strings.ToLower(strings.TrimSpace(n.Email))
	n.Name = strings.TrimSpace(n.Name)
	n.AreaCode = strings.TrimSpace(n.AreaCode)

	if n.Email == "" || !strings.Contains(n.Email, "@") {
		return n, apperr.Invalid("email", "a valid email address is required")
	}
	if n.Name == "" {
		return n, apperr.Invalid("name", "name is required")
	}
	if len(n.Password) < minPasswordLength {
		return n, apperr.Invalid("password", "password must be at least %d characters", minPasswordLength)
	}
	role, ok := rbac.ParseRole(string(n.Role))
	if !ok {
		return n, apperr.Invalid("role", "role must be RW or RT")
	}
	n.Role = role

	switch role {
	case rbac.RoleRT:
		if len(n.AreaCode) == 1 {
			n.AreaCode = "0" + n.AreaCode
		}
		if !areaCodePattern.MatchString(n.AreaCode) {
			return n, apperr.Invalid("areaCode", "RT accounts need a two-digit area code such as 01")
		}
	case rbac.RoleRW:
		if n.AreaCode != "" {
			return n, apperr.Invalid("areaCode", "RW accounts have no area code")
		}
	}
	return n, nil
}

type Repository struct {
	pool       *pgxpool.Pool
	bcryptCost int
}

func NewRepository(pool *pgxpool.Pool, bcryptCost int) *Repository {
	if bcryptCost < bcrypt.MinCost {
		bcryptCost = bcrypt.DefaultCost
	}
	return &Repository{pool: pool, bcryptCost: bcryptCost}
}

const columns = `id, email, name, password_hash, role, COALESCE(area_code, ''), active, created_at, deactivated_at`

func (r *Repository) Create(ctx context.Context, in NewAccount) (Account, error) {
	in, err := in.Normalize()
	if err != nil {
		return Account{}, err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), r.bcryptCost)
	if err != nil {
		return Account{}, fmt.Errorf("failed to hash password: %w", err)
	}

	var area *string
	if in.AreaCode != "" {
		area = &in.AreaCode
	}

	row := r.pool.QueryRow(ctx,
		`INSERT INTO admin_accounts (id, email, name, password_hash, role, area_code)
		 VALUES ($1, $2, $3, $4, $5, $6)
		 RETURNING `+columns,
		uuid.New(), in.Email, in.Name, string(hash), string(in.Role), area)
	acc, err := scanAccount(row)
	if err != nil {
		return Account{}, uniqueViolation(err, in)
	}
	return acc, nil
}

func (r *Repository) GetByID(ctx context.Context, id uuid.UUID) (Account, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+columns+` FROM admin_accounts WHERE id = $1`, id)
	return notFound(scanAccount(row))
}

func (r *Repository) GetByEmail(ctx context.Context, email string) (Account, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+columns+` FROM admin_accounts WHERE email = $1`,
		strings.ToLower(strings.TrimSpace(email)))
	return notFound(scanAccount(row))
}

func (r *Repository) List(ctx context.Context) ([]Account, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+columns+` FROM admin_accounts ORDER BY active DESC, role DESC, area_code NULLS FIRST, created_at`)
	if err != nil {
		return nil, apperr.Unavailable("list accounts", err)
	}
	defer rows.Close()

	out := []Account{}
	for rows.Next() {
		acc, err := scanAccount(rows)
		if err != nil {
			return nil, apperr.Unavailable("list accounts", err)
		}
		out = append(out, acc)
	}
	if err := rows.Err(); err != nil {
		return nil, apperr.Unavailable("list accounts", err)
	}
	return out, nil
}

// ActiveEmails returns the addresses of the active admins of role. For RT the
// area narrows it to that RT's admin.
func (r *Repository) ActiveEmails(ctx context.Context, role rbac.Role, area string) ([]string, error) {
	query := `SELECT email FROM admin_accounts WHERE active AND role = $1`
	args := []any{string(role)}
	if role == rbac.RoleRT {
		query += ` AND area_code = $2`
		args = append(args, area)
	}

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, apperr.Unavailable("list admin emails", err)
	}
	emails, err := pgx.CollectRows(rows, pgx.RowTo[string])
	if err != nil {
		return nil, apperr.Unavailable("list admin emails", err)
	}
	return emails, nil
}

// Deactivate frees the account's RW or RT slot. Deactivating twice is a no-op.
func (r *Repository) Deactivate(ctx context.Context, id uuid.UUID) (Account, error) {
	row := r.pool.QueryRow(ctx,
		`UPDATE admin_accounts
		 SET active = FALSE, deactivated_at = COALESCE(deactivated_at, now())
		 WHERE id = $1
		 RETURNING `+columns, id)
	return notFound(scanAccount(row))
}

// Authenticate checks a password login. Unknown, inactive and wrong-password
// logins are indistinguishable to the caller.
func (r *Repository) Authenticate(ctx context.Context, email, password string) (Account, error) {
	acc, err := r.GetByEmail(ctx, email)
	if errors.Is(err, apperr.ErrNotFound) {
		return Account{}, ErrInvalidCredentials
	}
	if err != nil {
		return Account{}, err
	}
	if !acc.Active {
		return Account{}, ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword([]byte(acc.PasswordHash), []byte(password)); err != nil {
		return Account{}, ErrInvalidCredentials
	}
	return acc, nil
}

func scanAccount(row pgx.Row) (Account, error) {
	var (
		acc  Account
		role string
	)
	err := row.Scan(&acc.ID, &acc.Email, &acc.Name, &acc.PasswordHash, &role, &acc.AreaCode,
		&acc.Active, &acc.CreatedAt, &acc.DeactivatedAt)
	acc.Role = rbac.Role(role)
	return acc, err
}

func notFound(acc Account, err error) (Account, error) {
	if errors.Is(err, pgx.ErrNoRows) {
		return Account{}, apperr.NotFound("account")
	}
	if err != nil {
		return Account{}, apperr.Unavailable("load account", err)
	}
	return acc, nil
}

func uniqueViolation(err error, in NewAccount) error {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) || pgErr.Code != "23505" {
		return apperr.Unavailable("create account", err)
	}
	switch pgErr.ConstraintName {
	case "admin_accounts_one_rw":
		return apperr.Conflict("an active RW account already exists")
	case "admin_accounts_one_rt_per_area":
		return apperr.Conflict("RT %s already has an active account", in.AreaCode)
	default:
		return apperr.Conflict("an account with email %s already exists", in.Email)
	}
}
