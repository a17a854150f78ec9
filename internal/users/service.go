package users

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"
	"golang.org/x/crypto/bcrypt"

	"github.com/meetlog/meetlog/internal/db"
)

var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrInactiveUser       = errors.New("user is inactive")
	ErrUsernameTaken      = errors.New("username already taken")
)

const userColumns = "id, username, email, password_hash, is_active, created_at, updated_at"

type Service struct {
	pool   *pgxpool.Pool
	logger *slog.Logger
}

func NewService(log *slog.Logger, pool *pgxpool.Pool) *Service {
	if log == nil {
		log = slog.Default()
	}
	return &Service{
		pool:   pool,
		logger: log.With(slog.String("service", "users")),
	}
}

func (s *Service) Get(ctx context.Context, userID string) (User, error) {
	if s.pool == nil {
		return User{}, fmt.Errorf("user store not configured")
	}
	pgID, err := db.ParseUUID(userID)
	if err != nil {
		return User{}, err
	}
	row := s.pool.QueryRow(ctx,
		"SELECT "+userColumns+" FROM users WHERE id = $1", pgID)
	return scanUser(row)
}

func (s *Service) GetByUsername(ctx context.Context, username string) (User, error) {
	if s.pool == nil {
		return User{}, fmt.Errorf("user store not configured")
	}
	row := s.pool.QueryRow(ctx,
		"SELECT "+userColumns+" FROM users WHERE username = $1", strings.TrimSpace(username))
	return scanUser(row)
}

// Login validates credentials and returns the account. Unknown usernames and
// wrong passwords both surface as ErrInvalidCredentials.
func (s *Service) Login(ctx context.Context, username, password string) (User, error) {
	if s.pool == nil {
		return User{}, fmt.Errorf("user store not configured")
	}
	username = strings.TrimSpace(username)
	if username == "" || strings.TrimSpace(password) == "" {
		return User{}, ErrInvalidCredentials
	}
	row := s.pool.QueryRow(ctx,
		"SELECT "+userColumns+" FROM users WHERE username = $1", username)
	user, hash, err := scanUserRow(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return User{}, ErrInvalidCredentials
		}
		return User{}, err
	}
	if !user.IsActive {
		return User{}, ErrInactiveUser
	}
	if err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)); err != nil {
		return User{}, ErrInvalidCredentials
	}
	return user, nil
}

func (s *Service) Create(ctx context.Context, req CreateUserRequest) (User, error) {
	if s.pool == nil {
		return User{}, fmt.Errorf("user store not configured")
	}
	username := strings.TrimSpace(req.Username)
	if username == "" {
		return User{}, fmt.Errorf("username is required")
	}
	password := strings.TrimSpace(req.Password)
	if password == "" {
		return User{}, fmt.Errorf("password is required")
	}
	hashed, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return User{}, err
	}
	row := s.pool.QueryRow(ctx,
		`INSERT INTO users (username, email, password_hash)
		 VALUES ($1, $2, $3)
		 RETURNING `+userColumns,
		username, db.Text(req.Email), string(hashed))
	user, err := scanUser(row)
	if err != nil {
		if db.IsUniqueViolation(err) {
			return User{}, ErrUsernameTaken
		}
		return User{}, err
	}
	return user, nil
}

// ListWithEmail returns active accounts that can receive reminder mail.
func (s *Service) ListWithEmail(ctx context.Context) ([]User, error) {
	if s.pool == nil {
		return nil, fmt.Errorf("user store not configured")
	}
	rows, err := s.pool.Query(ctx,
		"SELECT "+userColumns+" FROM users WHERE is_active AND email IS NOT NULL ORDER BY username")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []User
	for rows.Next() {
		user, _, err := scanUserRow(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, user)
	}
	return items, rows.Err()
}

// EnsureUser creates the account when it does not exist yet, used for the
// admin bootstrap at startup. Existing accounts are left untouched.
func (s *Service) EnsureUser(ctx context.Context, req CreateUserRequest) (User, error) {
	user, err := s.GetByUsername(ctx, req.Username)
	if err == nil {
		return user, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return User{}, err
	}
	user, err = s.Create(ctx, req)
	if errors.Is(err, ErrUsernameTaken) {
		// Lost a race with a concurrent bootstrap.
		return s.GetByUsername(ctx, req.Username)
	}
	return user, err
}

func scanUser(row pgx.Row) (User, error) {
	user, _, err := scanUserRow(row)
	return user, err
}

func scanUserRow(row pgx.Row) (User, string, error) {
	var (
		id        pgtype.UUID
		email     pgtype.Text
		createdAt pgtype.Timestamptz
		updatedAt pgtype.Timestamptz
		user      User
		hash      string
	)
	if err := row.Scan(&id, &user.Username, &email, &hash, &user.IsActive, &createdAt, &updatedAt); err != nil {
		return User{}, "", err
	}
	user.ID = db.UUIDToString(id)
	user.Email = db.TextToString(email)
	user.CreatedAt = db.TimeFromPg(createdAt)
	user.UpdatedAt = db.TimeFromPg(updatedAt)
	return user, hash, nil
}
