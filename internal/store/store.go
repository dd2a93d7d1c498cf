package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"

	"github.com/taskerhq/tasker/internal/model"
)

// Supported database drivers.
const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

// Store persists users, API keys, tasks, and categories. It runs on SQLite
// for single-binary deployments and Postgres for hosted ones; all queries
// are written once and rebound per driver.
type Store struct {
	db     *sqlx.DB
	driver string
}

// Open connects to the database identified by driver and dsn and runs
// migrations. For SQLite, dsn is a data directory; pass empty string for
// in-memory (used in tests). For Postgres, dsn is a standard connection URL.
func Open(driver, dsn string) (*Store, error) {
	var db *sqlx.DB
	var err error

	switch driver {
	case DriverSQLite:
		if dsn == "" {
			dsn = ":memory:?_journal_mode=WAL"
		} else {
			if err := os.MkdirAll(dsn, 0755); err != nil {
				return nil, fmt.Errorf("create data dir: %w", err)
			}
			dsn = filepath.Join(dsn, "tasker.db") + "?_journal_mode=WAL&_busy_timeout=5000"
		}
		db, err = sqlx.Connect("sqlite", dsn)
		if err != nil {
			return nil, fmt.Errorf("open sqlite database: %w", err)
		}
		db.SetMaxOpenConns(1) // SQLite doesn't support concurrent writes
		if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
			return nil, fmt.Errorf("enable foreign keys: %w", err)
		}
	case DriverPostgres:
		db, err = sqlx.Connect("pgx", dsn)
		if err != nil {
			return nil, fmt.Errorf("open postgres database: %w", err)
		}
		db.SetMaxOpenConns(25)
		db.SetMaxIdleConns(5)
		db.SetConnMaxLifetime(5 * time.Minute)
	default:
		return nil, fmt.Errorf("unsupported driver: %q", driver)
	}

	s := &Store{db: db, driver: driver}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate database: %w", err)
	}
	return s, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// Ping verifies the database connection is alive.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// insert runs a named INSERT and returns the new row's id. Postgres has no
// LastInsertId, so the query gets a RETURNING clause there.
func (s *Store) insert(ctx context.Context, query string, arg interface{}) (int64, error) {
	if s.driver == DriverPostgres {
		rows, err := s.db.NamedQueryContext(ctx, query+" RETURNING id", arg)
		if err != nil {
			return 0, err
		}
		defer rows.Close()
		var id int64
		if !rows.Next() {
			return 0, errors.New("insert returned no id")
		}
		if err := rows.Scan(&id); err != nil {
			return 0, err
		}
		return id, rows.Err()
	}

	result, err := s.db.NamedExecContext(ctx, query, arg)
	if err != nil {
		return 0, err
	}
	return result.LastInsertId()
}

// ---------------------------------------------------------------------------
// Users
// ---------------------------------------------------------------------------

// CreateUser inserts a new user record. The ID, CreatedAt, and UpdatedAt
// fields on user are populated after a successful insert. A collision on
// email or username returns ErrDuplicateEmail or ErrDuplicateUsername.
func (s *Store) CreateUser(ctx context.Context, user *model.User) error {
	now := time.Now().UTC()
	user.CreatedAt = now
	user.UpdatedAt = now

	const q = `INSERT INTO users
		(email, username, full_name, password_hash, is_active, is_verified, created_at, updated_at)
		VALUES
		(:email, :username, :full_name, :password_hash, :is_active, :is_verified, :created_at, :updated_at)`

	id, err := s.insert(ctx, q, user)
	if err != nil {
		if conflict := userConflictError(err); conflict != nil {
			return conflict
		}
		return fmt.Errorf("insert user: %w", err)
	}
	user.ID = id
	return nil
}

// GetUserByID returns a user by primary key.
func (s *Store) GetUserByID(ctx context.Context, id int64) (*model.User, error) {
	var user model.User
	q := s.db.Rebind("SELECT * FROM users WHERE id = ?")
	if err := s.db.GetContext(ctx, &user, q, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get user by id: %w", err)
	}
	return &user, nil
}

// GetUserByEmail returns a user by email address. Emails are compared
// case-insensitively.
func (s *Store) GetUserByEmail(ctx context.Context, email string) (*model.User, error) {
	var user model.User
	q := s.db.Rebind("SELECT * FROM users WHERE LOWER(email) = LOWER(?)")
	if err := s.db.GetContext(ctx, &user, q, email); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get user by email: %w", err)
	}
	return &user, nil
}

// GetUserByUsername returns a user by username.
func (s *Store) GetUserByUsername(ctx context.Context, username string) (*model.User, error) {
	var user model.User
	q := s.db.Rebind("SELECT * FROM users WHERE username = ?")
	if err := s.db.GetContext(ctx, &user, q, username); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get user by username: %w", err)
	}
	return &user, nil
}

// UserUpdate holds optional profile fields for UpdateUser. Nil fields are
// left unchanged.
type UserUpdate struct {
	Email    *string
	Username *string
	FullName *string
}

// UpdateUser applies a partial profile update and returns the updated user.
// Email/username collisions surface as the same domain errors as CreateUser.
func (s *Store) UpdateUser(ctx context.Context, id int64, upd UserUpdate) (*model.User, error) {
	user, err := s.GetUserByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if upd.Email != nil {
		user.Email = *upd.Email
	}
	if upd.Username != nil {
		user.Username = *upd.Username
	}
	if upd.FullName != nil {
		user.FullName = *upd.FullName
	}
	user.UpdatedAt = time.Now().UTC()

	const q = `UPDATE users SET
		email = :email, username = :username, full_name = :full_name, updated_at = :updated_at
		WHERE id = :id`

	if _, err := s.db.NamedExecContext(ctx, q, user); err != nil {
		if conflict := userConflictError(err); conflict != nil {
			return nil, conflict
		}
		return nil, fmt.Errorf("update user: %w", err)
	}
	return user, nil
}

// TouchLastLogin sets the last_login_at timestamp for a user.
func (s *Store) TouchLastLogin(ctx context.Context, id int64) error {
	now := time.Now().UTC()
	q := s.db.Rebind("UPDATE users SET last_login_at = ?, updated_at = ? WHERE id = ?")
	result, err := s.db.ExecContext(ctx, q, now, now, id)
	if err != nil {
		return fmt.Errorf("touch last login: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("touch last login rows affected: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// ---------------------------------------------------------------------------
// API keys
// ---------------------------------------------------------------------------

// CreateAPIKey inserts a new API key record. The key_hash must already be
// set; the raw key never reaches the store. The ID and CreatedAt fields are
// populated after insert.
func (s *Store) CreateAPIKey(ctx context.Context, key *model.APIKey) error {
	key.CreatedAt = time.Now().UTC()

	const q = `INSERT INTO api_keys
		(key_hash, key_prefix, name, is_active, created_at)
		VALUES
		(:key_hash, :key_prefix, :name, :is_active, :created_at)`

	id, err := s.insert(ctx, q, key)
	if err != nil {
		return fmt.Errorf("insert api key: %w", err)
	}
	key.ID = id
	return nil
}

// GetActiveAPIKeyByHash looks up an active API key by its SHA-256 hash.
// Revoked and unknown keys both return ErrNotFound so callers cannot tell
// them apart.
func (s *Store) GetActiveAPIKeyByHash(ctx context.Context, hash string) (*model.APIKey, error) {
	var key model.APIKey
	q := s.db.Rebind("SELECT * FROM api_keys WHERE key_hash = ? AND is_active = TRUE")
	if err := s.db.GetContext(ctx, &key, q, hash); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get api key by hash: %w", err)
	}
	return &key, nil
}

// GetAPIKeyByID returns an API key by primary key, active or not.
func (s *Store) GetAPIKeyByID(ctx context.Context, id int64) (*model.APIKey, error) {
	var key model.APIKey
	q := s.db.Rebind("SELECT * FROM api_keys WHERE id = ?")
	if err := s.db.GetContext(ctx, &key, q, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get api key by id: %w", err)
	}
	return &key, nil
}

// ListAPIKeys returns all API keys, newest first.
func (s *Store) ListAPIKeys(ctx context.Context) ([]model.APIKey, error) {
	var keys []model.APIKey
	if err := s.db.SelectContext(ctx, &keys, "SELECT * FROM api_keys ORDER BY created_at DESC, id DESC"); err != nil {
		return nil, fmt.Errorf("list api keys: %w", err)
	}
	return keys, nil
}

// ToggleAPIKey flips the active flag on an API key and returns the updated
// record. Returns ErrNotFound for an unknown id.
func (s *Store) ToggleAPIKey(ctx context.Context, id int64) (*model.APIKey, error) {
	q := s.db.Rebind("UPDATE api_keys SET is_active = NOT is_active WHERE id = ?")
	result, err := s.db.ExecContext(ctx, q, id)
	if err != nil {
		return nil, fmt.Errorf("toggle api key: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("toggle api key rows affected: %w", err)
	}
	if n == 0 {
		return nil, ErrNotFound
	}
	return s.GetAPIKeyByID(ctx, id)
}

// DeleteAPIKey hard-removes an API key. Returns ErrNotFound for an unknown id.
func (s *Store) DeleteAPIKey(ctx context.Context, id int64) error {
	q := s.db.Rebind("DELETE FROM api_keys WHERE id = ?")
	result, err := s.db.ExecContext(ctx, q, id)
	if err != nil {
		return fmt.Errorf("delete api key: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete api key rows affected: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// ---------------------------------------------------------------------------
// Tasks
// ---------------------------------------------------------------------------

// ListTasks returns all tasks owned by userID, newest first.
func (s *Store) ListTasks(ctx context.Context, userID int64) ([]model.Task, error) {
	var tasks []model.Task
	q := s.db.Rebind("SELECT * FROM tasks WHERE user_id = ? ORDER BY created_at DESC, id DESC")
	if err := s.db.SelectContext(ctx, &tasks, q, userID); err != nil {
		return nil, fmt.Errorf("list tasks: %w", err)
	}
	return tasks, nil
}

// GetTask returns a task by id, scoped to the owning user. A task owned by
// another user is indistinguishable from a missing one.
func (s *Store) GetTask(ctx context.Context, userID, id int64) (*model.Task, error) {
	var task model.Task
	q := s.db.Rebind("SELECT * FROM tasks WHERE id = ? AND user_id = ?")
	if err := s.db.GetContext(ctx, &task, q, id, userID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get task: %w", err)
	}
	return &task, nil
}

// CreateTask inserts a new task. The ID, CreatedAt, and UpdatedAt fields are
// populated after a successful insert.
func (s *Store) CreateTask(ctx context.Context, task *model.Task) error {
	now := time.Now().UTC()
	task.CreatedAt = now
	task.UpdatedAt = now

	const q = `INSERT INTO tasks
		(user_id, title, description, is_completed, priority, due_date, category_id, created_at, updated_at)
		VALUES
		(:user_id, :title, :description, :is_completed, :priority, :due_date, :category_id, :created_at, :updated_at)`

	id, err := s.insert(ctx, q, task)
	if err != nil {
		return fmt.Errorf("insert task: %w", err)
	}
	task.ID = id
	return nil
}

// TaskUpdate holds optional fields for UpdateTask. Nil fields are left
// unchanged. SetCategory distinguishes "leave category alone" from "detach".
type TaskUpdate struct {
	Title       *string
	Description *string
	IsCompleted *bool
	Priority    *int
	DueDate     *time.Time
	CategoryID  *int64
	SetCategory bool
}

// UpdateTask applies a partial update to a task owned by userID and returns
// the updated record.
func (s *Store) UpdateTask(ctx context.Context, userID, id int64, upd TaskUpdate) (*model.Task, error) {
	task, err := s.GetTask(ctx, userID, id)
	if err != nil {
		return nil, err
	}

	if upd.Title != nil {
		task.Title = *upd.Title
	}
	if upd.Description != nil {
		task.Description = *upd.Description
	}
	if upd.IsCompleted != nil {
		task.IsCompleted = *upd.IsCompleted
	}
	if upd.Priority != nil {
		task.Priority = *upd.Priority
	}
	if upd.DueDate != nil {
		task.DueDate = upd.DueDate
	}
	if upd.SetCategory {
		task.CategoryID = upd.CategoryID
	}
	task.UpdatedAt = time.Now().UTC()

	const q = `UPDATE tasks SET
		title = :title, description = :description, is_completed = :is_completed,
		priority = :priority, due_date = :due_date, category_id = :category_id,
		updated_at = :updated_at
		WHERE id = :id AND user_id = :user_id`

	if _, err := s.db.NamedExecContext(ctx, q, task); err != nil {
		return nil, fmt.Errorf("update task: %w", err)
	}
	return task, nil
}

// DeleteTask removes a task owned by userID. Returns ErrNotFound if the task
// does not exist or belongs to someone else.
func (s *Store) DeleteTask(ctx context.Context, userID, id int64) error {
	q := s.db.Rebind("DELETE FROM tasks WHERE id = ? AND user_id = ?")
	result, err := s.db.ExecContext(ctx, q, id, userID)
	if err != nil {
		return fmt.Errorf("delete task: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete task rows affected: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// ---------------------------------------------------------------------------
// Categories
// ---------------------------------------------------------------------------

// ListCategories returns all categories owned by userID, ordered by name.
func (s *Store) ListCategories(ctx context.Context, userID int64) ([]model.Category, error) {
	var categories []model.Category
	q := s.db.Rebind("SELECT * FROM categories WHERE user_id = ? ORDER BY name")
	if err := s.db.SelectContext(ctx, &categories, q, userID); err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}
	return categories, nil
}

// GetCategory returns a category by id, scoped to the owning user.
func (s *Store) GetCategory(ctx context.Context, userID, id int64) (*model.Category, error) {
	var category model.Category
	q := s.db.Rebind("SELECT * FROM categories WHERE id = ? AND user_id = ?")
	if err := s.db.GetContext(ctx, &category, q, id, userID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get category: %w", err)
	}
	return &category, nil
}

// CreateCategory inserts a new category. A name collision within the same
// user returns ErrDuplicateCategory.
func (s *Store) CreateCategory(ctx context.Context, category *model.Category) error {
	category.CreatedAt = time.Now().UTC()

	const q = `INSERT INTO categories
		(user_id, name, color, created_at)
		VALUES
		(:user_id, :name, :color, :created_at)`

	id, err := s.insert(ctx, q, category)
	if err != nil {
		if _, ok := uniqueViolation(err); ok {
			return ErrDuplicateCategory
		}
		return fmt.Errorf("insert category: %w", err)
	}
	category.ID = id
	return nil
}

// DeleteCategory removes a category owned by userID. Tasks referencing the
// category are detached (category_id set to NULL), not deleted. Both steps
// run in one transaction.
func (s *Store) DeleteCategory(ctx context.Context, userID, id int64) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	detach := tx.Rebind("UPDATE tasks SET category_id = NULL WHERE category_id = ? AND user_id = ?")
	if _, err := tx.ExecContext(ctx, detach, id, userID); err != nil {
		return fmt.Errorf("detach tasks: %w", err)
	}

	del := tx.Rebind("DELETE FROM categories WHERE id = ? AND user_id = ?")
	result, err := tx.ExecContext(ctx, del, id, userID)
	if err != nil {
		return fmt.Errorf("delete category: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete category rows affected: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}

	return tx.Commit()
}

// Counts holds row counts per table, used by the monitoring endpoint.
type Counts struct {
	Users      int64 `db:"users" json:"users"`
	Tasks      int64 `db:"tasks" json:"tasks"`
	Categories int64 `db:"categories" json:"categories"`
	APIKeys    int64 `db:"api_keys" json:"api_keys"`
}

// CountAll returns row counts for every table.
func (s *Store) CountAll(ctx context.Context) (*Counts, error) {
	var c Counts
	tables := []struct {
		name string
		dst  *int64
	}{
		{"users", &c.Users},
		{"tasks", &c.Tasks},
		{"categories", &c.Categories},
		{"api_keys", &c.APIKeys},
	}
	for _, t := range tables {
		if err := s.db.GetContext(ctx, t.dst, "SELECT COUNT(*) FROM "+t.name); err != nil {
			return nil, fmt.Errorf("count %s: %w", t.name, err)
		}
	}
	return &c, nil
}

// ListUsers returns all users ordered by creation time.
func (s *Store) ListUsers(ctx context.Context) ([]model.User, error) {
	users := []model.User{}
	err := s.db.SelectContext(ctx, &users, "SELECT * FROM users ORDER BY created_at")
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	return users, nil
}

// SetUserActive enables or disables a user account. Disabled users fail
// authentication even with a valid token.
func (s *Store) SetUserActive(ctx context.Context, id int64, active bool) error {
	query := s.db.Rebind("UPDATE users SET is_active = ?, updated_at = ? WHERE id = ?")
	res, err := s.db.ExecContext(ctx, query, active, time.Now().UTC(), id)
	if err != nil {
		return fmt.Errorf("set user active: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}
