// forum/db.go
package forum

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// The sessions table belongs to the scs pgxstore; everything else is ours.
const schema = `
CREATE TABLE IF NOT EXISTS users (
    id UUID PRIMARY KEY,
    username TEXT NOT NULL UNIQUE,
    email TEXT NOT NULL DEFAULT '',
    password_hash BYTEA,
    google_id TEXT UNIQUE,
    created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);
CREATE TABLE IF NOT EXISTS posts (
    id UUID PRIMARY KEY,
    owner_id UUID NOT NULL,
    owner_username TEXT NOT NULL,
    title TEXT NOT NULL,
    body TEXT NOT NULL,
    answers JSONB NOT NULL DEFAULT '[]',
    created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);
CREATE INDEX IF NOT EXISTS idx_posts_on_owner_id ON posts(owner_id);
CREATE TABLE IF NOT EXISTS sessions (
    token TEXT PRIMARY KEY,
    data BYTEA NOT NULL,
    expiry TIMESTAMPTZ NOT NULL
);
CREATE INDEX IF NOT EXISTS sessions_expiry_idx ON sessions(expiry);
`

const pgUniqueViolation = "23505"

// UserStore is the credential store the authentication gate depends on.
type UserStore interface {
	CreateUser(ctx context.Context, user *User) error
	GetUserByUsername(ctx context.Context, username string) (*User, error)
	GetUserByID(ctx context.Context, id string) (*User, error)
	FindOrCreateByGoogleID(ctx context.Context, subject string) (*User, error)
}

// PostStore is what the route handlers read and write.
type PostStore interface {
	CreatePost(ctx context.Context, post *Post) error
	ListPosts(ctx context.Context) ([]Post, error)
	ListPostsByOwner(ctx context.Context, ownerID string) ([]Post, error)
	GetPost(ctx context.Context, id string) (*Post, error)
	GetPostByTitle(ctx context.Context, title string) (*Post, error)
	AppendAnswer(ctx context.Context, postID string, answer Answer) (*Post, error)
}

type Database struct {
	pool *pgxpool.Pool
}

func NewDatabase(ctx context.Context, connectionString string) (*Database, error) {
	pool, err := pgxpool.New(ctx, connectionString)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}
	return &Database{pool: pool}, nil
}

func (d *Database) CreateTables(ctx context.Context) error {
	_, err := d.pool.Exec(ctx, schema)
	return err
}

// Pool exposes the underlying pool so the session store can share it.
func (d *Database) Pool() *pgxpool.Pool {
	return d.pool
}

func (d *Database) Close() {
	d.pool.Close()
}

// --- User Functions ---

func (d *Database) CreateUser(ctx context.Context, user *User) error {
	query := `INSERT INTO users (id, username, email, password_hash, google_id, created_at)
              VALUES ($1, $2, $3, $4, $5, $6)`
	_, err := d.pool.Exec(ctx, query,
		user.ID, user.Username, user.Email, user.PasswordHash, user.GoogleID, user.CreatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation {
			return ErrUsernameTaken
		}
		return fmt.Errorf("failed to create user: %w", err)
	}
	return nil
}

func (d *Database) GetUserByUsername(ctx context.Context, username string) (*User, error) {
	query := `SELECT id, username, email, password_hash, google_id, created_at
              FROM users WHERE username = $1`
	return d.scanUser(d.pool.QueryRow(ctx, query, username))
}

func (d *Database) GetUserByID(ctx context.Context, id string) (*User, error) {
	query := `SELECT id, username, email, password_hash, google_id, created_at
              FROM users WHERE id = $1`
	return d.scanUser(d.pool.QueryRow(ctx, query, id))
}

// FindOrCreateByGoogleID is a single upsert so two concurrent callbacks for
// the same subject cannot create two users.
func (d *Database) FindOrCreateByGoogleID(ctx context.Context, subject string) (*User, error) {
	candidate := NewGoogleUser(subject)
	query := `INSERT INTO users (id, username, google_id, created_at)
              VALUES ($1, $2, $3, $4)
              ON CONFLICT (google_id) DO UPDATE SET google_id = EXCLUDED.google_id
              RETURNING id, username, email, password_hash, google_id, created_at`
	user, err := d.scanUser(d.pool.QueryRow(ctx, query,
		candidate.ID, candidate.Username, candidate.GoogleID, candidate.CreatedAt))
	if err != nil {
		// A local account may already own the derived g-<subject> username.
		// The conflict target above is google_id, so that collision surfaces
		// as a unique violation; retry once with a suffixed username.
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation {
			candidate.Username = candidate.Username + "-" + candidate.ID[:8]
			return d.scanUser(d.pool.QueryRow(ctx, query,
				candidate.ID, candidate.Username, candidate.GoogleID, candidate.CreatedAt))
		}
		return nil, err
	}
	return user, nil
}

func (d *Database) scanUser(row pgx.Row) (*User, error) {
	var user User
	err := row.Scan(
		&user.ID,
		&user.Username,
		&user.Email,
		&user.PasswordHash,
		&user.GoogleID,
		&user.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &user, nil
}

// --- Post Functions ---

func (d *Database) CreatePost(ctx context.Context, post *Post) error {
	answersJSON, err := json.Marshal(post.Answers)
	if err != nil {
		return fmt.Errorf("failed to marshal answers: %w", err)
	}
	query := `INSERT INTO posts (id, owner_id, owner_username, title, body, answers)
              VALUES ($1, $2, $3, $4, $5, $6) RETURNING created_at`
	return d.pool.QueryRow(ctx, query,
		post.ID, post.OwnerID, post.OwnerUsername, post.Title, post.Body, answersJSON).
		Scan(&post.CreatedAt)
}

func (d *Database) ListPosts(ctx context.Context) ([]Post, error) {
	query := `SELECT id, owner_id, owner_username, title, body, answers, created_at FROM posts`
	return d.queryPosts(ctx, query)
}

func (d *Database) ListPostsByOwner(ctx context.Context, ownerID string) ([]Post, error) {
	query := `SELECT id, owner_id, owner_username, title, body, answers, created_at
              FROM posts WHERE owner_id = $1`
	return d.queryPosts(ctx, query, ownerID)
}

func (d *Database) GetPost(ctx context.Context, id string) (*Post, error) {
	query := `SELECT id, owner_id, owner_username, title, body, answers, created_at
              FROM posts WHERE id = $1`
	return d.scanPost(d.pool.QueryRow(ctx, query, id))
}

func (d *Database) GetPostByTitle(ctx context.Context, title string) (*Post, error) {
	query := `SELECT id, owner_id, owner_username, title, body, answers, created_at
              FROM posts WHERE title = $1 LIMIT 1`
	return d.scanPost(d.pool.QueryRow(ctx, query, title))
}

// AppendAnswer concatenates onto the JSONB array in one statement, so
// concurrent appends to the same post interleave instead of losing writes.
func (d *Database) AppendAnswer(ctx context.Context, postID string, answer Answer) (*Post, error) {
	answerJSON, err := json.Marshal(answer)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal answer: %w", err)
	}
	query := `UPDATE posts SET answers = answers || $2::jsonb WHERE id = $1
              RETURNING id, owner_id, owner_username, title, body, answers, created_at`
	return d.scanPost(d.pool.QueryRow(ctx, query, postID, answerJSON))
}

func (d *Database) queryPosts(ctx context.Context, query string, args ...interface{}) ([]Post, error) {
	rows, err := d.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var posts []Post
	for rows.Next() {
		var p Post
		var answersJSON []byte
		if err := rows.Scan(&p.ID, &p.OwnerID, &p.OwnerUsername, &p.Title, &p.Body, &answersJSON, &p.CreatedAt); err != nil {
			return nil, err
		}
		if err := json.Unmarshal(answersJSON, &p.Answers); err != nil {
			return nil, fmt.Errorf("failed to unmarshal answers: %w", err)
		}
		posts = append(posts, p)
	}
	return posts, rows.Err()
}

func (d *Database) scanPost(row pgx.Row) (*Post, error) {
	var post Post
	var answersJSON []byte
	err := row.Scan(
		&post.ID,
		&post.OwnerID,
		&post.OwnerUsername,
		&post.Title,
		&post.Body,
		&answersJSON,
		&post.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	if err := json.Unmarshal(answersJSON, &post.Answers); err != nil {
		return nil, fmt.Errorf("failed to unmarshal answers: %w", err)
	}
	return &post, nil
}
