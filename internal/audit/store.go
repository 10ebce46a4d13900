package audit

import (
	"bytes"
	"context"
	"encoding/json"
	"sync"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/rs/zerolog"
)

// PutObjectAPI is the slice of the S3 client the S3 store needs
type PutObjectAPI interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// S3Store writes each record as its own JSON object in a bucket
type S3Store struct {
	client PutObjectAPI
	bucket string
}

// NewS3Store creates a store writing into bucket
func NewS3Store(client PutObjectAPI, bucket string) *S3Store {
	return &S3Store{client: client, bucket: bucket}
}

// Put implements Store
func (s *S3Store) Put(ctx context.Context, key string, body []byte) error {
	_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(body),
		ContentType: aws.String("application/json"),
	})
	return err
}

// Execer is satisfied by *pgxpool.Pool and pgx.Tx
type Execer interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
}

// PostgresStore appends records to the audit_log table (see db.Migrate)
type PostgresStore struct {
	db Execer
}

// NewPostgresStore creates a store on top of a pool
func NewPostgresStore(db Execer) *PostgresStore {
	return &PostgresStore{db: db}
}

// Put implements Store
func (s *PostgresStore) Put(ctx context.Context, key string, body []byte) error {
	_, err := s.db.Exec(ctx,
		`INSERT INTO audit_log (key, body) VALUES ($1, $2::jsonb)
		 ON CONFLICT (key) DO NOTHING`,
		key, string(body))
	return err
}

// LogStore emits records on a structured logger, for deployments without
// a durable audit store
type LogStore struct {
	logger zerolog.Logger
}

// NewLogStore creates a store writing to logger
func NewLogStore(logger zerolog.Logger) *LogStore {
	return &LogStore{logger: logger}
}

// Put implements Store
func (s *LogStore) Put(_ context.Context, key string, body []byte) error {
	s.logger.Info().
		Str("key", key).
		RawJSON("record", body).
		Msg("audit")
	return nil
}

// Entry is one stored record in a MemoryStore
type Entry struct {
	Key  string
	Body []byte
}

// MemoryStore keeps records in process; used in tests and local runs
type MemoryStore struct {
	mu      sync.Mutex
	entries []Entry
}

// NewMemoryStore creates an empty in-memory store
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

// Put implements Store
func (s *MemoryStore) Put(_ context.Context, key string, body []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.entries = append(s.entries, Entry{Key: key, Body: append([]byte(nil), body...)})
	return nil
}

// Entries returns a snapshot of everything stored so far
func (s *MemoryStore) Entries() []Entry {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]Entry, len(s.entries))
	copy(out, s.entries)
	return out
}

// Records decodes the stored entries
func (s *MemoryStore) Records() ([]Record, error) {
	entries := s.Entries()
	records := make([]Record, 0, len(entries))
	for _, e := range entries {
		var rec Record
		if err := json.Unmarshal(e.Body, &rec); err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	return records, nil
}
