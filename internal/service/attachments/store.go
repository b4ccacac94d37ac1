package attachments

import (
	"bytes"
	"context"
	"database/sql"
	"io"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/ltrc/socios-api-go/internal/service/database"
	apperrors "github.com/ltrc/socios-api-go/pkg/errors"
)

// Metadata is the sidecar information stored alongside a blob. It is
// captured once at upload time; DocumentNumber records which member the
// upload belonged to then and is not rewritten if the member's document
// number changes later. The record's document_image_file_id column is the
// authoritative link.
type Metadata struct {
	DocumentNumber string
	UploadedAt     time.Time
}

// Store keeps scanned identity-document images as single bytea rows in
// member_documents. Writes are all-or-nothing: a blob is either fully
// stored under its id or the insert fails.
type Store struct {
	db     *sql.DB
	logger *zap.Logger
}

func NewStore(postgres *database.PostgresService, logger *zap.Logger) *Store {
	return &Store{
		db:     postgres.GetDB(),
		logger: logger,
	}
}

// Put stores the full payload under a fresh id and returns that id.
func (s *Store) Put(ctx context.Context, content []byte, fileName string, meta Metadata) (uuid.UUID, error) {
	id := uuid.New()
	uploadedAt := meta.UploadedAt
	if uploadedAt.IsZero() {
		uploadedAt = time.Now()
	}

	query := `
		INSERT INTO member_documents (id, file_name, document_number, content, uploaded_at)
		VALUES ($1, $2, $3, $4, $5)
	`
	if _, err := s.db.ExecContext(ctx, query, id, fileName, meta.DocumentNumber, content, uploadedAt); err != nil {
		return uuid.Nil, apperrors.NewStorageError("failed to store document image", "put", err)
	}

	s.logger.Debug("Document image stored",
		zap.String("file_id", id.String()),
		zap.String("file_name", fileName),
		zap.Int("size_bytes", len(content)),
	)

	return id, nil
}

// Open returns the stored file name and a reader over the blob's bytes.
// A malformed or unknown id is a not-found condition.
func (s *Store) Open(ctx context.Context, id string) (string, io.ReadCloser, error) {
	fileID, err := uuid.Parse(id)
	if err != nil {
		return "", nil, apperrors.NewNotFoundError("Document image not found", map[string]any{"fileId": id})
	}

	query := `SELECT file_name, content FROM member_documents WHERE id = $1`

	var (
		fileName string
		content  []byte
	)
	err = s.db.QueryRowContext(ctx, query, fileID).Scan(&fileName, &content)
	if err == sql.ErrNoRows {
		return "", nil, apperrors.NewNotFoundError("Document image not found", map[string]any{"fileId": id})
	}
	if err != nil {
		return "", nil, apperrors.NewStorageError("failed to read document image", "open", err)
	}

	return fileName, io.NopCloser(bytes.NewReader(content)), nil
}

// Delete removes the blob. Callers doing cleanup tolerate NotFound
// silently; the blob may already be gone.
func (s *Store) Delete(ctx context.Context, id uuid.UUID) error {
	result, err := s.db.ExecContext(ctx, `DELETE FROM member_documents WHERE id = $1`, id)
	if err != nil {
		return apperrors.NewStorageError("failed to delete document image", "delete", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return apperrors.NewStorageError("failed to delete document image", "delete", err)
	}
	if affected == 0 {
		return apperrors.NewNotFoundError("Document image not found", map[string]any{"fileId": id.String()})
	}

	return nil
}
