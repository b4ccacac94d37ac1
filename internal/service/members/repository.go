package members

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"go.uber.org/zap"

	"github.com/ltrc/socios-api-go/internal/domain"
	"github.com/ltrc/socios-api-go/internal/service/database"
	apperrors "github.com/ltrc/socios-api-go/pkg/errors"
)

const memberColumns = `id, first_name, last_name, birth_date, document_number,
	       card_holder_first_name, card_holder_last_name, card_holder_document_number,
	       credit_card_number, credit_card_expiration_date,
	       document_image_file_id, document_image_file_name, created_at, updated_at`

// uniqueViolation is the Postgres error code the duplicate-key taxonomy
// keys off.
const uniqueViolation = "23505"

type Repository struct {
	db     *sql.DB
	logger *zap.Logger
}

func NewRepository(postgres *database.PostgresService, logger *zap.Logger) *Repository {
	return &Repository{
		db:     postgres.GetDB(),
		logger: logger,
	}
}

// Insert persists a new member. Uniqueness of the document number is
// enforced by the store's unique index; a violation comes back as a
// DuplicateKeyError, anything else as a StorageError.
func (r *Repository) Insert(ctx context.Context, input domain.CreateMemberInput, fileID *uuid.UUID, fileName string) (*domain.Member, error) {
	query := `
		INSERT INTO members (id, first_name, last_name, birth_date, document_number,
		                     card_holder_first_name, card_holder_last_name, card_holder_document_number,
		                     credit_card_number, credit_card_expiration_date,
		                     document_image_file_id, document_image_file_name)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		RETURNING ` + memberColumns

	row := r.db.QueryRowContext(ctx, query,
		uuid.New(), input.FirstName, input.LastName, input.BirthDate, input.DocumentNumber,
		input.CardHolderFirstName, input.CardHolderLastName, input.CardHolderDocumentNumber,
		input.CreditCardNumber, input.CreditCardExpirationDate,
		fileID, nullableString(fileName),
	)

	member, err := scanMember(row)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == uniqueViolation {
			return nil, apperrors.NewDuplicateKeyError(input.DocumentNumber)
		}
		return nil, apperrors.NewStorageError("failed to insert member", "insert", err)
	}

	return member, nil
}

func (r *Repository) FindByID(ctx context.Context, id uuid.UUID) (*domain.Member, error) {
	query := `SELECT ` + memberColumns + ` FROM members WHERE id = $1`

	member, err := scanMember(r.db.QueryRowContext(ctx, query, id))
	if err == sql.ErrNoRows {
		return nil, apperrors.NewNotFoundError(
			fmt.Sprintf("Member with ID %s not found", id),
			map[string]any{"id": id.String()},
		)
	}
	if err != nil {
		return nil, apperrors.NewStorageError("failed to query member by id", "findById", err)
	}

	return member, nil
}

func (r *Repository) FindByDocumentNumber(ctx context.Context, documentNumber string) (*domain.Member, error) {
	query := `SELECT ` + memberColumns + ` FROM members WHERE document_number = $1`

	member, err := scanMember(r.db.QueryRowContext(ctx, query, documentNumber))
	if err == sql.ErrNoRows {
		return nil, apperrors.NewNotFoundError(
			fmt.Sprintf("Member with document number %s not found", documentNumber),
			map[string]any{"documentNumber": documentNumber},
		)
	}
	if err != nil {
		return nil, apperrors.NewStorageError("failed to query member by document number", "findByDocumentNumber", err)
	}

	return member, nil
}

// FindAll returns every member in insertion order. Callers must not rely
// on the ordering.
func (r *Repository) FindAll(ctx context.Context) ([]*domain.Member, error) {
	query := `SELECT ` + memberColumns + ` FROM members ORDER BY created_at, id`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, apperrors.NewStorageError("failed to query members", "findAll", err)
	}
	defer rows.Close()

	var result []*domain.Member
	for rows.Next() {
		member, err := scanMember(rows)
		if err != nil {
			r.logger.Warn("Failed to scan member row", zap.Error(err))
			continue
		}
		result = append(result, member)
	}

	return result, rows.Err()
}

// UpdateByID merges the non-nil fields of input into the stored record and
// refreshes updated_at. A new attachment reference replaces the old one
// only when fileID is non-nil.
func (r *Repository) UpdateByID(ctx context.Context, id uuid.UUID, input domain.UpdateMemberInput, fileID *uuid.UUID, fileName string) (*domain.Member, error) {
	query := `
		UPDATE members SET
			first_name                  = COALESCE($2, first_name),
			last_name                   = COALESCE($3, last_name),
			birth_date                  = COALESCE($4, birth_date),
			document_number             = COALESCE($5, document_number),
			card_holder_first_name      = COALESCE($6, card_holder_first_name),
			card_holder_last_name       = COALESCE($7, card_holder_last_name),
			card_holder_document_number = COALESCE($8, card_holder_document_number),
			credit_card_number          = COALESCE($9, credit_card_number),
			credit_card_expiration_date = COALESCE($10, credit_card_expiration_date),
			document_image_file_id      = COALESCE($11, document_image_file_id),
			document_image_file_name    = COALESCE($12, document_image_file_name),
			updated_at                  = NOW()
		WHERE id = $1
		RETURNING ` + memberColumns

	row := r.db.QueryRowContext(ctx, query, id,
		input.FirstName, input.LastName, input.BirthDate, input.DocumentNumber,
		input.CardHolderFirstName, input.CardHolderLastName, input.CardHolderDocumentNumber,
		input.CreditCardNumber, input.CreditCardExpirationDate,
		fileID, nullableString(fileName),
	)

	member, err := scanMember(row)
	if err == sql.ErrNoRows {
		return nil, apperrors.NewNotFoundError(
			fmt.Sprintf("Member with ID %s not found", id),
			map[string]any{"id": id.String()},
		)
	}
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == uniqueViolation {
			docNumber := ""
			if input.DocumentNumber != nil {
				docNumber = *input.DocumentNumber
			}
			return nil, apperrors.NewDuplicateKeyError(docNumber)
		}
		return nil, apperrors.NewStorageError("failed to update member", "updateById", err)
	}

	return member, nil
}

// DeleteByID removes the record and returns it as it existed immediately
// before deletion, so the caller can clean up its attachment.
func (r *Repository) DeleteByID(ctx context.Context, id uuid.UUID) (*domain.Member, error) {
	query := `DELETE FROM members WHERE id = $1 RETURNING ` + memberColumns

	member, err := scanMember(r.db.QueryRowContext(ctx, query, id))
	if err == sql.ErrNoRows {
		return nil, apperrors.NewNotFoundError(
			fmt.Sprintf("Member with ID %s not found", id),
			map[string]any{"id": id.String()},
		)
	}
	if err != nil {
		return nil, apperrors.NewStorageError("failed to delete member", "deleteById", err)
	}

	return member, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

// scanMember converts a DB row to domain.Member.
func scanMember(row rowScanner) (*domain.Member, error) {
	var (
		member    domain.Member
		fileID    sql.NullString
		fileName  sql.NullString
		birthDate time.Time
	)

	err := row.Scan(
		&member.ID, &member.FirstName, &member.LastName, &birthDate, &member.DocumentNumber,
		&member.CardHolderFirstName, &member.CardHolderLastName, &member.CardHolderDocumentNumber,
		&member.CreditCardNumber, &member.CreditCardExpirationDate,
		&fileID, &fileName, &member.CreatedAt, &member.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	member.BirthDate = birthDate
	if fileID.Valid {
		parsed, err := uuid.Parse(fileID.String)
		if err != nil {
			return nil, fmt.Errorf("failed to parse document image file id: %w", err)
		}
		member.DocumentImageFileID = &parsed
	}
	if fileName.Valid {
		member.DocumentImageFileName = fileName.String
	}

	return &member, nil
}

func nullableString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
