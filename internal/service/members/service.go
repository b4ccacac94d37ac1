package members

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/google/uuid"
	"github.com/sourcegraph/conc"
	"go.uber.org/zap"

	"github.com/ltrc/socios-api-go/internal/domain"
	"github.com/ltrc/socios-api-go/internal/service/attachments"
	apperrors "github.com/ltrc/socios-api-go/pkg/errors"
)

// ledgerAppendTimeout bounds the background mirror call independently of
// the originating request, which has already completed by then.
const ledgerAppendTimeout = 15 * time.Second

// Store is the record store surface the service orchestrates. Implemented
// by Repository and by Cache wrapping it.
type Store interface {
	Insert(ctx context.Context, input domain.CreateMemberInput, fileID *uuid.UUID, fileName string) (*domain.Member, error)
	FindByID(ctx context.Context, id uuid.UUID) (*domain.Member, error)
	FindByDocumentNumber(ctx context.Context, documentNumber string) (*domain.Member, error)
	FindAll(ctx context.Context) ([]*domain.Member, error)
	UpdateByID(ctx context.Context, id uuid.UUID, input domain.UpdateMemberInput, fileID *uuid.UUID, fileName string) (*domain.Member, error)
	DeleteByID(ctx context.Context, id uuid.UUID) (*domain.Member, error)
}

// BlobStore is the attachment storage surface.
type BlobStore interface {
	Put(ctx context.Context, content []byte, fileName string, meta attachments.Metadata) (uuid.UUID, error)
	Open(ctx context.Context, id string) (string, io.ReadCloser, error)
	Delete(ctx context.Context, id uuid.UUID) error
}

// Ledger is the advisory spreadsheet mirror. Its methods never fail.
type Ledger interface {
	Append(ctx context.Context, row domain.LedgerRow) bool
	FindByDocumentNumber(ctx context.Context, documentNumber string) *domain.LedgerRow
}

// Service runs the member record lifecycle: creation with attached
// upload, retrieval, update with attachment replacement, deletion with
// attachment cleanup, and the best-effort mirror to the spreadsheet
// ledger. It holds no locks; uniqueness and durability are delegated to
// the stores.
type Service struct {
	store      Store
	blobs      BlobStore
	ledger     Ledger
	logger     *zap.Logger
	apiBaseURL string

	mirrors conc.WaitGroup
}

func NewService(store Store, blobs BlobStore, ledger Ledger, apiBaseURL string, logger *zap.Logger) *Service {
	return &Service{
		store:      store,
		blobs:      blobs,
		ledger:     ledger,
		logger:     logger,
		apiBaseURL: apiBaseURL,
	}
}

// Create stores the attachment (if any), inserts the record, and fires
// the spreadsheet mirror outside the request path. The attachment write
// happens before the insert; if the insert then fails the just-written
// blob gets a compensating best-effort delete so a duplicate document
// number does not leak an orphan.
func (s *Service) Create(ctx context.Context, input domain.CreateMemberInput, file *domain.FileUpload) (*domain.Member, error) {
	var fileID *uuid.UUID
	var fileName string

	if file != nil {
		name := storedFileName(file.OriginalName)
		id, err := s.blobs.Put(ctx, file.Content, name, attachments.Metadata{
			DocumentNumber: input.DocumentNumber,
			UploadedAt:     time.Now(),
		})
		if err != nil {
			return nil, err
		}
		fileID = &id
		fileName = name
	}

	member, err := s.store.Insert(ctx, input, fileID, fileName)
	if err != nil {
		if fileID != nil {
			if delErr := s.blobs.Delete(ctx, *fileID); delErr != nil && !apperrors.IsNotFound(delErr) {
				s.logger.Warn("Failed to clean up document image after rejected insert",
					zap.String("file_id", fileID.String()),
					zap.Error(delErr),
				)
			}
		}
		return nil, err
	}

	s.mirrors.Go(func() {
		mirrorCtx, cancel := context.WithTimeout(context.Background(), ledgerAppendTimeout)
		defer cancel()

		if !s.ledger.Append(mirrorCtx, s.buildLedgerRow(member)) {
			s.logger.Error("Failed to mirror member to spreadsheet",
				zap.String("document_number", member.DocumentNumber),
			)
			return
		}
		s.logger.Info("Member mirrored to spreadsheet",
			zap.String("document_number", member.DocumentNumber),
		)
	})

	return member, nil
}

func (s *Service) FindAll(ctx context.Context) ([]*domain.Member, error) {
	return s.store.FindAll(ctx)
}

func (s *Service) FindOne(ctx context.Context, id uuid.UUID) (*domain.Member, error) {
	return s.store.FindByID(ctx, id)
}

func (s *Service) FindByDocumentNumber(ctx context.Context, documentNumber string) (*domain.Member, error) {
	return s.store.FindByDocumentNumber(ctx, documentNumber)
}

// GetDocumentImage returns the stored file name and a byte stream for the
// given attachment id.
func (s *Service) GetDocumentImage(ctx context.Context, fileID string) (string, io.ReadCloser, error) {
	return s.blobs.Open(ctx, fileID)
}

// Update merges the supplied partial fields and optionally swaps the
// attachment. The old blob is deleted best-effort before the new one is
// written; a failed delete leaks the old blob and is only logged. If the
// store rejects the update after a new blob was written, that blob gets
// the same compensating delete Create uses.
func (s *Service) Update(ctx context.Context, id uuid.UUID, input domain.UpdateMemberInput, file *domain.FileUpload) (*domain.Member, error) {
	existing, err := s.store.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}

	var fileID *uuid.UUID
	var fileName string

	if file != nil {
		if existing.DocumentImageFileID != nil {
			if delErr := s.blobs.Delete(ctx, *existing.DocumentImageFileID); delErr != nil && !apperrors.IsNotFound(delErr) {
				s.logger.Warn("Failed to delete old document image",
					zap.String("file_id", existing.DocumentImageFileID.String()),
					zap.Error(delErr),
				)
			}
		}

		documentNumber := existing.DocumentNumber
		if input.DocumentNumber != nil {
			documentNumber = *input.DocumentNumber
		}

		name := storedFileName(file.OriginalName)
		newID, err := s.blobs.Put(ctx, file.Content, name, attachments.Metadata{
			DocumentNumber: documentNumber,
			UploadedAt:     time.Now(),
		})
		if err != nil {
			return nil, err
		}
		fileID = &newID
		fileName = name
	}

	member, err := s.store.UpdateByID(ctx, id, input, fileID, fileName)
	if err != nil {
		if fileID != nil {
			if delErr := s.blobs.Delete(ctx, *fileID); delErr != nil && !apperrors.IsNotFound(delErr) {
				s.logger.Warn("Failed to clean up document image after rejected update",
					zap.String("file_id", fileID.String()),
					zap.Error(delErr),
				)
			}
		}
		return nil, err
	}

	return member, nil
}

// Remove deletes the record and then its attachment. Cleanup failures are
// logged only; the record deletion has already succeeded.
func (s *Service) Remove(ctx context.Context, id uuid.UUID) (*domain.Member, error) {
	member, err := s.store.DeleteByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if member.DocumentImageFileID != nil {
		if delErr := s.blobs.Delete(ctx, *member.DocumentImageFileID); delErr != nil && !apperrors.IsNotFound(delErr) {
			s.logger.Warn("Failed to delete document image",
				zap.String("file_id", member.DocumentImageFileID.String()),
				zap.Error(delErr),
			)
		}
	}

	return member, nil
}

// ValidateInLedger reports whether the document number appears in the
// audit spreadsheet. Read-only; a ledger failure reads as absent.
func (s *Service) ValidateInLedger(ctx context.Context, documentNumber string) bool {
	return s.ledger.FindByDocumentNumber(ctx, documentNumber) != nil
}

// Close waits for in-flight spreadsheet mirrors to drain.
func (s *Service) Close() {
	s.mirrors.Wait()
}

func (s *Service) buildLedgerRow(member *domain.Member) domain.LedgerRow {
	documentImageLink := "N/A"
	if member.DocumentImageFileID != nil {
		documentImageLink = fmt.Sprintf("%s/api/members/image/%s", s.apiBaseURL, member.DocumentImageFileID)
	}

	return domain.LedgerRow{
		FirstName:                member.FirstName,
		LastName:                 member.LastName,
		DocumentNumber:           member.DocumentNumber,
		BirthDate:                member.BirthDate.Format("02/01/2006"),
		DocumentImageLink:        documentImageLink,
		CardHolderFirstName:      member.CardHolderFirstName,
		CardHolderLastName:       member.CardHolderLastName,
		CardHolderDocumentNumber: member.CardHolderDocumentNumber,
		CreditCardNumber:         member.CreditCardNumber,
		CreditCardExpirationDate: member.CreditCardExpirationDate,
		CreatedAt:                member.CreatedAt.Format("02/01/2006, 15:04:05"),
	}
}

func storedFileName(originalName string) string {
	return fmt.Sprintf("member-doc-%d-%s", time.Now().UnixMilli(), originalName)
}
