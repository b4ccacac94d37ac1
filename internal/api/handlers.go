package api

import (
	"encoding/json"
	"fmt"
	"io"
	"mime"
	"net/http"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/ltrc/socios-api-go/internal/domain"
	"github.com/ltrc/socios-api-go/internal/service/members"
	apperrors "github.com/ltrc/socios-api-go/pkg/errors"
)

// maxUploadBytes caps the in-memory buffer for multipart parsing; scanned
// identity documents are photos, not archives.
const maxUploadBytes = 16 << 20

type Handler struct {
	service   *members.Service
	logger    *zap.Logger
	startedAt time.Time
}

func NewHandler(service *members.Service, logger *zap.Logger) *Handler {
	return &Handler{
		service:   service,
		logger:    logger,
		startedAt: time.Now(),
	}
}

// Root handles GET /api.
func (h *Handler) Root(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"message": "LTRC Socios Pertenencia API"})
}

// Health handles GET /api/health.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":    "ok",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
		"uptime":    formatUptime(time.Since(h.startedAt)),
	})
}

// CreateMember handles POST /api/members (multipart, optional
// documentImage part).
func (h *Handler) CreateMember(w http.ResponseWriter, r *http.Request) {
	form, file, err := parseMemberForm(r)
	if err != nil {
		writeError(w, apperrors.NewAppError(err.Error(), apperrors.CodeValidation, http.StatusBadRequest, nil))
		return
	}

	input, err := members.CreateMemberForm{
		FirstName:                formValue(form, "firstName"),
		LastName:                 formValue(form, "lastName"),
		BirthDate:                formValue(form, "birthDate"),
		DocumentNumber:           formValue(form, "documentNumber"),
		CardHolderFirstName:      formValue(form, "cardHolderFirstName"),
		CardHolderLastName:       formValue(form, "cardHolderLastName"),
		CardHolderDocumentNumber: formValue(form, "cardHolderDocumentNumber"),
		CreditCardNumber:         formValue(form, "creditCardNumber"),
		CreditCardExpirationDate: formValue(form, "creditCardExpirationDate"),
	}.Validate()
	if err != nil {
		writeError(w, err)
		return
	}

	member, err := h.service.Create(r.Context(), input, file)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, member)
}

// ListMembers handles GET /api/members.
func (h *Handler) ListMembers(w http.ResponseWriter, r *http.Request) {
	result, err := h.service.FindAll(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	if result == nil {
		result = []*domain.Member{}
	}
	writeJSON(w, http.StatusOK, result)
}

// GetMember handles GET /api/members/{id}.
func (h *Handler) GetMember(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, apperrors.NewNotFoundError(
			fmt.Sprintf("Member with ID %s not found", chi.URLParam(r, "id")),
			map[string]any{"id": chi.URLParam(r, "id")},
		))
		return
	}

	member, err := h.service.FindOne(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, member)
}

// GetMemberByDocument handles GET /api/members/document/{documentNumber}.
func (h *Handler) GetMemberByDocument(w http.ResponseWriter, r *http.Request) {
	member, err := h.service.FindByDocumentNumber(r.Context(), chi.URLParam(r, "documentNumber"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, member)
}

// GetDocumentImage handles GET /api/members/image/{fileId} and relays the
// stored bytes.
func (h *Handler) GetDocumentImage(w http.ResponseWriter, r *http.Request) {
	fileName, stream, err := h.service.GetDocumentImage(r.Context(), chi.URLParam(r, "fileId"))
	if err != nil {
		writeError(w, err)
		return
	}
	defer stream.Close()

	contentType := mime.TypeByExtension(filepath.Ext(fileName))
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	w.Header().Set("Content-Type", contentType)

	if _, err := io.Copy(w, stream); err != nil {
		h.logger.Warn("Failed to stream document image", zap.Error(err))
	}
}

// ValidateInLedger handles GET /api/members/validate/{documentNumber}.
func (h *Handler) ValidateInLedger(w http.ResponseWriter, r *http.Request) {
	inLedger := h.service.ValidateInLedger(r.Context(), chi.URLParam(r, "documentNumber"))
	writeJSON(w, http.StatusOK, map[string]any{
		"documentNumber": chi.URLParam(r, "documentNumber"),
		"inLedger":       inLedger,
	})
}

// UpdateMember handles PATCH /api/members/{id} (multipart, optional
// documentImage part).
func (h *Handler) UpdateMember(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, apperrors.NewNotFoundError(
			fmt.Sprintf("Member with ID %s not found", chi.URLParam(r, "id")),
			map[string]any{"id": chi.URLParam(r, "id")},
		))
		return
	}

	form, file, err := parseMemberForm(r)
	if err != nil {
		writeError(w, apperrors.NewAppError(err.Error(), apperrors.CodeValidation, http.StatusBadRequest, nil))
		return
	}

	input, err := members.UpdateMemberForm{
		FirstName:                optionalValue(form, "firstName"),
		LastName:                 optionalValue(form, "lastName"),
		BirthDate:                optionalValue(form, "birthDate"),
		DocumentNumber:           optionalValue(form, "documentNumber"),
		CardHolderFirstName:      optionalValue(form, "cardHolderFirstName"),
		CardHolderLastName:       optionalValue(form, "cardHolderLastName"),
		CardHolderDocumentNumber: optionalValue(form, "cardHolderDocumentNumber"),
		CreditCardNumber:         optionalValue(form, "creditCardNumber"),
		CreditCardExpirationDate: optionalValue(form, "creditCardExpirationDate"),
	}.Validate()
	if err != nil {
		writeError(w, err)
		return
	}

	member, err := h.service.Update(r.Context(), id, input, file)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, member)
}

// DeleteMember handles DELETE /api/members/{id} and returns the record as
// it existed before deletion.
func (h *Handler) DeleteMember(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, apperrors.NewNotFoundError(
			fmt.Sprintf("Member with ID %s not found", chi.URLParam(r, "id")),
			map[string]any{"id": chi.URLParam(r, "id")},
		))
		return
	}

	member, err := h.service.Remove(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, member)
}

// parseMemberForm accepts multipart (with an optional documentImage part)
// or urlencoded bodies and returns the field map plus the buffered upload.
func parseMemberForm(r *http.Request) (map[string][]string, *domain.FileUpload, error) {
	contentType := r.Header.Get("Content-Type")

	if strings.HasPrefix(contentType, "multipart/") {
		if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
			return nil, nil, fmt.Errorf("failed to parse multipart form: %w", err)
		}

		var file *domain.FileUpload
		part, header, err := r.FormFile("documentImage")
		if err == nil {
			defer part.Close()
			content, readErr := io.ReadAll(part)
			if readErr != nil {
				return nil, nil, fmt.Errorf("failed to read documentImage: %w", readErr)
			}
			file = &domain.FileUpload{
				OriginalName: header.Filename,
				Content:      content,
			}
		} else if err != http.ErrMissingFile {
			return nil, nil, fmt.Errorf("failed to read documentImage: %w", err)
		}

		return r.MultipartForm.Value, file, nil
	}

	if err := r.ParseForm(); err != nil {
		return nil, nil, fmt.Errorf("failed to parse form: %w", err)
	}
	return r.PostForm, nil, nil
}

func formValue(form map[string][]string, key string) string {
	if values := form[key]; len(values) > 0 {
		return values[0]
	}
	return ""
}

// optionalValue distinguishes an absent field (nil) from an empty one.
func optionalValue(form map[string][]string, key string) *string {
	if values, ok := form[key]; ok && len(values) > 0 {
		return &values[0]
	}
	return nil
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func writeError(w http.ResponseWriter, err error) {
	appErr := apperrors.AsAppError(err)

	body := map[string]any{
		"statusCode": appErr.StatusCode,
		"message":    appErr.Message,
		"error":      appErr.Code,
	}
	if appErr.Context != nil {
		if violations, ok := appErr.Context["violations"]; ok {
			body["violations"] = violations
		}
	}

	writeJSON(w, appErr.StatusCode, body)
}

func formatUptime(d time.Duration) string {
	seconds := int64(d.Seconds())

	days := seconds / (24 * 60 * 60)
	seconds %= 24 * 60 * 60
	hours := seconds / (60 * 60)
	seconds %= 60 * 60
	minutes := seconds / 60
	seconds %= 60

	var parts []string
	if days > 0 {
		parts = append(parts, fmt.Sprintf("%dd", days))
	}
	if hours > 0 {
		parts = append(parts, fmt.Sprintf("%dh", hours))
	}
	if minutes > 0 {
		parts = append(parts, fmt.Sprintf("%dm", minutes))
	}
	parts = append(parts, fmt.Sprintf("%ds", seconds))

	return strings.Join(parts, " ")
}
