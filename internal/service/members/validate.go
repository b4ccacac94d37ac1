package members

import (
	"regexp"
	"time"

	"github.com/ltrc/socios-api-go/internal/domain"
	apperrors "github.com/ltrc/socios-api-go/pkg/errors"
)

// Static field rules, applied explicitly before the lifecycle service is
// invoked. Mirrors the registration form's contract: 8-character document
// numbers, 13-19 digit card numbers, MM/YY expiration.
var (
	creditCardPattern = regexp.MustCompile(`^\d{13,19}$`)
	expirationPattern = regexp.MustCompile(`^(0[1-9]|1[0-2])/\d{2}$`)
)

const birthDateLayout = "2006-01-02"

// CreateMemberForm is the raw inbound create payload before validation.
type CreateMemberForm struct {
	FirstName                string
	LastName                 string
	BirthDate                string
	DocumentNumber           string
	CardHolderFirstName      string
	CardHolderLastName       string
	CardHolderDocumentNumber string
	CreditCardNumber         string
	CreditCardExpirationDate string
}

// Validate applies the field rules and converts the form into a typed
// input. All violations are collected, not just the first.
func (f CreateMemberForm) Validate() (domain.CreateMemberInput, error) {
	var violations []apperrors.FieldViolation

	violations = appendRequired(violations, "firstName", f.FirstName)
	violations = appendRequired(violations, "lastName", f.LastName)
	violations = appendRequired(violations, "cardHolderFirstName", f.CardHolderFirstName)
	violations = appendRequired(violations, "cardHolderLastName", f.CardHolderLastName)

	birthDate, ok := parseBirthDate(f.BirthDate)
	if !ok {
		violations = append(violations, apperrors.FieldViolation{
			Field: "birthDate", Message: "Birth date must be a valid YYYY-MM-DD date",
		})
	}
	violations = appendDocumentNumber(violations, "documentNumber", f.DocumentNumber)
	violations = appendDocumentNumber(violations, "cardHolderDocumentNumber", f.CardHolderDocumentNumber)
	violations = appendCreditCard(violations, f.CreditCardNumber)
	violations = appendExpiration(violations, f.CreditCardExpirationDate)

	if len(violations) > 0 {
		return domain.CreateMemberInput{}, apperrors.NewValidationError(violations)
	}

	return domain.CreateMemberInput{
		FirstName:                f.FirstName,
		LastName:                 f.LastName,
		BirthDate:                birthDate,
		DocumentNumber:           f.DocumentNumber,
		CardHolderFirstName:      f.CardHolderFirstName,
		CardHolderLastName:       f.CardHolderLastName,
		CardHolderDocumentNumber: f.CardHolderDocumentNumber,
		CreditCardNumber:         f.CreditCardNumber,
		CreditCardExpirationDate: f.CreditCardExpirationDate,
	}, nil
}

// UpdateMemberForm carries only the fields present in the request; nil
// means "not supplied" and is exempt from validation.
type UpdateMemberForm struct {
	FirstName                *string
	LastName                 *string
	BirthDate                *string
	DocumentNumber           *string
	CardHolderFirstName      *string
	CardHolderLastName       *string
	CardHolderDocumentNumber *string
	CreditCardNumber         *string
	CreditCardExpirationDate *string
}

// Validate checks only the supplied fields.
func (f UpdateMemberForm) Validate() (domain.UpdateMemberInput, error) {
	var violations []apperrors.FieldViolation
	input := domain.UpdateMemberInput{
		FirstName:                f.FirstName,
		LastName:                 f.LastName,
		DocumentNumber:           f.DocumentNumber,
		CardHolderFirstName:      f.CardHolderFirstName,
		CardHolderLastName:       f.CardHolderLastName,
		CardHolderDocumentNumber: f.CardHolderDocumentNumber,
		CreditCardNumber:         f.CreditCardNumber,
		CreditCardExpirationDate: f.CreditCardExpirationDate,
	}

	if f.FirstName != nil {
		violations = appendRequired(violations, "firstName", *f.FirstName)
	}
	if f.LastName != nil {
		violations = appendRequired(violations, "lastName", *f.LastName)
	}
	if f.BirthDate != nil {
		birthDate, ok := parseBirthDate(*f.BirthDate)
		if !ok {
			violations = append(violations, apperrors.FieldViolation{
				Field: "birthDate", Message: "Birth date must be a valid YYYY-MM-DD date",
			})
		} else {
			input.BirthDate = &birthDate
		}
	}
	if f.DocumentNumber != nil {
		violations = appendDocumentNumber(violations, "documentNumber", *f.DocumentNumber)
	}
	if f.CardHolderFirstName != nil {
		violations = appendRequired(violations, "cardHolderFirstName", *f.CardHolderFirstName)
	}
	if f.CardHolderLastName != nil {
		violations = appendRequired(violations, "cardHolderLastName", *f.CardHolderLastName)
	}
	if f.CardHolderDocumentNumber != nil {
		violations = appendDocumentNumber(violations, "cardHolderDocumentNumber", *f.CardHolderDocumentNumber)
	}
	if f.CreditCardNumber != nil {
		violations = appendCreditCard(violations, *f.CreditCardNumber)
	}
	if f.CreditCardExpirationDate != nil {
		violations = appendExpiration(violations, *f.CreditCardExpirationDate)
	}

	if len(violations) > 0 {
		return domain.UpdateMemberInput{}, apperrors.NewValidationError(violations)
	}

	return input, nil
}

func parseBirthDate(value string) (time.Time, bool) {
	parsed, err := time.Parse(birthDateLayout, value)
	if err != nil {
		return time.Time{}, false
	}
	return parsed, true
}

func appendRequired(violations []apperrors.FieldViolation, field, value string) []apperrors.FieldViolation {
	if value == "" {
		violations = append(violations, apperrors.FieldViolation{
			Field: field, Message: field + " should not be empty",
		})
	}
	return violations
}

func appendDocumentNumber(violations []apperrors.FieldViolation, field, value string) []apperrors.FieldViolation {
	if len(value) != 8 {
		violations = append(violations, apperrors.FieldViolation{
			Field: field, Message: "Document number must be exactly 8 characters",
		})
	}
	return violations
}

func appendCreditCard(violations []apperrors.FieldViolation, value string) []apperrors.FieldViolation {
	if !creditCardPattern.MatchString(value) {
		violations = append(violations, apperrors.FieldViolation{
			Field: "creditCardNumber", Message: "Credit card number must be between 13 and 19 digits",
		})
	}
	return violations
}

func appendExpiration(violations []apperrors.FieldViolation, value string) []apperrors.FieldViolation {
	if !expirationPattern.MatchString(value) {
		violations = append(violations, apperrors.FieldViolation{
			Field: "creditCardExpirationDate", Message: "Expiration date must be in MM/YY format",
		})
	}
	return violations
}
