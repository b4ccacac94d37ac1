package domain

import (
	"time"

	"github.com/google/uuid"
)

// Member is the durable registration record for a club member ("socio").
// Card holder fields describe whoever pays for the membership and may be a
// different person; they carry no uniqueness constraint of their own.
type Member struct {
	ID                       uuid.UUID  `json:"id"`
	FirstName                string     `json:"firstName"`
	LastName                 string     `json:"lastName"`
	BirthDate                time.Time  `json:"birthDate"`
	DocumentNumber           string     `json:"documentNumber"`
	CardHolderFirstName      string     `json:"cardHolderFirstName"`
	CardHolderLastName       string     `json:"cardHolderLastName"`
	CardHolderDocumentNumber string     `json:"cardHolderDocumentNumber"`
	CreditCardNumber         string     `json:"creditCardNumber"`
	CreditCardExpirationDate string     `json:"creditCardExpirationDate"`
	DocumentImageFileID      *uuid.UUID `json:"documentImageFileId,omitempty"`
	DocumentImageFileName    string     `json:"documentImageFileName,omitempty"`
	CreatedAt                time.Time  `json:"createdAt"`
	UpdatedAt                time.Time  `json:"updatedAt"`
}

// CreateMemberInput carries the validated fields for a registration.
type CreateMemberInput struct {
	FirstName                string
	LastName                 string
	BirthDate                time.Time
	DocumentNumber           string
	CardHolderFirstName      string
	CardHolderLastName       string
	CardHolderDocumentNumber string
	CreditCardNumber         string
	CreditCardExpirationDate string
}

// UpdateMemberInput carries a partial update; nil fields keep the stored
// value.
type UpdateMemberInput struct {
	FirstName                *string
	LastName                 *string
	BirthDate                *time.Time
	DocumentNumber           *string
	CardHolderFirstName      *string
	CardHolderLastName       *string
	CardHolderDocumentNumber *string
	CreditCardNumber         *string
	CreditCardExpirationDate *string
}

// FileUpload is a fully-buffered inbound attachment.
type FileUpload struct {
	OriginalName string
	Content      []byte
}

// LedgerRow is the denormalized, display-formatted projection of a member
// sent to the external spreadsheet. Not authoritative; audit only.
type LedgerRow struct {
	FirstName                string `json:"firstName"`
	LastName                 string `json:"lastName"`
	DocumentNumber           string `json:"documentNumber"`
	BirthDate                string `json:"birthDate"`
	DocumentImageLink        string `json:"documentImageLink"`
	CardHolderFirstName      string `json:"cardHolderFirstName"`
	CardHolderLastName       string `json:"cardHolderLastName"`
	CardHolderDocumentNumber string `json:"cardHolderDocumentNumber"`
	CreditCardNumber         string `json:"creditCardNumber"`
	CreditCardExpirationDate string `json:"creditCardExpirationDate"`
	CreatedAt                string `json:"createdAt"`
}
