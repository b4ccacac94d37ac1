package ledger

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"go.uber.org/zap"

	"github.com/ltrc/socios-api-go/internal/domain"
)

func testRow() domain.LedgerRow {
	return domain.LedgerRow{
		FirstName:                "John",
		LastName:                 "Doe",
		DocumentNumber:           "12345678",
		BirthDate:                "20/05/1990",
		DocumentImageLink:        "N/A",
		CardHolderFirstName:      "Jane",
		CardHolderLastName:       "Doe",
		CardHolderDocumentNumber: "87654321",
		CreditCardNumber:         "4111111111111111",
		CreditCardExpirationDate: "12/25",
		CreatedAt:                "01/09/2026, 10:00:00",
	}
}

func TestAppendSuccess(t *testing.T) {
	var received domain.LedgerRow
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("expected POST, got %s", r.Method)
		}
		if err := json.NewDecoder(r.Body).Decode(&received); err != nil {
			t.Errorf("failed to decode payload: %v", err)
		}
		json.NewEncoder(w).Encode(map[string]any{"success": true})
	}))
	defer server.Close()

	client := NewClient(server.URL, zap.NewNop())
	if !client.Append(context.Background(), testRow()) {
		t.Fatal("expected append to succeed")
	}

	// Card number goes over the wire in 4-digit groups.
	if received.CreditCardNumber != "4111 1111 1111 1111" {
		t.Fatalf("card number not grouped: %q", received.CreditCardNumber)
	}
	if received.DocumentNumber != "12345678" {
		t.Fatalf("unexpected document number: %s", received.DocumentNumber)
	}
}

func TestAppendRemoteReportedFailure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{"success": false, "error": "sheet locked"})
	}))
	defer server.Close()

	client := NewClient(server.URL, zap.NewNop())
	if client.Append(context.Background(), testRow()) {
		t.Fatal("remote-reported failure must yield false")
	}
}

func TestAppendNetworkFailure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	server.Close()

	client := NewClient(server.URL, zap.NewNop())
	if client.Append(context.Background(), testRow()) {
		t.Fatal("network failure must yield false, not raise")
	}
}

func TestAppendMalformedResponse(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("<html>redirect page</html>"))
	}))
	defer server.Close()

	client := NewClient(server.URL, zap.NewNop())
	if client.Append(context.Background(), testRow()) {
		t.Fatal("malformed response must yield false")
	}
}

func TestUnconfiguredClientShortCircuits(t *testing.T) {
	client := NewClient("", zap.NewNop())

	if client.Append(context.Background(), testRow()) {
		t.Fatal("unconfigured append must be false")
	}
	if rows := client.ListAll(context.Background()); len(rows) != 0 {
		t.Fatalf("unconfigured list must be empty, got %d", len(rows))
	}
	if client.FindByDocumentNumber(context.Background(), "12345678") != nil {
		t.Fatal("unconfigured find must be nil")
	}
}

func TestListAll(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{
			"success": true,
			"data":    []domain.LedgerRow{testRow(), {DocumentNumber: "99999999"}},
		})
	}))
	defer server.Close()

	client := NewClient(server.URL, zap.NewNop())
	rows := client.ListAll(context.Background())
	if len(rows) != 2 {
		t.Fatalf("expected 2 rows, got %d", len(rows))
	}
	if rows[0].FirstName != "John" {
		t.Fatalf("unexpected first row: %+v", rows[0])
	}
}

func TestListAllFailureYieldsEmpty(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	client := NewClient(server.URL, zap.NewNop())
	if rows := client.ListAll(context.Background()); len(rows) != 0 {
		t.Fatalf("expected empty on failure, got %d rows", len(rows))
	}
}

func TestFindByDocumentNumber(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{
			"success": true,
			"data":    []domain.LedgerRow{testRow()},
		})
	}))
	defer server.Close()

	client := NewClient(server.URL, zap.NewNop())

	row := client.FindByDocumentNumber(context.Background(), "12345678")
	if row == nil || row.FirstName != "John" {
		t.Fatalf("expected match, got %+v", row)
	}
	if client.FindByDocumentNumber(context.Background(), "00000000") != nil {
		t.Fatal("expected nil on no match")
	}
}

func TestFormatCreditCard(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"4111111111111111", "4111 1111 1111 1111"},
		{"4111 1111 1111 1111", "4111 1111 1111 1111"}, // idempotent
		{"411111111111111", "4111 1111 1111 111"},      // 15 digits
		{"4111111111111", "4111 1111 1111 1"},          // 13 digits
		{"411", "411"},                                 // short passes through
		{"", ""},
	}

	for _, tt := range tests {
		if got := FormatCreditCard(tt.in); got != tt.want {
			t.Errorf("FormatCreditCard(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}

	// Re-applying the formatter to its own output is a no-op.
	once := FormatCreditCard("5555444433332222")
	if twice := FormatCreditCard(once); twice != once {
		t.Errorf("formatter not idempotent: %q vs %q", once, twice)
	}
}
