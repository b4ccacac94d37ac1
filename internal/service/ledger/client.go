package ledger

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/ltrc/socios-api-go/internal/domain"
)

// requestTimeout bounds every call to the Apps Script endpoint. The
// endpoint is advisory, so a slow sheet must never hold up a caller for
// longer than this.
const requestTimeout = 10 * time.Second

// scriptResponse is the uniform envelope the Apps Script web app returns.
type scriptResponse struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data,omitempty"`
	Error   string          `json:"error,omitempty"`
}

// Client mirrors member registrations to an external Google Sheets
// spreadsheet through an Apps Script web app. Every failure (network,
// timeout, malformed response, remote-reported error, unconfigured
// endpoint) is absorbed here and downgraded to false/empty/nil. Nothing
// in this package ever returns an error to a caller.
type Client struct {
	httpClient *http.Client
	url        string
	logger     *zap.Logger
}

func NewClient(appsScriptURL string, logger *zap.Logger) *Client {
	if appsScriptURL == "" {
		logger.Warn("GOOGLE_APPS_SCRIPT_URL not configured, spreadsheet mirroring disabled")
	}

	return &Client{
		httpClient: &http.Client{Timeout: requestTimeout},
		url:        appsScriptURL,
		logger:     logger,
	}
}

// Append sends one row to the spreadsheet. True only when the remote call
// succeeds and the remote explicitly reports success.
func (c *Client) Append(ctx context.Context, row domain.LedgerRow) bool {
	if c.url == "" {
		c.logger.Warn("Apps Script URL not configured, skipping sheet update")
		return false
	}

	row.CreditCardNumber = FormatCreditCard(row.CreditCardNumber)

	payload, err := json.Marshal(row)
	if err != nil {
		c.logger.Error("Failed to marshal ledger row", zap.Error(err))
		return false
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(payload))
	if err != nil {
		c.logger.Error("Failed to build ledger request", zap.Error(err))
		return false
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.do(req)
	if err != nil {
		c.logger.Error("Error appending to spreadsheet", zap.Error(err))
		return false
	}

	if !resp.Success {
		c.logger.Error("Error from Apps Script", zap.String("remote_error", resp.Error))
		return false
	}

	c.logger.Info("Member appended to spreadsheet",
		zap.String("first_name", row.FirstName),
		zap.String("last_name", row.LastName),
	)
	return true
}

// ListAll fetches every row from the spreadsheet. Any failure yields the
// empty sequence; callers cannot tell absence of data from failure.
func (c *Client) ListAll(ctx context.Context) []domain.LedgerRow {
	if c.url == "" {
		return nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.url, nil)
	if err != nil {
		c.logger.Error("Failed to build ledger request", zap.Error(err))
		return nil
	}

	resp, err := c.do(req)
	if err != nil {
		c.logger.Error("Error fetching rows from spreadsheet", zap.Error(err))
		return nil
	}

	if !resp.Success || resp.Data == nil {
		return nil
	}

	var rows []domain.LedgerRow
	if err := json.Unmarshal(resp.Data, &rows); err != nil {
		c.logger.Error("Malformed spreadsheet response", zap.Error(err))
		return nil
	}

	return rows
}

// FindByDocumentNumber scans the spreadsheet client-side for a matching
// document number. Nil on no match or any underlying failure.
func (c *Client) FindByDocumentNumber(ctx context.Context, documentNumber string) *domain.LedgerRow {
	for _, row := range c.ListAll(ctx) {
		if row.DocumentNumber == documentNumber {
			return &row
		}
	}
	return nil
}

func (c *Client) do(req *http.Request) (*scriptResponse, error) {
	httpResp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer httpResp.Body.Close()

	body, err := io.ReadAll(httpResp.Body)
	if err != nil {
		return nil, err
	}

	var resp scriptResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, err
	}

	return &resp, nil
}

// FormatCreditCard rewrites a card number into space-separated 4-digit
// groups: "4111111111111111" becomes "4111 1111 1111 1111". Numbers
// shorter than 4 characters pass through unchanged, and the formatter is
// idempotent over its own output.
func FormatCreditCard(cardNumber string) string {
	if len(cardNumber) < 4 {
		return cardNumber
	}

	cleaned := strings.ReplaceAll(cardNumber, " ", "")
	var groups []string
	for i := 0; i < len(cleaned); i += 4 {
		end := i + 4
		if end > len(cleaned) {
			end = len(cleaned)
		}
		groups = append(groups, cleaned[i:end])
	}

	return strings.Join(groups, " ")
}
