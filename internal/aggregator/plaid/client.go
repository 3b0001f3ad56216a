// Package plaid implements the aggregator.Provider interface against the
// Plaid REST API.
package plaid

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/shopspring/decimal"

	"nestegg/internal/aggregator"
)

const (
	sandboxURL     = "https://sandbox.plaid.com"
	developmentURL = "https://development.plaid.com"
	productionURL  = "https://production.plaid.com"

	defaultTimeout = 30 * time.Second
	syncPageSize   = 500
	clientName     = "nestegg"
	dateLayout     = "2006-01-02"
)

// Institutions with limited or no Plaid coverage; the registry routes these
// to another provider.
var limitedSupportInstitutions = map[string]struct{}{
	"ins_fidelity": {},
}

// Config holds Plaid API credentials and environment selection.
type Config struct {
	ClientID    string
	Secret      string
	Environment string // sandbox, development, production
	WebhookURL  string
	RedirectURI string
}

// Client talks to the Plaid API and normalizes its payloads into the
// canonical aggregator types.
type Client struct {
	httpClient  *http.Client
	baseURL     string
	clientID    string
	secret      string
	webhookURL  string
	redirectURI string
}

// NewClient creates a Plaid API client for the configured environment.
func NewClient(cfg Config) *Client {
	baseURL := sandboxURL
	switch cfg.Environment {
	case "development":
		baseURL = developmentURL
	case "production":
		baseURL = productionURL
	}

	return &Client{
		httpClient: &http.Client{
			Timeout: defaultTimeout,
		},
		baseURL:     baseURL,
		clientID:    cfg.ClientID,
		secret:      cfg.Secret,
		webhookURL:  cfg.WebhookURL,
		redirectURI: cfg.RedirectURI,
	}
}

// Type implements aggregator.Provider.
func (c *Client) Type() aggregator.Type {
	return aggregator.TypePlaid
}

// APIError is a non-200 response from the Plaid API.
type APIError struct {
	StatusCode int
	ErrorType  string
	ErrorCode  string
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("plaid API error (status %d): %s/%s - %s",
		e.StatusCode, e.ErrorType, e.ErrorCode, e.Message)
}

// Error codes that mean the access token is no longer usable and the user
// must re-link the connection.
var credentialErrorCodes = map[string]struct{}{
	"ITEM_LOGIN_REQUIRED":  {},
	"INVALID_ACCESS_TOKEN": {},
	"ITEM_LOCKED":          {},
	"ITEM_NOT_FOUND":       {},
}

// Unwrap lets callers detect credential failures with
// errors.Is(err, aggregator.ErrCredentialRejected).
func (e *APIError) Unwrap() error {
	if _, ok := credentialErrorCodes[e.ErrorCode]; ok {
		return aggregator.ErrCredentialRejected
	}
	return nil
}

type errorResponse struct {
	ErrorType      string `json:"error_type"`
	ErrorCode      string `json:"error_code"`
	ErrorMessage   string `json:"error_message"`
	DisplayMessage string `json:"display_message"`
}

// post sends a JSON request to a Plaid endpoint and decodes the response.
// Every Plaid call is an authenticated POST.
func (c *Client) post(ctx context.Context, path string, payload, out any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to execute request: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response body: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		var errResp errorResponse
		if err := json.Unmarshal(data, &errResp); err != nil {
			return fmt.Errorf("plaid request failed with status %d: %s", resp.StatusCode, string(data))
		}
		return &APIError{
			StatusCode: resp.StatusCode,
			ErrorType:  errResp.ErrorType,
			ErrorCode:  errResp.ErrorCode,
			Message:    errResp.ErrorMessage,
		}
	}

	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("failed to unmarshal response: %w", err)
	}

	return nil
}

type authFields struct {
	ClientID string `json:"client_id"`
	Secret   string `json:"secret"`
}

func (c *Client) auth() authFields {
	return authFields{ClientID: c.clientID, Secret: c.secret}
}

// CreateLinkSession implements aggregator.Provider.
func (c *Client) CreateLinkSession(ctx context.Context, userID string, opts aggregator.LinkOptions) (*aggregator.LinkSession, error) {
	redirectURI := opts.RedirectURI
	if redirectURI == "" {
		redirectURI = c.redirectURI
	}
	webhookURL := opts.WebhookURL
	if webhookURL == "" {
		webhookURL = c.webhookURL
	}

	req := struct {
		authFields
		ClientName   string   `json:"client_name"`
		Language     string   `json:"language"`
		CountryCodes []string `json:"country_codes"`
		User         struct {
			ClientUserID string `json:"client_user_id"`
		} `json:"user"`
		Products    []string `json:"products"`
		Webhook     string   `json:"webhook,omitempty"`
		RedirectURI string   `json:"redirect_uri,omitempty"`
	}{
		authFields:   c.auth(),
		ClientName:   clientName,
		Language:     "en",
		CountryCodes: []string{"US"},
		Products:     []string{"transactions", "investments"},
		Webhook:      webhookURL,
		RedirectURI:  redirectURI,
	}
	req.User.ClientUserID = userID

	var resp struct {
		LinkToken  string    `json:"link_token"`
		Expiration time.Time `json:"expiration"`
	}
	if err := c.post(ctx, "/link/token/create", req, &resp); err != nil {
		return nil, fmt.Errorf("failed to create link token: %w", err)
	}

	session := &aggregator.LinkSession{
		Provider:  aggregator.TypePlaid,
		LinkToken: resp.LinkToken,
	}
	if !resp.Expiration.IsZero() {
		session.Expiration = &resp.Expiration
	}
	return session, nil
}

// ExchangePublicToken implements aggregator.Provider. The discovered
// accounts carry live balances and institution metadata.
func (c *Client) ExchangePublicToken(ctx context.Context, publicToken string) (*aggregator.ExchangeResult, error) {
	req := struct {
		authFields
		PublicToken string `json:"public_token"`
	}{authFields: c.auth(), PublicToken: publicToken}

	var resp struct {
		AccessToken string `json:"access_token"`
		ItemID      string `json:"item_id"`
	}
	if err := c.post(ctx, "/item/public_token/exchange", req, &resp); err != nil {
		return nil, fmt.Errorf("failed to exchange public token: %w", err)
	}

	accounts, institutionID, err := c.fetchAccounts(ctx, resp.AccessToken, "/accounts/balance/get")
	if err != nil {
		return nil, err
	}

	institutionName := ""
	if institutionID != "" {
		name, err := c.GetInstitutionName(ctx, institutionID)
		if err == nil {
			institutionName = name
		}
		// Institution lookup failures are non-fatal; accounts still link.
	}

	for i := range accounts {
		accounts[i].InstitutionID = institutionID
		accounts[i].InstitutionName = institutionName
	}

	return &aggregator.ExchangeResult{
		Provider:        aggregator.TypePlaid,
		Credential:      resp.AccessToken,
		ConnectionID:    resp.ItemID,
		Accounts:        accounts,
		InstitutionID:   institutionID,
		InstitutionName: institutionName,
	}, nil
}

// GetAccounts implements aggregator.Provider.
func (c *Client) GetAccounts(ctx context.Context, credential string) ([]aggregator.AccountInfo, error) {
	accounts, _, err := c.fetchAccounts(ctx, credential, "/accounts/get")
	return accounts, err
}

// GetAccountsWithBalances implements aggregator.Provider. Plaid's balance
// endpoint triggers a live fetch at the institution.
func (c *Client) GetAccountsWithBalances(ctx context.Context, credential string) ([]aggregator.AccountInfo, error) {
	accounts, _, err := c.fetchAccounts(ctx, credential, "/accounts/balance/get")
	return accounts, err
}

func (c *Client) fetchAccounts(ctx context.Context, credential, path string) ([]aggregator.AccountInfo, string, error) {
	req := struct {
		authFields
		AccessToken string `json:"access_token"`
	}{authFields: c.auth(), AccessToken: credential}

	var resp struct {
		Accounts []plaidAccount `json:"accounts"`
		Item     struct {
			InstitutionID string `json:"institution_id"`
		} `json:"item"`
	}
	if err := c.post(ctx, path, req, &resp); err != nil {
		return nil, "", fmt.Errorf("failed to get accounts: %w", err)
	}

	accounts := make([]aggregator.AccountInfo, 0, len(resp.Accounts))
	for _, raw := range resp.Accounts {
		accounts = append(accounts, normalizeAccount(raw))
	}
	return accounts, resp.Item.InstitutionID, nil
}

// SyncTransactions implements aggregator.Provider. An empty cursor starts
// a virgin sync from the beginning of the item's history.
func (c *Client) SyncTransactions(ctx context.Context, credential, cursor string) (*aggregator.TransactionSyncPage, error) {
	req := struct {
		authFields
		AccessToken string `json:"access_token"`
		Cursor      string `json:"cursor,omitempty"`
		Count       int    `json:"count"`
	}{authFields: c.auth(), AccessToken: credential, Cursor: cursor, Count: syncPageSize}

	var resp struct {
		Added    []plaidTransaction `json:"added"`
		Modified []plaidTransaction `json:"modified"`
		Removed  []struct {
			TransactionID string `json:"transaction_id"`
		} `json:"removed"`
		NextCursor string `json:"next_cursor"`
		HasMore    bool   `json:"has_more"`
	}
	if err := c.post(ctx, "/transactions/sync", req, &resp); err != nil {
		return nil, fmt.Errorf("failed to sync transactions: %w", err)
	}

	page := &aggregator.TransactionSyncPage{
		NextCursor: resp.NextCursor,
		HasMore:    resp.HasMore,
	}
	for _, raw := range resp.Added {
		txn, err := normalizeTransaction(raw)
		if err != nil {
			return nil, err
		}
		page.Added = append(page.Added, txn)
	}
	for _, raw := range resp.Modified {
		txn, err := normalizeTransaction(raw)
		if err != nil {
			return nil, err
		}
		page.Modified = append(page.Modified, txn)
	}
	for _, removed := range resp.Removed {
		page.Removed = append(page.Removed, removed.TransactionID)
	}
	return page, nil
}

// GetHoldings implements aggregator.Provider.
func (c *Client) GetHoldings(ctx context.Context, credential string) (*aggregator.HoldingsSnapshot, error) {
	req := struct {
		authFields
		AccessToken string `json:"access_token"`
	}{authFields: c.auth(), AccessToken: credential}

	var resp struct {
		Holdings   []plaidHolding  `json:"holdings"`
		Securities []plaidSecurity `json:"securities"`
	}
	if err := c.post(ctx, "/investments/holdings/get", req, &resp); err != nil {
		return nil, fmt.Errorf("failed to get holdings: %w", err)
	}

	snapshot := &aggregator.HoldingsSnapshot{}
	for _, raw := range resp.Securities {
		sec, err := normalizeSecurity(raw)
		if err != nil {
			return nil, err
		}
		snapshot.Securities = append(snapshot.Securities, sec)
	}
	for _, raw := range resp.Holdings {
		holding, err := normalizeHolding(raw)
		if err != nil {
			return nil, err
		}
		snapshot.Holdings = append(snapshot.Holdings, holding)
	}
	return snapshot, nil
}

// Disconnect implements aggregator.Provider. Plaid invalidates the access
// token when the item is removed.
func (c *Client) Disconnect(ctx context.Context, credential string) (bool, error) {
	req := struct {
		authFields
		AccessToken string `json:"access_token"`
	}{authFields: c.auth(), AccessToken: credential}

	var resp struct {
		RequestID string `json:"request_id"`
	}
	if err := c.post(ctx, "/item/remove", req, &resp); err != nil {
		return false, fmt.Errorf("failed to remove item: %w", err)
	}
	return true, nil
}

// SupportsInstitution implements aggregator.Provider.
func (c *Client) SupportsInstitution(institutionID string) bool {
	_, limited := limitedSupportInstitutions[institutionID]
	return !limited
}

// GetInstitutionName implements aggregator.Provider.
func (c *Client) GetInstitutionName(ctx context.Context, institutionID string) (string, error) {
	req := struct {
		authFields
		InstitutionID string   `json:"institution_id"`
		CountryCodes  []string `json:"country_codes"`
	}{authFields: c.auth(), InstitutionID: institutionID, CountryCodes: []string{"US"}}

	var resp struct {
		Institution struct {
			Name string `json:"name"`
		} `json:"institution"`
	}
	if err := c.post(ctx, "/institutions/get_by_id", req, &resp); err != nil {
		return "", fmt.Errorf("failed to get institution: %w", err)
	}
	return resp.Institution.Name, nil
}

// === Raw Plaid payload shapes and normalization ===

type plaidAccount struct {
	AccountID string `json:"account_id"`
	Name      string `json:"name"`
	Mask      string `json:"mask"`
	Type      string `json:"type"`
	Subtype   string `json:"subtype"`
	Balances  struct {
		Available *decimal.Decimal `json:"available"`
		Current   *decimal.Decimal `json:"current"`
		Limit     *decimal.Decimal `json:"limit"`
		Currency  string           `json:"iso_currency_code"`
	} `json:"balances"`
}

type plaidTransaction struct {
	TransactionID  string          `json:"transaction_id"`
	AccountID      string          `json:"account_id"`
	Amount         decimal.Decimal `json:"amount"`
	Currency       string          `json:"iso_currency_code"`
	Date           string          `json:"date"`
	AuthorizedDate string          `json:"authorized_date"`
	Name           string          `json:"name"`
	MerchantName   string          `json:"merchant_name"`
	PaymentChannel string          `json:"payment_channel"`
	Pending        bool            `json:"pending"`
	Category       *struct {
		Primary  string `json:"primary"`
		Detailed string `json:"detailed"`
	} `json:"personal_finance_category"`
	Location struct {
		City    string `json:"city"`
		Region  string `json:"region"`
		Country string `json:"country"`
	} `json:"location"`
}

type plaidSecurity struct {
	SecurityID       string           `json:"security_id"`
	Name             string           `json:"name"`
	TickerSymbol     string           `json:"ticker_symbol"`
	Type             string           `json:"type"`
	ClosePrice       *decimal.Decimal `json:"close_price"`
	ClosePriceAsOf   string           `json:"close_price_as_of"`
	IsCashEquivalent bool             `json:"is_cash_equivalent"`
	Currency         string           `json:"iso_currency_code"`
}

type plaidHolding struct {
	AccountID            string           `json:"account_id"`
	SecurityID           string           `json:"security_id"`
	Quantity             decimal.Decimal  `json:"quantity"`
	InstitutionPrice     decimal.Decimal  `json:"institution_price"`
	InstitutionPriceAsOf string           `json:"institution_price_as_of"`
	InstitutionValue     decimal.Decimal  `json:"institution_value"`
	CostBasis            *decimal.Decimal `json:"cost_basis"`
	Currency             string           `json:"iso_currency_code"`
}

func normalizeKind(plaidType string) aggregator.AccountKind {
	switch plaidType {
	case "depository":
		return aggregator.KindDepository
	case "credit":
		return aggregator.KindCredit
	case "loan":
		return aggregator.KindLoan
	case "investment", "brokerage":
		return aggregator.KindInvestment
	default:
		return aggregator.KindOther
	}
}

func normalizeCurrency(code string) string {
	if code == "" {
		return "USD"
	}
	return code
}

func normalizeAccount(raw plaidAccount) aggregator.AccountInfo {
	return aggregator.AccountInfo{
		ProviderAccountID: raw.AccountID,
		Name:              raw.Name,
		Kind:              normalizeKind(raw.Type),
		Subtype:           raw.Subtype,
		Mask:              raw.Mask,
		CurrentBalance:    raw.Balances.Current,
		AvailableBalance:  raw.Balances.Available,
		CreditLimit:       raw.Balances.Limit,
		Currency:          normalizeCurrency(raw.Balances.Currency),
	}
}

func normalizeTransaction(raw plaidTransaction) (aggregator.TransactionInfo, error) {
	date, err := time.Parse(dateLayout, raw.Date)
	if err != nil {
		return aggregator.TransactionInfo{}, fmt.Errorf("failed to parse transaction date %q: %w", raw.Date, err)
	}

	authorizedDate, err := parseDatePtr(raw.AuthorizedDate)
	if err != nil {
		return aggregator.TransactionInfo{}, fmt.Errorf("failed to parse authorized date %q: %w", raw.AuthorizedDate, err)
	}

	txn := aggregator.TransactionInfo{
		ProviderTransactionID: raw.TransactionID,
		ProviderAccountID:     raw.AccountID,
		Amount:                raw.Amount,
		Currency:              normalizeCurrency(raw.Currency),
		Date:                  date,
		AuthorizedDate:        authorizedDate,
		Name:                  raw.Name,
		MerchantName:          raw.MerchantName,
		PaymentChannel:        raw.PaymentChannel,
		Pending:               raw.Pending,
		LocationCity:          raw.Location.City,
		LocationRegion:        raw.Location.Region,
		LocationCountry:       raw.Location.Country,
	}
	if raw.Category != nil {
		txn.CategoryPrimary = raw.Category.Primary
		txn.CategoryDetailed = raw.Category.Detailed
	}
	return txn, nil
}

func normalizeSecurity(raw plaidSecurity) (aggregator.SecurityInfo, error) {
	closePriceAsOf, err := parseDatePtr(raw.ClosePriceAsOf)
	if err != nil {
		return aggregator.SecurityInfo{}, fmt.Errorf("failed to parse close price date %q: %w", raw.ClosePriceAsOf, err)
	}

	return aggregator.SecurityInfo{
		ProviderSecurityID: raw.SecurityID,
		Name:               raw.Name,
		TickerSymbol:       raw.TickerSymbol,
		Type:               raw.Type,
		ClosePrice:         raw.ClosePrice,
		ClosePriceAsOf:     closePriceAsOf,
		IsCashEquivalent:   raw.IsCashEquivalent,
		Currency:           normalizeCurrency(raw.Currency),
	}, nil
}

func normalizeHolding(raw plaidHolding) (aggregator.HoldingInfo, error) {
	priceAsOf, err := parseDatePtr(raw.InstitutionPriceAsOf)
	if err != nil {
		return aggregator.HoldingInfo{}, fmt.Errorf("failed to parse institution price date %q: %w", raw.InstitutionPriceAsOf, err)
	}

	return aggregator.HoldingInfo{
		ProviderAccountID:    raw.AccountID,
		ProviderSecurityID:   raw.SecurityID,
		Quantity:             raw.Quantity,
		InstitutionPrice:     raw.InstitutionPrice,
		InstitutionPriceAsOf: priceAsOf,
		InstitutionValue:     raw.InstitutionValue,
		CostBasis:            raw.CostBasis,
		Currency:             normalizeCurrency(raw.Currency),
	}, nil
}

func parseDatePtr(s string) (*time.Time, error) {
	if s == "" {
		return nil, nil
	}
	t, err := time.Parse(dateLayout, s)
	if err != nil {
		return nil, err
	}
	return &t, nil
}
