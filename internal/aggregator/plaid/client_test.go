package plaid

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/shopspring/decimal"

	"nestegg/internal/aggregator"
)

func newTestClient(t *testing.T, handler http.Handler) *Client {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	client := NewClient(Config{
		ClientID:    "test-client-id",
		Secret:      "test-secret",
		Environment: "sandbox",
	})
	client.baseURL = server.URL
	return client
}

func writeJSON(t *testing.T, w http.ResponseWriter, body string) {
	t.Helper()
	w.Header().Set("Content-Type", "application/json")
	if _, err := w.Write([]byte(body)); err != nil {
		t.Fatalf("failed to write response: %v", err)
	}
}

func TestCreateLinkSession(t *testing.T) {
	var gotReq map[string]any
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/link/token/create" {
			t.Errorf("unexpected path %q", r.URL.Path)
		}
		if err := json.NewDecoder(r.Body).Decode(&gotReq); err != nil {
			t.Fatalf("failed to decode request: %v", err)
		}
		writeJSON(t, w, `{"link_token":"link-sandbox-abc","expiration":"2026-01-15T12:00:00Z"}`)
	}))

	session, err := client.CreateLinkSession(context.Background(), "user-1", aggregator.LinkOptions{})
	if err != nil {
		t.Fatalf("CreateLinkSession() failed: %v", err)
	}

	if session.LinkToken != "link-sandbox-abc" {
		t.Errorf("link token = %q, want %q", session.LinkToken, "link-sandbox-abc")
	}
	if session.Provider != aggregator.TypePlaid {
		t.Errorf("provider = %q, want plaid", session.Provider)
	}
	if session.Expiration == nil {
		t.Error("expected expiration to be set")
	}

	if gotReq["client_id"] != "test-client-id" {
		t.Errorf("request client_id = %v, want test-client-id", gotReq["client_id"])
	}
	user, _ := gotReq["user"].(map[string]any)
	if user["client_user_id"] != "user-1" {
		t.Errorf("request client_user_id = %v, want user-1", user["client_user_id"])
	}
}

func TestExchangePublicToken(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/item/public_token/exchange":
			writeJSON(t, w, `{"access_token":"access-sandbox-xyz","item_id":"item-1"}`)
		case "/accounts/balance/get":
			writeJSON(t, w, `{
				"accounts": [
					{
						"account_id": "acc-1",
						"name": "Everyday Checking",
						"mask": "0000",
						"type": "depository",
						"subtype": "checking",
						"balances": {"available": 100.50, "current": 110.25, "iso_currency_code": "USD"}
					},
					{
						"account_id": "acc-2",
						"name": "Rewards Card",
						"mask": "4444",
						"type": "credit",
						"subtype": "credit card",
						"balances": {"current": 250, "limit": 5000, "iso_currency_code": "USD"}
					}
				],
				"item": {"institution_id": "ins_3"}
			}`)
		case "/institutions/get_by_id":
			writeJSON(t, w, `{"institution":{"name":"Chase"}}`)
		default:
			t.Errorf("unexpected path %q", r.URL.Path)
		}
	}))

	result, err := client.ExchangePublicToken(context.Background(), "public-sandbox-token")
	if err != nil {
		t.Fatalf("ExchangePublicToken() failed: %v", err)
	}

	if result.Credential != "access-sandbox-xyz" {
		t.Errorf("credential = %q, want access-sandbox-xyz", result.Credential)
	}
	if result.ConnectionID != "item-1" {
		t.Errorf("connection ID = %q, want item-1", result.ConnectionID)
	}
	if result.InstitutionName != "Chase" {
		t.Errorf("institution name = %q, want Chase", result.InstitutionName)
	}
	if len(result.Accounts) != 2 {
		t.Fatalf("got %d accounts, want 2", len(result.Accounts))
	}

	checking := result.Accounts[0]
	if checking.Kind != aggregator.KindDepository {
		t.Errorf("kind = %q, want depository", checking.Kind)
	}
	if checking.Subtype != "checking" {
		t.Errorf("subtype = %q, want checking", checking.Subtype)
	}
	if checking.CurrentBalance == nil || !checking.CurrentBalance.Equal(decimal.NewFromFloat(110.25)) {
		t.Errorf("current balance = %v, want 110.25", checking.CurrentBalance)
	}
	if checking.InstitutionName != "Chase" {
		t.Errorf("account institution = %q, want Chase", checking.InstitutionName)
	}

	card := result.Accounts[1]
	if card.Kind != aggregator.KindCredit {
		t.Errorf("kind = %q, want credit", card.Kind)
	}
	if card.CreditLimit == nil || !card.CreditLimit.Equal(decimal.NewFromInt(5000)) {
		t.Errorf("credit limit = %v, want 5000", card.CreditLimit)
	}
	if card.AvailableBalance != nil {
		t.Errorf("available balance = %v, want nil", card.AvailableBalance)
	}
}

func TestSyncTransactions(t *testing.T) {
	var gotCursor string
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/transactions/sync" {
			t.Errorf("unexpected path %q", r.URL.Path)
		}
		var req map[string]any
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatalf("failed to decode request: %v", err)
		}
		gotCursor, _ = req["cursor"].(string)
		writeJSON(t, w, `{
			"added": [
				{
					"transaction_id": "txn-1",
					"account_id": "acc-1",
					"amount": 12.75,
					"iso_currency_code": "USD",
					"date": "2026-02-10",
					"authorized_date": "2026-02-09",
					"name": "COFFEE SHOP",
					"merchant_name": "Coffee Shop",
					"payment_channel": "in store",
					"pending": false,
					"personal_finance_category": {"primary": "FOOD_AND_DRINK", "detailed": "FOOD_AND_DRINK_COFFEE"}
				}
			],
			"modified": [],
			"removed": [{"transaction_id": "txn-gone"}],
			"next_cursor": "cursor-2",
			"has_more": true
		}`)
	}))

	page, err := client.SyncTransactions(context.Background(), "access-token", "cursor-1")
	if err != nil {
		t.Fatalf("SyncTransactions() failed: %v", err)
	}

	if gotCursor != "cursor-1" {
		t.Errorf("request cursor = %q, want cursor-1", gotCursor)
	}
	if page.NextCursor != "cursor-2" {
		t.Errorf("next cursor = %q, want cursor-2", page.NextCursor)
	}
	if !page.HasMore {
		t.Error("expected has_more to be true")
	}
	if len(page.Added) != 1 {
		t.Fatalf("got %d added, want 1", len(page.Added))
	}

	txn := page.Added[0]
	if !txn.Amount.Equal(decimal.NewFromFloat(12.75)) {
		t.Errorf("amount = %v, want 12.75", txn.Amount)
	}
	if got := txn.Date.Format(dateLayout); got != "2026-02-10" {
		t.Errorf("date = %q, want 2026-02-10", got)
	}
	if txn.AuthorizedDate == nil {
		t.Error("expected authorized date to be set")
	}
	if txn.CategoryDetailed != "FOOD_AND_DRINK_COFFEE" {
		t.Errorf("detailed category = %q", txn.CategoryDetailed)
	}
	if len(page.Removed) != 1 || page.Removed[0] != "txn-gone" {
		t.Errorf("removed = %v, want [txn-gone]", page.Removed)
	}
}

func TestSyncTransactions_VirginCursorOmitted(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req map[string]any
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatalf("failed to decode request: %v", err)
		}
		if _, present := req["cursor"]; present {
			t.Error("virgin sync should omit the cursor field")
		}
		writeJSON(t, w, `{"added":[],"modified":[],"removed":[],"next_cursor":"cursor-1","has_more":false}`)
	}))

	if _, err := client.SyncTransactions(context.Background(), "access-token", ""); err != nil {
		t.Fatalf("SyncTransactions() failed: %v", err)
	}
}

func TestGetHoldings(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/investments/holdings/get" {
			t.Errorf("unexpected path %q", r.URL.Path)
		}
		writeJSON(t, w, `{
			"holdings": [
				{
					"account_id": "acc-3",
					"security_id": "sec-1",
					"quantity": 10.5,
					"institution_price": 150.00,
					"institution_price_as_of": "2026-02-10",
					"institution_value": 1575.00,
					"cost_basis": 1200.00,
					"iso_currency_code": "USD"
				}
			],
			"securities": [
				{
					"security_id": "sec-1",
					"name": "Acme Corp",
					"ticker_symbol": "ACME",
					"type": "equity",
					"close_price": 150.00,
					"close_price_as_of": "2026-02-10",
					"is_cash_equivalent": false,
					"iso_currency_code": "USD"
				}
			]
		}`)
	}))

	snapshot, err := client.GetHoldings(context.Background(), "access-token")
	if err != nil {
		t.Fatalf("GetHoldings() failed: %v", err)
	}

	if len(snapshot.Holdings) != 1 || len(snapshot.Securities) != 1 {
		t.Fatalf("got %d holdings / %d securities, want 1/1", len(snapshot.Holdings), len(snapshot.Securities))
	}
	holding := snapshot.Holdings[0]
	if !holding.Quantity.Equal(decimal.NewFromFloat(10.5)) {
		t.Errorf("quantity = %v, want 10.5", holding.Quantity)
	}
	if holding.CostBasis == nil || !holding.CostBasis.Equal(decimal.NewFromInt(1200)) {
		t.Errorf("cost basis = %v, want 1200", holding.CostBasis)
	}
	security := snapshot.Securities[0]
	if security.TickerSymbol != "ACME" {
		t.Errorf("ticker = %q, want ACME", security.TickerSymbol)
	}
}

func TestDisconnect(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/item/remove" {
			t.Errorf("unexpected path %q", r.URL.Path)
		}
		writeJSON(t, w, `{"request_id":"req-1"}`)
	}))

	removed, err := client.Disconnect(context.Background(), "access-token")
	if err != nil {
		t.Fatalf("Disconnect() failed: %v", err)
	}
	if !removed {
		t.Error("expected removed to be true")
	}
}

func TestAPIError(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		writeJSON(t, w, `{"error_type":"ITEM_ERROR","error_code":"ITEM_LOGIN_REQUIRED","error_message":"the login details have changed"}`)
	}))

	_, err := client.GetAccounts(context.Background(), "access-token")
	if err == nil {
		t.Fatal("expected error, got nil")
	}

	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("error = %v, want *APIError", err)
	}
	if apiErr.ErrorCode != "ITEM_LOGIN_REQUIRED" {
		t.Errorf("error code = %q, want ITEM_LOGIN_REQUIRED", apiErr.ErrorCode)
	}
	if apiErr.StatusCode != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", apiErr.StatusCode)
	}
}

func TestSupportsInstitution(t *testing.T) {
	client := NewClient(Config{Environment: "sandbox"})

	if client.SupportsInstitution("ins_fidelity") {
		t.Error("expected ins_fidelity to be unsupported")
	}
	if !client.SupportsInstitution("ins_3") {
		t.Error("expected ins_3 to be supported")
	}
}

func TestNormalizeKind(t *testing.T) {
	cases := map[string]aggregator.AccountKind{
		"depository": aggregator.KindDepository,
		"credit":     aggregator.KindCredit,
		"loan":       aggregator.KindLoan,
		"investment": aggregator.KindInvestment,
		"brokerage":  aggregator.KindInvestment,
		"cryptic":    aggregator.KindOther,
	}
	for plaidType, want := range cases {
		if got := normalizeKind(plaidType); got != want {
			t.Errorf("normalizeKind(%q) = %q, want %q", plaidType, got, want)
		}
	}
}
