package aggregator

import (
	"context"
	"errors"
	"testing"
)

// stubProvider implements Provider for registry tests.
type stubProvider struct {
	providerType Type
}

func (s *stubProvider) Type() Type { return s.providerType }
func (s *stubProvider) CreateLinkSession(ctx context.Context, userID string, opts LinkOptions) (*LinkSession, error) {
	return nil, nil
}
func (s *stubProvider) ExchangePublicToken(ctx context.Context, publicToken string) (*ExchangeResult, error) {
	return nil, nil
}
func (s *stubProvider) GetAccounts(ctx context.Context, credential string) ([]AccountInfo, error) {
	return nil, nil
}
func (s *stubProvider) GetAccountsWithBalances(ctx context.Context, credential string) ([]AccountInfo, error) {
	return nil, nil
}
func (s *stubProvider) SyncTransactions(ctx context.Context, credential, cursor string) (*TransactionSyncPage, error) {
	return nil, nil
}
func (s *stubProvider) GetHoldings(ctx context.Context, credential string) (*HoldingsSnapshot, error) {
	return nil, nil
}
func (s *stubProvider) Disconnect(ctx context.Context, credential string) (bool, error) {
	return false, nil
}
func (s *stubProvider) SupportsInstitution(institutionID string) bool { return true }
func (s *stubProvider) GetInstitutionName(ctx context.Context, institutionID string) (string, error) {
	return "", nil
}

func newTestRegistry(t *testing.T) *Registry {
	t.Helper()
	return NewRegistry(TypePlaid, map[Type]Factory{
		TypePlaid: func() (Provider, error) {
			return &stubProvider{providerType: TypePlaid}, nil
		},
	})
}

func TestGetProvider_Backed(t *testing.T) {
	r := newTestRegistry(t)

	p, err := r.GetProvider(TypePlaid)
	if err != nil {
		t.Fatalf("GetProvider(plaid) failed: %v", err)
	}
	if p.Type() != TypePlaid {
		t.Errorf("provider type = %q, want %q", p.Type(), TypePlaid)
	}
}

func TestGetProvider_CachesInstance(t *testing.T) {
	constructed := 0
	r := NewRegistry(TypePlaid, map[Type]Factory{
		TypePlaid: func() (Provider, error) {
			constructed++
			return &stubProvider{providerType: TypePlaid}, nil
		},
	})

	first, err := r.GetProvider(TypePlaid)
	if err != nil {
		t.Fatalf("GetProvider() failed: %v", err)
	}
	second, err := r.GetProvider(TypePlaid)
	if err != nil {
		t.Fatalf("GetProvider() failed: %v", err)
	}

	if first != second {
		t.Error("GetProvider() returned different instances for the same type")
	}
	if constructed != 1 {
		t.Errorf("factory invoked %d times, want 1", constructed)
	}
}

func TestGetProvider_NotImplemented(t *testing.T) {
	r := newTestRegistry(t)

	for _, variant := range []Type{TypeFinicity, TypeYodlee, TypeMX, TypeAkoya} {
		_, err := r.GetProvider(variant)
		if err == nil {
			t.Errorf("GetProvider(%s) expected error, got nil", variant)
			continue
		}
		if !IsNotImplemented(err) {
			t.Errorf("GetProvider(%s) error = %v, want NotImplementedError", variant, err)
		}
	}
}

func TestGetProvider_UnknownType(t *testing.T) {
	r := newTestRegistry(t)

	_, err := r.GetProvider(Type("quickbooks"))
	if !errors.Is(err, ErrUnknownProvider) {
		t.Errorf("GetProvider() error = %v, want ErrUnknownProvider", err)
	}
}

func TestGetProviderForInstitution_FallsBackToDefault(t *testing.T) {
	r := newTestRegistry(t)

	// Fidelity routes to Finicity, which is unbacked; callers must still
	// get the default provider rather than an error.
	p, err := r.GetProviderForInstitution("Fidelity")
	if err != nil {
		t.Fatalf("GetProviderForInstitution() failed: %v", err)
	}
	if p.Type() != TypePlaid {
		t.Errorf("provider type = %q, want fallback to %q", p.Type(), TypePlaid)
	}
}

func TestGetProviderForInstitution_UsesOverrideWhenBacked(t *testing.T) {
	r := NewRegistry(TypePlaid, map[Type]Factory{
		TypePlaid: func() (Provider, error) {
			return &stubProvider{providerType: TypePlaid}, nil
		},
		TypeMX: func() (Provider, error) {
			return &stubProvider{providerType: TypeMX}, nil
		},
	})

	p, err := r.GetProviderForInstitution("USAA")
	if err != nil {
		t.Fatalf("GetProviderForInstitution() failed: %v", err)
	}
	if p.Type() != TypeMX {
		t.Errorf("provider type = %q, want %q", p.Type(), TypeMX)
	}
}

func TestGetProviderForInstitution_DefaultForUnlisted(t *testing.T) {
	r := newTestRegistry(t)

	p, err := r.GetProviderForInstitution("Chase")
	if err != nil {
		t.Fatalf("GetProviderForInstitution() failed: %v", err)
	}
	if p.Type() != TypePlaid {
		t.Errorf("provider type = %q, want %q", p.Type(), TypePlaid)
	}
}

func TestAvailableProviders(t *testing.T) {
	r := newTestRegistry(t)

	available := r.AvailableProviders()
	if len(available) != 1 || available[0] != TypePlaid {
		t.Errorf("AvailableProviders() = %v, want [plaid]", available)
	}
}
