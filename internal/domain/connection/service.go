package connection

import (
	"context"
	"fmt"
	"log"

	"github.com/google/uuid"

	"nestegg/internal/aggregator"
)

// ProviderResolver resolves aggregator providers. Implemented by
// aggregator.Registry.
type ProviderResolver interface {
	GetProvider(t aggregator.Type) (aggregator.Provider, error)
	GetDefaultProvider() (aggregator.Provider, error)
	GetProviderForInstitution(institutionName string) (aggregator.Provider, error)
}

// Encryptor is the credential vault boundary. Implemented by the AES-GCM
// encryptor in the infrastructure layer.
type Encryptor interface {
	Encrypt(plaintext string) (string, error)
	Decrypt(ciphertext string) (string, error)
}

// TransactionPurger removes transactions owned by a connected account.
type TransactionPurger interface {
	DeleteByConnectedAccount(ctx context.Context, connectedAccountID string) (int64, error)
}

// HoldingPurger removes holdings owned by a connected account.
type HoldingPurger interface {
	DeleteByConnectedAccount(ctx context.Context, connectedAccountID string) (int64, error)
}

// NetWorthUnlinker detaches synced assets and liabilities from a connected
// account without deleting them; the entries survive as manual ones.
type NetWorthUnlinker interface {
	UnlinkConnectedAccount(ctx context.Context, connectedAccountID string) error
}

// Service contains the business logic for the connection lifecycle:
// linking, token exchange and disconnect.
type Service struct {
	repo         Repository
	providers    ProviderResolver
	vault        Encryptor
	transactions TransactionPurger
	holdings     HoldingPurger
	networth     NetWorthUnlinker
}

// NewService creates a new connection service
func NewService(repo Repository, providers ProviderResolver, vault Encryptor,
	transactions TransactionPurger, holdings HoldingPurger, networth NetWorthUnlinker) *Service {
	return &Service{
		repo:         repo,
		providers:    providers,
		vault:        vault,
		transactions: transactions,
		holdings:     holdings,
		networth:     networth,
	}
}

// CreateLinkSession starts a link flow for the user, routed to the provider
// that serves the institution (or the default when none is named).
func (s *Service) CreateLinkSession(ctx context.Context, userID, institutionName string) (*aggregator.LinkSession, error) {
	if userID == "" {
		return nil, ErrInvalidInput
	}

	var provider aggregator.Provider
	var err error
	if institutionName != "" {
		provider, err = s.providers.GetProviderForInstitution(institutionName)
	} else {
		provider, err = s.providers.GetDefaultProvider()
	}
	if err != nil {
		return nil, fmt.Errorf("failed to resolve provider: %w", err)
	}

	return provider.CreateLinkSession(ctx, userID, aggregator.LinkOptions{})
}

// ExchangeToken trades a public token for a permanent credential, encrypts
// it, and creates one connected account per account discovered under the
// new connection.
func (s *Service) ExchangeToken(ctx context.Context, userID, publicToken string, providerType aggregator.Type) ([]*ConnectedAccount, error) {
	if userID == "" || publicToken == "" {
		return nil, ErrInvalidInput
	}

	provider, err := s.providers.GetProvider(providerType)
	if err != nil {
		return nil, err
	}

	result, err := provider.ExchangePublicToken(ctx, publicToken)
	if err != nil {
		return nil, fmt.Errorf("failed to exchange token: %w", err)
	}

	encrypted, err := s.vault.Encrypt(result.Credential)
	if err != nil {
		return nil, fmt.Errorf("failed to encrypt credential: %w", err)
	}

	accounts := make([]*ConnectedAccount, 0, len(result.Accounts))
	for _, info := range result.Accounts {
		account, err := s.repo.Upsert(ctx, UpsertParams{
			ID:                   uuid.NewString(),
			UserID:               userID,
			Provider:             result.Provider,
			ProviderConnectionID: result.ConnectionID,
			EncryptedCredential:  encrypted,
			ProviderAccountID:    info.ProviderAccountID,
			InstitutionID:        info.InstitutionID,
			InstitutionName:      info.InstitutionName,
			AccountName:          info.Name,
			Kind:                 info.Kind,
			Subtype:              info.Subtype,
			Mask:                 info.Mask,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to store connected account: %w", err)
		}
		accounts = append(accounts, account)
	}

	log.Printf("Linked %d accounts for user %s via %s (%s)",
		len(accounts), userID, result.Provider, result.InstitutionName)
	return accounts, nil
}

// Disconnect removes the connection at the provider (best effort),
// deactivates every account sharing the connection, unlinks synced net
// worth entries and deletes the accounts' transactions and holdings.
func (s *Service) Disconnect(ctx context.Context, userID, connectedAccountID string) error {
	account, err := s.repo.GetByID(ctx, connectedAccountID)
	if err != nil {
		return err
	}
	if account == nil {
		return ErrConnectionNotFound
	}
	if account.UserID != userID {
		return ErrForbidden
	}

	// Best effort: a provider-side failure must not leave the connection
	// half-alive locally.
	if provider, err := s.providers.GetProvider(account.Provider); err == nil {
		credential, err := s.vault.Decrypt(account.EncryptedCredential)
		if err == nil {
			if _, err := provider.Disconnect(ctx, credential); err != nil {
				log.Printf("Provider disconnect failed for account %s: %v", account.ID, err)
			}
		} else {
			log.Printf("Failed to decrypt credential for account %s: %v", account.ID, err)
		}
	}

	siblings, err := s.repo.ListByConnectionID(ctx, account.ProviderConnectionID)
	if err != nil {
		return fmt.Errorf("failed to list connection accounts: %w", err)
	}

	for _, sibling := range siblings {
		if err := s.networth.UnlinkConnectedAccount(ctx, sibling.ID); err != nil {
			return fmt.Errorf("failed to unlink net worth entries: %w", err)
		}
		if _, err := s.transactions.DeleteByConnectedAccount(ctx, sibling.ID); err != nil {
			return fmt.Errorf("failed to delete transactions: %w", err)
		}
		if _, err := s.holdings.DeleteByConnectedAccount(ctx, sibling.ID); err != nil {
			return fmt.Errorf("failed to delete holdings: %w", err)
		}
		if err := s.repo.Deactivate(ctx, sibling.ID); err != nil {
			return fmt.Errorf("failed to deactivate account: %w", err)
		}
	}

	log.Printf("Disconnected %d accounts for connection %s", len(siblings), account.ProviderConnectionID)
	return nil
}

// ListAccounts returns the user's active connected accounts.
func (s *Service) ListAccounts(ctx context.Context, userID string) ([]*ConnectedAccount, error) {
	if userID == "" {
		return nil, ErrInvalidInput
	}
	return s.repo.ListActiveByUserID(ctx, userID)
}
