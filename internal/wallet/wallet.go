package wallet

import (
	"context"
	"errors"
	"sync"

	"go.uber.org/zap"
)

const (
	// InstallURL is where a user without the wallet extension is sent.
	// Absence of a provider redirects there instead of failing silently.
	InstallURL = "https://petra.app/"
)

var (
	// ErrProviderNotFound signals that no wallet extension is available;
	// the caller should direct the user to InstallURL
	ErrProviderNotFound = errors.New("wallet provider not found, install one at " + InstallURL)

	// ErrNotConnected signals that Account was read before Connect
	ErrNotConnected = errors.New("wallet is not connected")
)

// Account is the connected wallet account. Only the address is ever read.
type Account struct {
	Address string `json:"address"`
}

// Provider is the wallet extension surface: connect for an opaque session,
// then read the account address.
type Provider interface {
	Connect(ctx context.Context) error
	Account(ctx context.Context) (Account, error)
}

// StubProvider stands in for the browser extension. All blockchain
// interaction in this system is stubbed; connecting always succeeds and the
// account address is fixed at construction time.
type StubProvider struct {
	mu        sync.Mutex
	logger    *zap.Logger
	address   string
	connected bool
}

// NewStubProvider returns a provider answering with the given address.
func NewStubProvider(logger *zap.Logger, address string) (*StubProvider, error) {
	if logger == nil {
		return nil, errors.New("unable to initialize wallet provider due to the missing logger dependency")
	}
	if address == "" {
		return nil, errors.New("unable to initialize wallet provider due to the missing address")
	}

	return &StubProvider{
		logger:  logger,
		address: address,
	}, nil
}

func (p *StubProvider) Connect(_ context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.connected = true
	p.logger.Debug("wallet connected", zap.String("address", p.address))

	return nil
}

func (p *StubProvider) Account(_ context.Context) (Account, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if !p.connected {
		return Account{}, ErrNotConnected
	}

	return Account{Address: p.address}, nil
}

// Detect returns the provider when one is present, ErrProviderNotFound
// otherwise.
func Detect(p Provider) (Provider, error) {
	if p == nil {
		return nil, ErrProviderNotFound
	}

	return p, nil
}
