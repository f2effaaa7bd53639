package store

import (
	"fmt"
	"strings"
	"sync"

	"go.uber.org/zap"

	"neon-market/internal/market"
	"neon-market/internal/notify"
)

// Loader is the read side the projection refreshes from. Satisfied by
// service.Service.
type Loader interface {
	ListCollections() ([]market.Collection, error)
	CollectionNFTs(name string) ([]market.NFT, error)
	ListedNFTs() ([]market.NFT, error)
}

// View names which NFT projection is active. Purchase patches differ per
// view: a listed view drops the record, a collection view flips its flag.
type View string

const (
	// ListedView holds only NFTs still for sale (the discovery catalog)
	ListedView View = "listed"

	// CollectionView holds every NFT of one collection, sold or not
	CollectionView View = "collection"
)

// Projection owns the in-memory view of collections and NFTs for a single
// page instance and keeps it synchronized with the record store: refetch on
// load, patch in place after a purchase. Two live projections can diverge
// until one reloads; that staleness window is accepted.
type Projection struct {
	mu     sync.Mutex
	logger *zap.Logger
	loader Loader
	notify notify.Notifier

	collections    []market.Collection
	nfts           []market.NFT
	view           View
	collectionName string
}

func NewProjection(logger *zap.Logger, loader Loader, notifier notify.Notifier) (*Projection, error) {
	p := Projection{
		logger: logger,
		loader: loader,
		notify: notifier,
	}

	if err := p.validate(); err != nil {
		return nil, err
	}

	return &p, nil
}

func (p *Projection) validate() error {
	var missingDeps []string

	for _, tc := range []struct {
		dep string
		chk func() bool
	}{
		{
			dep: "logger",
			chk: func() bool { return p.logger != nil },
		},
		{
			dep: "loader",
			chk: func() bool { return p.loader != nil },
		},
		{
			dep: "notifier",
			chk: func() bool { return p.notify != nil },
		},
	} {
		if !tc.chk() {
			missingDeps = append(missingDeps, tc.dep)
		}
	}

	if len(missingDeps) > 0 {
		return fmt.Errorf(
			"unable to initialize projection due to (%d) missing dependencies: %s",
			len(missingDeps),
			strings.Join(missingDeps, ","),
		)
	}

	return nil
}

// LoadCollections refetches all collections, newest first. On failure the
// collection projection is left empty, never partially populated. Safe to
// call repeatedly.
func (p *Projection) LoadCollections() error {
	records, err := p.loader.ListCollections()
	if err != nil {
		p.notify.Error("Failed to load collections", err.Error())
		p.mu.Lock()
		p.collections = nil
		p.mu.Unlock()
		return err
	}

	p.mu.Lock()
	p.collections = records
	p.mu.Unlock()

	return nil
}

// LoadNFTs refetches every NFT of the named collection, newest first, and
// switches the projection to the collection view.
func (p *Projection) LoadNFTs(collectionName string) error {
	records, err := p.loader.CollectionNFTs(collectionName)
	if err != nil {
		p.notify.Error("Failed to load NFTs", err.Error())
		p.mu.Lock()
		p.nfts = nil
		p.view = CollectionView
		p.collectionName = collectionName
		p.mu.Unlock()
		return err
	}

	p.mu.Lock()
	p.nfts = records
	p.view = CollectionView
	p.collectionName = collectionName
	p.mu.Unlock()

	return nil
}

// LoadListed refetches the listed-NFT catalog, newest first, and switches
// the projection to the listed view.
func (p *Projection) LoadListed() error {
	records, err := p.loader.ListedNFTs()
	if err != nil {
		p.notify.Error("Failed to load NFTs", err.Error())
		p.mu.Lock()
		p.nfts = nil
		p.view = ListedView
		p.collectionName = ""
		p.mu.Unlock()
		return err
	}

	p.mu.Lock()
	p.nfts = records
	p.view = ListedView
	p.collectionName = ""
	p.mu.Unlock()

	return nil
}

// Refresh re-runs whichever NFT load populated the projection last. Callers
// refresh after a mint instead of discarding the whole page state.
func (p *Projection) Refresh() error {
	p.mu.Lock()
	view, name := p.view, p.collectionName
	p.mu.Unlock()

	switch view {
	case CollectionView:
		return p.LoadNFTs(name)
	case ListedView:
		return p.LoadListed()
	default:
		return nil
	}
}

// ApplyPurchase patches the projection in place after a successful purchase
// keyed by NFT address: the listed view drops the record, the collection
// view flips its flag.
func (p *Projection) ApplyPurchase(address string) {
	p.mu.Lock()
	defer p.mu.Unlock()

	switch p.view {
	case ListedView:
		kept := p.nfts[:0]
		for i := range p.nfts {
			if p.nfts[i].Address != address {
				kept = append(kept, p.nfts[i])
			}
		}
		p.nfts = kept
	case CollectionView:
		for i := range p.nfts {
			if p.nfts[i].Address == address {
				p.nfts[i].IsListed = false
			}
		}
	}
}

// Collections returns a copy of the current collection projection.
func (p *Projection) Collections() []market.Collection {
	p.mu.Lock()
	defer p.mu.Unlock()

	out := make([]market.Collection, len(p.collections))
	copy(out, p.collections)

	return out
}

// NFTs returns a copy of the current NFT projection.
func (p *Projection) NFTs() []market.NFT {
	p.mu.Lock()
	defer p.mu.Unlock()

	out := make([]market.NFT, len(p.nfts))
	copy(out, p.nfts)

	return out
}

// ActiveView returns the currently active NFT view.
func (p *Projection) ActiveView() View {
	p.mu.Lock()
	defer p.mu.Unlock()

	return p.view
}
