// Package memory provides an in-memory record store implementing the same
// reader/writer surface as the Couchbase services. It backs tests and local
// runs without a cluster.
package memory

import (
	"sort"
	"strings"
	"sync"

	"neon-market/internal/market"
	"neon-market/internal/market/reader"
	"neon-market/internal/market/writer"
)

// Store holds collections and NFTs in memory. ReadErr and WriteErr, when
// set, are returned by every read or write; tests use them to simulate
// remote-store failures.
type Store struct {
	mu          sync.Mutex
	collections []market.Collection
	nfts        []market.NFT

	ReadErr  error
	WriteErr error
}

func NewStore() *Store {
	return &Store{}
}

func (s *Store) Collections(cond reader.Condition) ([]market.Collection, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.ReadErr != nil {
		return nil, s.ReadErr
	}

	var records []market.Collection
	for i := range s.collections {
		if matchCollection(s.collections[i], cond.Wheres) {
			records = append(records, s.collections[i])
		}
	}

	if cond.OrderBy == "created_at" {
		desc := strings.EqualFold(cond.SortDirection, "DESC")
		sort.SliceStable(records, func(i, j int) bool {
			a, b := records[i].CreatedAt, records[j].CreatedAt
			if a == nil || b == nil {
				return false
			}
			if desc {
				return a.After(*b)
			}
			return a.Before(*b)
		})
	}

	if cond.Limit > 0 && len(records) > cond.Limit {
		records = records[:cond.Limit]
	}

	if len(records) == 0 {
		return nil, market.ErrNotFound
	}

	return records, nil
}

func (s *Store) NFTs(cond reader.Condition) ([]market.NFT, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.ReadErr != nil {
		return nil, s.ReadErr
	}

	var records []market.NFT
	for i := range s.nfts {
		if matchNFT(s.nfts[i], cond.Wheres) {
			records = append(records, s.nfts[i])
		}
	}

	if cond.OrderBy == "minted_at" {
		desc := strings.EqualFold(cond.SortDirection, "DESC")
		sort.SliceStable(records, func(i, j int) bool {
			a, b := records[i].MintedAt, records[j].MintedAt
			if a == nil || b == nil {
				return false
			}
			if desc {
				return a.After(*b)
			}
			return a.Before(*b)
		})
	}

	if cond.Limit > 0 && len(records) > cond.Limit {
		records = records[:cond.Limit]
	}

	if len(records) == 0 {
		return nil, market.ErrNotFound
	}

	return records, nil
}

func (s *Store) CreateCollection(record *market.Collection) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.WriteErr != nil {
		return s.WriteErr
	}

	s.collections = append(s.collections, *record)

	return nil
}

func (s *Store) CreateNFT(record *market.NFT) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.WriteErr != nil {
		return s.WriteErr
	}

	s.nfts = append(s.nfts, *record)

	return nil
}

func (s *Store) UpdateNFT(address string, updates ...writer.Update) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.WriteErr != nil {
		return s.WriteErr
	}

	for i := range s.nfts {
		if s.nfts[i].Address != address {
			continue
		}
		applyNFTUpdates(&s.nfts[i], updates)
		return nil
	}

	return market.ErrNotFound
}

func (s *Store) UpdateCollectionByName(name string, updates ...writer.Update) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.WriteErr != nil {
		return s.WriteErr
	}

	for i := range s.collections {
		if s.collections[i].Name != name {
			continue
		}
		applyCollectionUpdates(&s.collections[i], updates)
		return nil
	}

	return market.ErrNotFound
}

func matchCollection(record market.Collection, wheres []reader.Where) bool {
	for _, w := range wheres {
		switch w.Field {
		case "name":
			want, _ := w.Value.(string)
			if w.CaseInsensitive {
				if !strings.EqualFold(record.Name, want) {
					return false
				}
			} else if record.Name != want {
				return false
			}
		case "collection_address":
			want, _ := w.Value.(string)
			if record.Address != want {
				return false
			}
		default:
			return false
		}
	}

	return true
}

func matchNFT(record market.NFT, wheres []reader.Where) bool {
	for _, w := range wheres {
		switch w.Field {
		case "nft_address":
			want, _ := w.Value.(string)
			if record.Address != want {
				return false
			}
		case "collection_name":
			want, _ := w.Value.(string)
			if w.CaseInsensitive {
				if !strings.EqualFold(record.CollectionName, want) {
					return false
				}
			} else if record.CollectionName != want {
				return false
			}
		case "islisted":
			want, _ := w.Value.(bool)
			if record.IsListed != want {
				return false
			}
		default:
			return false
		}
	}

	return true
}

func applyNFTUpdates(record *market.NFT, updates []writer.Update) {
	for _, u := range updates {
		switch u.Field {
		case "islisted":
			v, _ := u.Value.(bool)
			record.IsListed = v
		case "price":
			v, _ := u.Value.(float64)
			record.Price = v
		case "owner_address":
			v, _ := u.Value.(string)
			record.OwnerAddress = v
		}
	}
}

func applyCollectionUpdates(record *market.Collection, updates []writer.Update) {
	str := func(v interface{}) string {
		s, _ := v.(string)
		return s
	}

	for _, u := range updates {
		switch u.Field {
		case "twitter_handle":
			record.TwitterHandle = str(u.Value)
		case "api_key":
			record.APIKey = str(u.Value)
		case "api_secret":
			record.APISecret = str(u.Value)
		case "access_token":
			record.AccessToken = str(u.Value)
		case "access_secret":
			record.AccessSecret = str(u.Value)
		case "image_url":
			record.ImageURL = str(u.Value)
		}
	}
}
