package service

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"neon-market/internal/market"
	"neon-market/internal/market/memory"
	"neon-market/internal/market/reader"
)

func listAllCollections() reader.Condition { return reader.Condition{} }

func listAllNFTs() reader.Condition { return reader.Condition{} }

type fakePublisher struct {
	calls []market.NFT
	creds []market.TwitterCredentials
	err   error
}

func (f *fakePublisher) PublishMint(creds market.TwitterCredentials, nft market.NFT) error {
	f.creds = append(f.creds, creds)
	f.calls = append(f.calls, nft)
	return f.err
}

func newTestService(t *testing.T, store *memory.Store, pub Publisher) *Service {
	t.Helper()

	svc, err := NewService(zap.NewNop(), store, store, pub)
	require.NoError(t, err)

	return svc
}

func Test_Service_CreateCollection(t *testing.T) {
	for _, tc := range []struct {
		desc     string
		in       CreateCollectionInput
		writeErr error
		chk      func(t *testing.T, store *memory.Store, record *market.Collection, err error)
	}{
		{
			desc: "Happy path",
			in: CreateCollectionInput{
				Name:         "Cyber Punks",
				Description:  "A collection of unique cyberpunk characters",
				OwnerAddress: "0xabc",
			},
			chk: func(t *testing.T, store *memory.Store, record *market.Collection, err error) {
				require.NoError(t, err)
				require.NotNil(t, record)
				assert.True(t, strings.HasPrefix(record.Address, "0x"))
				assert.Equal(t, "Cyber Punks", record.Name)
				assert.Equal(t, "0xabc", record.OwnerAddress)
				assert.NotNil(t, record.CreatedAt)
			},
		},
		{
			desc: "Defaults owner address when empty",
			in: CreateCollectionInput{
				Name:        "Cyber Punks",
				Description: "desc",
			},
			chk: func(t *testing.T, store *memory.Store, record *market.Collection, err error) {
				require.NoError(t, err)
				assert.Equal(t, market.DefaultOwnerAddress, record.OwnerAddress)
			},
		},
		{
			desc: "Normalizes twitter handle",
			in: CreateCollectionInput{
				Name:        "Cyber Punks",
				Description: "desc",
				Twitter:     market.TwitterCredentials{Handle: "cyberpunks"},
			},
			chk: func(t *testing.T, store *memory.Store, record *market.Collection, err error) {
				require.NoError(t, err)
				assert.Equal(t, "@cyberpunks", record.TwitterHandle)
			},
		},
		{
			desc: "Missing name fails without a write",
			in: CreateCollectionInput{
				Description: "desc",
			},
			chk: func(t *testing.T, store *memory.Store, record *market.Collection, err error) {
				require.ErrorIs(t, err, market.ErrMissingCollectionFields)
				assert.Nil(t, record)

				_, err = store.Collections(listAllCollections())
				assert.ErrorIs(t, err, market.ErrNotFound)
			},
		},
		{
			desc: "Store failure reported verbatim",
			in: CreateCollectionInput{
				Name:        "Cyber Punks",
				Description: "desc",
			},
			writeErr: errors.New("bucket unavailable"),
			chk: func(t *testing.T, store *memory.Store, record *market.Collection, err error) {
				require.Error(t, err)
				assert.Contains(t, err.Error(), "bucket unavailable")
				assert.Nil(t, record)
			},
		},
	} {
		t.Run(tc.desc, func(t *testing.T) {
			store := memory.NewStore()
			store.WriteErr = tc.writeErr
			svc := newTestService(t, store, nil)

			record, err := svc.CreateCollection(tc.in)
			tc.chk(t, store, record, err)
		})
	}
}

func Test_Service_Mint_Validation(t *testing.T) {
	for _, tc := range []struct {
		desc string
		in   MintInput
		want error
	}{
		{
			desc: "Missing name",
			in:   MintInput{Description: "x", Price: "1"},
			want: market.ErrMissingFields,
		},
		{
			desc: "Missing description",
			in:   MintInput{Name: "X", Price: "1"},
			want: market.ErrMissingFields,
		},
		{
			desc: "Missing price",
			in:   MintInput{Name: "X", Description: "Y"},
			want: market.ErrMissingFields,
		},
		{
			desc: "Negative price",
			in:   MintInput{Name: "X", Description: "Y", Price: "-1"},
			want: market.ErrInvalidPrice,
		},
		{
			desc: "Unparseable price",
			in:   MintInput{Name: "X", Description: "Y", Price: "cheap"},
			want: market.ErrInvalidPrice,
		},
		{
			desc: "NaN price",
			in:   MintInput{Name: "X", Description: "Y", Price: "NaN"},
			want: market.ErrInvalidPrice,
		},
	} {
		t.Run(tc.desc, func(t *testing.T) {
			store := memory.NewStore()
			svc := newTestService(t, store, nil)

			record, err := svc.Mint("Cyber Punks", tc.in)
			require.ErrorIs(t, err, tc.want)
			assert.Nil(t, record)

			// validation failures never reach the store
			_, err = store.NFTs(listAllNFTs())
			assert.ErrorIs(t, err, market.ErrNotFound)
		})
	}
}

func Test_Service_Mint(t *testing.T) {
	store := memory.NewStore()
	svc := newTestService(t, store, nil)

	record, err := svc.Mint("Cyber Punks", MintInput{
		Name:        "Punk #1",
		Description: "A unique cyberpunk character",
		Price:       "1.5",
	})
	require.NoError(t, err)
	require.NotNil(t, record)

	assert.True(t, strings.HasPrefix(record.Address, "0x"))
	assert.Len(t, record.Address, 34)
	assert.Equal(t, "Cyber Punks", record.CollectionName)
	assert.Equal(t, 1.5, record.Price)
	assert.True(t, record.IsListed)
	assert.Equal(t, market.DefaultNFTImageURL, record.ImageURL)
	assert.Equal(t, market.DefaultOwnerAddress, record.OwnerAddress)
	require.NotNil(t, record.MintedAt)

	nfts, err := svc.CollectionNFTs("Cyber Punks")
	require.NoError(t, err)
	require.Len(t, nfts, 1)
	assert.Equal(t, "Punk #1", nfts[0].Name)
	assert.True(t, nfts[0].IsListed)
}

func Test_Service_Mint_AutoPost(t *testing.T) {
	withCreds := market.Collection{
		Address:       "0xcol1",
		Name:          "Cyber Punks",
		TwitterHandle: "@cyberpunks",
		APIKey:        "k",
		APISecret:     "s",
		AccessToken:   "t",
		AccessSecret:  "ts",
	}
	withoutCreds := market.Collection{
		Address:       "0xcol2",
		Name:          "Quiet Apes",
		TwitterHandle: "@quietapes",
	}

	for _, tc := range []struct {
		desc       string
		collection market.Collection
		pubErr     error
		chk        func(t *testing.T, pub *fakePublisher, record *market.NFT, err error)
	}{
		{
			desc:       "Publishes when credentials are complete",
			collection: withCreds,
			chk: func(t *testing.T, pub *fakePublisher, record *market.NFT, err error) {
				require.NoError(t, err)
				require.Len(t, pub.calls, 1)
				assert.Equal(t, record.Address, pub.calls[0].Address)
				assert.Equal(t, "@cyberpunks", pub.creds[0].Handle)
			},
		},
		{
			desc:       "Skips publishing without a full bundle",
			collection: withoutCreds,
			chk: func(t *testing.T, pub *fakePublisher, record *market.NFT, err error) {
				require.NoError(t, err)
				assert.Empty(t, pub.calls)
			},
		},
		{
			desc:       "Publish failure does not fail the mint",
			collection: withCreds,
			pubErr:     errors.New("twitter down"),
			chk: func(t *testing.T, pub *fakePublisher, record *market.NFT, err error) {
				require.NoError(t, err)
				require.NotNil(t, record)
				assert.Len(t, pub.calls, 1)
			},
		},
	} {
		t.Run(tc.desc, func(t *testing.T) {
			store := memory.NewStore()
			collection := tc.collection
			require.NoError(t, store.CreateCollection(&collection))

			pub := &fakePublisher{err: tc.pubErr}
			svc := newTestService(t, store, pub)

			record, err := svc.Mint(collection.Name, MintInput{
				Name:        "Punk #1",
				Description: "desc",
				Price:       "2",
			})
			tc.chk(t, pub, record, err)
		})
	}
}

func Test_Service_Purchase(t *testing.T) {
	seed := func(store *memory.Store) {
		now := time.Now().UTC()
		for _, nft := range []market.NFT{
			{Address: "0xa", CollectionName: "Cyber Punks", Name: "A", Price: 2.0, IsListed: true, MintedAt: &now},
			{Address: "0xb", CollectionName: "Cyber Punks", Name: "B", Price: 1.0, IsListed: false, MintedAt: &now},
		} {
			nft := nft
			require.NoError(t, store.CreateNFT(&nft))
		}
	}

	for _, tc := range []struct {
		desc    string
		address string
		chk     func(t *testing.T, svc *Service, record *market.NFT, err error)
	}{
		{
			desc:    "Happy path - flag flips, catalog excludes the nft",
			address: "0xa",
			chk: func(t *testing.T, svc *Service, record *market.NFT, err error) {
				require.NoError(t, err)
				require.NotNil(t, record)
				assert.False(t, record.IsListed)
				// ownership does not transfer on purchase
				assert.Empty(t, record.OwnerAddress)

				listed, err := svc.ListedNFTs()
				require.NoError(t, err)
				for i := range listed {
					assert.NotEqual(t, "0xa", listed[i].Address)
				}
			},
		},
		{
			desc:    "Already sold",
			address: "0xb",
			chk: func(t *testing.T, svc *Service, record *market.NFT, err error) {
				require.ErrorIs(t, err, market.ErrNotListed)
				assert.Nil(t, record)
			},
		},
		{
			desc:    "Unknown address",
			address: "0xmissing",
			chk: func(t *testing.T, svc *Service, record *market.NFT, err error) {
				require.ErrorIs(t, err, market.ErrNotFound)
				assert.Nil(t, record)
			},
		},
	} {
		t.Run(tc.desc, func(t *testing.T) {
			store := memory.NewStore()
			seed(store)
			svc := newTestService(t, store, nil)

			record, err := svc.Purchase(tc.address)
			tc.chk(t, svc, record, err)
		})
	}
}

func Test_Service_ListedNFTs(t *testing.T) {
	store := memory.NewStore()
	svc := newTestService(t, store, nil)

	earlier := time.Now().UTC().Add(-time.Hour)
	later := time.Now().UTC()
	for _, nft := range []market.NFT{
		{Address: "0xa", Name: "A", Price: 2.0, IsListed: true, MintedAt: &earlier},
		{Address: "0xb", Name: "B", Price: 1.0, IsListed: false, MintedAt: &earlier},
		{Address: "0xc", Name: "C", Price: 3.0, IsListed: true, MintedAt: &later},
	} {
		nft := nft
		require.NoError(t, store.CreateNFT(&nft))
	}

	listed, err := svc.ListedNFTs()
	require.NoError(t, err)
	require.Len(t, listed, 2)

	// newest first, sold records excluded
	assert.Equal(t, "C", listed[0].Name)
	assert.Equal(t, "A", listed[1].Name)
}

func Test_Service_ListCollections_Idempotent(t *testing.T) {
	store := memory.NewStore()
	svc := newTestService(t, store, nil)

	earlier := time.Now().UTC().Add(-time.Hour)
	later := time.Now().UTC()
	for _, c := range []market.Collection{
		{Address: "0x1", Name: "First", CreatedAt: &earlier},
		{Address: "0x2", Name: "Second", CreatedAt: &later},
	} {
		c := c
		require.NoError(t, store.CreateCollection(&c))
	}

	first, err := svc.ListCollections()
	require.NoError(t, err)
	second, err := svc.ListCollections()
	require.NoError(t, err)

	assert.Equal(t, first, second)
	require.Len(t, first, 2)
	assert.Equal(t, "Second", first[0].Name)
}

func Test_Service_ConfigureTwitter(t *testing.T) {
	for _, tc := range []struct {
		desc  string
		name  string
		creds market.TwitterCredentials
		chk   func(t *testing.T, store *memory.Store, err error)
	}{
		{
			desc: "Happy path - handle normalized, optionals cleared",
			name: "Cyber Punks",
			creds: market.TwitterCredentials{
				Handle: "cyberpunks",
				APIKey: "key",
			},
			chk: func(t *testing.T, store *memory.Store, err error) {
				require.NoError(t, err)

				records, err := store.Collections(listAllCollections())
				require.NoError(t, err)
				require.Len(t, records, 1)
				assert.Equal(t, "@cyberpunks", records[0].TwitterHandle)
				assert.Equal(t, "key", records[0].APIKey)
				assert.Empty(t, records[0].APISecret)
			},
		},
		{
			desc:  "Missing handle",
			name:  "Cyber Punks",
			creds: market.TwitterCredentials{APIKey: "key"},
			chk: func(t *testing.T, store *memory.Store, err error) {
				require.ErrorIs(t, err, market.ErrMissingHandle)
			},
		},
		{
			desc:  "Unknown collection",
			name:  "Missing",
			creds: market.TwitterCredentials{Handle: "x"},
			chk: func(t *testing.T, store *memory.Store, err error) {
				require.ErrorIs(t, err, market.ErrNotFound)
			},
		},
	} {
		t.Run(tc.desc, func(t *testing.T) {
			store := memory.NewStore()
			collection := market.Collection{Address: "0x1", Name: "Cyber Punks", APISecret: "old"}
			require.NoError(t, store.CreateCollection(&collection))
			svc := newTestService(t, store, nil)

			err := svc.ConfigureTwitter(tc.name, tc.creds)
			tc.chk(t, store, err)
		})
	}
}

func Test_Scenario_CreateMintLoad(t *testing.T) {
	store := memory.NewStore()
	svc := newTestService(t, store, nil)

	collection, err := svc.CreateCollection(CreateCollectionInput{
		Name:        "Cyber Punks",
		Description: "A collection of unique cyberpunk characters",
	})
	require.NoError(t, err)

	_, err = svc.Mint(collection.Name, MintInput{
		Name:        "Punk #1",
		Description: "A unique cyberpunk character",
		Price:       "1.5",
	})
	require.NoError(t, err)

	nfts, err := svc.CollectionNFTs("Cyber Punks")
	require.NoError(t, err)
	require.Len(t, nfts, 1)
	assert.Equal(t, "Punk #1", nfts[0].Name)
	assert.Equal(t, 1.5, nfts[0].Price)
	assert.True(t, nfts[0].IsListed)
}
