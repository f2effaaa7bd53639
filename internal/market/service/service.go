package service

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"neon-market/internal/market"
	"neon-market/internal/market/reader"
	"neon-market/internal/market/writer"
)

// Reader is the filtered-read capability the service needs from the record
// store. Satisfied by reader.Service and by in-memory fakes in tests.
type Reader interface {
	Collections(cond reader.Condition) ([]market.Collection, error)
	NFTs(cond reader.Condition) ([]market.NFT, error)
}

// Writer is the insert/update capability the service needs from the record
// store. Satisfied by writer.Service and by in-memory fakes in tests.
type Writer interface {
	CreateCollection(record *market.Collection) error
	CreateNFT(record *market.NFT) error
	UpdateNFT(address string, updates ...writer.Update) error
	UpdateCollectionByName(name string, updates ...writer.Update) error
}

// Publisher posts a mint announcement using a collection's credential
// bundle. Publishing is best effort and never fails the mint.
type Publisher interface {
	PublishMint(creds market.TwitterCredentials, nft market.NFT) error
}

type Service struct {
	logger    *zap.Logger
	reader    Reader
	writer    Writer
	publisher Publisher
}

// NewService returns an instantiated marketplace service. The publisher is
// optional; when nil, mints are never announced.
func NewService(logger *zap.Logger, r Reader, w Writer, p Publisher) (*Service, error) {
	s := Service{
		logger:    logger,
		reader:    r,
		writer:    w,
		publisher: p,
	}

	if err := s.validate(); err != nil {
		return nil, err
	}

	s.logger.Debug("successfully initialized marketplace service")

	return &s, nil
}

func (s *Service) validate() error {
	var missingDeps []string

	for _, tc := range []struct {
		dep string
		chk func() bool
	}{
		{
			dep: "logger",
			chk: func() bool { return s.logger != nil },
		},
		{
			dep: "reader",
			chk: func() bool { return s.reader != nil },
		},
		{
			dep: "writer",
			chk: func() bool { return s.writer != nil },
		},
	} {
		if !tc.chk() {
			missingDeps = append(missingDeps, tc.dep)
		}
	}

	if len(missingDeps) > 0 {
		return fmt.Errorf(
			"unable to initialize service due to (%d) missing dependencies: %s",
			len(missingDeps),
			strings.Join(missingDeps, ","),
		)
	}

	return nil
}

// ListCollections returns all collections, newest first.
func (s *Service) ListCollections() ([]market.Collection, error) {
	records, err := s.reader.Collections(reader.Condition{
		OrderBy:       "created_at",
		SortDirection: "DESC",
	})
	switch err {
	case nil:
		return records, nil
	case market.ErrNotFound:
		return nil, nil
	default:
		const msg = "unable to list collections"
		s.logger.Error(msg, zap.Error(err))
		return nil, fmt.Errorf(msg+": %w", err)
	}
}

// CollectionNFTs returns all NFTs minted into the named collection, newest
// first.
func (s *Service) CollectionNFTs(name string) ([]market.NFT, error) {
	records, err := s.reader.NFTs(reader.Condition{
		Wheres: []reader.Where{
			{
				Field:    "collection_name",
				Operator: "=",
				Value:    name,
			},
		},
		OrderBy:       "minted_at",
		SortDirection: "DESC",
	})
	switch err {
	case nil:
		return records, nil
	case market.ErrNotFound:
		return nil, nil
	default:
		const msg = "unable to list collection nfts"
		s.logger.Error(msg, zap.Error(err), zap.String("collectionName", name))
		return nil, fmt.Errorf(msg+": %w", err)
	}
}

// ListedNFTs returns every NFT still listed for sale, newest first. This is
// the discovery/catalog view.
func (s *Service) ListedNFTs() ([]market.NFT, error) {
	records, err := s.reader.NFTs(reader.Condition{
		Wheres: []reader.Where{
			{
				Field:    "islisted",
				Operator: "=",
				Value:    true,
			},
		},
		OrderBy:       "minted_at",
		SortDirection: "DESC",
	})
	switch err {
	case nil:
		return records, nil
	case market.ErrNotFound:
		return nil, nil
	default:
		const msg = "unable to list listed nfts"
		s.logger.Error(msg, zap.Error(err))
		return nil, fmt.Errorf(msg+": %w", err)
	}
}

// CreateCollectionInput carries the creation form fields. The twitter
// credential bundle is optional at creation time.
type CreateCollectionInput struct {
	Name         string
	Description  string
	OwnerAddress string
	ImageURL     string
	Twitter      market.TwitterCredentials
}

// CreateCollection creates a new collection with a generated address. Name
// uniqueness is not enforced; slug lookup uses first match wins.
func (s *Service) CreateCollection(in CreateCollectionInput) (*market.Collection, error) {
	if in.Name == "" || in.Description == "" {
		return nil, market.ErrMissingCollectionFields
	}

	owner := in.OwnerAddress
	if owner == "" {
		owner = market.DefaultOwnerAddress
	}

	now := time.Now().UTC()
	record := market.Collection{
		Address:       GenerateAddress(),
		Name:          in.Name,
		Description:   in.Description,
		OwnerAddress:  owner,
		ImageURL:      in.ImageURL,
		TwitterHandle: normalizeHandle(in.Twitter.Handle),
		APIKey:        in.Twitter.APIKey,
		APISecret:     in.Twitter.APISecret,
		AccessToken:   in.Twitter.AccessToken,
		AccessSecret:  in.Twitter.AccessSecret,
		CreatedAt:     &now,
	}

	logger := s.logger.With(zap.String("collectionAddress", record.Address))

	if err := s.writer.CreateCollection(&record); err != nil {
		const msg = "unable to create collection"
		logger.Error(msg, zap.Error(err))
		return nil, fmt.Errorf(msg+": %w", err)
	}

	logger.Debug("successfully created collection", zap.String("name", record.Name))

	return &record, nil
}

// MintInput carries the mint form fields. Price arrives as the raw form
// string and is parsed here.
type MintInput struct {
	Name        string
	Description string
	Price       string
	ImageURL    string
}

// Mint validates the input and creates a listed NFT in the named collection.
// Validation failures happen before any write. When the collection carries a
// complete twitter credential bundle, the mint is announced best effort.
func (s *Service) Mint(collectionName string, in MintInput) (*market.NFT, error) {
	if in.Name == "" || in.Description == "" || in.Price == "" {
		return nil, market.ErrMissingFields
	}

	price, err := strconv.ParseFloat(in.Price, 64)
	if err != nil || math.IsNaN(price) || math.IsInf(price, 0) || price < 0 {
		return nil, market.ErrInvalidPrice
	}

	imageURL := in.ImageURL
	if imageURL == "" {
		imageURL = market.DefaultNFTImageURL
	}

	now := time.Now().UTC()
	record := market.NFT{
		Address:        GenerateAddress(),
		CollectionName: collectionName,
		Name:           in.Name,
		Description:    in.Description,
		Price:          price,
		ImageURL:       imageURL,
		IsListed:       true,
		OwnerAddress:   market.DefaultOwnerAddress,
		MintedAt:       &now,
	}

	logger := s.logger.With(zap.String("nftAddress", record.Address))

	if err := s.writer.CreateNFT(&record); err != nil {
		const msg = "unable to mint nft"
		logger.Error(msg, zap.Error(err))
		return nil, fmt.Errorf(msg+": %w", err)
	}

	logger.Debug(
		"successfully minted nft",
		zap.String("name", record.Name),
		zap.Float64("price", record.Price),
	)

	s.announceMint(logger, record)

	return &record, nil
}

// Purchase flips the NFT's listed flag. Ownership is deliberately not
// transferred; only the flag changes.
func (s *Service) Purchase(address string) (*market.NFT, error) {
	logger := s.logger.With(zap.String("nftAddress", address))

	records, err := s.reader.NFTs(reader.Condition{
		Wheres: []reader.Where{
			{
				Field:    "nft_address",
				Operator: "=",
				Value:    address,
			},
		},
		Limit: 1,
	})
	switch err {
	case nil:
	case market.ErrNotFound:
		return nil, market.ErrNotFound
	default:
		const msg = "unable to get nft"
		logger.Error(msg, zap.Error(err))
		return nil, fmt.Errorf(msg+": %w", err)
	}

	nft := records[0]
	if !nft.IsListed {
		return nil, market.ErrNotListed
	}

	if err := s.writer.UpdateNFT(address, writer.Update{
		Field: "islisted",
		Value: false,
	}); err != nil {
		const msg = "unable to complete purchase"
		logger.Error(msg, zap.Error(err))
		return nil, fmt.Errorf(msg+": %w", err)
	}

	nft.IsListed = false

	logger.Debug("successfully purchased nft", zap.String("name", nft.Name))

	return &nft, nil
}

// ConfigureTwitter upserts the credential bundle onto the collection matched
// by name. Only the handle is required; empty optional fields are stored as
// null.
func (s *Service) ConfigureTwitter(collectionName string, creds market.TwitterCredentials) error {
	if creds.Handle == "" {
		return market.ErrMissingHandle
	}

	logger := s.logger.With(zap.String("collectionName", collectionName))

	updates := []writer.Update{
		{Field: "twitter_handle", Value: normalizeHandle(creds.Handle)},
		{Field: "api_key", Value: nullable(creds.APIKey)},
		{Field: "api_secret", Value: nullable(creds.APISecret)},
		{Field: "access_token", Value: nullable(creds.AccessToken)},
		{Field: "access_secret", Value: nullable(creds.AccessSecret)},
	}
	if err := s.writer.UpdateCollectionByName(collectionName, updates...); err != nil {
		if err == market.ErrNotFound {
			return market.ErrNotFound
		}
		const msg = "unable to update twitter configuration"
		logger.Error(msg, zap.Error(err))
		return fmt.Errorf(msg+": %w", err)
	}

	logger.Debug("successfully updated twitter configuration")

	return nil
}

func (s *Service) announceMint(logger *zap.Logger, nft market.NFT) {
	if s.publisher == nil {
		return
	}

	records, err := s.reader.Collections(reader.Condition{
		Wheres: []reader.Where{
			{
				Field:    "name",
				Operator: "=",
				Value:    nft.CollectionName,
			},
		},
		Limit: 1,
	})
	if err != nil {
		logger.Debug("no collection found for mint announcement", zap.Error(err))
		return
	}

	collection := records[0]
	if !collection.HasTwitterCredentials() {
		return
	}

	creds := market.TwitterCredentials{
		Handle:       collection.TwitterHandle,
		APIKey:       collection.APIKey,
		APISecret:    collection.APISecret,
		AccessToken:  collection.AccessToken,
		AccessSecret: collection.AccessSecret,
	}
	if err := s.publisher.PublishMint(creds, nft); err != nil {
		logger.Error("unable to announce mint", zap.Error(err))
	}
}

// GenerateAddress returns a fresh stub chain address. No real blockchain
// interaction happens anywhere; addresses are random.
func GenerateAddress() string {
	return "0x" + strings.Replace(uuid.NewString(), "-", "", -1)
}

func normalizeHandle(handle string) string {
	if handle == "" {
		return ""
	}
	return "@" + strings.TrimPrefix(handle, "@")
}

func nullable(v string) interface{} {
	if v == "" {
		return nil
	}
	return v
}
