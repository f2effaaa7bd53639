package writer

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/couchbase/gocb/v2"
	"go.uber.org/zap"

	"neon-market/internal/market"
)

const (
	cbTimeout = time.Second * 5
)

// Service is responsible for performing write operations on the
// marketplace.collections and marketplace.nfts keyspaces. We use a separate
// writer service to avoid commingling read/writes
type Service struct {
	bucket      string
	cluster     *gocb.Cluster
	collections *gocb.Collection
	nfts        *gocb.Collection
	logger      *zap.Logger
}

func NewService(logger *zap.Logger, cluster *gocb.Cluster, bucket string) (*Service, error) {
	s := Service{
		bucket:  bucket,
		cluster: cluster,
		logger:  logger,
	}

	if err := s.validate(); err != nil {
		return nil, err
	}

	if err := s.setCollections(); err != nil {
		return nil, fmt.Errorf("unable to set collections: %w", err)
	}

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
			dep: "cluster",
			chk: func() bool { return s.cluster != nil },
		},
		{
			dep: "bucket",
			chk: func() bool { return s.bucket != "" },
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

// CreateCollection inserts the collection record keyed by its address
func (s *Service) CreateCollection(record *market.Collection) error {
	if record == nil {
		const msg = "unable to create collection: record is nil"
		s.logger.Error(msg)
		return errors.New(msg)
	}

	logger := s.logger.With(zap.String("collectionAddress", record.Address))

	opts := gocb.InsertOptions{
		DurabilityLevel: gocb.DurabilityLevelNone,
		Timeout:         cbTimeout,
	}
	_, err := s.collections.Insert(record.Address, record, &opts)
	if err != nil {
		const msg = "unable to create collection record"
		logger.Error(msg, zap.Error(err))
		return fmt.Errorf(msg+": %w", err)
	}

	logger.Debug("successfully created collection record")

	return nil
}

// CreateNFT inserts the NFT record keyed by its address
func (s *Service) CreateNFT(record *market.NFT) error {
	if record == nil {
		const msg = "unable to create nft: record is nil"
		s.logger.Error(msg)
		return errors.New(msg)
	}

	logger := s.logger.With(zap.String("nftAddress", record.Address))

	opts := gocb.InsertOptions{
		DurabilityLevel: gocb.DurabilityLevelNone,
		Timeout:         cbTimeout,
	}
	_, err := s.nfts.Insert(record.Address, record, &opts)
	if err != nil {
		const msg = "unable to create nft record"
		logger.Error(msg, zap.Error(err))
		return fmt.Errorf(msg+": %w", err)
	}

	logger.Debug("successfully created nft record")

	return nil
}

type Update struct {
	Field string
	Value interface{}
}

// UpdateNFT updates specific fields of the NFT record keyed by address
func (s *Service) UpdateNFT(address string, updates ...Update) error {
	return s.updateFields(market.NFTsKeyspace, "nft_address", address, updates)
}

// UpdateCollectionByName updates specific fields of the collection record
// matched by display name. Name is the lookup key the UI uses, so the update
// is keyed the same way.
func (s *Service) UpdateCollectionByName(name string, updates ...Update) error {
	return s.updateFields(market.CollectionsKeyspace, "name", name, updates)
}

func (s *Service) updateFields(keyspace, keyField, keyValue string, updates []Update) error {
	if len(updates) == 0 {
		return nil
	}

	logger := s.logger.With(
		zap.String("keyspace", keyspace),
		zap.String(keyField, keyValue),
	)

	fqn := market.FullyQualifiedKeyspace(s.bucket, keyspace)
	stmt := "UPDATE " + fqn

	namedParams := make(map[string]interface{})

	np := namedParamField(updates[0].Field)
	stmt += " SET " + escapeField(updates[0].Field) + " = " + np
	namedParams[np] = updates[0].Value
	updates = updates[1:]

	for i := range updates {
		np := namedParamField(updates[i].Field)
		stmt += "," + escapeField(updates[i].Field) + " = " + np
		namedParams[np] = updates[i].Value
	}

	stmt += " WHERE " + escapeField(keyField) + " = $q_key LIMIT 1"
	namedParams["$q_key"] = keyValue

	logger.Debug(
		"query statement",
		zap.String("statement", stmt),
		zap.Any("params", namedParams),
	)
	opts := gocb.QueryOptions{
		Timeout:         cbTimeout,
		NamedParameters: namedParams,
		ScanConsistency: gocb.QueryScanConsistencyRequestPlus,
		Metrics:         true,
	}
	res, err := s.cluster.Query(stmt, &opts)
	if err != nil {
		const msg = "unable to update record"
		logger.Error(msg, zap.Error(err))
		return fmt.Errorf(msg+": %w", err)
	}

	meta, err := res.MetaData()
	if err == nil && meta.Metrics.MutationCount == 0 {
		return market.ErrNotFound
	}

	logger.Debug("successfully updated record")

	return nil
}

func (s *Service) setCollections() error {
	bucket := s.cluster.Bucket(s.bucket)
	if err := bucket.WaitUntilReady(cbTimeout, nil); err != nil {
		return fmt.Errorf("unable to wait for bucket to be ready: %w", err)
	}

	scope := bucket.Scope(market.CouchbaseScope)
	s.collections = scope.Collection(market.CollectionsKeyspace)
	s.nfts = scope.Collection(market.NFTsKeyspace)

	return nil
}

func escapeField(field string) string {
	return "`" + strings.Replace(field, ".", "`.`", -1) + "`"
}

func namedParamField(field string) string {
	return "$q_" + strings.Replace(field, ".", "_", -1)
}
