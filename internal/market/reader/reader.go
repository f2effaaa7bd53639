package reader

import (
	"fmt"
	"strings"
	"time"

	"github.com/couchbase/gocb/v2"
	"go.uber.org/zap"

	"neon-market/internal/market"
)

const (
	cbTimeout = time.Second * 3
)

// Service is responsible for performing read operations on the
// marketplace.collections and marketplace.nfts keyspaces. We use a separate
// reader service to avoid commingling read/writes
type Service struct {
	bucket  string
	cluster *gocb.Cluster
	logger  *zap.Logger
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

// Condition configures a filtered read: zero or more where clauses, an
// optional order by field with sort direction, and an optional limit.
type Condition struct {
	Wheres        []Where
	OrderBy       string
	SortDirection string
	Limit         int
}

// Where is a single filter predicate. CaseInsensitive folds both sides of
// the comparison, matching the ilike lookups the slug resolution depends on.
type Where struct {
	Field           string
	Operator        string
	Value           interface{}
	CaseInsensitive bool
}

// Collections returns the collection records matching the given condition.
func (s *Service) Collections(cond Condition) ([]market.Collection, error) {
	rows, err := s.query(market.CollectionsKeyspace, cond)
	if err != nil {
		return nil, err
	}

	var records []market.Collection
	for rows.Next() {
		var row map[string]market.Collection
		if err := rows.Row(&row); err != nil {
			const msg = "unable to unmarshal collection record"
			s.logger.Error(msg, zap.Error(err))
			return nil, fmt.Errorf(msg+": %w", err)
		}
		records = append(records, row[market.CollectionsKeyspace])
	}

	if len(records) == 0 {
		return nil, market.ErrNotFound
	}

	return records, nil
}

// NFTs returns the NFT records matching the given condition.
func (s *Service) NFTs(cond Condition) ([]market.NFT, error) {
	rows, err := s.query(market.NFTsKeyspace, cond)
	if err != nil {
		return nil, err
	}

	var records []market.NFT
	for rows.Next() {
		var row map[string]market.NFT
		if err := rows.Row(&row); err != nil {
			const msg = "unable to unmarshal nft record"
			s.logger.Error(msg, zap.Error(err))
			return nil, fmt.Errorf(msg+": %w", err)
		}
		records = append(records, row[market.NFTsKeyspace])
	}

	if len(records) == 0 {
		return nil, market.ErrNotFound
	}

	return records, nil
}

func (s *Service) query(keyspace string, cond Condition) (*gocb.QueryResult, error) {
	options := gocb.QueryOptions{
		ScanConsistency: gocb.QueryScanConsistencyRequestPlus,
		Timeout:         cbTimeout,
	}

	fqn := market.FullyQualifiedKeyspace(s.bucket, keyspace)
	stmt := "SELECT * FROM " + fqn

	if len(cond.Wheres) > 0 {
		params := make(map[string]interface{}, len(cond.Wheres))

		for i := range cond.Wheres {
			clause := " AND "
			if i == 0 {
				clause = " WHERE "
			}

			w := cond.Wheres[i]
			n := namedParamField(w.Field)
			field := escapeField(w.Field)
			param := n

			if w.CaseInsensitive {
				field = "LOWER(" + field + ")"
				param = "LOWER(" + n + ")"
			}

			if w.Value == nil {
				// operators like IS NULL / IS NOT MISSING take no param
				stmt += clause + field + " " + w.Operator
				continue
			}

			stmt += clause + field + " " + w.Operator + " " + param
			params[n] = w.Value
		}

		options.NamedParameters = params
	}

	if cond.OrderBy != "" {
		stmt += " ORDER BY " + escapeField(cond.OrderBy)
		if cond.SortDirection != "" {
			stmt += " " + cond.SortDirection
		}
	}

	if cond.Limit > 0 {
		stmt += fmt.Sprintf(" LIMIT %d", cond.Limit)
	}

	res, err := s.cluster.Query(stmt, &options)
	if err != nil {
		const msg = "unable to query keyspace"
		s.logger.Error(msg, zap.Error(err), zap.String("keyspace", keyspace))
		return nil, fmt.Errorf(msg+": %w", err)
	}

	return res, nil
}

func escapeField(field string) string {
	return "`" + strings.Replace(field, ".", "`.`", -1) + "`"
}

func namedParamField(field string) string {
	return "$" + strings.Replace(field, ".", "_", -1)
}
