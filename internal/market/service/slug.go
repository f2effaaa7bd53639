package service

import (
	"fmt"
	"strings"

	"go.uber.org/zap"

	"neon-market/internal/market"
	"neon-market/internal/market/reader"
)

// ResolveSlug maps a kebab-case URL path segment, e.g. "cyber-punks", to a
// stored collection. Resolution is read only: first a case-insensitive match
// on the segment with hyphens replaced by spaces, then, if that finds
// nothing, the same match against a title-cased candidate. At most two
// lookups hit the store; if several collections share a name the store's
// first result wins.
func (s *Service) ResolveSlug(segment string) (*market.Collection, error) {
	if segment == "" {
		return nil, market.ErrNotFound
	}

	logger := s.logger.With(zap.String("slug", segment))

	spaced := strings.Replace(segment, "-", " ", -1)

	record, err := s.findByName(spaced)
	switch err {
	case nil:
		return record, nil
	case market.ErrNotFound:
	default:
		const msg = "unable to resolve slug"
		logger.Error(msg, zap.Error(err))
		return nil, fmt.Errorf(msg+": %w", err)
	}

	record, err = s.findByName(titleCaseSlug(segment))
	switch err {
	case nil:
		return record, nil
	case market.ErrNotFound:
		logger.Debug("collection not found for slug")
		return nil, market.ErrNotFound
	default:
		const msg = "unable to resolve slug"
		logger.Error(msg, zap.Error(err))
		return nil, fmt.Errorf(msg+": %w", err)
	}
}

// Slugify is the inverse direction used when linking to a collection page:
// lowercase the name and replace whitespace runs with hyphens.
func Slugify(name string) string {
	return strings.Join(strings.Fields(strings.ToLower(name)), "-")
}

func (s *Service) findByName(name string) (*market.Collection, error) {
	records, err := s.reader.Collections(reader.Condition{
		Wheres: []reader.Where{
			{
				Field:           "name",
				Operator:        "=",
				Value:           name,
				CaseInsensitive: true,
			},
		},
		Limit: 1,
	})
	if err != nil {
		return nil, err
	}

	return &records[0], nil
}

// titleCaseSlug capitalizes the first letter of each hyphen-delimited word
// and joins with spaces: "cyber-punks" -> "Cyber Punks".
func titleCaseSlug(segment string) string {
	words := strings.Split(segment, "-")
	for i := range words {
		if words[i] == "" {
			continue
		}
		words[i] = strings.ToUpper(words[i][:1]) + words[i][1:]
	}

	return strings.Join(words, " ")
}
