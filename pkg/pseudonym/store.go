package pseudonym

import (
	"context"
	"errors"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/healthflow/platform/pkg/common/logger"
)

// Store resolves original identifiers to stable pseudonyms. Lookup order is
// process-local cache, then durable store, then generate-and-persist. The
// durable store is the single source of truth for the uniqueness invariant;
// the cache is only an optimization and may be evicted at any time.
type Store struct {
	repo  MappingRepository
	cache *lru.Cache[string, string]
	salt  string
}

func NewStore(repo MappingRepository, salt string, cacheSize int) (*Store, error) {
	if cacheSize <= 0 {
		cacheSize = 4096
	}
	cache, err := lru.New[string, string](cacheSize)
	if err != nil {
		return nil, err
	}
	return &Store{repo: repo, cache: cache, salt: salt}, nil
}

// Resolve returns the pseudonym for (originalID, identifierType), creating
// and persisting the mapping on first encounter. Resolution never stalls on
// store failure: generation is deterministic, so falling back to the
// generator without persistence still yields the correct pseudonym as long
// as the salt is stable.
func (s *Store) Resolve(ctx context.Context, originalID, identifierType string) (string, error) {
	key := identifierType + ":" + originalID
	if cached, ok := s.cache.Get(key); ok {
		return cached, nil
	}

	if s.repo != nil {
		stored, err := s.repo.Lookup(ctx, originalID, identifierType)
		switch {
		case err == nil:
			s.cache.Add(key, stored)
			return stored, nil
		case !errors.Is(err, ErrNotFound):
			logger.Log.WithError(err).WithFields(map[string]interface{}{
				"identifier_type": identifierType,
			}).Warn("Pseudonym store unreachable, falling back to generator")
			return Generate(originalID, identifierType, s.salt), nil
		}
	}

	pseudonym := Generate(originalID, identifierType, s.salt)

	if s.repo != nil {
		rec := &MappingRecord{
			OriginalIdentifier: originalID,
			IdentifierType:     identifierType,
			Pseudonym:          pseudonym,
			SaltUsed:           s.salt,
		}
		stored, err := s.repo.Save(ctx, rec)
		if err != nil {
			logger.Log.WithError(err).WithFields(map[string]interface{}{
				"identifier_type": identifierType,
			}).Warn("Failed to persist pseudonym mapping")
		} else if stored != "" {
			pseudonym = stored
		}
	}

	s.cache.Add(key, pseudonym)
	return pseudonym, nil
}

// Purge drops the in-process cache. Resolution remains correct afterwards;
// only lookup cost changes.
func (s *Store) Purge() {
	s.cache.Purge()
}
