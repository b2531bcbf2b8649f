package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

var ErrNoSnapshot = errors.New("no feature snapshot for patient")

// FeatureSnapshot is the latest materialized feature set for one patient.
type FeatureSnapshot struct {
	PatientPseudoID string             `json:"patientPseudoId"`
	Features        map[string]float64 `json:"features"`
	FeatureCount    int                `json:"featureCount"`
	UpdatedAt       time.Time          `json:"updatedAt"`
}

// FeatureStore materializes per-patient feature snapshots into Redis so the
// scoring path and ad-hoc consumers can read the freshest run without
// touching Kafka. Keys expire; the bus remains the source of truth.
type FeatureStore struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
}

func NewFeatureStore(client *redis.Client, prefix string, ttl time.Duration) *FeatureStore {
	if prefix == "" {
		prefix = "features"
	}
	if ttl <= 0 {
		ttl = 15 * time.Minute
	}
	return &FeatureStore{client: client, prefix: prefix, ttl: ttl}
}

func (f *FeatureStore) key(pseudoID string) string {
	return fmt.Sprintf("%s:%s", f.prefix, pseudoID)
}

// Materialize overwrites the patient's snapshot with this run's features.
func (f *FeatureStore) Materialize(ctx context.Context, pseudoID string, features map[string]float64) error {
	snapshot := FeatureSnapshot{
		PatientPseudoID: pseudoID,
		Features:        features,
		FeatureCount:    len(features),
		UpdatedAt:       time.Now().UTC(),
	}
	data, err := json.Marshal(snapshot)
	if err != nil {
		return fmt.Errorf("encoding feature snapshot: %w", err)
	}
	if err := f.client.Set(ctx, f.key(pseudoID), data, f.ttl).Err(); err != nil {
		return fmt.Errorf("writing feature snapshot: %w", err)
	}
	return nil
}

// Latest returns the patient's most recent snapshot, or ErrNoSnapshot if the
// key is absent or expired.
func (f *FeatureStore) Latest(ctx context.Context, pseudoID string) (FeatureSnapshot, error) {
	data, err := f.client.Get(ctx, f.key(pseudoID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return FeatureSnapshot{}, ErrNoSnapshot
	}
	if err != nil {
		return FeatureSnapshot{}, fmt.Errorf("reading feature snapshot: %w", err)
	}
	var snapshot FeatureSnapshot
	if err := json.Unmarshal(data, &snapshot); err != nil {
		return FeatureSnapshot{}, fmt.Errorf("decoding feature snapshot: %w", err)
	}
	return snapshot, nil
}
