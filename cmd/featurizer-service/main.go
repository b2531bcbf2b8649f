package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/mux"

	"github.com/healthflow/platform/pkg/common/config"
	"github.com/healthflow/platform/pkg/common/database"
	"github.com/healthflow/platform/pkg/common/kafka"
	"github.com/healthflow/platform/pkg/common/logger"
	"github.com/healthflow/platform/pkg/common/models"
	"github.com/healthflow/platform/pkg/featurizer"
	"github.com/healthflow/platform/pkg/observability/metrics"
	"github.com/healthflow/platform/pkg/storage"
	"github.com/healthflow/platform/pkg/terminology"
)

const servicePort = "8082"

type FeaturizerService struct {
	extractor *featurizer.Extractor
	store     *storage.FeatureStore
	producer  *kafka.Producer
}

func main() {
	logger.Init()
	cfg := config.Load()

	catalog, err := terminology.Load(cfg.ConceptCatalogPath)
	if err != nil {
		logger.Log.WithError(err).Fatal("Failed to load concept catalog")
	}

	redisClient := database.ConnectRedis(cfg)
	defer database.CloseRedis(redisClient)

	service := &FeaturizerService{
		extractor: featurizer.NewExtractor(catalog, featurizer.NewHashingEmbedder()),
		store:     storage.NewFeatureStore(redisClient, cfg.FeatureCachePrefix, cfg.FeatureCacheTTL),
		producer:  kafka.NewProducer(cfg, cfg.TopicFeatures),
	}
	defer service.producer.Close()

	consumer := kafka.NewConsumer(cfg, cfg.TopicAnonymized, "featurizer-service")
	defer consumer.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go func() {
		if err := consumer.Consume(ctx, service.processMessage); err != nil && ctx.Err() == nil {
			logger.Log.WithError(err).Fatal("Consumer error")
		}
	}()

	router := mux.NewRouter()
	router.HandleFunc("/health", healthCheck).Methods("GET")
	router.HandleFunc("/ready", healthCheck).Methods("GET")
	router.Handle("/metrics", metrics.Handler()).Methods("GET")
	router.HandleFunc("/api/v1/extract", service.handleExtract).Methods("POST")
	router.HandleFunc("/api/v1/features/{pseudoId}", service.handleLatestFeatures).Methods("GET")

	server := &http.Server{
		Addr:    fmt.Sprintf("%s:%s", cfg.ServerHost, servicePort),
		Handler: router,
	}

	go func() {
		logger.Log.WithFields(map[string]interface{}{
			"host": cfg.ServerHost,
			"port": servicePort,
		}).Info("Featurizer Service started")

		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Log.WithError(err).Fatal("Failed to start server")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Log.Info("Shutting down Featurizer Service...")
	cancel()

	ctxShutdown, cancelShutdown := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancelShutdown()

	if err := server.Shutdown(ctxShutdown); err != nil {
		logger.Log.WithError(err).Error("Server forced to shutdown")
	}

	logger.Log.Info("Featurizer Service stopped")
}

func healthCheck(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(`{"status":"healthy"}`))
}

func (s *FeaturizerService) processMessage(ctx context.Context, key string, value []byte) error {
	var event models.AnonymizedEvent
	if err := json.Unmarshal(value, &event); err != nil {
		metrics.IncBundlesDropped()
		return fmt.Errorf("decoding anonymized event: %w", err)
	}
	if event.PatientPseudoID == "" {
		metrics.IncBundlesDropped()
		return fmt.Errorf("anonymized event missing patient pseudonym")
	}
	if event.AnonymizedBundle == "" {
		metrics.IncBundlesDropped()
		return fmt.Errorf("anonymized event for %s has empty bundle", event.PatientPseudoID)
	}

	var bundle map[string]interface{}
	if err := json.Unmarshal([]byte(event.AnonymizedBundle), &bundle); err != nil {
		metrics.IncBundlesDropped()
		return fmt.Errorf("decoding bundle for %s: %w", event.PatientPseudoID, err)
	}

	logger.Log.WithField("pseudonym", event.PatientPseudoID).Info("Extracting features")

	features := s.extractor.Extract(bundle)

	if err := s.store.Materialize(ctx, event.PatientPseudoID, features); err != nil {
		// The bus carries the features either way; the cache is best effort.
		logger.Log.WithError(err).WithField("pseudonym", event.PatientPseudoID).
			Warn("Failed to materialize features to cache")
	}

	loose := make(map[string]interface{}, len(features))
	for name, v := range features {
		loose[name] = v
	}
	out := models.FeatureEvent{
		PatientPseudoID: event.PatientPseudoID,
		Features:        loose,
		FeatureCount:    len(features),
		Timestamp:       time.Now().UnixMilli(),
		Source:          "featurizer-service",
		EventType:       models.EventTypeFeaturesReady,
	}
	if err := s.producer.Publish(ctx, event.PatientPseudoID, out.EventType, out); err != nil {
		return fmt.Errorf("publishing feature event for %s: %w", event.PatientPseudoID, err)
	}

	metrics.IncFeatureSetsEmitted()

	logger.Log.WithFields(map[string]interface{}{
		"pseudonym":     event.PatientPseudoID,
		"feature_count": len(features),
	}).Info("Features extracted")

	return nil
}

type extractRequest struct {
	Bundle map[string]interface{} `json:"bundle"`
}

func (s *FeaturizerService) handleExtract(w http.ResponseWriter, r *http.Request) {
	var req extractRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, `{"error":"invalid request body"}`, http.StatusBadRequest)
		return
	}
	if len(req.Bundle) == 0 {
		http.Error(w, `{"error":"bundle is required"}`, http.StatusBadRequest)
		return
	}

	features := s.extractor.Extract(req.Bundle)

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{
		"features":     features,
		"featureCount": len(features),
	})
}

func (s *FeaturizerService) handleLatestFeatures(w http.ResponseWriter, r *http.Request) {
	pseudoID := mux.Vars(r)["pseudoId"]

	snapshot, err := s.store.Latest(r.Context(), pseudoID)
	if err == storage.ErrNoSnapshot {
		http.Error(w, `{"error":"no features for patient"}`, http.StatusNotFound)
		return
	}
	if err != nil {
		logger.Log.WithError(err).Error("Feature snapshot lookup failed")
		http.Error(w, `{"error":"lookup failed"}`, http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(snapshot)
}
