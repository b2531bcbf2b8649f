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

	"github.com/healthflow/platform/pkg/anonymizer"
	"github.com/healthflow/platform/pkg/common/config"
	"github.com/healthflow/platform/pkg/common/database"
	"github.com/healthflow/platform/pkg/common/kafka"
	"github.com/healthflow/platform/pkg/common/logger"
	"github.com/healthflow/platform/pkg/common/models"
	"github.com/healthflow/platform/pkg/observability/metrics"
	"github.com/healthflow/platform/pkg/pseudonym"
)

const servicePort = "8081"

type DeidService struct {
	engine   *anonymizer.Engine
	producer *kafka.Producer
}

func main() {
	logger.Init()
	cfg := config.Load()

	db, err := database.ConnectPostgres(cfg)
	if err != nil {
		logger.Log.WithError(err).Fatal("Failed to connect to PostgreSQL")
	}
	defer database.ClosePostgres(db)

	repo := pseudonym.NewRepository(db)
	if err := repo.AutoMigrate(); err != nil {
		logger.Log.WithError(err).Fatal("Failed to migrate pseudonym mapping table")
	}

	store, err := pseudonym.NewStore(repo, cfg.DeidSalt, cfg.PseudonymCacheSize)
	if err != nil {
		logger.Log.WithError(err).Fatal("Failed to build pseudonym store")
	}

	service := &DeidService{
		engine:   anonymizer.NewEngine(store),
		producer: kafka.NewProducer(cfg, cfg.TopicAnonymized),
	}
	defer service.producer.Close()

	consumer := kafka.NewConsumer(cfg, cfg.TopicRawBundles, "deid-service")
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
	router.HandleFunc("/api/v1/anonymize", service.handleAnonymize).Methods("POST")

	server := &http.Server{
		Addr:    fmt.Sprintf("%s:%s", cfg.ServerHost, servicePort),
		Handler: router,
	}

	go func() {
		logger.Log.WithFields(map[string]interface{}{
			"host": cfg.ServerHost,
			"port": servicePort,
		}).Info("De-identification Service started")

		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Log.WithError(err).Fatal("Failed to start server")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Log.Info("Shutting down De-identification Service...")
	cancel()

	ctxShutdown, cancelShutdown := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancelShutdown()

	if err := server.Shutdown(ctxShutdown); err != nil {
		logger.Log.WithError(err).Error("Server forced to shutdown")
	}

	logger.Log.Info("De-identification Service stopped")
}

func healthCheck(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(`{"status":"healthy"}`))
}

func (s *DeidService) processMessage(ctx context.Context, key string, value []byte) error {
	var event models.RawBundleEvent
	if err := json.Unmarshal(value, &event); err != nil {
		metrics.IncBundlesDropped()
		return fmt.Errorf("decoding raw bundle event: %w", err)
	}
	if event.BundleID == "" {
		metrics.IncBundlesDropped()
		return fmt.Errorf("raw bundle event missing bundle id")
	}
	if event.PatientID == "" {
		metrics.IncBundlesDropped()
		return fmt.Errorf("raw bundle event %s missing patient id", event.BundleID)
	}
	if len(event.Bundle) == 0 {
		metrics.IncBundlesDropped()
		return fmt.Errorf("raw bundle event %s has empty bundle", event.BundleID)
	}

	logger.Log.WithFields(map[string]interface{}{
		"bundle_id":  event.BundleID,
		"patient_id": event.PatientID,
	}).Info("Anonymizing bundle")

	result, err := s.engine.Anonymize(ctx, event.Bundle, event.PatientID)
	if err != nil {
		metrics.IncBundlesDropped()
		return fmt.Errorf("anonymizing bundle %s: %w", event.BundleID, err)
	}

	serialized, err := json.Marshal(result.Bundle)
	if err != nil {
		metrics.IncBundlesDropped()
		return fmt.Errorf("encoding anonymized bundle %s: %w", event.BundleID, err)
	}

	out := models.AnonymizedEvent{
		OriginalBundleID: event.BundleID,
		PatientPseudoID:  result.PatientPseudoID,
		AnonymizedBundle: string(serialized),
		Timestamp:        time.Now().UnixMilli(),
		Source:           "deid-service",
		EventType:        models.EventTypeAnonymized,
	}
	if err := s.producer.Publish(ctx, result.PatientPseudoID, out.EventType, out); err != nil {
		return fmt.Errorf("publishing anonymized event for bundle %s: %w", event.BundleID, err)
	}

	metrics.IncBundlesAnonymized()
	metrics.AddResourceFallbacks(result.Fallbacks)

	logger.Log.WithFields(map[string]interface{}{
		"bundle_id":      event.BundleID,
		"pseudonym":      result.PatientPseudoID,
		"anonymized":     result.Anonymized,
		"passed_through": result.PassedThrough,
		"fallbacks":      result.Fallbacks,
	}).Info("Bundle anonymized")

	return nil
}

type anonymizeRequest struct {
	PatientID string                 `json:"patientId"`
	Bundle    map[string]interface{} `json:"bundle"`
}

func (s *DeidService) handleAnonymize(w http.ResponseWriter, r *http.Request) {
	var req anonymizeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, `{"error":"invalid request body"}`, http.StatusBadRequest)
		return
	}
	if req.PatientID == "" || len(req.Bundle) == 0 {
		http.Error(w, `{"error":"patientId and bundle are required"}`, http.StatusBadRequest)
		return
	}

	result, err := s.engine.Anonymize(r.Context(), req.Bundle, req.PatientID)
	if err != nil {
		logger.Log.WithError(err).Error("Anonymization request failed")
		http.Error(w, `{"error":"anonymization failed"}`, http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{
		"patientPseudoId": result.PatientPseudoID,
		"bundle":          result.Bundle,
		"anonymized":      result.Anonymized,
		"passedThrough":   result.PassedThrough,
		"fallbacks":       result.Fallbacks,
	})
}
