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
	"github.com/healthflow/platform/pkg/observability/metrics"
	"github.com/healthflow/platform/pkg/risk"
)

const servicePort = "8083"

type RiskService struct {
	engine      *risk.Engine
	predictions *risk.PredictionRepository
	producer    *kafka.Producer
}

func main() {
	logger.Init()
	cfg := config.Load()

	db, err := database.ConnectPostgres(cfg)
	if err != nil {
		logger.Log.WithError(err).Fatal("Failed to connect to PostgreSQL")
	}
	defer database.ClosePostgres(db)

	predictions := risk.NewPredictionRepository(db)
	if err := predictions.AutoMigrate(); err != nil {
		logger.Log.WithError(err).Fatal("Failed to migrate prediction results table")
	}

	service := &RiskService{
		engine:      risk.NewEngine(risk.LoadOrPlaceholder(cfg.ModelArtifactDir)),
		predictions: predictions,
		producer:    kafka.NewProducer(cfg, cfg.TopicRiskScores),
	}
	defer service.producer.Close()

	logger.Log.WithFields(map[string]interface{}{
		"model_version": service.engine.ModelVersion(),
		"feature_count": service.engine.FeatureCount(),
	}).Info("Risk model ready")

	consumer := kafka.NewConsumer(cfg, cfg.TopicFeatures, "risk-service")
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
	router.HandleFunc("/api/v1/score", service.handleScore).Methods("POST")
	router.HandleFunc("/api/v1/predictions/{pseudoId}", service.handleRecentPredictions).Methods("GET")

	server := &http.Server{
		Addr:    fmt.Sprintf("%s:%s", cfg.ServerHost, servicePort),
		Handler: router,
	}

	go func() {
		logger.Log.WithFields(map[string]interface{}{
			"host": cfg.ServerHost,
			"port": servicePort,
		}).Info("Risk Scoring Service started")

		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Log.WithError(err).Fatal("Failed to start server")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Log.Info("Shutting down Risk Scoring Service...")
	cancel()

	ctxShutdown, cancelShutdown := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancelShutdown()

	if err := server.Shutdown(ctxShutdown); err != nil {
		logger.Log.WithError(err).Error("Server forced to shutdown")
	}

	logger.Log.Info("Risk Scoring Service stopped")
}

func healthCheck(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(`{"status":"healthy"}`))
}

func (s *RiskService) processMessage(ctx context.Context, key string, value []byte) error {
	var event models.FeatureEvent
	if err := json.Unmarshal(value, &event); err != nil {
		metrics.IncBundlesDropped()
		return fmt.Errorf("decoding feature event: %w", err)
	}
	if event.PatientPseudoID == "" {
		metrics.IncBundlesDropped()
		return fmt.Errorf("feature event missing patient pseudonym")
	}
	if len(event.Features) == 0 {
		metrics.IncBundlesDropped()
		return fmt.Errorf("feature event for %s has no features", event.PatientPseudoID)
	}

	logger.Log.WithField("pseudonym", event.PatientPseudoID).Info("Scoring features")

	prediction := s.engine.Score(event.Features)
	if prediction.Confidence == 0 && prediction.RiskScore == 0.5 {
		metrics.IncPredictionsNeutral()
	}

	if err := s.predictions.Save(ctx, event.PatientPseudoID, prediction, event.Features); err != nil {
		// Persistence is for audit; the alerting path still gets its event.
		logger.Log.WithError(err).WithField("pseudonym", event.PatientPseudoID).
			Error("Failed to save prediction")
	}

	out := models.RiskEvent{
		PatientPseudoID: event.PatientPseudoID,
		RiskScore:       prediction.RiskScore,
		Confidence:      prediction.Confidence,
		RiskLevel:       prediction.RiskLevel,
		Explanation:     risk.ExplanationText(prediction.Attribution),
		TopRiskFactors:  risk.TopFactors(prediction.Attribution),
		ModelVersion:    prediction.ModelVersion,
		Timestamp:       time.Now().UnixMilli(),
		Source:          "risk-service",
		EventType:       models.EventTypeRiskCalculated,
	}
	if err := s.producer.Publish(ctx, event.PatientPseudoID, out.EventType, out); err != nil {
		return fmt.Errorf("publishing risk event for %s: %w", event.PatientPseudoID, err)
	}

	metrics.IncPredictionsScored()

	logger.Log.WithFields(map[string]interface{}{
		"pseudonym":  event.PatientPseudoID,
		"risk_score": prediction.RiskScore,
		"risk_level": prediction.RiskLevel,
	}).Info("Risk prediction completed")

	return nil
}

type scoreRequest struct {
	Features map[string]interface{} `json:"features"`
}

func (s *RiskService) handleScore(w http.ResponseWriter, r *http.Request) {
	var req scoreRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, `{"error":"invalid request body"}`, http.StatusBadRequest)
		return
	}
	if len(req.Features) == 0 {
		http.Error(w, `{"error":"features are required"}`, http.StatusBadRequest)
		return
	}

	prediction := s.engine.Score(req.Features)

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{
		"riskScore":      prediction.RiskScore,
		"confidence":     prediction.Confidence,
		"riskLevel":      prediction.RiskLevel,
		"explanation":    risk.ExplanationText(prediction.Attribution),
		"topRiskFactors": risk.TopFactors(prediction.Attribution),
		"modelVersion":   prediction.ModelVersion,
	})
}

func (s *RiskService) handleRecentPredictions(w http.ResponseWriter, r *http.Request) {
	pseudoID := mux.Vars(r)["pseudoId"]

	records, err := s.predictions.Recent(r.Context(), pseudoID, 10)
	if err != nil {
		logger.Log.WithError(err).Error("Prediction lookup failed")
		http.Error(w, `{"error":"lookup failed"}`, http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(records)
}
