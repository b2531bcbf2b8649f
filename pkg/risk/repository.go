package risk

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// PredictionRecord is one scored run for one patient. Rows are append-only;
// the scoring engine is the only writer.
type PredictionRecord struct {
	ID                   string            `gorm:"primaryKey;column:id"`
	PatientPseudoID      string            `gorm:"column:patient_pseudo_id;index"`
	RiskScore            float64           `gorm:"column:risk_score"`
	PredictionConfidence float64           `gorm:"column:prediction_confidence"`
	Attribution          datatypes.JSONMap `gorm:"column:attribution"`
	FeatureSnapshot      datatypes.JSONMap `gorm:"column:feature_snapshot"`
	ModelVersion         string            `gorm:"column:model_version"`
	CreatedAt            time.Time         `gorm:"column:created_at"`
}

func (PredictionRecord) TableName() string {
	return "prediction_results"
}

type PredictionRepository struct {
	db *gorm.DB
}

func NewPredictionRepository(db *gorm.DB) *PredictionRepository {
	return &PredictionRepository{db: db}
}

func (r *PredictionRepository) AutoMigrate() error {
	return r.db.AutoMigrate(&PredictionRecord{})
}

// Save persists one prediction with its feature snapshot for later audit.
func (r *PredictionRepository) Save(ctx context.Context, pseudoID string, prediction Prediction, features map[string]interface{}) error {
	attribution := make(datatypes.JSONMap, len(prediction.Attribution))
	for _, c := range prediction.Attribution {
		attribution[c.Feature] = c.Value
	}
	record := PredictionRecord{
		ID:                   uuid.New().String(),
		PatientPseudoID:      pseudoID,
		RiskScore:            prediction.RiskScore,
		PredictionConfidence: prediction.Confidence,
		Attribution:          attribution,
		FeatureSnapshot:      datatypes.JSONMap(features),
		ModelVersion:         prediction.ModelVersion,
		CreatedAt:            time.Now().UTC(),
	}
	return r.db.WithContext(ctx).Create(&record).Error
}

// Recent returns the newest predictions for a patient, newest first.
func (r *PredictionRepository) Recent(ctx context.Context, pseudoID string, limit int) ([]PredictionRecord, error) {
	if limit <= 0 {
		limit = 10
	}
	var records []PredictionRecord
	err := r.db.WithContext(ctx).
		Where("patient_pseudo_id = ?", pseudoID).
		Order("created_at DESC").
		Limit(limit).
		Find(&records).Error
	return records, err
}
