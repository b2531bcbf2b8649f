package linear

import (
	"math"
	"testing"
)

func TestTrainLogisticSeparableData(t *testing.T) {
	// One feature, cleanly separable around zero.
	var samples [][]float64
	var labels []float64
	for i := -20; i < 20; i++ {
		samples = append(samples, []float64{float64(i)})
		if i >= 0 {
			labels = append(labels, 1)
		} else {
			labels = append(labels, 0)
		}
	}

	weights, metrics := TrainLogistic(samples, labels, Options{Epochs: 500, LearningRate: 0.1})
	if metrics.Accuracy < 0.9 {
		t.Fatalf("expected accuracy above 0.9 on separable data, got %f", metrics.Accuracy)
	}
	if weights.Coefficients[0] <= 0 {
		t.Fatalf("expected positive coefficient, got %f", weights.Coefficients[0])
	}

	high := Predict(weights, []float64{10})
	low := Predict(weights, []float64{-10})
	if high <= 0.5 || low >= 0.5 {
		t.Fatalf("predictions not separated: high=%f low=%f", high, low)
	}
}

func TestTrainLogisticEmptyInput(t *testing.T) {
	weights, metrics := TrainLogistic(nil, nil, Options{})
	if len(weights.Coefficients) != 0 || metrics.Accuracy != 0 {
		t.Fatal("expected zero-value result for empty training set")
	}
}

func TestScalerStandardizes(t *testing.T) {
	samples := [][]float64{
		{1, 100},
		{2, 200},
		{3, 300},
	}
	scaler := FitScaler(samples)

	scaled := scaler.Transform([]float64{2, 200})
	if math.Abs(scaled[0]) > 1e-9 || math.Abs(scaled[1]) > 1e-9 {
		t.Fatalf("mean sample should scale to zero, got %v", scaled)
	}

	scaled = scaler.Transform([]float64{3, 300})
	if scaled[0] <= 0 || scaled[1] <= 0 {
		t.Fatalf("above-mean sample should scale positive, got %v", scaled)
	}
}

func TestScalerZeroVarianceColumn(t *testing.T) {
	samples := [][]float64{
		{5, 1},
		{5, 2},
	}
	scaler := FitScaler(samples)
	scaled := scaler.Transform([]float64{5, 1.5})
	if scaled[0] != 0 {
		t.Fatalf("zero-variance column must transform to zero, got %v", scaled[0])
	}
}
