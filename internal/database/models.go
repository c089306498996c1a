package database

import (
	"time"

	"github.com/google/uuid"

	"github.com/ZanzyTHEbar/cognitive-echo/internal/acoustic"
)

// Baseline is a subject's stored reference sample
type Baseline struct {
	ID        string                `json:"id" db:"id"`
	SubjectID string                `json:"subject_id" db:"subject_id"`
	Features  acoustic.FeatureInput `json:"features" db:"features"`
	CreatedAt time.Time             `json:"created_at" db:"created_at"`
	UpdatedAt time.Time             `json:"updated_at" db:"updated_at"`
}

// NewBaseline creates a baseline record with a generated ID
func NewBaseline(subjectID string, features acoustic.FeatureVector) *Baseline {
	now := time.Now().UTC()
	return &Baseline{
		ID:        uuid.New().String(),
		SubjectID: subjectID,
		Features:  features.Input(),
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// Vector returns the sanitized feature vector of the baseline
func (b *Baseline) Vector() acoustic.FeatureVector {
	return b.Features.Sanitize()
}
