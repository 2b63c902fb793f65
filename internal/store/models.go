package store

import (
	"encoding/json"
	"time"

	"gorm.io/datatypes"

	"reviewlens/pkg/domain"
)

// ReviewModel is the GORM mapping for the reviews table. Sentiment and
// SentimentScore are nullable so "capability failed" is representable;
// KeyPoints is stored as a JSON array.
type ReviewModel struct {
	ID             int64   `gorm:"primaryKey;autoIncrement"`
	ReviewText     string  `gorm:"type:text;not null"`
	ProductName    string  `gorm:"size:255"`
	Sentiment      *string `gorm:"size:50;index"`
	SentimentScore *float64
	KeyPoints      datatypes.JSON
	AnalysisStatus string    `gorm:"size:50;not null"`
	ErrorMessage   string    `gorm:"type:text"`
	CreatedAt      time.Time `gorm:"not null;index"`
}

// TableName keeps the table name stable regardless of struct naming.
func (ReviewModel) TableName() string { return "reviews" }

func reviewToModel(r domain.Review) (ReviewModel, error) {
	model := ReviewModel{
		ID:             r.ID,
		ReviewText:     r.ReviewText,
		ProductName:    r.ProductName,
		SentimentScore: r.SentimentScore,
		AnalysisStatus: string(r.AnalysisStatus),
		ErrorMessage:   r.ErrorMessage,
		CreatedAt:      r.CreatedAt,
	}
	if r.Sentiment != "" {
		s := string(r.Sentiment)
		model.Sentiment = &s
	}
	points := r.KeyPoints
	if points == nil {
		points = []string{}
	}
	encoded, err := json.Marshal(points)
	if err != nil {
		return ReviewModel{}, err
	}
	model.KeyPoints = datatypes.JSON(encoded)
	return model, nil
}

func reviewFromModel(m ReviewModel) (domain.Review, error) {
	r := domain.Review{
		ID:             m.ID,
		ReviewText:     m.ReviewText,
		ProductName:    m.ProductName,
		SentimentScore: m.SentimentScore,
		KeyPoints:      []string{},
		AnalysisStatus: domain.AnalysisStatus(m.AnalysisStatus),
		ErrorMessage:   m.ErrorMessage,
		CreatedAt:      m.CreatedAt,
	}
	if m.Sentiment != nil {
		r.Sentiment = domain.Sentiment(*m.Sentiment)
	}
	if len(m.KeyPoints) > 0 {
		if err := json.Unmarshal(m.KeyPoints, &r.KeyPoints); err != nil {
			return domain.Review{}, err
		}
		if r.KeyPoints == nil {
			r.KeyPoints = []string{}
		}
	}
	return r, nil
}
