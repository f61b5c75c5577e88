package readpath

import (
	"encoding/json"
	"math"
	"time"
)

// ReadRequest addresses one representation over [Begin, End).
type ReadRequest struct {
	CatalogID        string    `form:"catalog" binding:"required"`
	ResourceID       string    `form:"resource" binding:"required"`
	RepresentationID string    `form:"representation" binding:"required"`
	Begin            time.Time `form:"begin" binding:"required" time_format:"2006-01-02T15:04:05Z07:00"`
	End              time.Time `form:"end" binding:"required" time_format:"2006-01-02T15:04:05Z07:00"`
}

// Value is a sample that encodes NaN as JSON null.
type Value float64

func (v Value) MarshalJSON() ([]byte, error) {
	if math.IsNaN(float64(v)) || math.IsInf(float64(v), 0) {
		return []byte("null"), nil
	}
	return json.Marshal(float64(v))
}

// ReadResponse carries the decoded samples of a read. Bad samples are NaN.
type ReadResponse struct {
	CatalogID        string    `json:"catalog_id"`
	ResourceID       string    `json:"resource_id"`
	RepresentationID string    `json:"representation_id"`
	Begin            time.Time `json:"begin"`
	End              time.Time `json:"end"`
	SamplePeriod     string    `json:"sample_period"`
	CachedSamples    int       `json:"cached_samples"`
	Values           []Value   `json:"values"`
}

// Float64s returns the samples as a plain slice.
func (r *ReadResponse) Float64s() []float64 {
	out := make([]float64, len(r.Values))
	for i, v := range r.Values {
		out[i] = float64(v)
	}
	return out
}
