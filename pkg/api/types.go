package api

import (
	"github.com/paulista5/SABER/pkg/dataset"
	"github.com/paulista5/SABER/pkg/ndarray"
)

// APIResponse represents a standard API response
type APIResponse struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   string      `json:"error,omitempty"`
}

// ServerConfig holds configuration for the API server
type ServerConfig struct {
	Bind   string
	Port   int
	APIKey string // empty disables authentication
}

// DatasetInfo describes one served dataset
type DatasetInfo struct {
	Name       string `json:"name"`
	Path       string `json:"path,omitempty"`
	NumSamples int    `json:"num_samples"`
	Epoch      int    `json:"epoch"`
}

// EpochRequest is the body of PUT /datasets/{name}/epoch
type EpochRequest struct {
	Epoch *int `json:"epoch"`
}

// ArrayJSON is the JSON form of an array
type ArrayJSON struct {
	DType  string    `json:"dtype"`
	Shape  []int     `json:"shape"`
	Values []float64 `json:"values"`
}

// RecordResponse is one served record
type RecordResponse struct {
	Requested int         `json:"requested"`
	Index     int         `json:"index"` // served index, differs from requested after a substitution
	Epoch     int         `json:"epoch"`
	Feature   ArrayJSON   `json:"feature"`
	Label     interface{} `json:"label"`
}

// NewRecordResponse converts an item read for index requested
func NewRecordResponse(requested int, item dataset.Item) RecordResponse {
	return RecordResponse{
		Requested: requested,
		Index:     item.Index,
		Epoch:     item.Epoch,
		Feature:   arrayJSON(item.Feature),
		Label:     labelJSON(item.Label),
	}
}

func arrayJSON(a *ndarray.Array) ArrayJSON {
	return ArrayJSON{DType: a.DType.Name(), Shape: a.Shape, Values: a.Float64s()}
}

// labelJSON replaces arrays nested in a label with their JSON form.
func labelJSON(v interface{}) interface{} {
	switch x := v.(type) {
	case *ndarray.Array:
		return arrayJSON(x)
	case []interface{}:
		out := make([]interface{}, len(x))
		for i := range x {
			out[i] = labelJSON(x[i])
		}
		return out
	case map[string]interface{}:
		out := make(map[string]interface{}, len(x))
		for k, elem := range x {
			out[k] = labelJSON(elem)
		}
		return out
	}
	return v
}
