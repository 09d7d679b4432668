package models

import (
	"database/sql/driver"
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// Enums

// ExportStatus is the orchestration status stored inside the export's data payload.
// Transitions: processing -> completed or processing -> failed. Both are terminal.
type ExportStatus string

const (
	ExportStatusProcessing ExportStatus = "processing"
	ExportStatusCompleted  ExportStatus = "completed"
	ExportStatusFailed     ExportStatus = "failed"
)

// Aspect is the slideshow aspect ratio.
type Aspect string

const (
	AspectSquare   Aspect = "1:1"
	AspectPortrait Aspect = "4:5"
	AspectTall     Aspect = "3:4"
	AspectVertical Aspect = "9:16"
)

// ValidAspect reports whether a is one of the supported aspect ratios.
func ValidAspect(a Aspect) bool {
	switch a {
	case AspectSquare, AspectPortrait, AspectTall, AspectVertical:
		return true
	}
	return false
}

// JSONB is a custom type for PostgreSQL JSONB columns
type JSONB map[string]interface{}

func (j JSONB) Value() (driver.Value, error) {
	return json.Marshal(j)
}

func (j *JSONB) Scan(value interface{}) error {
	if value == nil {
		*j = nil
		return nil
	}
	bytes, ok := value.([]byte)
	if !ok {
		return nil
	}
	return json.Unmarshal(bytes, j)
}

// Models

// TextBox is the percentage-based geometry of a slide's text overlay.
type TextBox struct {
	X        float64 `json:"x"`
	Y        float64 `json:"y"`
	WidthPct float64 `json:"widthPct"`
}

// Progress tracks how many slides have been rendered so far.
// Completed only ever increases, from 0 up to Total.
type Progress struct {
	Completed int `json:"completed"`
	Total     int `json:"total"`
}

// ExportData is the full slideshow state snapshotted at export time, stored as
// the export row's jsonb payload. The per-slide arrays are read-only once the
// export begins; the orchestration fields (Status, Progress, Video, Error) are
// mutated by the pipeline via shallow merges.
type ExportData struct {
	Images    []string  `json:"images"`
	Texts     []string  `json:"texts,omitempty"`
	TextBoxes []TextBox `json:"textBoxes,omitempty"`
	Durations []float64 `json:"durations,omitempty"`
	Aspect    Aspect    `json:"aspect,omitempty"`
	Prompt    string    `json:"prompt,omitempty"`

	Status   ExportStatus `json:"status,omitempty"`
	Progress *Progress    `json:"progress,omitempty"`
	Video    *string      `json:"video,omitempty"` // public URL, or file:// reference when publishing degraded
	Error    *string      `json:"error,omitempty"` // set only when Status is failed
}

// ToJSONB converts the typed payload into the loosely-typed map persisted in the
// jsonb column. Round-trips through encoding/json so tags apply.
func (d ExportData) ToJSONB() (JSONB, error) {
	raw, err := json.Marshal(d)
	if err != nil {
		return nil, err
	}
	var j JSONB
	if err := json.Unmarshal(raw, &j); err != nil {
		return nil, err
	}
	return j, nil
}

// ExportDataFromJSONB parses the stored payload back into the typed form.
func ExportDataFromJSONB(j JSONB) (*ExportData, error) {
	raw, err := json.Marshal(j)
	if err != nil {
		return nil, err
	}
	data := &ExportData{}
	if err := json.Unmarshal(raw, data); err != nil {
		return nil, err
	}
	return data, nil
}

// Export is one slideshow render-and-publish request. The row is created by the
// ingress endpoint with status=processing and mutated in place by the worker;
// it is never deleted by this service.
type Export struct {
	ID               uuid.UUID `json:"id"`
	Title            string    `json:"title"`
	Prompt           string    `json:"prompt"`
	Aspect           Aspect    `json:"aspect"`
	NumSlides        int       `json:"num_slides"`
	TotalDurationSec int       `json:"total_duration_sec"`
	ThumbnailURL     *string   `json:"thumbnail_url,omitempty"`
	Data             JSONB     `json:"data"`
	CreatedAt        time.Time `json:"created_at"`
}

// DTOs for API requests/responses

type CreateExportRequest struct {
	Title            string     `json:"title"`
	NumSlides        int        `json:"num_slides"`
	TotalDurationSec int        `json:"total_duration_sec"`
	ThumbnailURL     *string    `json:"thumbnail_url,omitempty"`
	Data             ExportData `json:"data"`
	TemplateURL      *string    `json:"templateUrl,omitempty"` // optional: override the motion template to target
}

type CreateExportResponse struct {
	ExportID uuid.UUID `json:"exportId"`
}

// ExportSummary is a lightweight DTO for the list endpoint — no slide arrays,
// just metadata plus the orchestration status pulled out of the payload.
type ExportSummary struct {
	ID               uuid.UUID    `json:"id"`
	Title            string       `json:"title"`
	Aspect           Aspect       `json:"aspect"`
	NumSlides        int          `json:"num_slides"`
	TotalDurationSec int          `json:"total_duration_sec"`
	ThumbnailURL     *string      `json:"thumbnail_url,omitempty"`
	Status           ExportStatus `json:"status"`
	Progress         *Progress    `json:"progress,omitempty"`
	Video            *string      `json:"video,omitempty"`
	CreatedAt        time.Time    `json:"created_at"`
}

type ListExportsResponse struct {
	Exports []ExportSummary `json:"exports"`
	Total   int             `json:"total"`
	Limit   int             `json:"limit"`
	Offset  int             `json:"offset"`
}
