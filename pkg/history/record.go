package history

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/exploopio/codeguard/pkg/analyzer/scoring"
	"github.com/exploopio/codeguard/pkg/model"
	"github.com/exploopio/codeguard/pkg/shared/fingerprint"
)

// Kind is the report kind stored in a record.
type Kind string

const (
	KindSecurity Kind = "security"
	KindHealth   Kind = "health"
)

// ParseKind parses a kind name. The empty string is accepted and means any kind.
func ParseKind(s string) (Kind, error) {
	switch k := Kind(s); k {
	case "", KindSecurity, KindHealth:
		return k, nil
	default:
		return "", fmt.Errorf("unknown scan kind %q", s)
	}
}

// Record is one stored scan.
type Record struct {
	ID       string `json:"id"`
	Kind     Kind   `json:"kind"`
	Language string `json:"language,omitempty"`

	// Where the code came from: a file path, a remote reference or "stdin"
	Source string `json:"source,omitempty"`

	// Fingerprint of the scanned text
	ContentHash string `json:"content_hash,omitempty"`

	Grade     string    `json:"grade"`
	Score     int       `json:"score"`
	CreatedAt time.Time `json:"created_at"`

	// Report JSON. Empty in List results.
	Payload json.RawMessage `json:"payload,omitempty"`
}

func (r *Record) validate() error {
	switch r.Kind {
	case KindSecurity, KindHealth:
	default:
		return fmt.Errorf("unknown scan kind %q", r.Kind)
	}
	if len(r.Payload) == 0 {
		return fmt.Errorf("record has no payload")
	}
	return nil
}

// NewSecurityRecord builds a record for a security scan of code.
func NewSecurityRecord(res *model.ScanResult, source, code string) (*Record, error) {
	payload, err := json.Marshal(res)
	if err != nil {
		return nil, fmt.Errorf("encode scan result: %w", err)
	}
	return &Record{
		Kind:        KindSecurity,
		Language:    res.Language,
		Source:      source,
		ContentHash: fingerprint.Content(code),
		Grade:       res.Grade,
		Score:       res.Score,
		Payload:     payload,
	}, nil
}

// NewHealthRecord builds a record for a health analysis of code. The grade
// uses the security grading bands applied to the overall score.
func NewHealthRecord(res *model.CodeHealthResult, source, code string) (*Record, error) {
	payload, err := json.Marshal(res)
	if err != nil {
		return nil, fmt.Errorf("encode health result: %w", err)
	}
	return &Record{
		Kind:        KindHealth,
		Language:    res.Language,
		Source:      source,
		ContentHash: fingerprint.Content(code),
		Grade:       scoring.Grade(res.OverallScore),
		Score:       res.OverallScore,
		Payload:     payload,
	}, nil
}

// ScanResult decodes the payload of a security record.
func (r *Record) ScanResult() (*model.ScanResult, error) {
	if r.Kind != KindSecurity {
		return nil, fmt.Errorf("record %s holds a %s report", r.ID, r.Kind)
	}
	var res model.ScanResult
	if err := json.Unmarshal(r.Payload, &res); err != nil {
		return nil, fmt.Errorf("decode scan result: %w", err)
	}
	return &res, nil
}

// HealthResult decodes the payload of a health record.
func (r *Record) HealthResult() (*model.CodeHealthResult, error) {
	if r.Kind != KindHealth {
		return nil, fmt.Errorf("record %s holds a %s report", r.ID, r.Kind)
	}
	var res model.CodeHealthResult
	if err := json.Unmarshal(r.Payload, &res); err != nil {
		return nil, fmt.Errorf("decode health result: %w", err)
	}
	return &res, nil
}
