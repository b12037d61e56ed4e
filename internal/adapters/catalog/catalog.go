// Package catalog normalizes third-party candidate payloads into one
// canonical shape before they reach the ranking engine. Provider-specific
// fields never cross this boundary.
package catalog

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/rkarimi/encore/internal/domain/errs"
)

// CandidateSet is the canonical, provider-agnostic description of a
// performance the user wants to log.
type CandidateSet struct {
	Title       string
	Artist      string
	Venue       string
	PerformedAt time.Time
}

// Envelope tags a raw provider payload.
type Envelope struct {
	Provider string          `json:"provider"`
	Payload  json.RawMessage `json:"payload"`
}

// Provider tags understood by Normalize.
const (
	ProviderSetlist   = "setlist"
	ProviderRecording = "recording"
	ProviderManual    = "manual"
)

// setlistPayload mirrors the setlist provider's response shape.
type setlistPayload struct {
	Artist struct {
		Name string `json:"name"`
	} `json:"artist"`
	Venue struct {
		Name string `json:"name"`
	} `json:"venue"`
	Tour      string `json:"tour"`
	EventDate string `json:"eventDate"` // dd-MM-yyyy, the provider's quirk
}

// recordingPayload mirrors the live-recording provider's response shape.
type recordingPayload struct {
	Title      string `json:"title"`
	Performer  string `json:"performer"`
	Location   string `json:"location"`
	RecordedAt string `json:"recorded_at"` // RFC3339
}

// manualPayload is what the UI sends for hand-entered sets.
type manualPayload struct {
	Title       string `json:"title"`
	Artist      string `json:"artist"`
	Venue       string `json:"venue"`
	PerformedAt string `json:"performed_at"` // RFC3339, optional
}

// Normalize validates the envelope and maps it onto the canonical shape.
func Normalize(env Envelope) (CandidateSet, error) {
	switch env.Provider {
	case ProviderSetlist:
		return normalizeSetlist(env.Payload)
	case ProviderRecording:
		return normalizeRecording(env.Payload)
	case ProviderManual:
		return normalizeManual(env.Payload)
	}
	return CandidateSet{}, errs.Validationf("unknown provider %q", env.Provider)
}

func normalizeSetlist(raw json.RawMessage) (CandidateSet, error) {
	var p setlistPayload
	if err := json.Unmarshal(raw, &p); err != nil {
		return CandidateSet{}, errs.Validationf("malformed setlist payload: %v", err)
	}
	if p.Artist.Name == "" {
		return CandidateSet{}, errs.Validationf("setlist payload missing artist name")
	}
	performedAt, err := time.Parse("02-01-2006", p.EventDate)
	if err != nil {
		return CandidateSet{}, errs.Validationf("setlist payload has invalid eventDate %q", p.EventDate)
	}
	title := p.Tour
	if title == "" {
		title = fmt.Sprintf("%s at %s", p.Artist.Name, p.Venue.Name)
	}
	return CandidateSet{
		Title:       title,
		Artist:      p.Artist.Name,
		Venue:       p.Venue.Name,
		PerformedAt: performedAt,
	}, nil
}

func normalizeRecording(raw json.RawMessage) (CandidateSet, error) {
	var p recordingPayload
	if err := json.Unmarshal(raw, &p); err != nil {
		return CandidateSet{}, errs.Validationf("malformed recording payload: %v", err)
	}
	if p.Performer == "" {
		return CandidateSet{}, errs.Validationf("recording payload missing performer")
	}
	performedAt, err := time.Parse(time.RFC3339, p.RecordedAt)
	if err != nil {
		return CandidateSet{}, errs.Validationf("recording payload has invalid recorded_at %q", p.RecordedAt)
	}
	title := p.Title
	if title == "" {
		title = p.Performer + " live"
	}
	return CandidateSet{
		Title:       title,
		Artist:      p.Performer,
		Venue:       p.Location,
		PerformedAt: performedAt,
	}, nil
}

func normalizeManual(raw json.RawMessage) (CandidateSet, error) {
	var p manualPayload
	if err := json.Unmarshal(raw, &p); err != nil {
		return CandidateSet{}, errs.Validationf("malformed manual payload: %v", err)
	}
	if strings.TrimSpace(p.Title) == "" {
		return CandidateSet{}, errs.Validationf("manual payload missing title")
	}
	out := CandidateSet{
		Title:  strings.TrimSpace(p.Title),
		Artist: strings.TrimSpace(p.Artist),
		Venue:  strings.TrimSpace(p.Venue),
	}
	if p.PerformedAt != "" {
		performedAt, err := time.Parse(time.RFC3339, p.PerformedAt)
		if err != nil {
			return CandidateSet{}, errs.Validationf("manual payload has invalid performed_at %q", p.PerformedAt)
		}
		out.PerformedAt = performedAt
	}
	return out, nil
}
