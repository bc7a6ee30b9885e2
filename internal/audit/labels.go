package audit

import (
	"fmt"
)

// Labels is a header row plus status labels used when writing the journal.
type Labels struct {
	Header       [6]string
	Validated    string
	TooFar       string
	FaceMismatch string
}

// French reproduces the column names and status labels of the historical
// journal_presence.csv files.
var French = Labels{
	Header:       [6]string{"Telephone", "DateHeure", "Latitude", "Longitude", "Distance_m", "Statut"},
	Validated:    "Validée",
	TooFar:       "Refusée - Trop éloigné",
	FaceMismatch: "Refusée - Visage non reconnu",
}

// Neutral uses language-neutral column names and the Status names.
var Neutral = Labels{
	Header:       [6]string{"agent_id", "timestamp", "latitude", "longitude", "distance_m", "status"},
	Validated:    StatusValidated.String(),
	TooFar:       StatusRejectedTooFar.String(),
	FaceMismatch: StatusRejectedFaceMismatch.String(),
}

// LabelsFor returns the label set for a language code ("fr" or "en").
func LabelsFor(lang string) (Labels, error) {
	switch lang {
	case "fr", "":
		return French, nil
	case "en":
		return Neutral, nil
	default:
		return Labels{}, fmt.Errorf("unsupported journal language %q", lang)
	}
}

// Label returns the label for s.
func (l Labels) Label(s Status) string {
	switch s {
	case StatusValidated:
		return l.Validated
	case StatusRejectedTooFar:
		return l.TooFar
	case StatusRejectedFaceMismatch:
		return l.FaceMismatch
	default:
		return s.String()
	}
}

var statusByLabel = func() map[string]Status {
	m := make(map[string]Status)
	for _, l := range []Labels{French, Neutral} {
		m[normalizeLabel(l.Validated)] = StatusValidated
		m[normalizeLabel(l.TooFar)] = StatusRejectedTooFar
		m[normalizeLabel(l.FaceMismatch)] = StatusRejectedFaceMismatch
	}
	return m
}()

// ParseStatus maps a journal label in any known language back to a Status.
// Matching ignores case, diacritics and dash/space differences.
func ParseStatus(label string) (Status, error) {
	if s, ok := statusByLabel[normalizeLabel(label)]; ok {
		return s, nil
	}
	return 0, fmt.Errorf("unknown status label %q", label)
}

func isHeader(row []string) bool {
	if len(row) != 6 {
		return false
	}
	for _, l := range []Labels{French, Neutral} {
		match := true
		for i := range row {
			if normalizeLabel(row[i]) != normalizeLabel(l.Header[i]) {
				match = false
				break
			}
		}
		if match {
			return true
		}
	}
	return false
}
