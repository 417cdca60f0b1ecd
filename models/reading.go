package models

import (
	"sort"
	"time"
)

// Reading is one load cell sample as exported by the monitoring system
type Reading struct {
	TakenOn        time.Time `json:"taken_on"`
	InstrumentID   string    `json:"instrument_id"`
	Load           float64   `json:"load"`
	ReadingAverage float64   `json:"reading_average"`
	Temperature    float64   `json:"temperature"`
}

// ReadingSeries is the time series of a single instrument
type ReadingSeries []Reading

// Sorted returns a copy of the series ordered ascending by TakenOn.
// Readings sharing a timestamp keep their file order.
func (s ReadingSeries) Sorted() ReadingSeries {
	out := make(ReadingSeries, len(s))
	copy(out, s)
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].TakenOn.Before(out[j].TakenOn)
	})
	return out
}

// InstrumentID returns the identifier shared by every reading in the series.
// An empty series or a series mixing identifiers is a data integrity error.
func (s ReadingSeries) InstrumentID() (string, error) {
	if len(s) == 0 {
		return "", NewDataIntegrityError("", "series has no readings")
	}
	id := s[0].InstrumentID
	if id == "" {
		return "", NewDataIntegrityError("", "reading 1 has an empty instrument id")
	}
	for i, r := range s {
		if r.InstrumentID != id {
			return "", NewDataIntegrityError(id,
				"reading %d has instrument id %q, expected %q", i+1, r.InstrumentID, id)
		}
	}
	return id, nil
}
