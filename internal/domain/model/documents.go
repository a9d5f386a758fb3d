package model

// Persisted document shapes. Each one normalizes nil slices so an empty
// document is written as [] rather than null.

// ResultLog is the append-only race result document.
type ResultLog struct {
	Results []RaceResult `json:"results"`
}

// Normalize replaces a nil slice with an empty one.
func (d *ResultLog) Normalize() {
	if d.Results == nil {
		d.Results = []RaceResult{}
	}
}

// Len reports the number of results.
func (d *ResultLog) Len() int { return len(d.Results) }

// HasSubmission reports whether userID already stored submissionID.
func (d *ResultLog) HasSubmission(userID, submissionID string) bool {
	for i := range d.Results {
		if d.Results[i].SubmissionID == submissionID && d.Results[i].UserID == userID {
			return true
		}
	}
	return false
}

// TrackRegistry is the keyed track document.
type TrackRegistry struct {
	Tracks []Track `json:"tracks"`
}

// Normalize replaces a nil slice with an empty one.
func (d *TrackRegistry) Normalize() {
	if d.Tracks == nil {
		d.Tracks = []Track{}
	}
}

// Len reports the number of tracks.
func (d *TrackRegistry) Len() int { return len(d.Tracks) }

// Find returns the index of trackID or -1.
func (d *TrackRegistry) Find(trackID string) int {
	for i := range d.Tracks {
		if d.Tracks[i].TrackID == trackID {
			return i
		}
	}
	return -1
}

// LockState is the admin lock document.
type LockState struct {
	Locked bool `json:"locked"`
}

// Normalize is a no-op; present so every document shares one contract.
func (d *LockState) Normalize() {}

// Len reports a single record.
func (d *LockState) Len() int { return 1 }
