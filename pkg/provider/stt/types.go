package stt

import "time"

// Transcript is one recognition result. Partial and final results share the
// type.
type Transcript struct {
	// Text is the recognized speech.
	Text string `json:"text"`

	// IsFinal reports whether the recognizer has committed to this result.
	IsFinal bool `json:"final"`

	// Confidence is in [0, 1]; zero when the recognizer does not report it.
	Confidence float64 `json:"confidence,omitempty"`

	// Words holds per-word detail when available.
	Words []WordDetail `json:"words,omitempty"`

	// Timestamp marks when the utterance started, relative to session start.
	Timestamp time.Duration `json:"timestamp,omitempty"`

	// Seq orders the results of one session across the partial and final
	// channels. Zero means the source does not number its results.
	Seq uint64 `json:"seq,omitempty"`
}

// WordDetail holds per-word metadata.
type WordDetail struct {
	Word       string        `json:"word"`
	Start      time.Duration `json:"start"`
	End        time.Duration `json:"end"`
	Confidence float64       `json:"confidence"`
}

// KeywordBoost is a recognition hint.
type KeywordBoost struct {
	Keyword string  `json:"keyword"`
	Boost   float64 `json:"boost"`
}
