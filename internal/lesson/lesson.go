// Package lesson loads dictation lessons: JSON documents of sections, each
// holding one reference sentence per line and an optional audio URL.
package lesson

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
)

// ErrSectionNotFound is returned when a document has no section with the
// requested id.
var ErrSectionNotFound = errors.New("lesson: section not found")

// Document is a lesson document as served by the lesson host:
//
//	{"sections": [{"id": "1", "content": "Satz eins.\nSatz zwei.", "audio": "https://…"}]}
type Document struct {
	Sections []Section `json:"sections"`
}

// Section is one lesson inside a document.
type Section struct {
	ID      string `json:"id"`
	Content string `json:"content"`
	Audio   string `json:"audio,omitempty"`
}

// Lesson is a section prepared for dictation.
type Lesson struct {
	ID        string   `json:"id"`
	Sentences []string `json:"sentences"`
	AudioURL  string   `json:"audio_url,omitempty"`
}

// Decode reads a JSON document from r.
func Decode(r io.Reader) (*Document, error) {
	var doc Document
	if err := json.NewDecoder(r).Decode(&doc); err != nil {
		return nil, fmt.Errorf("lesson: decode document: %w", err)
	}
	return &doc, nil
}

// Sentences splits the section content into lines and returns the non-blank
// ones, trimmed.
func (s Section) Sentences() []string {
	var out []string
	for line := range strings.SplitSeq(s.Content, "\n") {
		if line = strings.TrimSpace(line); line != "" {
			out = append(out, line)
		}
	}
	return out
}

// Lesson returns the section with the given id. When several sections share
// an id the first one wins.
func (d *Document) Lesson(id string) (Lesson, error) {
	for _, s := range d.Sections {
		if s.ID == id {
			return Lesson{ID: s.ID, Sentences: s.Sentences(), AudioURL: s.Audio}, nil
		}
	}
	return Lesson{}, fmt.Errorf("%w: %q", ErrSectionNotFound, id)
}

// Words splits s on single spaces and drops the empty pieces, so runs of
// spaces never produce empty tokens. Other whitespace stays inside tokens.
func Words(s string) []string {
	parts := strings.Split(s, " ")
	out := parts[:0]
	for _, p := range parts {
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}
