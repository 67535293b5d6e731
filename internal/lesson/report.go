package lesson

import (
	"context"
	"encoding/json"
	"io"

	"golang.org/x/sync/errgroup"
)

// SectionReport lists the normalized tokens of every sentence of a section.
type SectionReport struct {
	ID        string     `json:"id"`
	Sentences [][]string `json:"sentences"`
}

// Report is the golden report of one document.
type Report struct {
	URL      string          `json:"url"`
	Sections []SectionReport `json:"sections"`
}

// Report builds the golden report body of doc: each sentence is split with
// [Words] and every token passed through normalize. Diffing two reports
// taken before and after a normalizer change shows exactly which tokens
// changed.
func (d *Document) Report(normalize func(string) string) []SectionReport {
	out := make([]SectionReport, 0, len(d.Sections))
	for _, s := range d.Sections {
		sr := SectionReport{ID: s.ID, Sentences: [][]string{}}
		for _, sentence := range s.Sentences() {
			words := Words(sentence)
			norm := make([]string, len(words))
			for i, w := range words {
				norm[i] = normalize(w)
			}
			sr.Sentences = append(sr.Sentences, norm)
		}
		out = append(out, sr)
	}
	return out
}

// Reporter produces golden reports for remote documents.
type Reporter struct {
	fetcher   *Fetcher
	normalize func(string) string
	limit     int
}

// NewReporter returns a Reporter that downloads through f, normalizes with
// normalize and keeps at most limit downloads in flight (no limit when
// limit < 1).
func NewReporter(f *Fetcher, normalize func(string) string, limit int) *Reporter {
	return &Reporter{fetcher: f, normalize: normalize, limit: limit}
}

// Run fetches every URL concurrently and returns the reports in argument
// order. The first failure cancels the remaining downloads.
func (r *Reporter) Run(ctx context.Context, urls ...string) ([]Report, error) {
	reports := make([]Report, len(urls))
	g, ctx := errgroup.WithContext(ctx)
	if r.limit > 0 {
		g.SetLimit(r.limit)
	}
	for i, url := range urls {
		g.Go(func() error {
			doc, err := r.fetcher.Document(ctx, url)
			if err != nil {
				return err
			}
			reports[i] = Report{URL: url, Sections: doc.Report(r.normalize)}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return reports, nil
}

// WriteReports writes reports as indented JSON. A single report is written
// as its bare section list.
func WriteReports(w io.Writer, reports []Report) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	if len(reports) == 1 {
		return enc.Encode(reports[0].Sections)
	}
	return enc.Encode(reports)
}
