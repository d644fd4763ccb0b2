// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package extract

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
)

// Renderer writes one candidate for display.
type Renderer interface {
	Render(w io.Writer, c Candidate) error
}

// Render writes candidate id with r.
func (cs *CandidateSet) Render(w io.Writer, id int, r Renderer) error {
	c, ok := cs.Get(id)
	if !ok {
		return fmt.Errorf("candidate %d not in set of %d", id, cs.Len())
	}
	return r.Render(w, c)
}

// spanMarkers open and close span i in TextRenderer output.
var spanMarkers = [][2]string{{"[[", "]]"}, {"{{", "}}"}}

// TextRenderer writes one tab-separated line per candidate: id, sentence
// key, span labels, and the sentence words with the first span in [[ ]]
// and the second in {{ }}.
type TextRenderer struct{}

func (TextRenderer) Render(w io.Writer, c Candidate) error {
	words := c.Sentence.Words
	var b strings.Builder
	for t, word := range words {
		if t > 0 {
			b.WriteByte(' ')
		}
		for i, sp := range c.Spans {
			if sp.Start == t {
				b.WriteString(spanMarkers[i%len(spanMarkers)][0])
			}
		}
		b.WriteString(word)
		for i := len(c.Spans) - 1; i >= 0; i-- {
			if c.Spans[i].End == t {
				b.WriteString(spanMarkers[i%len(spanMarkers)][1])
			}
		}
	}
	_, err := fmt.Fprintf(w, "%d\t%s\t%s\t%s\n", c.ID, c.Sentence.Key(), strings.Join(c.Labels(), "/"), b.String())
	return err
}

// JSONRenderer writes one JSON object per line.
type JSONRenderer struct{}

type jsonSpan struct {
	Start int    `json:"start"`
	End   int    `json:"end"`
	Label string `json:"label,omitempty"`
	Text  string `json:"text"`
}

type jsonCandidate struct {
	ID     int        `json:"id"`
	DocID  string     `json:"doc_id"`
	SentID int        `json:"sent_id"`
	Spans  []jsonSpan `json:"spans"`
}

func (JSONRenderer) Render(w io.Writer, c Candidate) error {
	out := jsonCandidate{
		ID:     c.ID,
		DocID:  c.Sentence.DocID,
		SentID: c.Sentence.ID,
		Spans:  make([]jsonSpan, len(c.Spans)),
	}
	for i, sp := range c.Spans {
		out.Spans[i] = jsonSpan{Start: sp.Start, End: sp.End, Label: sp.Label, Text: c.Text(i)}
	}
	data, err := json.Marshal(out)
	if err != nil {
		return fmt.Errorf("marshaling candidate %d: %w", c.ID, err)
	}
	_, err = fmt.Fprintf(w, "%s\n", data)
	return err
}
