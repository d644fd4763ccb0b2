// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package corpus

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/pdiddy/candidate-engine/pkg/types"
)

// CoNLL-U columns.
const (
	colID = iota
	colForm
	colLemma
	colUPOS
	colXPOS
	colFeats
	colHead
	colDeprel
	colDeps
	colMisc
	numCols
)

const (
	offsetKey     = "TokenOffset"
	spaceAfterKey = "SpaceAfter"
)

// ReadCoNLLU reads CoNLL-U sentences. Recognised comments are
// "# doc_id =" (or "# newdoc id ="), "# sent_id =" and "# text =". The
// part-of-speech column is XPOS when present, else UPOS. Multiword-token
// and empty-node lines are skipped. Token offsets come from TokenOffset=
// in MISC when present and are otherwise found by locating each form in
// the text. A sentence with no text gets one rebuilt from its forms.
func ReadCoNLLU(r io.Reader) ([]types.Sentence, error) {
	var (
		sents   []types.Sentence
		docID   string
		nextID  int
		cur     *conlluSentence
		lineNum int
	)

	flush := func() error {
		if cur == nil {
			return nil
		}
		s, err := cur.sentence(docID, nextID)
		if err != nil {
			return fmt.Errorf("sentence ending line %d: %w", lineNum, err)
		}
		sents = append(sents, s)
		nextID = s.ID + 1
		cur = nil
		return nil
	}

	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 64*1024), maxLineBytes)
	for sc.Scan() {
		lineNum++
		line := strings.TrimRight(sc.Text(), "\r")

		if strings.TrimSpace(line) == "" {
			if err := flush(); err != nil {
				return nil, err
			}
			continue
		}

		if strings.HasPrefix(line, "#") {
			key, value, ok := strings.Cut(strings.TrimSpace(line[1:]), "=")
			if !ok {
				continue
			}
			key, value = strings.TrimSpace(key), strings.TrimSpace(value)
			switch key {
			case "doc_id", "newdoc id":
				if cur == nil && value != docID {
					docID = value
					nextID = 0
				}
			case "sent_id":
				if cur == nil {
					cur = &conlluSentence{}
				}
				cur.sentID = value
			case "text":
				if cur == nil {
					cur = &conlluSentence{}
				}
				cur.text = value
				cur.hasText = true
			}
			continue
		}

		cols := strings.Split(line, "\t")
		if len(cols) != numCols {
			return nil, fmt.Errorf("line %d: %d columns, want %d", lineNum, len(cols), numCols)
		}
		if strings.ContainsAny(cols[colID], "-.") {
			continue
		}
		if cur == nil {
			cur = &conlluSentence{}
		}
		if err := cur.addToken(cols); err != nil {
			return nil, fmt.Errorf("line %d: %w", lineNum, err)
		}
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("reading CoNLL-U: %w", err)
	}
	if err := flush(); err != nil {
		return nil, err
	}
	return sents, nil
}

type conlluSentence struct {
	sentID  string
	text    string
	hasText bool

	words, lemmas, poses, deprels []string
	heads                         []int
	offsets                       []int // -1 when MISC has none
	spaceAfter                    []bool
}

func (c *conlluSentence) addToken(cols []string) error {
	id, err := strconv.Atoi(cols[colID])
	if err != nil {
		return fmt.Errorf("token id %q: %w", cols[colID], err)
	}
	if id != len(c.words)+1 {
		return fmt.Errorf("token id %d out of sequence, want %d", id, len(c.words)+1)
	}

	head := 0
	if h := cols[colHead]; h != "_" {
		head, err = strconv.Atoi(h)
		if err != nil {
			return fmt.Errorf("token %d head %q: %w", id, h, err)
		}
	}

	pos := cols[colXPOS]
	if pos == "_" {
		pos = cols[colUPOS]
	}

	offset, space := -1, true
	if misc := cols[colMisc]; misc != "_" {
		for _, kv := range strings.Split(misc, "|") {
			k, v, _ := strings.Cut(kv, "=")
			switch k {
			case offsetKey:
				offset, err = strconv.Atoi(v)
				if err != nil {
					return fmt.Errorf("token %d %s %q: %w", id, offsetKey, v, err)
				}
			case spaceAfterKey:
				space = v != "No"
			}
		}
	}

	c.words = append(c.words, cols[colForm])
	c.lemmas = append(c.lemmas, cols[colLemma])
	c.poses = append(c.poses, pos)
	c.heads = append(c.heads, head)
	c.deprels = append(c.deprels, cols[colDeprel])
	c.offsets = append(c.offsets, offset)
	c.spaceAfter = append(c.spaceAfter, space)
	return nil
}

func (c *conlluSentence) sentence(docID string, nextID int) (types.Sentence, error) {
	id := nextID
	if c.sentID != "" {
		// Trailing digits carry the index in ids such as "doc1-3".
		digits := c.sentID[strings.LastIndexFunc(c.sentID, func(r rune) bool { return r < '0' || r > '9' })+1:]
		if digits == "" {
			return types.Sentence{}, fmt.Errorf("sent_id %q has no numeric index", c.sentID)
		}
		n, err := strconv.Atoi(digits)
		if err != nil {
			return types.Sentence{}, fmt.Errorf("sent_id %q: %w", c.sentID, err)
		}
		id = n
	}

	text := c.text
	if !c.hasText {
		var b strings.Builder
		for i, w := range c.words {
			b.WriteString(w)
			if c.spaceAfter[i] && i < len(c.words)-1 {
				b.WriteByte(' ')
			}
		}
		text = b.String()
	}

	return types.Sentence{
		DocID:      docID,
		ID:         id,
		Text:       text,
		Words:      c.words,
		Lemmas:     c.lemmas,
		Poses:      c.poses,
		DepParents: c.heads,
		DepLabels:  c.deprels,
		TokenIdxs:  locateOffsets(text, c.words, c.offsets),
	}, nil
}

// locateOffsets fills offsets missing from MISC by searching for each
// form after the previous token. A form not found in the text takes the
// current search position.
func locateOffsets(text string, words []string, given []int) []int {
	out := make([]int, len(words))
	cursor := 0
	for i, w := range words {
		if given[i] >= 0 {
			out[i] = given[i]
			cursor = given[i] + len(w)
			continue
		}
		if j := strings.Index(text[min(cursor, len(text)):], w); j >= 0 {
			out[i] = cursor + j
			cursor += j + len(w)
			continue
		}
		out[i] = min(cursor, len(text))
	}
	return out
}

// WriteCoNLLU writes sentences in the form ReadCoNLLU reads, carrying
// doc_id comments and TokenOffset entries so offsets survive a round trip.
func WriteCoNLLU(w io.Writer, sents []types.Sentence) error {
	bw := bufio.NewWriter(w)
	docID := ""
	for i, s := range sents {
		if i == 0 || s.DocID != docID {
			fmt.Fprintf(bw, "# doc_id = %s\n", s.DocID)
			docID = s.DocID
		}
		fmt.Fprintf(bw, "# sent_id = %d\n", s.ID)
		fmt.Fprintf(bw, "# text = %s\n", s.Text)
		for t := range s.Words {
			fmt.Fprintf(bw, "%d\t%s\t%s\t_\t%s\t_\t%d\t%s\t_\t%s=%d\n",
				t+1, field(s.Words[t]), field(s.Lemmas[t]), field(s.Poses[t]),
				s.DepParents[t], field(s.DepLabels[t]), offsetKey, s.TokenIdxs[t])
		}
		bw.WriteByte('\n')
	}
	return bw.Flush()
}

func field(v string) string {
	if v == "" {
		return "_"
	}
	return strings.ReplaceAll(v, "\t", " ")
}
