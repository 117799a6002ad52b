package eval

import "strings"

// piece is one segment's expansion result before field splitting. Quoted
// pieces pass through the splitter untouched.
type piece struct {
	text   string
	quoted bool
}

// field is one split result. quoted records whether any quoted piece
// contributed, which suppresses pathname expansion later.
type field struct {
	text   string
	quoted bool
}

// splitter re-splits unquoted expansion results according to IFS. Runs of
// IFS whitespace collapse into single delimiters and are discarded at
// either end; each non-whitespace IFS character is its own delimiter and
// produces empty fields between adjacent occurrences. An empty IFS
// disables splitting entirely.
type splitter struct {
	ifs    string
	fields []field

	cur    strings.Builder
	open   bool
	quoted bool
	wsDel  bool // a whitespace delimiter just closed a field
}

func newSplitter(ifs string) *splitter {
	return &splitter{ifs: ifs}
}

func (sp *splitter) addQuoted(s string) {
	sp.cur.WriteString(s)
	sp.open = true
	sp.quoted = true
	sp.wsDel = false
}

func (sp *splitter) addUnquoted(s string) {
	if sp.ifs == "" {
		if s != "" {
			sp.cur.WriteString(s)
			sp.open = true
		}
		return
	}
	for _, r := range s {
		switch {
		case sp.isIFSSpace(r):
			if sp.open {
				sp.emit()
				sp.wsDel = true
			}
		case sp.isIFS(r):
			switch {
			case sp.open:
				sp.emit()
			case sp.wsDel:
				// Whitespace around a single non-whitespace
				// delimiter counts as one delimiter.
				sp.wsDel = false
			default:
				sp.emit()
			}
		default:
			sp.cur.WriteRune(r)
			sp.open = true
			sp.wsDel = false
		}
	}
}

func (sp *splitter) isIFS(r rune) bool {
	return strings.ContainsRune(sp.ifs, r)
}

func (sp *splitter) isIFSSpace(r rune) bool {
	return (r == ' ' || r == '\t' || r == '\n') && sp.isIFS(r)
}

func (sp *splitter) emit() {
	sp.fields = append(sp.fields, field{text: sp.cur.String(), quoted: sp.quoted})
	sp.cur.Reset()
	sp.open = false
	sp.quoted = false
	sp.wsDel = false
}

// finish closes any open field and returns the field list.
func (sp *splitter) finish() []field {
	if sp.open {
		sp.emit()
	}
	return sp.fields
}

// splitPieces runs the field splitter over a word's expansion pieces.
func splitPieces(pieces []piece, ifs string) []field {
	sp := newSplitter(ifs)
	for _, pc := range pieces {
		if pc.quoted {
			sp.addQuoted(pc.text)
		} else {
			sp.addUnquoted(pc.text)
		}
	}
	return sp.finish()
}
