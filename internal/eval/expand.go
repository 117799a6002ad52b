package eval

import (
	"context"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"posh/internal/parse"
)

// Word expansion pipeline: tilde expansion, then parameter/command/
// arithmetic substitution segment by segment, then field splitting of the
// unquoted results against the live IFS, then pathname expansion of
// unquoted fields, then quote removal. Quote removal is implicit: quoting
// lives in segment flags, never in the text, so assembled fields are
// already bare.

// ExpandWord runs the full pipeline for one word and returns its fields.
func (r *Runner) ExpandWord(ctx context.Context, w *parse.Word, env *Env) ([]string, error) {
	fields, err := r.expandFields(ctx, w, env)
	if err != nil {
		return nil, err
	}
	var out []string
	for _, f := range fields {
		if f.quoted {
			out = append(out, f.text)
			continue
		}
		out = append(out, globField(f.text)...)
	}
	return out, nil
}

// ExpandWordNoSplit expands a word into exactly one string, skipping
// field splitting and pathname expansion. Used for assignment values.
func (r *Runner) ExpandWordNoSplit(ctx context.Context, w *parse.Word, env *Env) (string, error) {
	if w == nil {
		return "", nil
	}
	pieces, err := r.substitute(ctx, tildeExpand(w, env), env)
	if err != nil {
		return "", err
	}
	var b strings.Builder
	for _, pc := range pieces {
		b.WriteString(pc.text)
	}
	return b.String(), nil
}

func (r *Runner) expandFields(ctx context.Context, w *parse.Word, env *Env) ([]field, error) {
	if w == nil {
		return nil, nil
	}
	pieces, err := r.substitute(ctx, tildeExpand(w, env), env)
	if err != nil {
		return nil, err
	}
	return splitPieces(pieces, env.IFS()), nil
}

// substitute walks the segments left to right, dispatching each directive
// to its engine. Later segments observe side effects of earlier ones.
func (r *Runner) substitute(ctx context.Context, w *parse.Word, env *Env) ([]piece, error) {
	if w == nil {
		return nil, nil
	}
	pieces := make([]piece, 0, len(w.Segs))
	for _, seg := range w.Segs {
		if err := ctx.Err(); err != nil {
			return nil, expandErr(w, seg.Pos, err)
		}
		switch seg.Kind {
		case parse.SegLiteral:
			pieces = append(pieces, piece{text: seg.Text, quoted: seg.Quoted})
		case parse.SegParam:
			val, err := r.expandParam(ctx, seg.Text, env)
			if err != nil {
				return nil, expandErr(w, seg.Pos, err)
			}
			pieces = append(pieces, piece{text: val, quoted: seg.Quoted})
		case parse.SegArith:
			n, err := evalArith(seg.Text, env)
			if err != nil {
				return nil, expandErr(w, seg.Pos, err)
			}
			pieces = append(pieces, piece{text: strconv.FormatInt(n, 10), quoted: seg.Quoted})
		case parse.SegCmdSub:
			out, err := r.runCapturing(ctx, seg.Text, env)
			if err != nil {
				return nil, expandErr(w, seg.Pos, err)
			}
			pieces = append(pieces, piece{text: trimTrailingNewlines(out), quoted: seg.Quoted})
		}
	}
	return pieces, nil
}

// tildeExpand rewrites a leading unquoted ~ or ~/ against HOME. Any other
// tilde form passes through unchanged.
func tildeExpand(w *parse.Word, env *Env) *parse.Word {
	if w == nil || len(w.Segs) == 0 {
		return w
	}
	s := w.Segs[0]
	if s.Kind != parse.SegLiteral || s.Quoted || !strings.HasPrefix(s.Text, "~") {
		return w
	}
	if s.Text != "~" && !strings.HasPrefix(s.Text, "~/") {
		return w
	}
	home, ok := env.Get("HOME")
	if !ok {
		h, err := os.UserHomeDir()
		if err != nil {
			return w
		}
		home = h
	}
	out := &parse.Word{Pos: w.Pos, Segs: append([]parse.Segment(nil), w.Segs...)}
	out.Segs[0].Text = home + s.Text[1:]
	return out
}

// trimTrailingNewlines strips exactly the trailing run of newlines from
// captured command substitution output.
func trimTrailingNewlines(s string) string {
	return strings.TrimRight(s, "\n")
}

// globField performs pathname expansion on one unquoted field. A pattern
// matching nothing is kept literally.
func globField(text string) []string {
	if !strings.ContainsAny(text, "*?[") {
		return []string{text}
	}
	matches, err := filepath.Glob(text)
	if err != nil || len(matches) == 0 {
		return []string{text}
	}
	sort.Strings(matches)
	return matches
}
