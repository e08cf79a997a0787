// Package directive extracts the chart and image-reference markers that
// managers embed in their replies.
//
// A directive is a bracketed tag followed by a JSON object:
//
//	[VISUAL_DATA: {"title": "Q1", "labels": ["Jan"], "datasets": [...]}]
//	[VISUAL_REF: {"keyword": "lab dip"}]
//
// Charts are extracted in a first pass and image references in a second, so
// the returned attachments list every chart before any image.
package directive

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/url"
	"strings"
	"unicode"
	"unicode/utf8"

	"knittex.app/boardroom/common/logger"
	"knittex.app/boardroom/internal/model"
)

const (
	ChartTag = "VISUAL_DATA"
	RefTag   = "VISUAL_REF"

	// DefaultKeyword is used when a reference names no usable keyword.
	DefaultKeyword = "textile factory"

	imageURLPrefix = "https://loremflickr.com/800/600/"
)

// Parse strips directives from raw and returns the cleaned text with the
// attachments they described.
func Parse(raw string) (string, []model.Attachment) {
	return ParseContext(context.Background(), raw)
}

// ParseContext is Parse with a context carrying log fields.
func ParseContext(ctx context.Context, raw string) (string, []model.Attachment) {
	var attachments []model.Attachment

	text := extract(raw, ChartTag, func(payload string) bool {
		var chart model.Chart
		if err := json.Unmarshal([]byte(payload), &chart); err != nil {
			slog.WarnContext(ctx, "chart directive left in place",
				"error", err,
				"payload", logger.Truncate(payload, 200))
			return false
		}
		attachments = append(attachments, model.NewChartAttachment(chart))
		return true
	})

	text = extract(text, RefTag, func(payload string) bool {
		attachments = append(attachments, model.NewImageAttachment(ImageURL(refKeyword(ctx, payload)), ""))
		return true
	})

	return strings.Join(strings.Fields(text), " "), attachments
}

// ImageURL maps a keyword to its image-search URL. Each whitespace run,
// leading and trailing ones included, becomes a comma, which the path
// escaping then encodes.
func ImageURL(keyword string) string {
	var b strings.Builder
	inSpace := false
	for _, r := range keyword {
		if unicode.IsSpace(r) {
			if !inSpace {
				b.WriteByte(',')
			}
			inSpace = true
			continue
		}
		inSpace = false
		b.WriteRune(r)
	}
	return imageURLPrefix + url.PathEscape(b.String())
}

func refKeyword(ctx context.Context, payload string) string {
	var ref struct {
		Keyword *string `json:"keyword"`
	}
	if err := json.Unmarshal([]byte(payload), &ref); err != nil {
		slog.WarnContext(ctx, "image reference payload malformed, using default keyword",
			"error", err,
			"payload", logger.Truncate(payload, 200))
		return DefaultKeyword
	}
	if ref.Keyword == nil || *ref.Keyword == "" {
		return DefaultKeyword
	}
	return *ref.Keyword
}

// extract walks every tag directive in text left to right. accept receives
// the JSON payload and reports whether the directive should be removed;
// rejected directives stay verbatim and scanning resumes after them.
func extract(text, tag string, accept func(payload string) bool) string {
	var out strings.Builder
	kept := 0
	pos := 0
	for {
		m, ok := find(text, tag, pos)
		if !ok {
			break
		}
		if accept(text[m.payloadStart:m.payloadEnd]) {
			out.WriteString(text[kept:m.start])
			kept = m.end
		}
		pos = m.end
	}
	out.WriteString(text[kept:])
	return out.String()
}

type span struct {
	start, end               int
	payloadStart, payloadEnd int
}

// find locates the next well-formed "[tag: {...}]" at or after from. The
// object extent is found by brace balancing that skips JSON strings, so
// nested objects and arrays stay inside the payload.
func find(text, tag string, from int) (span, bool) {
	opener := "[" + tag + ":"
	for from < len(text) {
		idx := strings.Index(text[from:], opener)
		if idx < 0 {
			return span{}, false
		}
		start := from + idx

		objStart := skipSpace(text, start+len(opener))
		if objStart < len(text) && text[objStart] == '{' {
			if objEnd, ok := matchBrace(text, objStart); ok {
				closer := skipSpace(text, objEnd)
				if closer < len(text) && text[closer] == ']' {
					return span{
						start:        start,
						end:          closer + 1,
						payloadStart: objStart,
						payloadEnd:   objEnd,
					}, true
				}
			}
		}
		from = start + 1
	}
	return span{}, false
}

// matchBrace returns the index just past the brace closing the one at open.
func matchBrace(text string, open int) (int, bool) {
	depth := 0
	inString := false
	escaped := false
	for i := open; i < len(text); i++ {
		c := text[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
			}
			continue
		}
		switch c {
		case '"':
			inString = true
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return i + 1, true
			}
		}
	}
	return 0, false
}

func skipSpace(text string, i int) int {
	for i < len(text) {
		r, size := utf8.DecodeRuneInString(text[i:])
		if !unicode.IsSpace(r) {
			break
		}
		i += size
	}
	return i
}
