package logging

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"path/filepath"
	"slices"
	"strconv"
	"strings"
	"sync"
	"time"
	"unicode"
)

// consoleHandler renders each record as a headline plus indented detail
// lines. Attrs attached via WithAttrs are flattened eagerly, so Handle only
// walks the record's own attributes. All clones share one mutex because they
// share the writer.
type consoleHandler struct {
	mu         *sync.Mutex
	out        io.Writer
	min        *slog.LevelVar
	base       []field
	scope      []string
	withCaller bool
}

type field struct {
	key string
	val slog.Value
}

func newConsoleHandler(w io.Writer, min *slog.LevelVar, withCaller bool) slog.Handler {
	return &consoleHandler{mu: &sync.Mutex{}, out: w, min: min, withCaller: withCaller}
}

func (h *consoleHandler) Enabled(_ context.Context, level slog.Level) bool {
	return level >= h.min.Level()
}

func (h *consoleHandler) Handle(_ context.Context, rec slog.Record) error {
	if rec.Level < h.min.Level() {
		return nil
	}

	fields := slices.Clone(h.base)
	rec.Attrs(func(a slog.Attr) bool {
		fields = foldAttr(fields, h.scope, a)
		return true
	})
	head, rest := splitHeadline(squashDuplicates(fields))

	line := h.renderRecord(rec, head, rest)

	h.mu.Lock()
	defer h.mu.Unlock()
	_, err := h.out.Write(line)
	return err
}

func (h *consoleHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	next := *h
	next.base = slices.Clone(h.base)
	for _, a := range attrs {
		next.base = foldAttr(next.base, h.scope, a)
	}
	return &next
}

func (h *consoleHandler) WithGroup(name string) slog.Handler {
	next := *h
	next.scope = append(slices.Clone(h.scope), name)
	return &next
}

// foldAttr resolves a and appends it to dst, expanding groups into
// dot-joined keys under the current scope.
func foldAttr(dst []field, scope []string, a slog.Attr) []field {
	if a.Equal(slog.Attr{}) {
		return dst
	}
	v := a.Value.Resolve()
	if v.Kind() == slog.KindGroup {
		inner := scope
		if a.Key != "" {
			inner = append(slices.Clone(scope), a.Key)
		}
		for _, member := range v.Group() {
			dst = foldAttr(dst, inner, member)
		}
		return dst
	}
	key := a.Key
	if len(scope) > 0 {
		key = strings.Join(scope, ".")
		if a.Key != "" {
			key += "." + a.Key
		}
	}
	if key == "" {
		return dst
	}
	return append(dst, field{key: key, val: v})
}

// squashDuplicates keeps each key at its first position with its last value,
// so record attrs override handler attrs without reordering the line.
func squashDuplicates(fields []field) []field {
	if len(fields) < 2 {
		return fields
	}
	latest := make(map[string]slog.Value, len(fields))
	for _, f := range fields {
		latest[f.key] = f.val
	}
	out := fields[:0]
	for _, f := range fields {
		v, ok := latest[f.key]
		if !ok {
			continue
		}
		delete(latest, f.key)
		out = append(out, field{key: f.key, val: v})
	}
	return out
}

type headline struct {
	component string
	subject   string
}

// splitHeadline pulls the component, asset, and verb fields out of the
// detail list; they render in the headline instead.
func splitHeadline(fields []field) (headline, []field) {
	var head headline
	var asset, verb string
	rest := fields[:0]
	for _, f := range fields {
		switch f.key {
		case FieldComponent:
			head.component = f.val.String()
		case FieldAsset:
			asset = f.val.String()
		case FieldVerb:
			verb = f.val.String()
		default:
			rest = append(rest, f)
		}
	}
	head.subject = subjectText(asset, verb)
	return head, rest
}

// subjectText renders the asset/verb pair shown between the component and
// the message, e.g. "<kuid:414976:1055> (build)".
func subjectText(asset, verb string) string {
	asset = strings.TrimSpace(asset)
	if verb = strings.TrimSpace(verb); verb != "" {
		verb = "(" + verb + ")"
	}
	switch {
	case asset == "":
		return verb
	case verb == "":
		return asset
	}
	return asset + " " + verb
}

func (h *consoleHandler) renderRecord(rec slog.Record, head headline, rest []field) []byte {
	ts := rec.Time
	if ts.IsZero() {
		ts = time.Now()
	}
	msg := strings.TrimSpace(rec.Message)
	if msg == "" {
		msg = "(no message)"
	}

	var buf bytes.Buffer
	buf.Grow(256 + len(rest)*32)

	buf.WriteString(ts.In(time.Local).Format(consoleTimeLayout))
	buf.WriteByte(' ')
	buf.WriteString(levelTag(rec.Level))
	if head.component != "" {
		buf.WriteString(" [" + head.component + "]")
	}
	if head.subject != "" {
		buf.WriteString(" " + head.subject)
	}
	buf.WriteString(" - " + msg)
	if h.withCaller {
		if src := rec.Source(); src != nil {
			buf.WriteString(" [" + filepath.Base(src.File) + ":" + strconv.Itoa(src.Line) + "]")
		}
	}
	buf.WriteByte('\n')

	if rec.Level < slog.LevelInfo {
		for _, f := range rest {
			buf.WriteString("    " + f.key + ": " + formatValue(f.val) + "\n")
		}
	} else {
		for _, f := range orderForDisplay(rest) {
			buf.WriteString("    - " + f.label + ": " + f.text + "\n")
		}
	}
	return buf.Bytes()
}

type displayField struct {
	label string
	text  string
}

// highlightOrder lists the keys readers scan for first; everything else
// follows in arrival order.
var highlightOrder = []string{
	FieldEventType,
	"error",
	FieldErrorHint,
	FieldImpact,
	"exit_code",
	"command",
	"duration",
	"files",
	"bytes",
	FieldRunID,
}

func orderForDisplay(fields []field) []displayField {
	if len(fields) == 0 {
		return nil
	}
	rank := make(map[string]int, len(highlightOrder))
	for i, key := range highlightOrder {
		rank[key] = i + 1
	}
	unranked := len(highlightOrder) + 1

	ordered := slices.Clone(fields)
	slices.SortStableFunc(ordered, func(a, b field) int {
		ra, rb := rank[a.key], rank[b.key]
		if ra == 0 {
			ra = unranked
		}
		if rb == 0 {
			rb = unranked
		}
		return ra - rb
	})

	out := make([]displayField, 0, len(ordered))
	for _, f := range ordered {
		out = append(out, displayField{label: fieldLabel(f.key), text: displayText(f.key, f.val)})
	}
	return out
}

var fieldLabels = map[string]string{
	FieldEventType: "Event",
	FieldErrorHint: "Hint",
	FieldImpact:    "Impact",
	FieldRunID:     "Run",
	"exit_code":    "Exit Code",
	"error":        "Error",
	"command":      "Command",
	"duration":     "Duration",
	"files":        "Files",
	"bytes":        "Size",
}

func fieldLabel(key string) string {
	if label, ok := fieldLabels[key]; ok {
		return label
	}
	return labelFromKey(key)
}

// labelFromKey turns snake_case or dotted keys into "Title Case" words.
func labelFromKey(key string) string {
	var b strings.Builder
	b.Grow(len(key))
	startWord := true
	for _, r := range key {
		if r == '_' || r == '-' || r == '.' {
			startWord = true
			continue
		}
		if startWord {
			if b.Len() > 0 {
				b.WriteByte(' ')
			}
			b.WriteRune(unicode.ToUpper(r))
			startWord = false
			continue
		}
		b.WriteRune(unicode.ToLower(r))
	}
	return b.String()
}

// displayText picks a reader-friendly rendering for highlighted fields:
// byte counts get binary units, durations get rounded, booleans read yes/no.
func displayText(key string, v slog.Value) string {
	switch v.Kind() {
	case slog.KindInt64:
		if byteSizeKey(key) {
			return FormatBytes(v.Int64())
		}
	case slog.KindUint64:
		if byteSizeKey(key) {
			return FormatBytes(int64(v.Uint64()))
		}
	case slog.KindDuration:
		return roundedDuration(v.Duration())
	case slog.KindBool:
		if v.Bool() {
			return "yes"
		}
		return "no"
	}
	return formatValue(v)
}

func byteSizeKey(key string) bool {
	return key == "bytes" || key == "size" ||
		strings.HasSuffix(key, "_bytes") ||
		strings.HasSuffix(key, "_size")
}

var levelTags = []struct {
	min slog.Level
	tag string
}{
	{slog.LevelError, "ERROR"},
	{slog.LevelWarn, "WARN"},
	{slog.LevelInfo, "INFO"},
}

func levelTag(level slog.Level) string {
	for _, t := range levelTags {
		if level >= t.min {
			return t.tag
		}
	}
	return "DEBUG"
}
