package logging

import (
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"
)

const consoleTimeLayout = "2006-01-02 15:04:05"

// formatValue renders v as a console token, quoting strings that would be
// ambiguous next to other fields.
func formatValue(v slog.Value) string {
	v = v.Resolve()
	switch v.Kind() {
	case slog.KindBool:
		return strconv.FormatBool(v.Bool())
	case slog.KindInt64:
		return strconv.FormatInt(v.Int64(), 10)
	case slog.KindUint64:
		return strconv.FormatUint(v.Uint64(), 10)
	case slog.KindFloat64:
		return strconv.FormatFloat(v.Float64(), 'f', -1, 64)
	case slog.KindDuration:
		return v.Duration().String()
	case slog.KindTime:
		return v.Time().In(time.Local).Format(consoleTimeLayout)
	}
	return quoteToken(stringify(v))
}

func stringify(v slog.Value) string {
	if v.Kind() == slog.KindAny {
		if err, ok := v.Any().(error); ok {
			return err.Error()
		}
		return fmt.Sprint(v.Any())
	}
	return v.String()
}

func quoteToken(s string) string {
	plain := s != "" && !strings.ContainsFunc(s, func(r rune) bool {
		return r <= ' ' || r == '=' || r == '"'
	})
	if plain {
		return s
	}
	return strconv.Quote(s)
}

// FormatBytes renders a byte count in human-readable binary units.
func FormatBytes(value int64) string {
	units := []struct {
		limit int64
		name  string
	}{
		{1 << 30, "GiB"},
		{1 << 20, "MiB"},
		{1 << 10, "KiB"},
	}
	for _, u := range units {
		if value >= u.limit {
			return fmt.Sprintf("%.2f %s", float64(value)/float64(u.limit), u.name)
		}
	}
	return fmt.Sprintf("%d B", value)
}

// roundedDuration trims precision the longer a duration gets, keeping the
// console columns readable.
func roundedDuration(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	granularity := time.Millisecond
	switch {
	case d >= time.Hour:
		granularity = time.Minute
	case d >= time.Minute:
		granularity = time.Second
	case d >= time.Second:
		granularity = 100 * time.Millisecond
	}
	return d.Round(granularity).String()
}
