package observability

import (
	"net/http"
	"strconv"
	"strings"
)

// AppendServerTiming adds one Server-Timing metric. Zero durations and empty
// descriptions are left out; a metric with neither is not written.
func AppendServerTiming(w http.ResponseWriter, name string, durMs float64, desc string) {
	if durMs <= 0 && desc == "" {
		return
	}
	var b strings.Builder
	b.WriteString(name)
	if durMs > 0 {
		b.WriteString(";dur=")
		b.WriteString(strconv.FormatFloat(durMs, 'f', 2, 64))
	}
	if desc != "" {
		b.WriteString(";desc=")
		b.WriteString(strconv.Quote(desc))
	}
	w.Header().Add("Server-Timing", b.String())
}

// SetIfPos sets key to ms formatted with two decimals when ms is positive.
func SetIfPos(w http.ResponseWriter, key string, ms float64) {
	if ms > 0 {
		w.Header().Set(key, strconv.FormatFloat(ms, 'f', 2, 64))
	}
}

// SetSource reports where a read was served from, both as X-Source and as a
// Server-Timing entry.
func SetSource(w http.ResponseWriter, source string) {
	if source == "" {
		return
	}
	w.Header().Set("X-Source", source)
	AppendServerTiming(w, "source", 0, source)
}
