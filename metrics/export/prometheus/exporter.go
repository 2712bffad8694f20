package prometheus

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/dia-accounts/dia"
	"github.com/dia-accounts/dia/metrics/export/internaldefs"
)

// Source is satisfied by *dia.Engine.
type Source interface {
	MetricsSnapshot() dia.MetricsSnapshot
	AuditDropped() uint64
}

type Exporter struct {
	source Source
}

func New(source Source) *Exporter {
	return &Exporter{source: source}
}

func (e *Exporter) Handler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/plain; version=0.0.4; charset=utf-8")
		_, _ = w.Write([]byte(e.Render()))
	})
}

// Render returns the exposition page. It is empty when metrics are disabled.
func (e *Exporter) Render() string {
	if e == nil || e.source == nil {
		return ""
	}

	snapshot := e.source.MetricsSnapshot()
	dropped := e.source.AuditDropped()
	if len(snapshot.Counters) == 0 && len(snapshot.Histograms) == 0 && dropped == 0 {
		return ""
	}

	var b strings.Builder
	b.Grow(4096)

	for _, def := range internaldefs.CounterDefs {
		writeCounter(&b, def.Name, def.Help, snapshot.Counters[def.ID])
	}
	for _, def := range internaldefs.HistogramDefs {
		raw, ok := snapshot.Histograms[def.ID]
		if !ok {
			continue
		}
		writeHistogram(&b, def.Name, def.Help, internaldefs.CumulativeBuckets(internaldefs.NormalizeBuckets(raw)))
	}
	writeCounter(&b, internaldefs.AuditDroppedName, internaldefs.AuditDroppedHelp, dropped)

	return b.String()
}

func writeHeader(b *strings.Builder, name, help, kind string) {
	b.WriteString("# HELP ")
	b.WriteString(name)
	b.WriteByte(' ')
	b.WriteString(escapeHelp(help))
	b.WriteString("\n# TYPE ")
	b.WriteString(name)
	b.WriteByte(' ')
	b.WriteString(kind)
	b.WriteByte('\n')
}

func writeCounter(b *strings.Builder, name, help string, value uint64) {
	writeHeader(b, name, help, "counter")
	writeSample(b, name, "", value)
}

func writeHistogram(b *strings.Builder, name, help string, cumulative [8]uint64) {
	writeHeader(b, name, help, "histogram")
	for i, le := range internaldefs.HistogramBounds {
		writeSample(b, name+"_bucket", `le="`+le+`"`, cumulative[i])
	}
	writeSample(b, name+"_count", "", cumulative[len(cumulative)-1])
	// Sums are not tracked by the engine.
	writeSample(b, name+"_sum", "", 0)
}

func writeSample(b *strings.Builder, name, labels string, value uint64) {
	b.WriteString(name)
	if labels != "" {
		b.WriteByte('{')
		b.WriteString(labels)
		b.WriteByte('}')
	}
	b.WriteByte(' ')
	b.WriteString(strconv.FormatUint(value, 10))
	b.WriteByte('\n')
}

func escapeHelp(help string) string {
	help = strings.ReplaceAll(help, `\`, `\\`)
	return strings.ReplaceAll(help, "\n", `\n`)
}
