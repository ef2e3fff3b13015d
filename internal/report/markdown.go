package report

import (
	"fmt"
	"io"
	"strconv"

	"github.com/nao1215/markdown"

	"github.com/yuki-osaki/marketscan/internal/model"
)

// MarkdownWriter outputs session summaries in Markdown format.
// This format is designed for documentation and sharing.
//
// Design decision: We use the nao1215/markdown library for fluent markdown
// generation which provides:
// 1. Type-safe markdown generation
// 2. Support for tables, lists, and code blocks
// 3. GitHub-flavored markdown alerts
type MarkdownWriter struct {
	baseWriter
}

// NewMarkdownWriter creates a MarkdownWriter that outputs to the given writer.
func NewMarkdownWriter(output io.Writer) *MarkdownWriter {
	return &MarkdownWriter{
		baseWriter: newBaseWriter(output),
	}
}

// Write outputs the session summary in Markdown format.
func (w *MarkdownWriter) Write(sessions []*model.CrawlSession) (int, error) {
	md := markdown.NewMarkdown(w.output)

	md.H1("Crawl Summary")
	md.PlainText("")

	w.writeSessionsTable(md, sessions)
	w.writeAlert(md, sessions)

	for _, s := range sessions {
		w.writeSession(md, s)
	}

	return len(md.String()), md.Build()
}

// writeSessionsTable writes the per-keyword overview table.
func (w *MarkdownWriter) writeSessionsTable(md *markdown.Markdown, sessions []*model.CrawlSession) {
	rows := make([][]string, len(sessions))
	for i, s := range sessions {
		rows[i] = []string{
			s.Keyword,
			strconv.Itoa(s.RequestsDispatched),
			strconv.Itoa(s.RecordsEmitted),
			strconv.Itoa(s.Failures),
			string(s.Reason),
		}
	}

	md.Table(markdown.TableSet{
		Header: []string{"Keyword", "Requests", "Records", "Failures", "Termination"},
		Rows:   rows,
	})
	md.PlainText("")
}

// writeAlert writes an alert reflecting the run outcome.
func (w *MarkdownWriter) writeAlert(md *markdown.Markdown, sessions []*model.CrawlSession) {
	var failed int
	for _, s := range sessions {
		if !s.Succeeded() {
			failed++
		}
	}

	t := sumSessions(sessions)
	switch {
	case failed == len(sessions):
		md.Cautionf("No records were extracted from any of %d keyword(s). Check the seed URL and the extractor selectors.", len(sessions))
	case failed > 0:
		md.Warningf("%d of %d keyword(s) produced no records.", failed, len(sessions))
	case t.failures > 0:
		md.Importantf("%d request(s) exhausted their retry budget; results may be incomplete.", t.failures)
	default:
		md.Tip(fmt.Sprintf("All %d keyword(s) crawled successfully, %d record(s) extracted.", len(sessions), t.records))
	}
	md.PlainText("")
}

// writeSession writes one session's detail section.
func (w *MarkdownWriter) writeSession(md *markdown.Markdown, s *model.CrawlSession) {
	md.H2(s.Keyword)
	md.PlainText("")

	md.Table(markdown.TableSet{
		Header: []string{"Property", "Value"},
		Rows: [][]string{
			{"Session", "`" + s.ID + "`"},
			{"Seed URL", "`" + s.SeedURL + "`"},
			{"Started", s.StartedAt.Format("2006-01-02 15:04:05 MST")},
			{"Duration", s.Duration().Round(durationPrecision).String()},
			{"Requests", strconv.Itoa(s.RequestsDispatched)},
			{"Cache hits", strconv.Itoa(s.CacheHits)},
			{"Search pages", strconv.Itoa(s.SearchPages)},
			{"Product pages", strconv.Itoa(s.ProductPages)},
			{"Records", strconv.Itoa(s.RecordsEmitted)},
			{"Retries", strconv.Itoa(s.Retries)},
			{"Failures", strconv.Itoa(s.Failures)},
			{"Termination", string(s.Reason)},
		},
	})
	md.PlainText("")
}
