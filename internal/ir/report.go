package ir

import (
	"fmt"
	"io"
	"sync"

	"github.com/tliron/commonlog"
)

// ExpansionReport is the per-function result of MulExpansion
type ExpansionReport struct {
	Function  string
	Rewritten int
}

// Changed reports whether the function was modified
func (r ExpansionReport) Changed() bool { return r.Rewritten > 0 }

func (r ExpansionReport) String() string {
	switch r.Rewritten {
	case 0:
		return fmt.Sprintf("@%s: no mul instructions found", r.Function)
	case 1:
		return fmt.Sprintf("@%s: expanded 1 mul instruction into repeated additions", r.Function)
	default:
		return fmt.Sprintf("@%s: expanded %d mul instructions into repeated additions", r.Function, r.Rewritten)
	}
}

// Reporter receives one report per function the expansion pass visits.
// The caller decides how reports are rendered.
type Reporter interface {
	Report(report ExpansionReport)
}

// ReporterFunc adapts a function to the Reporter interface
type ReporterFunc func(report ExpansionReport)

func (f ReporterFunc) Report(report ExpansionReport) { f(report) }

// WriterReporter renders each report as one line on W
type WriterReporter struct {
	W io.Writer
}

func (w *WriterReporter) Report(report ExpansionReport) {
	fmt.Fprintln(w.W, report.String())
}

// LogReporter forwards reports to a commonlog logger
type LogReporter struct {
	Log commonlog.Logger
}

func (l *LogReporter) Report(report ExpansionReport) {
	if report.Changed() {
		l.Log.Infof("%s", report)
	} else {
		l.Log.Debugf("%s", report)
	}
}

// Collector keeps every report it receives
type Collector struct {
	mu      sync.Mutex
	reports []ExpansionReport
}

func (c *Collector) Report(report ExpansionReport) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.reports = append(c.reports, report)
}

// Reports returns a copy of the collected reports
func (c *Collector) Reports() []ExpansionReport {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]ExpansionReport(nil), c.reports...)
}

// Total returns the number of rewritten instructions over all reports
func (c *Collector) Total() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	total := 0
	for _, r := range c.reports {
		total += r.Rewritten
	}
	return total
}

// MultiReporter fans a report out to several reporters
type MultiReporter []Reporter

func (m MultiReporter) Report(report ExpansionReport) {
	for _, r := range m {
		if r != nil {
			r.Report(report)
		}
	}
}
