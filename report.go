// Copyright 2018 Denis Bernard <db047h@gmail.com>
// Licensed under the MIT license. See license text in the LICENSE file.

package hwunit

import (
	"encoding/xml"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
	"github.com/pkg/errors"
)

// Status is a test outcome.
//
type Status int

// Test outcomes.
//
const (
	Passed Status = iota
	Failed
	Skipped
)

func (s Status) String() string {
	switch s {
	case Passed:
		return "pass"
	case Failed:
		return "fail"
	case Skipped:
		return "skip"
	}
	return "unknown"
}

// MarshalText implements encoding.TextMarshaler.
//
func (s Status) MarshalText() ([]byte, error) { return []byte(s.String()), nil }

// TestResult is the result of a test case.
//
type TestResult struct {
	Name     string        `json:"name"`
	Library  string        `json:"library"`
	Bench    string        `json:"testbench"`
	Config   string        `json:"config,omitempty"`
	Test     string        `json:"test"`
	Status   Status        `json:"status"`
	Message  string        `json:"message,omitempty"`
	Duration time.Duration `json:"duration"`
	// Simulation log.
	Output string `json:"-"`
}

func newResult(tc *testCase) *TestResult {
	return &TestResult{
		Name:    tc.name,
		Library: tc.bench.lib.name,
		Bench:   tc.bench.name,
		Config:  tc.configName(),
		Test:    tc.test.name,
	}
}

// Report holds the results of a run, in test case registration order.
//
type Report struct {
	Results  []*TestResult
	Duration time.Duration
}

func (r *Report) count(s Status) int {
	n := 0
	for _, t := range r.Results {
		if t.Status == s {
			n++
		}
	}
	return n
}

// Passed returns the number of passed tests.
//
func (r *Report) Passed() int { return r.count(Passed) }

// Failed returns the number of failed tests.
//
func (r *Report) Failed() int { return r.count(Failed) }

// Skipped returns the number of skipped tests.
//
func (r *Report) Skipped() int { return r.count(Skipped) }

// OK returns true if no test failed or was skipped.
//
func (r *Report) OK() bool { return r.Passed() == len(r.Results) }

// Result returns the result of the named test case.
//
func (r *Report) Result(name string) (*TestResult, bool) {
	for _, t := range r.Results {
		if t.Name == name {
			return t, true
		}
	}
	return nil, false
}

type styles struct {
	pass, fail, skip lipgloss.Style
}

func newStyles(color bool) styles {
	if !color {
		return styles{lipgloss.NewStyle(), lipgloss.NewStyle(), lipgloss.NewStyle()}
	}
	return styles{
		pass: lipgloss.NewStyle().Foreground(lipgloss.Color("2")).Bold(true),
		fail: lipgloss.NewStyle().Foreground(lipgloss.Color("1")).Bold(true),
		skip: lipgloss.NewStyle().Foreground(lipgloss.Color("3")),
	}
}

func (st styles) status(s Status) string {
	switch s {
	case Passed:
		return st.pass.Render(s.String())
	case Failed:
		return st.fail.Render(s.String())
	}
	return st.skip.Render(s.String())
}

// Write writes the results table and summary to w. The output of failed tests
// is written first, as well as the output of passed tests if verbose is set.
//
func (r *Report) Write(w io.Writer, color, verbose bool) {
	st := newStyles(color)
	for _, t := range r.Results {
		if t.Status == Failed || verbose && t.Output != "" {
			fmt.Fprintf(w, "==== %s (%s) ====\n%s", t.Name, st.status(t.Status), t.Output)
		}
	}

	tw := table.NewWriter()
	tw.SetOutputMirror(w)
	tw.SetStyle(table.StyleLight)
	// StyleLight upper-cases headers and footers; keep the summary as is.
	tw.Style().Format.Footer = text.FormatDefault
	tw.AppendHeader(table.Row{"Status", "Test", "Time"})
	for _, t := range r.Results {
		tw.AppendRow(table.Row{st.status(t.Status), t.Name, seconds(t.Duration)})
	}
	tw.AppendFooter(table.Row{
		"",
		fmt.Sprintf("pass %d, fail %d, skip %d, total %d", r.Passed(), r.Failed(), r.Skipped(), len(r.Results)),
		seconds(r.Duration),
	})
	tw.Render()

	switch {
	case len(r.Results) == 0:
		fmt.Fprintln(w, st.skip.Render("No tests were run!"))
	case r.OK():
		fmt.Fprintln(w, st.pass.Render("All passed!"))
	default:
		fmt.Fprintln(w, st.fail.Render("Some failed!"))
	}
}

func seconds(d time.Duration) string {
	return fmt.Sprintf("%.3fs", d.Seconds())
}

type xunitSuite struct {
	XMLName  xml.Name    `xml:"testsuite"`
	Name     string      `xml:"name,attr"`
	Tests    int         `xml:"tests,attr"`
	Failures int         `xml:"failures,attr"`
	Skipped  int         `xml:"skipped,attr"`
	Errors   int         `xml:"errors,attr"`
	Time     string      `xml:"time,attr"`
	Cases    []xunitCase `xml:"testcase"`
}

type xunitCase struct {
	ClassName string        `xml:"classname,attr"`
	Name      string        `xml:"name,attr"`
	Time      string        `xml:"time,attr"`
	Failure   *xunitMessage `xml:"failure,omitempty"`
	Skipped   *xunitMessage `xml:"skipped,omitempty"`
	SystemOut string        `xml:"system-out,omitempty"`
}

type xunitMessage struct {
	Message string `xml:"message,attr"`
}

// WriteXUnit writes the report in xUnit XML format. Test cases are classed by
// library and test bench.
//
func (r *Report) WriteXUnit(w io.Writer) error {
	s := xunitSuite{
		Name:     "hwunit",
		Tests:    len(r.Results),
		Failures: r.Failed(),
		Skipped:  r.Skipped(),
		Time:     fmt.Sprintf("%.3f", r.Duration.Seconds()),
	}
	for _, t := range r.Results {
		class := t.Library + "." + t.Bench
		c := xunitCase{
			ClassName: class,
			Name:      strings.TrimPrefix(t.Name, class+"."),
			Time:      fmt.Sprintf("%.3f", t.Duration.Seconds()),
			SystemOut: t.Output,
		}
		switch t.Status {
		case Failed:
			c.Failure = &xunitMessage{Message: t.Message}
		case Skipped:
			c.Skipped = &xunitMessage{Message: t.Message}
		}
		s.Cases = append(s.Cases, c)
	}
	if _, err := io.WriteString(w, xml.Header); err != nil {
		return errors.Wrap(err, "failed to write xunit report")
	}
	enc := xml.NewEncoder(w)
	enc.Indent("", "  ")
	if err := enc.Encode(s); err != nil {
		return errors.Wrap(err, "failed to write xunit report")
	}
	_, err := io.WriteString(w, "\n")
	return err
}
