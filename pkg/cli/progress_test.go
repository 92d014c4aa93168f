package cli

import (
	"bytes"
	"fmt"
	"strings"
	"sync"
	"testing"
)

func TestSimpleProgressBasic(t *testing.T) {
	buf := &bytes.Buffer{}
	progress := NewProgressReporter(buf).WithLabel("Linting", "files")

	progress.Start(2000)
	progress.Update(1000)
	progress.Finish()

	output := buf.String()
	for _, want := range []string{"Linting:", "50%", "1,000/2,000 files", "100%"} {
		if !strings.Contains(output, want) {
			t.Errorf("output missing %q: %q", want, output)
		}
	}
	if !strings.HasSuffix(output, "\n") {
		t.Error("Finish() should end the line")
	}
}

func TestSimpleProgressZeroTotal(t *testing.T) {
	buf := &bytes.Buffer{}
	progress := NewProgressReporter(buf)

	progress.Start(0)
	progress.Update(0)
	progress.Finish()

	if buf.String() != "\n" {
		t.Errorf("output = %q, want a bare newline", buf.String())
	}
}

func TestSimpleProgressOutOfRange(t *testing.T) {
	buf := &bytes.Buffer{}
	progress := NewProgressReporter(buf)

	progress.Start(10)
	progress.Update(25)
	if !strings.Contains(buf.String(), "100%") {
		t.Errorf("output = %q, want progress capped at 100%%", buf.String())
	}
}

func TestSimpleProgressError(t *testing.T) {
	buf := &bytes.Buffer{}
	progress := NewProgressReporter(buf)

	progress.Start(100)
	progress.Error(fmt.Errorf("test error"))

	output := buf.String()
	if !strings.Contains(output, "Error: test error") {
		t.Errorf("output = %q, want the error", output)
	}
}

func TestSimpleProgressConcurrent(t *testing.T) {
	buf := &bytes.Buffer{}
	var progress ProgressReporter = NewProgressReporter(buf)

	progress.Start(1000)

	var wg sync.WaitGroup
	for i := range 10 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := range 100 {
				progress.Update(int64(i*100 + j))
			}
		}()
	}
	wg.Wait()

	progress.Finish()

	if buf.Len() == 0 {
		t.Error("Expected some progress output")
	}
}

func TestNewProgressReporterNilWriter(t *testing.T) {
	progress := NewProgressReporter(nil)
	if progress.writer == nil {
		t.Error("NewProgressReporter(nil) should default the writer")
	}
}
