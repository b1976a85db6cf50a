package runlog

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestLog_LinesAreTimestampedAndLeveled(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	l := New(&buf)

	l.Infof("%d orders fetched", 3)
	l.Warnf("no site id for %s", "CUST-1")
	l.Errorf("insert failed")

	lines := strings.Split(strings.TrimRight(buf.String(), "\n"), "\n")
	if len(lines) != 3 {
		t.Fatalf("got %d lines, want 3:\n%s", len(lines), buf.String())
	}
	for i, line := range lines {
		if !strings.HasPrefix(line, "[") {
			t.Errorf("line %d not timestamped: %q", i, line)
		}
	}
	if !strings.Contains(lines[0], "INF") || !strings.Contains(lines[0], "3 orders fetched") {
		t.Errorf("info line malformed: %q", lines[0])
	}
	if !strings.Contains(lines[1], "WRN") || !strings.Contains(lines[1], "CUST-1") {
		t.Errorf("warn line malformed: %q", lines[1])
	}
	if !strings.Contains(lines[2], "ERR") {
		t.Errorf("error line malformed: %q", lines[2])
	}
}

func TestLog_SeparatorIsDashedLine(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	l := New(&buf)
	l.Separator()

	want := strings.Repeat("-", 50) + "\n"
	if buf.String() != want {
		t.Fatalf("separator=%q, want %q", buf.String(), want)
	}
}

func TestOpen_CreatesDirAndAppends(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "Logs", "log.txt")

	l, err := Open(path)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	l.Infof("first run")
	l.Separator()
	if err := l.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	// Reopen and append: the first run's content must survive.
	l2, err := Open(path)
	if err != nil {
		t.Fatalf("Open again: %v", err)
	}
	l2.Infof("second run")
	if err := l2.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	got := string(data)
	if !strings.Contains(got, "first run") || !strings.Contains(got, "second run") {
		t.Fatalf("log not appended across opens:\n%s", got)
	}
	if strings.Index(got, "first run") > strings.Index(got, "second run") {
		t.Fatalf("append order wrong:\n%s", got)
	}
}
