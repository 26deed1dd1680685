package m3u

import (
	"bytes"
	"strings"
	"testing"
)

func TestWriter_SingleEntry(t *testing.T) {
	var buf bytes.Buffer
	w := NewWriter(&buf)

	if err := w.WriteEntry(Entry{Title: "Channel 1", URL: "http://example.com/video?channel=1", ChannelNumber: 1}); err != nil {
		t.Fatalf("WriteEntry: %v", err)
	}

	lines := strings.Split(strings.TrimRight(buf.String(), "\n"), "\n")
	if len(lines) != 3 {
		t.Fatalf("expected 3 lines, got %d: %q", len(lines), buf.String())
	}
	if lines[0] != "#EXTM3U" {
		t.Errorf("expected #EXTM3U header, got %q", lines[0])
	}
	if !strings.Contains(lines[1], `tvg-chno="1"`) || !strings.Contains(lines[1], "Channel 1") {
		t.Errorf("unexpected EXTINF line: %q", lines[1])
	}
	if lines[2] != "http://example.com/video?channel=1" {
		t.Errorf("unexpected URL line: %q", lines[2])
	}
}

func TestWriter_HeaderWrittenOnce(t *testing.T) {
	var buf bytes.Buffer
	w := NewWriter(&buf)

	_ = w.WriteEntry(Entry{Title: "A", URL: "http://x/a"})
	_ = w.WriteEntry(Entry{Title: "B", URL: "http://x/b"})

	if got := strings.Count(buf.String(), "#EXTM3U"); got != 1 {
		t.Errorf("expected exactly one #EXTM3U header, got %d", got)
	}
}
