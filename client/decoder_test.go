package client

import (
	"strings"
	"testing"
)

func feedAll(t *testing.T, d *Decoder, chunks ...string) ([]string, bool) {
	t.Helper()
	var fragments []string
	for _, chunk := range chunks {
		frags, done, err := d.Feed([]byte(chunk))
		if err != nil {
			t.Fatalf("unexpected decode error: %v", err)
		}
		fragments = append(fragments, frags...)
		if done {
			return fragments, true
		}
	}
	return fragments, false
}

func TestDecoder_SingleRecord(t *testing.T) {
	d := NewDecoder()
	fragments, done := feedAll(t, d,
		"data: {\"choices\":[{\"delta\":{\"content\":\"Hello\"}}]}\n",
		"data: [DONE]\n",
	)
	if !done {
		t.Fatal("expected done after sentinel")
	}
	if len(fragments) != 1 || fragments[0] != "Hello" {
		t.Errorf("expected [Hello], got %v", fragments)
	}
}

func TestDecoder_ChunkSplitMidLine(t *testing.T) {
	d := NewDecoder()
	record := "data: {\"choices\":[{\"delta\":{\"content\":\"Hello world\"}}]}\n"

	// Deliver the record one byte at a time.
	var fragments []string
	for i := 0; i < len(record); i++ {
		frags, done, err := d.Feed([]byte{record[i]})
		if err != nil {
			t.Fatalf("unexpected error at byte %d: %v", i, err)
		}
		if done {
			t.Fatal("unexpected done")
		}
		fragments = append(fragments, frags...)
	}

	if strings.Join(fragments, "") != "Hello world" {
		t.Errorf("expected 'Hello world', got %q", strings.Join(fragments, ""))
	}
}

func TestDecoder_MultipleRecordsOneChunk(t *testing.T) {
	d := NewDecoder()
	chunk := "data: {\"choices\":[{\"delta\":{\"content\":\"A\"}}]}\n" +
		"\n" +
		"data: {\"choices\":[{\"delta\":{\"content\":\"B\"}}]}\n" +
		"data: {\"choices\":[{\"delta\":{\"content\":\"C\"}}]}\n"

	fragments, done := feedAll(t, d, chunk)
	if done {
		t.Fatal("unexpected done")
	}
	if strings.Join(fragments, "") != "ABC" {
		t.Errorf("expected fragments ABC in order, got %v", fragments)
	}
}

func TestDecoder_NoFragmentsAfterDone(t *testing.T) {
	d := NewDecoder()
	_, done := feedAll(t, d, "data: [DONE]\n")
	if !done {
		t.Fatal("expected done")
	}

	frags, done, err := d.Feed([]byte("data: {\"choices\":[{\"delta\":{\"content\":\"late\"}}]}\n"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !done {
		t.Error("decoder should stay done")
	}
	if len(frags) != 0 {
		t.Errorf("no fragments may follow the sentinel, got %v", frags)
	}
}

func TestDecoder_MalformedJSON(t *testing.T) {
	d := NewDecoder()
	_, _, err := d.Feed([]byte("data: {\"choices\":[{\"delta\"\n"))
	if err == nil {
		t.Fatal("expected error for malformed JSON record")
	}
}

func TestDecoder_PlainTextRecord(t *testing.T) {
	d := NewDecoder()
	fragments, done := feedAll(t, d, "data: hello there\n")
	if done {
		t.Fatal("unexpected done")
	}
	if len(fragments) != 1 || fragments[0] != "hello there" {
		t.Errorf("expected plain text passthrough, got %v", fragments)
	}
}

func TestDecoder_IgnoresNonDataLines(t *testing.T) {
	d := NewDecoder()
	fragments, done := feedAll(t, d,
		": keepalive\n",
		"event: message\n",
		"data: {\"choices\":[{\"delta\":{\"content\":\"ok\"}}]}\n",
	)
	if done {
		t.Fatal("unexpected done")
	}
	if len(fragments) != 1 || fragments[0] != "ok" {
		t.Errorf("expected [ok], got %v", fragments)
	}
}

func TestDecoder_CRLFLines(t *testing.T) {
	d := NewDecoder()
	fragments, done := feedAll(t, d,
		"data: {\"choices\":[{\"delta\":{\"content\":\"x\"}}]}\r\n",
		"data: [DONE]\r\n",
	)
	if !done {
		t.Fatal("expected done")
	}
	if len(fragments) != 1 || fragments[0] != "x" {
		t.Errorf("expected [x], got %v", fragments)
	}
}

func TestDecoder_CloseCleanVsMidRecord(t *testing.T) {
	clean := NewDecoder()
	if _, _, err := clean.Feed([]byte("data: {\"choices\":[{\"delta\":{\"content\":\"a\"}}]}\n")); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := clean.Close(); err != nil {
		t.Errorf("clean close should not error, got %v", err)
	}

	dirty := NewDecoder()
	if _, _, err := dirty.Feed([]byte("data: {\"choi")); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := dirty.Close(); err == nil {
		t.Error("close mid-record should error")
	}
}

func TestDecoder_EmptyDeltasProduceNoFragments(t *testing.T) {
	d := NewDecoder()
	fragments, _ := feedAll(t, d,
		"data: {\"choices\":[{\"delta\":{\"role\":\"assistant\"}}]}\n",
		"data: {\"choices\":[{\"delta\":{\"content\":\"\"}}]}\n",
	)
	if len(fragments) != 0 {
		t.Errorf("empty deltas should yield no fragments, got %v", fragments)
	}
}
