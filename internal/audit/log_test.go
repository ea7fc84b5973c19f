package audit

import (
	"bufio"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func tempLog(t *testing.T) string {
	t.Helper()
	return filepath.Join(t.TempDir(), "violations.jsonl")
}

func record(t *testing.T, l *Log, e Entry) {
	t.Helper()
	if err := l.Record(e); err != nil {
		t.Fatalf("record: %v", err)
	}
}

func TestRecordChainsEntries(t *testing.T) {
	path := tempLog(t)
	l, err := Open(path)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	record(t, l, Entry{SessionID: "s1", Category: "content", Reason: "content_blocked", Decision: "blocked"})
	record(t, l, Entry{SessionID: "s1", Category: "injection", Reason: "security_violation", Decision: "blocked"})
	if err := l.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	f, err := os.Open(path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer f.Close()

	var entries []Entry
	var lines [][]byte
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := append([]byte(nil), scanner.Bytes()...)
		lines = append(lines, line)
		var e Entry
		if err := json.Unmarshal(line, &e); err != nil {
			t.Fatalf("unmarshal: %v", err)
		}
		entries = append(entries, e)
	}
	if len(entries) != 2 {
		t.Fatalf("got %d entries, want 2", len(entries))
	}
	if entries[0].PrevHash != GenesisHash {
		t.Errorf("first entry prev_hash = %s, want genesis", entries[0].PrevHash)
	}
	if entries[1].PrevHash != HashLine(lines[0]) {
		t.Error("second entry does not chain to the first")
	}
	if entries[0].Timestamp == "" {
		t.Error("timestamp not filled")
	}
}

func TestOpenRecoversChainTail(t *testing.T) {
	path := tempLog(t)
	l, _ := Open(path)
	record(t, l, Entry{SessionID: "s1", Category: "rate", Reason: "rate_limited", Decision: "blocked"})
	l.Close()

	// Reopen and append; chain must continue, not restart at genesis.
	l2, err := Open(path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	record(t, l2, Entry{SessionID: "s1", Category: "rate", Reason: "rate_limited", Decision: "blocked"})
	l2.Close()

	if n, err := Verify(path); err != nil || n != 2 {
		t.Fatalf("verify after reopen: n=%d err=%v", n, err)
	}
}

func TestVerifyDetectsTampering(t *testing.T) {
	path := tempLog(t)
	l, _ := Open(path)
	record(t, l, Entry{SessionID: "s1", Category: "content", Reason: "content_blocked", Decision: "blocked"})
	record(t, l, Entry{SessionID: "s1", Category: "content", Reason: "content_blocked", Decision: "blocked"})
	record(t, l, Entry{SessionID: "s1", Category: "content", Reason: "content_blocked", Decision: "blocked"})
	l.Close()

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	tampered := strings.Replace(string(data), "content_blocked", "never_happened", 1)
	if err := os.WriteFile(path, []byte(tampered), 0600); err != nil {
		t.Fatalf("write: %v", err)
	}

	if _, err := Verify(path); err == nil {
		t.Fatal("expected chain verification to fail after tampering")
	}
}

func TestRecordRedactsOffendingInput(t *testing.T) {
	path := tempLog(t)
	l, _ := Open(path)
	long := strings.Repeat("x", 500) + "\nsecond line"
	record(t, l, Entry{SessionID: "s1", Category: "injection", Reason: "security_violation", Decision: "blocked", Input: long})
	l.Close()

	data, _ := os.ReadFile(path)
	var e Entry
	if err := json.Unmarshal([]byte(strings.TrimSpace(string(data))), &e); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if len([]rune(e.Input)) > 121 {
		t.Errorf("input not truncated: %d runes", len([]rune(e.Input)))
	}
	if strings.Contains(e.Input, "\n") {
		t.Error("newline survived redaction")
	}
}

func TestRedactInputShortPassesThrough(t *testing.T) {
	if got := RedactInput("short"); got != "short" {
		t.Errorf("got %q", got)
	}
}
