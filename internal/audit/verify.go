package audit

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
)

// Verify walks a violation log and checks the hash chain.
// Returns the number of valid entries, or an error naming the first break.
func Verify(path string) (int, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, fmt.Errorf("audit: open log: %w", err)
	}
	defer f.Close()

	expected := GenesisHash
	count := 0

	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := scanner.Bytes()
		var entry Entry
		if err := json.Unmarshal(line, &entry); err != nil {
			return count, fmt.Errorf("audit: entry %d: malformed JSON: %w", count+1, err)
		}
		if entry.PrevHash != expected {
			return count, fmt.Errorf("audit: entry %d: chain broken (prev_hash %s, expected %s)",
				count+1, entry.PrevHash, expected)
		}
		expected = HashLine(append([]byte(nil), line...))
		count++
	}
	if err := scanner.Err(); err != nil {
		return count, fmt.Errorf("audit: scan log: %w", err)
	}
	return count, nil
}
