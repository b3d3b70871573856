package classifier

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"
)

// ParseLabels reads a newline-delimited label list. Lines are trimmed and
// blank lines are skipped; line order defines the output index of each label.
func ParseLabels(r io.Reader) ([]string, error) {
	var labels []string

	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		if line := strings.TrimSpace(scanner.Text()); line != "" {
			labels = append(labels, line)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("scan labels: %w", err)
	}
	if len(labels) == 0 {
		return nil, fmt.Errorf("label list is empty")
	}

	return labels, nil
}

// ReadLabels reads and parses the label list at path.
func ReadLabels(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open labels: %w", err)
	}
	defer f.Close()

	return ParseLabels(f)
}
