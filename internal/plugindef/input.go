package plugindef

import (
	"bufio"
	"fmt"
	"os"
	"regexp"
	"sort"
	"strings"
)

// ScanVariables lists the ${name} markers present in an input deck, unique
// and sorted. Lines starting with the model's comment marker are skipped, so
// commented-out card variants do not surface phantom variables.
func (m Model) ScanVariables(path string) ([]string, error) {
	return m.scan(path, m.VarPrefix, `([A-Za-z_][A-Za-z0-9_]*)`)
}

// ScanFormulas lists the @{...} formula bodies present in an input deck.
func (m Model) ScanFormulas(path string) ([]string, error) {
	if m.FormulaPrefix == "" {
		return nil, nil
	}
	if err := m.Validate(); err != nil {
		return nil, err
	}
	closeDelim := regexp.QuoteMeta(m.Delim[1:])
	return m.scan(path, m.FormulaPrefix, `([^`+closeDelim+`]+)`)
}

func (m Model) scan(path string, prefix string, body string) ([]string, error) {
	if err := m.Validate(); err != nil {
		return nil, err
	}

	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	pattern, err := regexp.Compile(
		regexp.QuoteMeta(prefix) +
			regexp.QuoteMeta(m.Delim[:1]) +
			body +
			regexp.QuoteMeta(m.Delim[1:]),
	)
	if err != nil {
		return nil, fmt.Errorf("marker pattern: %w", err)
	}

	seen := map[string]bool{}
	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		line := scanner.Text()
		if strings.HasPrefix(strings.TrimSpace(line), m.CommentLine) {
			continue
		}
		for _, match := range pattern.FindAllStringSubmatch(line, -1) {
			seen[match[1]] = true
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}

	names := make([]string, 0, len(seen))
	for name := range seen {
		names = append(names, name)
	}
	sort.Strings(names)
	return names, nil
}
