// Package suite holds EPD position test suites (Bratko-Kopec, Win at Chess,
// Zugzwang and others) and runs them against a UCI engine.
package suite

import (
	"bufio"
	"fmt"
	"io"
	"regexp"
	"strings"

	"gnomes/pkg/rules"
)

// TestCase is one EPD position. Moves are long algebraic.
type TestCase struct {
	FEN        string   `json:"fen"`
	BestMoves  []string `json:"bms"`
	ID         string   `json:"id"`
	AvoidMoves []string `json:"ams,omitempty"`
	Comment    string   `json:"comment,omitempty"`
}

// Passes reports whether move is a best move and not an avoid move.
func (tc TestCase) Passes(move string) bool {
	for _, am := range tc.AvoidMoves {
		if am == move {
			return false
		}
	}
	for _, bm := range tc.BestMoves {
		if bm == move {
			return true
		}
	}
	return false
}

// Suite is a named group of test cases.
type Suite struct {
	Name    string
	Comment string
	Tests   []TestCase
}

var (
	epdLine  = regexp.MustCompile(`^(\S+ \S+ \S+ \S+)(.*)$`)
	epdField = regexp.MustCompile(`^([a-zA-Z0-9]+) (.*)$`)
)

// ParseEPD reads an EPD file. Lines "# name: X" and "# comment: Y" set the
// suite header; other "#" lines and blank lines are skipped. The four FEN
// fields are completed with " 0 1". bm and am moves may be SAN or long
// algebraic and are stored long.
func ParseEPD(r io.Reader) (Suite, error) {
	var s Suite
	scanner := bufio.NewScanner(r)
	n := 0
	for scanner.Scan() {
		n++
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		if strings.HasPrefix(line, "#") {
			header := strings.TrimSpace(strings.TrimPrefix(line, "#"))
			if v, ok := strings.CutPrefix(header, "name:"); ok {
				s.Name = strings.TrimSpace(v)
			} else if v, ok := strings.CutPrefix(header, "comment:"); ok {
				s.Comment = strings.TrimSpace(v)
			}
			continue
		}
		tc, err := parseEPDLine(line)
		if err != nil {
			return s, fmt.Errorf("epd line %d: %w", n, err)
		}
		s.Tests = append(s.Tests, tc)
	}
	if err := scanner.Err(); err != nil {
		return s, fmt.Errorf("read epd: %w", err)
	}
	return s, nil
}

func parseEPDLine(line string) (TestCase, error) {
	m := epdLine.FindStringSubmatch(line)
	if m == nil {
		return TestCase{}, fmt.Errorf("no position in %q", line)
	}
	tc := TestCase{FEN: m[1] + " 0 1"}

	for _, field := range strings.Split(m[2], ";") {
		field = strings.TrimSpace(field)
		if field == "" {
			continue
		}
		fm := epdField.FindStringSubmatch(field)
		if fm == nil {
			return tc, fmt.Errorf("malformed field %q", field)
		}
		key, value := fm[1], strings.TrimSpace(fm[2])
		switch key {
		case "bm", "am":
			moves, err := toLongAll(tc.FEN, strings.Fields(value))
			if err != nil {
				return tc, err
			}
			if key == "bm" {
				tc.BestMoves = moves
			} else {
				tc.AvoidMoves = moves
			}
		case "id":
			tc.ID = strings.ReplaceAll(value, `"`, "")
		case "c0":
			tc.Comment = strings.ReplaceAll(value, `"`, "")
		}
	}

	if tc.ID == "" {
		return tc, fmt.Errorf("missing id in %q", line)
	}
	if len(tc.BestMoves) == 0 {
		return tc, fmt.Errorf("%s: missing bm", tc.ID)
	}
	return tc, nil
}

func toLongAll(fen string, moves []string) ([]string, error) {
	out := make([]string, 0, len(moves))
	for _, mv := range moves {
		long, err := rules.ToLong(fen, mv)
		if err != nil {
			return nil, err
		}
		out = append(out, long)
	}
	return out, nil
}
