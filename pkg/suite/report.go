package suite

import (
	"fmt"
	"sort"
	"strings"
)

func percent(passed, total int) string {
	if total == 0 {
		return "0.00"
	}
	return fmt.Sprintf("%.2f", float64(passed)*100/float64(total))
}

func countPassed(results []Result) int {
	n := 0
	for _, r := range results {
		if r.OK {
			n++
		}
	}
	return n
}

// Report renders results as a markdown document: an overall summary, then
// one section per suite (sorted by name) with a collapsible table of
// failures.
func Report(suites []Suite, results []Result) string {
	passed := countPassed(results)

	var b strings.Builder
	b.WriteString("# 🧪 Position Test Results\n\n")
	fmt.Fprintf(&b, "* ✅ %d passed\n", passed)
	fmt.Fprintf(&b, "* ❌ %d failed\n", len(results)-passed)
	fmt.Fprintf(&b, "* 💡 %d total\n", len(results))
	fmt.Fprintf(&b, "* 🧮 %s%% success\n\n\n", percent(passed, len(results)))

	byName := make(map[string]Suite, len(suites))
	for _, s := range suites {
		byName[s.Name] = s
	}
	grouped := make(map[string][]Result)
	for _, r := range results {
		grouped[r.Suite] = append(grouped[r.Suite], r)
	}
	names := make([]string, 0, len(grouped))
	for name := range grouped {
		names = append(names, name)
	}
	sort.Strings(names)

	sections := make([]string, 0, len(names))
	for _, name := range names {
		sections = append(sections, suiteSummary(byName[name], name, grouped[name]))
	}
	b.WriteString(strings.Join(sections, "\n\n"))
	return b.String()
}

func suiteSummary(s Suite, name string, results []Result) string {
	passed := countPassed(results)
	failed := len(results) - passed

	var b strings.Builder
	fmt.Fprintf(&b, "## 📝 %s Report\n\n", name)
	if s.Comment != "" {
		b.WriteString(s.Comment + "\n\n")
	}
	b.WriteString("### 📍 Summary\n\n")
	fmt.Fprintf(&b, "* ✅ %d passed\n", passed)
	fmt.Fprintf(&b, "* ❌ %d failed\n", failed)
	fmt.Fprintf(&b, "* 💡 %d total\n", len(results))
	fmt.Fprintf(&b, "* 🧮 %s%% success\n", percent(passed, len(results)))

	if failed == 0 {
		return b.String()
	}

	sorted := append([]Result(nil), results...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].ID < sorted[j].ID })

	b.WriteString("\n<details>\n\n<summary>\n  <h3>🔎 Failure details</h3>\n</summary>\n\n")
	b.WriteString("| id | input | expected | got |\n")
	b.WriteString("| -- |  --   |    --    | --  |\n")
	for _, r := range sorted {
		if r.OK {
			continue
		}
		fmt.Fprintf(&b, "| %s | %s | %s | %s |\n", r.ID, r.FEN, r.Expected, r.Got)
	}
	b.WriteString("</details>\n")
	return b.String()
}
