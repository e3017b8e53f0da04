package suite

import (
	"embed"
	"fmt"
	"sync"
)

//go:embed suites/*.epd
var builtinFS embed.FS

// builtinOrder is the report order of the embedded suites.
var builtinOrder = []string{"bk", "wac", "colditz", "zpts", "mt", "av"}

var loadBuiltin = sync.OnceValues(func() ([]Suite, error) {
	out := make([]Suite, 0, len(builtinOrder))
	for _, key := range builtinOrder {
		f, err := builtinFS.Open("suites/" + key + ".epd")
		if err != nil {
			return nil, fmt.Errorf("open suite %s: %w", key, err)
		}
		s, err := ParseEPD(f)
		_ = f.Close()
		if err != nil {
			return nil, fmt.Errorf("suite %s: %w", key, err)
		}
		out = append(out, s)
	}
	return out, nil
})

// Builtin returns the embedded suites. Callers must not modify the result.
func Builtin() ([]Suite, error) {
	return loadBuiltin()
}
