package reliability

import (
	"fmt"
	"strconv"
	"strings"
)

// Protocol names accepted in engine specs.
const (
	ProtoHTTP   = "http"
	ProtoUCI    = "uci"
	ProtoRandom = "random"
)

// EngineSpec describes one side of a reliability game, parsed from
// "proto:http,url:<u>", "proto:uci,path:<p>" or "proto:random[,seed:<n>]".
type EngineSpec struct {
	Proto string
	URL   string
	Path  string
	Seed  uint64
	// Seeded is set when the spec names a seed.
	Seeded bool
}

func (s EngineSpec) String() string {
	switch s.Proto {
	case ProtoHTTP:
		return "proto:http,url:" + s.URL
	case ProtoUCI:
		return "proto:uci,path:" + s.Path
	default:
		if s.Seeded {
			return "proto:random,seed:" + strconv.FormatUint(s.Seed, 10)
		}
		return "proto:random"
	}
}

// ParseEngineSpec parses an engine spec. Only the first comma separates the
// protocol from its argument, so URLs may contain commas.
func ParseEngineSpec(s string) (EngineSpec, error) {
	protoPart, arg, hasArg := strings.Cut(strings.TrimSpace(s), ",")
	proto, ok := strings.CutPrefix(protoPart, "proto:")
	if !ok {
		return EngineSpec{}, fmt.Errorf("engine spec %q: expected proto:http, proto:uci or proto:random", s)
	}

	switch proto {
	case ProtoHTTP:
		url, ok := strings.CutPrefix(arg, "url:")
		if !hasArg || !ok || url == "" {
			return EngineSpec{}, fmt.Errorf("engine spec %q: expected url:<url>", s)
		}
		return EngineSpec{Proto: ProtoHTTP, URL: url}, nil
	case ProtoUCI:
		path, ok := strings.CutPrefix(arg, "path:")
		if !hasArg || !ok || path == "" {
			return EngineSpec{}, fmt.Errorf("engine spec %q: expected path:<path>", s)
		}
		return EngineSpec{Proto: ProtoUCI, Path: path}, nil
	case ProtoRandom:
		if !hasArg {
			return EngineSpec{Proto: ProtoRandom}, nil
		}
		v, ok := strings.CutPrefix(arg, "seed:")
		if !ok {
			return EngineSpec{}, fmt.Errorf("engine spec %q: expected seed:<n>", s)
		}
		seed, err := strconv.ParseUint(v, 10, 64)
		if err != nil {
			return EngineSpec{}, fmt.Errorf("engine spec %q: bad seed: %w", s, err)
		}
		return EngineSpec{Proto: ProtoRandom, Seed: seed, Seeded: true}, nil
	default:
		return EngineSpec{}, fmt.Errorf("engine spec %q: unknown protocol %q", s, proto)
	}
}
