package store

import (
	"fmt"
	"strings"
)

// ParseAmp splits a &name token into its bare name.
func ParseAmp(tok string) (string, error) {
	if !strings.HasPrefix(tok, "&") || len(tok) < 2 {
		return "", fmt.Errorf("expected &<name>")
	}
	return tok[1:], nil
}

// ParsePct splits a %name token into its bare name.
func ParsePct(tok string) (string, error) {
	if !strings.HasPrefix(tok, "%") || len(tok) < 2 {
		return "", fmt.Errorf("expected %%<name>")
	}
	return tok[1:], nil
}

// SplitKV splits a $sub or $sub:key token into (sub, key, hasKey).
func SplitKV(tok string) (sub string, key string, hasKey bool, err error) {
	if !strings.HasPrefix(tok, "$") || len(tok) < 2 {
		return "", "", false, fmt.Errorf("expected $<sub> or $<sub>:<key>")
	}
	body := tok[1:]
	if idx := strings.Index(body, ":"); idx >= 0 {
		sub, key = body[:idx], body[idx+1:]
		if sub == "" || key == "" {
			return "", "", false, fmt.Errorf("expected $<sub>:<key>")
		}
		return sub, key, true, nil
	}
	return body, "", false, nil
}

// ParseHash splits a #a:b:c token into its path tokens.
func ParseHash(tok string) ([]string, error) {
	if !strings.HasPrefix(tok, "#") || len(tok) < 2 {
		return nil, fmt.Errorf("expected #<path>")
	}
	parts := strings.Split(tok[1:], ":")
	for _, p := range parts {
		if p == "" {
			return nil, fmt.Errorf("invalid # path")
		}
	}
	return parts, nil
}

// ParseAmpIdx splits &name or &name:idx into (name, idx, hasIdx).
func ParseAmpIdx(tok string) (name string, idx int, hasIdx bool, err error) {
	body := strings.TrimPrefix(tok, "&")
	if body == "" {
		return "", 0, false, fmt.Errorf("expected &<name> or &<name>:<idx>")
	}
	if i := strings.Index(body, ":"); i >= 0 {
		name = body[:i]
		idxStr := body[i+1:]
		n, ok := parseUint(idxStr)
		if !ok {
			return "", 0, false, fmt.Errorf("index must be integer")
		}
		return name, n, true, nil
	}
	return body, 0, false, nil
}

func parseUint(s string) (int, bool) {
	if s == "" {
		return 0, false
	}
	n := 0
	for _, r := range s {
		if r < '0' || r > '9' {
			return 0, false
		}
		n = n*10 + int(r-'0')
	}
	return n, true
}

// IsTrgSymbol reports whether sym ends with the numeric-trigger suffix.
func IsTrgSymbol(sym string) bool {
	return strings.HasSuffix(sym, ".trg")
}
