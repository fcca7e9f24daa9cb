package netutil

import (
	"errors"
	"fmt"
	"log/slog"
	"net"
	"strings"
)

// ErrNoBindAddr is returned when neither the preferred address nor any
// fallback candidate can be listened on.
var ErrNoBindAddr = errors.New("no available recorder bind address")

// SelectBindAddr returns preferred when it is free. Otherwise, with
// autoFallback set, it returns the first free candidate. Blank and repeated
// candidates are skipped.
func SelectBindAddr(preferred string, candidates []string, autoFallback bool) (string, error) {
	preferred = strings.TrimSpace(preferred)
	seen := make(map[string]bool, len(candidates)+1)
	tried := make([]string, 0, len(candidates)+1)

	if preferred != "" {
		seen[preferred] = true
		tried = append(tried, preferred)
		if IsAddrAvailable(preferred) {
			return preferred, nil
		}
		if !autoFallback {
			return "", fmt.Errorf("recorder bind address %s is in use and fallback is disabled", preferred)
		}
	}

	for _, addr := range candidates {
		addr = strings.TrimSpace(addr)
		if addr == "" || seen[addr] {
			continue
		}
		seen[addr] = true
		tried = append(tried, addr)
		if IsAddrAvailable(addr) {
			if preferred != "" {
				slog.Warn("recorder bind address in use, falling back", "preferred", preferred, "addr", addr)
			}
			return addr, nil
		}
	}

	return "", fmt.Errorf("%w (tried %s)", ErrNoBindAddr, strings.Join(tried, ", "))
}

// IsAddrAvailable reports whether addr can be listened on right now.
func IsAddrAvailable(addr string) bool {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return false
	}
	_ = ln.Close()
	return true
}
