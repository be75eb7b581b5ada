package main

import (
	"os"
	"strings"
	"time"

	"golang.org/x/term"

	"github.com/mattmezza/wacli/internal/errs"
)

func isTTY(f *os.File) bool {
	return term.IsTerminal(int(f.Fd()))
}

func parseTime(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, nil
	}
	if t, err := time.Parse("2006-01-02", s); err == nil {
		return t, nil
	}
	return time.Time{}, errs.InvalidArgumentf("bad time %q (want RFC3339 or YYYY-MM-DD)", s)
}

// truncate flattens newlines and cuts at n runes for table output.
func truncate(s string, n int) string {
	s = strings.Join(strings.Fields(strings.ReplaceAll(s, "\n", " ")), " ")
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	if n <= 1 {
		return string(r[:n])
	}
	return string(r[:n-1]) + "…"
}
