package errs

import (
	"fmt"
	"testing"
)

func TestExitCode(t *testing.T) {
	cases := []struct {
		err  error
		want int
	}{
		{nil, 0},
		{fmt.Errorf("boom"), 1},
		{InvalidArgumentf("bad --chat %q", "x"), 2},
		{fmt.Errorf("acquire: %w", ErrLockHeld), 3},
		{fmt.Errorf("connect: %w", ErrNotAuthenticated), 1},
		{NotFoundf("message %s", "m1"), 1},
	}
	for _, c := range cases {
		if got := ExitCode(c.err); got != c.want {
			t.Fatalf("ExitCode(%v) = %d, want %d", c.err, got, c.want)
		}
	}
}
