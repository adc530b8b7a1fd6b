package main

import (
	"errors"
	"fmt"
	"testing"

	"tzbuild/internal/batch"
)

func TestExitCodeFor(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want int
	}{
		{"environment", batch.ErrEnvironment, 2},
		{"wrapped environment", fmt.Errorf("%w: another tzbuild run is active", batch.ErrEnvironment), 2},
		{"no assets", fmt.Errorf("%w under /tmp/empty", batch.ErrNoAssets), 2},
		{"asset failures", errors.New("3 of 7 assets failed"), 1},
		{"plain error", errors.New("scan /missing: no such file or directory"), 1},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := exitCodeFor(tc.err); got != tc.want {
				t.Fatalf("exitCodeFor(%v) = %d, want %d", tc.err, got, tc.want)
			}
		})
	}
}
