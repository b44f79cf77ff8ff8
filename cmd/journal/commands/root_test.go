package commands

import (
	"testing"

	"github.com/anthropics/labjournal/internal/jerr"
)

func TestExitCodeForMapsConfigInvalid(t *testing.T) {
	wrapped := errConfigInvalid
	if got := exitCodeFor(wrapped); got != 2 {
		t.Errorf("expected exit code 2 for config errors, got %d", got)
	}
}

func TestExitCodeForMapsJerrKinds(t *testing.T) {
	cases := []struct {
		kind jerr.Kind
		want int
	}{
		{jerr.NotFound, 3},
		{jerr.InvalidArgument, 4},
		{jerr.IoFailure, 1},
	}
	for _, c := range cases {
		err := jerr.New(c.kind, "boom")
		if got := exitCodeFor(err); got != c.want {
			t.Errorf("exitCodeFor(%s) = %d, want %d", c.kind, got, c.want)
		}
	}
}
