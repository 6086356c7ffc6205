package testutil

import (
	"context"
	"os"

	"github.com/whisperwall/whisperwall/store"
)

type (
	TestLog interface {
		Fatal(...interface{})
		Log(...interface{})
	}
)

// AcquireStore opens a fresh store in a temporary directory and hands back
// a cleanup that closes it and removes the directory.
func AcquireStore(ctx context.Context, t TestLog) (*store.S, func()) {
	dir, err := os.MkdirTemp("", "whisperwall-tests")
	if err != nil {
		t.Fatal(err)
	}
	s, err := store.Open(ctx, dir)
	if err != nil {
		t.Fatal(err)
	}
	return s, func() {
		err := s.Close()
		if err != nil {
			t.Log("unable to close store", err)
		}
		err = os.RemoveAll(dir)
		if err != nil {
			t.Log("unable to cleanup temp dir", dir)
		}
	}
}
