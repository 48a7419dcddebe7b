package lock_test

import (
	"errors"
	"testing"

	"github.com/micro-nova/queuepi/internal/lock"
)

func TestAcquire_Exclusive(t *testing.T) {
	dir := t.TempDir()
	l, err := lock.Acquire(dir)
	if err != nil {
		t.Fatalf("Acquire: %v", err)
	}

	if _, err := lock.Acquire(dir); !errors.Is(err, lock.ErrLocked) {
		t.Errorf("second Acquire err = %v, want ErrLocked", err)
	}

	if err := l.Release(); err != nil {
		t.Fatalf("Release: %v", err)
	}
	l2, err := lock.Acquire(dir)
	if err != nil {
		t.Fatalf("Acquire after Release: %v", err)
	}
	l2.Release()
}

func TestRelease_Nil(t *testing.T) {
	var l *lock.Lock
	if err := l.Release(); err != nil {
		t.Errorf("Release on nil lock = %v", err)
	}
}
