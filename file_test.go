package uvcc

import (
	"os"
	"path/filepath"
	"testing"

	"golang.org/x/sys/unix"
)

func TestFileReadStartEmulatedContinuous(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "data.txt")
	want := "hello uvcc"
	if err := os.WriteFile(path, []byte(want), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	loop, err := NewLoop()
	if err != nil {
		t.Fatalf("NewLoop: %v", err)
	}
	defer loop.Close()

	f, err := OpenFile(loop, path, unix.O_RDONLY, 0)
	if err != nil {
		t.Fatalf("OpenFile: %v", err)
	}
	defer f.Close(nil)

	var got []byte
	eof := false
	err = f.ReadStart(-1, func(suggested int) *Buffer {
		return NewBuffer(suggested)
	}, func(fh *File, buf *Buffer, nread int, status ErrorKind, offset int64) {
		switch {
		case status == KindEndOfStream:
			eof = true
			fh.ReadStop()
			loop.Stop()
		case nread > 0:
			got = append(got, buf.Segment(0)[:nread]...)
		}
	})
	if err != nil {
		t.Fatalf("ReadStart: %v", err)
	}

	if err := loop.Run(RunDefault); err != nil {
		t.Fatalf("Run: %v", err)
	}

	if !eof {
		t.Error("expected KindEndOfStream")
	}
	if string(got) != want {
		t.Errorf("got = %q, want %q", got, want)
	}
}

func TestFileWriteQueueBytesRoundTrip(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "out.txt")

	loop, err := NewLoop()
	if err != nil {
		t.Fatalf("NewLoop: %v", err)
	}
	defer loop.Close()

	f, err := OpenFile(loop, path, unix.O_WRONLY|unix.O_CREAT|unix.O_TRUNC, 0o644)
	if err != nil {
		t.Fatalf("OpenFile: %v", err)
	}
	defer f.Close(nil)

	done := false
	f.Write(WrapBytes([]byte("payload")), 0, func(r *Request, status ErrorKind, result any) {
		if status != KindOk {
			t.Errorf("write status = %q, want KindOk", status)
		}
		if f.WriteQueueBytes() != 0 {
			t.Errorf("WriteQueueBytes() = %d, want 0 after completion", f.WriteQueueBytes())
		}
		done = true
		loop.Stop()
	})

	if err := loop.Run(RunDefault); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if !done {
		t.Fatal("write completion never fired")
	}

	contents, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	if string(contents) != "payload" {
		t.Errorf("file contents = %q, want %q", contents, "payload")
	}
}
