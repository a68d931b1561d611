package pipe

import (
	"bytes"
	"errors"
	"io"
	"os"
	"strings"
	"testing"
	"time"

	"golang.org/x/sys/unix"

	goerrors "github.com/kbukum/gospawn/errors"
	"github.com/kbukum/gospawn/sys/systest"
)

func TestNewOrderedBytes(t *testing.T) {
	r, w, err := New(nil)
	if err != nil {
		t.Fatalf("New() error: %v", err)
	}
	defer r.Close()

	for _, chunk := range []string{"one ", "two ", "three"} {
		if _, err := w.Write([]byte(chunk)); err != nil {
			t.Fatalf("write %q: %v", chunk, err)
		}
	}
	w.Close()

	data, err := io.ReadAll(r)
	if err != nil {
		t.Fatalf("ReadAll: %v", err)
	}
	if string(data) != "one two three" {
		t.Errorf("expected 'one two three', got %q", data)
	}
}

func TestNewFailureIsResourceError(t *testing.T) {
	k := systest.New()
	k.PipeErr = unix.EMFILE

	_, _, err := New(k)
	if err == nil {
		t.Fatal("expected error")
	}
	if !errors.Is(err, unix.EMFILE) {
		t.Errorf("expected EMFILE in chain, got %v", err)
	}
	appErr, ok := goerrors.AsAppError(err)
	if !ok {
		t.Fatalf("expected AppError, got %T", err)
	}
	if appErr.Code != goerrors.ErrCodeResourceExhausted {
		t.Errorf("expected RESOURCE_EXHAUSTED, got %s", appErr.Code)
	}
	if !appErr.Retryable {
		t.Error("EMFILE should be retryable")
	}
}

func TestReaderSeesEOFAfterWriterClosed(t *testing.T) {
	r, w, err := New(nil)
	if err != nil {
		t.Fatalf("New() error: %v", err)
	}
	defer r.Close()
	w.Write([]byte("tail"))
	w.Close()

	buf := make([]byte, 16)
	n, err := r.Read(buf)
	if err != nil || string(buf[:n]) != "tail" {
		t.Fatalf("expected buffered data first, got %q %v", buf[:n], err)
	}
	if _, err := r.Read(buf); err != io.EOF {
		t.Errorf("expected io.EOF, got %v", err)
	}
}

func TestRead2(t *testing.T) {
	out, errOut, err := Read2(strings.NewReader("stdout data"), strings.NewReader("stderr data"))
	if err != nil {
		t.Fatalf("Read2 error: %v", err)
	}
	if string(out) != "stdout data" || string(errOut) != "stderr data" {
		t.Errorf("unexpected output %q / %q", out, errOut)
	}
}

func TestRead2NilReader(t *testing.T) {
	out, errOut, err := Read2(nil, bytes.NewBufferString("only"))
	if err != nil {
		t.Fatalf("Read2 error: %v", err)
	}
	if len(out) != 0 || string(errOut) != "only" {
		t.Errorf("unexpected output %q / %q", out, errOut)
	}
}

func TestRead2LargePayloads(t *testing.T) {
	r1, w1, err := New(nil)
	if err != nil {
		t.Fatal(err)
	}
	r2, w2, err := New(nil)
	if err != nil {
		t.Fatal(err)
	}
	defer r1.Close()
	defer r2.Close()

	payload := bytes.Repeat([]byte("abcdefgh"), 64*1024)
	go func() {
		writeAll(w1, payload)
		w1.Close()
	}()
	go func() {
		writeAll(w2, payload)
		w2.Close()
	}()

	out, errOut, err := Read2(r1, r2)
	if err != nil {
		t.Fatalf("Read2 error: %v", err)
	}
	if !bytes.Equal(out, payload) || !bytes.Equal(errOut, payload) {
		t.Errorf("payload mismatch: got %d and %d bytes", len(out), len(errOut))
	}
}

type errReader struct{}

func (errReader) Read([]byte) (int, error) { return 0, errors.New("read failed") }

func TestRead2Error(t *testing.T) {
	_, _, err := Read2(errReader{}, strings.NewReader("x"))
	if err == nil || !strings.Contains(err.Error(), "read failed") {
		t.Errorf("expected read failure, got %v", err)
	}
}

// writeAll keeps writing across short writes.
func writeAll(w io.Writer, p []byte) {
	for len(p) > 0 {
		n, err := w.Write(p)
		p = p[n:]
		if err != nil && err != io.ErrShortWrite {
			return
		}
	}
}

func TestFileReadHonorsDeadline(t *testing.T) {
	r, w, err := New(nil)
	if err != nil {
		t.Fatalf("New() error: %v", err)
	}
	// The write end stays open, so without a deadline the read would block.
	defer w.Close()

	f, err := File(r, "pipe")
	if err != nil {
		t.Fatalf("File() error: %v", err)
	}
	defer f.Close()

	if err := f.SetReadDeadline(time.Now().Add(50 * time.Millisecond)); err != nil {
		t.Fatalf("SetReadDeadline: %v", err)
	}
	start := time.Now()
	_, err = f.Read(make([]byte, 8))
	if !errors.Is(err, os.ErrDeadlineExceeded) {
		t.Fatalf("Read() error = %v, want deadline exceeded", err)
	}
	if elapsed := time.Since(start); elapsed > 2*time.Second {
		t.Errorf("read returned after %v", elapsed)
	}
}
