package runtime

import (
	"io"
	"strings"
	"testing"
)

func TestExecIDUnique(t *testing.T) {
	seen := make(map[string]bool)
	for range 100 {
		id := execID()
		if !strings.HasPrefix(id, "forge-exec-") {
			t.Fatalf("execID() = %q, want forge-exec- prefix", id)
		}
		if seen[id] {
			t.Fatalf("execID() repeated %q", id)
		}
		seen[id] = true
	}
}

func TestEOFReader(t *testing.T) {
	r := newEOFReader(strings.NewReader("recipe.tar"))

	select {
	case <-r.Done():
		t.Fatal("Done closed before the source was read")
	default:
	}

	data, err := io.ReadAll(r)
	if err != nil {
		t.Fatalf("ReadAll: %v", err)
	}
	if string(data) != "recipe.tar" {
		t.Fatalf("data = %q", data)
	}

	select {
	case <-r.Done():
	default:
		t.Fatal("Done not closed after EOF")
	}

	// Reading past EOF again must not close the channel twice.
	if _, err := r.Read(make([]byte, 4)); err != io.EOF {
		t.Fatalf("Read after EOF = %v, want io.EOF", err)
	}
}
