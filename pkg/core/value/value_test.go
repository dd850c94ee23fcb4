package value_test

import (
	"testing"

	"github.com/agenthands/nsound/pkg/core/value"
)

func TestValueCreation(t *testing.T) {
	vScalar := value.Scalar(0.5)
	if vScalar.Type != value.TypeScalar {
		t.Errorf("expected TypeScalar, got %v", vScalar.Type)
	}
	if vScalar.Scalar != 0.5 {
		t.Errorf("expected 0.5, got %v", vScalar.Scalar)
	}

	vBuf := value.Buffer([]float32{1, 2, 3})
	if vBuf.Type != value.TypeBuffer {
		t.Errorf("expected TypeBuffer, got %v", vBuf.Type)
	}
	if len(vBuf.Buffer) != 3 {
		t.Errorf("expected 3 samples, got %d", len(vBuf.Buffer))
	}
}

func TestCopyDoesNotAlias(t *testing.T) {
	orig := value.Buffer([]float32{1, 2, 3})
	cp := orig.Copy()
	cp.Buffer[0] = 9
	if orig.Buffer[0] != 1 {
		t.Errorf("copy aliases original buffer")
	}

	s := value.Scalar(2).Copy()
	if s.Scalar != 2 || s.Type != value.TypeScalar {
		t.Errorf("scalar copy changed value: %v", s.Format())
	}
}

func TestFormat(t *testing.T) {
	if got := value.Buffer([]float32{0.5, -1}).Format(); got != "buffer[2] peak=1" {
		t.Errorf("unexpected format %q", got)
	}
	if got := (value.Value{}).Format(); got != "void" {
		t.Errorf("unexpected format %q", got)
	}
}
