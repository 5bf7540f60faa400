package window

import (
	"errors"
	"strings"
	"testing"
)

func TestToPlatform_NarrowsFields(t *testing.T) {
	id := NewIdentifier("Notepad", 42, 0x3a00007, 0x1f0a2)

	tests := []struct {
		goos       string
		wantNative uint64
	}{
		{"windows", 0x1f0a2},
		{"linux", 0x3a00007},
		{"darwin", 0x3a00007},
	}
	for _, tt := range tests {
		t.Run(tt.goos, func(t *testing.T) {
			pi, err := id.ToPlatform(tt.goos)
			if err != nil {
				t.Fatalf("ToPlatform(%q): %v", tt.goos, err)
			}
			if pi.Native != tt.wantNative {
				t.Fatalf("Native = %#x, want %#x", pi.Native, tt.wantNative)
			}
			if pi.Title != "Notepad" || pi.ProcessID != 42 {
				t.Fatalf("unexpected fields: %+v", pi)
			}
			if pi.Platform != tt.goos {
				t.Fatalf("Platform = %q, want %q", pi.Platform, tt.goos)
			}
		})
	}
}

func TestToPlatform_Unsupported(t *testing.T) {
	_, err := ByTitle("x").ToPlatform("plan9")
	if !errors.Is(err, ErrUnsupportedPlatform) {
		t.Fatalf("expected ErrUnsupportedPlatform, got %v", err)
	}
}

func TestIdentifierConstructors(t *testing.T) {
	if got := ByTitle("a").Title(); got != "a" {
		t.Errorf("ByTitle: Title() = %q", got)
	}
	if got := ByProcessID(7).ProcessID(); got != 7 {
		t.Errorf("ByProcessID: ProcessID() = %d", got)
	}
	if got := ByWindowID(9).WindowID(); got != 9 {
		t.Errorf("ByWindowID: WindowID() = %d", got)
	}
	if got := ByHandle(11).NativeHandle(); got != 11 {
		t.Errorf("ByHandle: NativeHandle() = %d", got)
	}
	if !(Identifier{}).IsZero() {
		t.Error("zero identifier should report IsZero")
	}
	if ByTitle("a").IsZero() {
		t.Error("titled identifier should not report IsZero")
	}
}

func TestIdentifierString(t *testing.T) {
	s := NewIdentifier("Term", 3, 0, 0).String()
	if !strings.Contains(s, `title="Term"`) || !strings.Contains(s, "pid=3") {
		t.Fatalf("String() = %q", s)
	}
	if strings.Contains(s, "handle") {
		t.Fatalf("String() should omit absent fields: %q", s)
	}
}
