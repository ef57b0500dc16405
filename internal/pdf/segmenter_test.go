package pdf

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/sytion06/exambank/internal/domain"
)

func TestCheckSource(t *testing.T) {
	dir := t.TempDir()

	pdfPath := filepath.Join(dir, "exam.pdf")
	if err := os.WriteFile(pdfPath, []byte("%PDF-1.4"), 0o644); err != nil {
		t.Fatal(err)
	}
	txtPath := filepath.Join(dir, "notes.txt")
	if err := os.WriteFile(txtPath, []byte("hi"), 0o644); err != nil {
		t.Fatal(err)
	}
	renamedScan := filepath.Join(dir, "scan.pdf")
	if err := os.WriteFile(renamedScan, []byte("JFIF...."), 0o644); err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name      string
		path      string
		wantError bool
	}{
		{"valid pdf", pdfPath, false},
		{"empty path", "", true},
		{"missing file", filepath.Join(dir, "missing.pdf"), true},
		{"directory", dir, true},
		{"wrong extension", txtPath, true},
		{"renamed non-pdf", renamedScan, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := CheckSource(tt.path)
			if tt.wantError && err == nil {
				t.Error("expected error, got nil")
			}
			if !tt.wantError && err != nil {
				t.Errorf("unexpected error: %v", err)
			}
			if tt.wantError && err != nil && !domain.IsType(err, domain.ErrorTypeValidation) {
				t.Errorf("expected validation error, got %v", err)
			}
		})
	}
}

func TestOpenMissingFileIsUnreadable(t *testing.T) {
	_, err := Open(filepath.Join(t.TempDir(), "gone.pdf"))
	if err == nil {
		t.Fatal("expected error for missing file")
	}
	if !domain.IsType(err, domain.ErrorTypeUnreadable) {
		t.Errorf("expected unreadable error, got %v", err)
	}
}
