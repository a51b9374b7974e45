package httpapi

import "testing"

func TestSetMaxBodyBytes_DefaultWhenNonPositive(t *testing.T) {
	SetMaxBodyBytes(-1)
	if maxBodyBytes != 1<<20 {
		t.Fatalf("expected default 1MiB, got %d", maxBodyBytes)
	}
	SetMaxBodyBytes(0)
	if maxBodyBytes != 1<<20 {
		t.Fatalf("expected default 1MiB on zero, got %d", maxBodyBytes)
	}
}

func TestSetMaxBodyBytes_PositiveSetsValue(t *testing.T) {
	defer SetMaxBodyBytes(0)
	SetMaxBodyBytes(1234)
	if maxBodyBytes != 1234 {
		t.Fatalf("expected 1234, got %d", maxBodyBytes)
	}
}

func TestSetMaxUploadBytes(t *testing.T) {
	defer SetMaxUploadBytes(0)
	SetMaxUploadBytes(-5)
	if maxUploadBytes != 10<<20 {
		t.Fatalf("expected default 10MiB, got %d", maxUploadBytes)
	}
	SetMaxUploadBytes(2048)
	if maxUploadBytes != 2048 {
		t.Fatalf("expected 2048, got %d", maxUploadBytes)
	}
}
