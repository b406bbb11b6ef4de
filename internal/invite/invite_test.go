package invite

import "testing"

func TestJoinURLIsDeterministic(t *testing.T) {
	g := NewGenerator("http://localhost:8080/")

	if got := g.JoinURL(7); got != "http://localhost:8080/join/7" {
		t.Errorf("join url: got %q", got)
	}
	if got := g.QRCodeURL(7); got != "http://localhost:8080/qr/7" {
		t.Errorf("qr url: got %q", got)
	}
	if g.JoinURL(7) != g.JoinURL(7) {
		t.Error("join url must be stable across calls")
	}
}

func TestShortCodePadding(t *testing.T) {
	g := NewGenerator("http://localhost:8080")

	if got := g.ShortCode(3); got != "JOIN0003" {
		t.Errorf("short code: got %q, want JOIN0003", got)
	}
	if got := g.ShortCode(12345); got != "JOIN12345" {
		t.Errorf("short code: got %q, want JOIN12345", got)
	}
}

func TestQRCodePNG(t *testing.T) {
	g := NewGenerator("http://localhost:8080")

	png, err := g.QRCodePNG(1, 256)
	if err != nil {
		t.Fatalf("QRCodePNG failed: %v", err)
	}
	if len(png) == 0 {
		t.Fatal("expected non-empty PNG")
	}
	// PNG magic header
	if png[0] != 0x89 || string(png[1:4]) != "PNG" {
		t.Error("payload is not a PNG")
	}
}
