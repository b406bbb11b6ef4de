// Package invite builds the event join artifacts: a deterministic join URL,
// a short code, and a QR image. QR rendering is delegated to go-qrcode.
package invite

import (
	"fmt"
	"strings"

	qrcode "github.com/skip2/go-qrcode"
)

type Generator struct {
	baseURL string
}

func NewGenerator(baseURL string) *Generator {
	return &Generator{baseURL: strings.TrimRight(baseURL, "/")}
}

func (g *Generator) JoinURL(eventID int64) string {
	return fmt.Sprintf("%s/join/%d", g.baseURL, eventID)
}

func (g *Generator) QRCodeURL(eventID int64) string {
	return fmt.Sprintf("%s/qr/%d", g.baseURL, eventID)
}

func (g *Generator) ShortCode(eventID int64) string {
	return fmt.Sprintf("JOIN%04d", eventID)
}

// QRCodePNG renders the join URL as a PNG of the given pixel size.
func (g *Generator) QRCodePNG(eventID int64, size int) ([]byte, error) {
	png, err := qrcode.Encode(g.JoinURL(eventID), qrcode.Medium, size)
	if err != nil {
		return nil, fmt.Errorf("failed to encode QR code: %w", err)
	}
	return png, nil
}
