// Package receipt renders cart summaries as PDF and payment details as QR
// codes.
package receipt

import (
	"bytes"
	"errors"
	"fmt"
	"time"

	"storefront/models"

	"github.com/phpdave11/gofpdf"
	"github.com/skip2/go-qrcode"
)

// QRSize is the edge length in pixels of generated QR images.
const QRSize = 256

var ErrEmptyPayload = errors.New("receipt: nothing to encode")

// QR renders text as a PNG QR code.
func QR(text string) ([]byte, error) {
	if text == "" {
		return nil, ErrEmptyPayload
	}
	png, err := qrcode.Encode(text, qrcode.Medium, QRSize)
	if err != nil {
		return nil, fmt.Errorf("receipt: qr: %w", err)
	}
	return png, nil
}

// Meta is printed in the receipt header.
type Meta struct {
	Customer  string
	SessionID string
	Generated time.Time
}

// CartPDF renders snap as a one-page A4 cart summary. A QR code carrying the
// session, version and total lets staff match a printout to a cart.
func CartPDF(snap models.CartSnapshot, meta Meta) ([]byte, error) {
	if meta.Generated.IsZero() {
		meta.Generated = time.Now()
	}

	pdf := gofpdf.New("P", "mm", "A4", "")
	tr := pdf.UnicodeTranslatorFromDescriptor("")
	pdf.AddPage()
	pdf.SetFont("Arial", "B", 16)
	pdf.Cell(40, 10, "Cart Summary")
	pdf.Ln(12)

	pdf.SetFont("Arial", "", 11)
	if meta.Customer != "" {
		pdf.Cell(0, 8, tr("Customer: "+meta.Customer))
		pdf.Ln(6)
	}
	pdf.Cell(0, 8, "Date: "+meta.Generated.Format("2006-01-02 15:04"))
	pdf.Ln(12)

	pdf.SetFont("Arial", "B", 11)
	pdf.CellFormat(90, 8, "Item", "B", 0, "L", false, 0, "")
	pdf.CellFormat(25, 8, "Qty", "B", 0, "R", false, 0, "")
	pdf.CellFormat(30, 8, "Price", "B", 0, "R", false, 0, "")
	pdf.CellFormat(35, 8, "Subtotal", "B", 1, "R", false, 0, "")

	pdf.SetFont("Arial", "", 11)
	for _, l := range snap.Lines {
		pdf.CellFormat(90, 8, tr(l.Name), "", 0, "L", false, 0, "")
		pdf.CellFormat(25, 8, fmt.Sprintf("%d", l.Quantity), "", 0, "R", false, 0, "")
		pdf.CellFormat(30, 8, "$"+l.UnitPrice.StringFixed(2), "", 0, "R", false, 0, "")
		pdf.CellFormat(35, 8, "$"+l.LineTotal().StringFixed(2), "", 1, "R", false, 0, "")
	}

	pdf.SetFont("Arial", "B", 12)
	pdf.CellFormat(115, 10, fmt.Sprintf("Items: %d", snap.Count), "T", 0, "L", false, 0, "")
	pdf.CellFormat(65, 10, "Total: $"+snap.Total.StringFixed(2), "T", 1, "R", false, 0, "")

	payload := fmt.Sprintf("cart|%s|%d|%s", meta.SessionID, snap.Version, snap.Total.StringFixed(2))
	qrPNG, err := QR(payload)
	if err != nil {
		return nil, err
	}
	imageOpts := gofpdf.ImageOptions{ImageType: "PNG"}
	pdf.RegisterImageOptionsReader("qr", imageOpts, bytes.NewReader(qrPNG))
	pdf.ImageOptions("qr", 150, 15, 40, 40, false, imageOpts, 0, "")

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("receipt: pdf: %w", err)
	}
	return buf.Bytes(), nil
}
