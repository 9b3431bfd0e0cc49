// Package export renders settlement paperwork.
package export

import (
	"bytes"
	"fmt"
	"time"

	"github.com/jung-kurt/gofpdf"

	"github.com/bitbender-8/cs-fy-project-sub000/pkg/money"
)

// ReceiptLine is one donation batch row on a settlement receipt.
type ReceiptLine struct {
	DonationID     string
	TransactionRef string
	Gross          money.Amount
	ServiceFee     money.Amount
	Net            money.Amount
}

// ReceiptData carries everything the receipt renderer needs.
type ReceiptData struct {
	Reference         string
	ProviderReference string
	CampaignTitle     string
	RecipientName     string
	Currency          string
	NetAmount         money.Amount
	SettledAt         time.Time
	Lines             []ReceiptLine
}

// ReceiptRenderer produces settlement receipts as PDF documents.
type ReceiptRenderer struct{}

// NewReceiptRenderer constructs a receipt renderer.
func NewReceiptRenderer() *ReceiptRenderer {
	return &ReceiptRenderer{}
}

// Render builds the receipt PDF.
func (r *ReceiptRenderer) Render(data ReceiptData) ([]byte, error) {
	if data.Reference == "" {
		return nil, fmt.Errorf("receipt requires a settlement reference")
	}

	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetMargins(10, 15, 10)
	pdf.AddPage()

	pdf.SetFont("Arial", "B", 14)
	pdf.CellFormat(0, 10, "SETTLEMENT RECEIPT", "", 1, "C", false, 0, "")
	pdf.Ln(3)

	pdf.SetFont("Arial", "", 10)
	meta := [][2]string{
		{"Reference", data.Reference},
		{"Provider Reference", data.ProviderReference},
		{"Campaign", data.CampaignTitle},
		{"Recipient", data.RecipientName},
		{"Settled At", data.SettledAt.UTC().Format(time.RFC3339)},
		{"Net Amount", fmt.Sprintf("%s %s", data.NetAmount.String(), data.Currency)},
	}
	for _, pair := range meta {
		pdf.SetFont("Arial", "B", 10)
		pdf.CellFormat(50, 7, pair[0], "", 0, "", false, 0, "")
		pdf.SetFont("Arial", "", 10)
		pdf.CellFormat(0, 7, pair[1], "", 1, "", false, 0, "")
	}
	pdf.Ln(4)

	headers := []string{"Donation", "Transaction Ref", "Gross", "Fee", "Net"}
	widths := []float64{45, 55, 30, 30, 30}
	pdf.SetFont("Arial", "B", 9)
	for i, header := range headers {
		pdf.CellFormat(widths[i], 8, header, "1", 0, "C", false, 0, "")
	}
	pdf.Ln(-1)

	pdf.SetFont("Arial", "", 8)
	for _, line := range data.Lines {
		cells := []string{
			line.DonationID,
			line.TransactionRef,
			line.Gross.String(),
			line.ServiceFee.String(),
			line.Net.String(),
		}
		for i, cell := range cells {
			align := ""
			if i >= 2 {
				align = "R"
			}
			pdf.CellFormat(widths[i], 7, cell, "1", 0, align, false, 0, "")
		}
		pdf.Ln(-1)
	}

	buf := &bytes.Buffer{}
	if err := pdf.Output(buf); err != nil {
		return nil, fmt.Errorf("render receipt: %w", err)
	}
	return buf.Bytes(), nil
}
