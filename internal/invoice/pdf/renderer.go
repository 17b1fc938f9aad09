package pdf

import (
	"bytes"
	"context"
	"encoding/base64"
	"fmt"
	"strings"
	"time"

	"github.com/go-pdf/fpdf"
	"github.com/kminvoice/km-invoice/pkg/config"
	"github.com/shopspring/decimal"
)

// Company is printed in the invoice header
type Company struct {
	Name    string
	Address string
	ICE     string
}

// Renderer lays out invoice documents as A4 PDFs
type Renderer struct {
	company     Company
	defaultRate decimal.Decimal
	now         func() time.Time
}

// NewRenderer creates a renderer from the PDF configuration
func NewRenderer(cfg *config.PDFConfig) *Renderer {
	return &Renderer{
		company: Company{
			Name:    cfg.CompanyName,
			Address: cfg.CompanyAddress,
			ICE:     cfg.CompanyICE,
		},
		defaultRate: decimal.NewFromFloat(cfg.DefaultTVARate),
		now:         time.Now,
	}
}

// RenderBase64 renders the document and returns the PDF base64-encoded
func (r *Renderer) RenderBase64(ctx context.Context, doc Document) (string, error) {
	b, err := r.Render(ctx, doc)
	if err != nil {
		return "", err
	}
	return base64.StdEncoding.EncodeToString(b), nil
}

// Render renders the document to PDF bytes
func (r *Renderer) Render(ctx context.Context, doc Document) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	totals := doc.Compute(r.defaultRate)

	pdf := fpdf.New("P", "mm", "A4", "")
	pdf.SetMargins(15, 15, 15)
	pdf.SetAutoPageBreak(true, 20)
	pdf.SetCreator(r.company.Name, true)
	pdf.SetTitle("Facture "+doc.Numero, true)
	pdf.SetCreationDate(r.now())
	pdf.AliasNbPages("")

	// core fonts are cp1252; accents must be translated
	tr := pdf.UnicodeTranslatorFromDescriptor("")

	pdf.SetFooterFunc(func() {
		pdf.SetY(-15)
		pdf.SetFont("Helvetica", "I", 8)
		pdf.SetTextColor(128, 128, 128)
		pdf.CellFormat(0, 10, fmt.Sprintf("Page %d/{nb}", pdf.PageNo()), "", 0, "C", false, 0, "")
	})

	pdf.AddPage()

	r.header(pdf, tr, doc)
	r.parties(pdf, tr, doc)
	r.lines(pdf, tr, doc, totals)
	r.totals(pdf, tr, doc, totals)

	if doc.Notes != "" {
		pdf.Ln(8)
		pdf.SetFont("Helvetica", "I", 9)
		pdf.MultiCell(0, 5, tr(doc.Notes), "", "L", false)
	}

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("render invoice %q: %w", doc.Numero, err)
	}
	return buf.Bytes(), nil
}

func (r *Renderer) header(pdf *fpdf.Fpdf, tr func(string) string, doc Document) {
	pdf.SetFont("Helvetica", "B", 16)
	pdf.CellFormat(110, 8, tr(r.company.Name), "", 0, "L", false, 0, "")

	title := "FACTURE"
	if doc.NatureFacture == "achat" {
		title = "FACTURE D'ACHAT"
	}
	pdf.SetFont("Helvetica", "B", 14)
	pdf.CellFormat(0, 8, tr(title), "", 1, "R", false, 0, "")

	pdf.SetFont("Helvetica", "", 9)
	if r.company.Address != "" {
		pdf.CellFormat(110, 5, tr(r.company.Address), "", 0, "L", false, 0, "")
	} else {
		pdf.CellFormat(110, 5, "", "", 0, "L", false, 0, "")
	}
	pdf.CellFormat(0, 5, tr("N° "+doc.Numero), "", 1, "R", false, 0, "")

	if r.company.ICE != "" {
		pdf.CellFormat(110, 5, "ICE : "+r.company.ICE, "", 0, "L", false, 0, "")
	} else {
		pdf.CellFormat(110, 5, "", "", 0, "L", false, 0, "")
	}
	pdf.CellFormat(0, 5, tr("Date : "+doc.DateFacturation), "", 1, "R", false, 0, "")

	pdf.Ln(4)
	pdf.SetDrawColor(180, 180, 180)
	pdf.Line(15, pdf.GetY(), 195, pdf.GetY())
	pdf.Ln(6)
}

func (r *Renderer) parties(pdf *fpdf.Fpdf, tr func(string) string, doc Document) {
	pdf.SetFont("Helvetica", "B", 10)
	pdf.CellFormat(0, 6, tr("Client"), "", 1, "L", false, 0, "")

	pdf.SetFont("Helvetica", "", 10)
	pdf.CellFormat(0, 5, tr(doc.Client), "", 1, "L", false, 0, "")
	if doc.ClientAddress != "" {
		pdf.MultiCell(90, 5, tr(doc.ClientAddress), "", "L", false)
	}
	if doc.ClientICE != "" {
		pdf.CellFormat(0, 5, "ICE : "+doc.ClientICE, "", 1, "L", false, 0, "")
	}
	if doc.CompteProduit != "" {
		pdf.CellFormat(0, 5, tr("Compte produit : "+doc.CompteProduit), "", 1, "L", false, 0, "")
	}
	pdf.Ln(6)
}

var columnWidths = []float64{95, 25, 30, 30}

func (r *Renderer) lines(pdf *fpdf.Fpdf, tr func(string) string, doc Document, t Totals) {
	pdf.SetFont("Helvetica", "B", 10)
	pdf.SetFillColor(235, 235, 235)
	for i, h := range []string{"Désignation", "Quantité", "Prix unitaire", "Montant HT"} {
		align := "R"
		if i == 0 {
			align = "L"
		}
		pdf.CellFormat(columnWidths[i], 8, tr(h), "1", 0, align, true, 0, "")
	}
	pdf.Ln(-1)

	description := doc.Description
	if description == "" {
		description = "-"
	}

	pdf.SetFont("Helvetica", "", 10)
	quantity, unitPrice := "", ""
	if doc.fixed == nil {
		quantity = orZero(doc.Quantity).String()
		unitPrice = formatMoney(orZero(doc.UnitPrice))
	}
	pdf.CellFormat(columnWidths[0], 8, tr(description), "1", 0, "L", false, 0, "")
	pdf.CellFormat(columnWidths[1], 8, quantity, "1", 0, "R", false, 0, "")
	pdf.CellFormat(columnWidths[2], 8, unitPrice, "1", 0, "R", false, 0, "")
	pdf.CellFormat(columnWidths[3], 8, formatMoney(t.HT), "1", 0, "R", false, 0, "")
	pdf.Ln(-1)
	pdf.Ln(6)
}

func (r *Renderer) totals(pdf *fpdf.Fpdf, tr func(string) string, doc Document, t Totals) {
	devise := strings.TrimSpace(doc.Devise)
	suffix := ""
	if devise != "" {
		suffix = " " + devise
	}

	rows := []struct {
		label string
		value decimal.Decimal
		bold  bool
	}{
		{"Total HT", t.HT, false},
		{fmt.Sprintf("TVA (%s %%)", t.Rate.String()), t.TVA, false},
		{"Droits de timbre", t.Timbre, false},
		{"Total TTC", t.TTC, true},
	}

	for _, row := range rows {
		style := ""
		if row.bold {
			style = "B"
		}
		pdf.SetFont("Helvetica", style, 10)
		pdf.CellFormat(120, 7, "", "", 0, "L", false, 0, "")
		pdf.CellFormat(30, 7, tr(row.label), "1", 0, "L", row.bold, 0, "")
		pdf.CellFormat(30, 7, formatMoney(row.value)+suffix, "1", 1, "R", row.bold, 0, "")
	}
}
