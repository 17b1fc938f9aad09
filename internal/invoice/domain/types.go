package domain

import "strings"

// InvoiceType is the type tag that selects an invoice table
type InvoiceType string

const (
	TypeAchat    InvoiceType = "achat"
	TypeVente    InvoiceType = "vente"
	TypeAchatOCR InvoiceType = "achat-ocr"
	TypeVenteOCR InvoiceType = "vente-ocr"
)

// Natures of an invoice, independent of whether it is staged
const (
	NatureAchat = "achat"
	NatureVente = "vente"
)

const ocrSuffix = "-ocr"

type typeInfo struct {
	table  string
	staged bool
	nature string
}

var invoiceTypes = map[InvoiceType]typeInfo{
	TypeAchat:    {table: "achat", nature: NatureAchat},
	TypeVente:    {table: "vente", nature: NatureVente},
	TypeAchatOCR: {table: "ocr_invoice", staged: true, nature: NatureAchat},
	TypeVenteOCR: {table: "vente_ocr_invoice", staged: true, nature: NatureVente},
}

// LookupType maps a nature to its invoice type. With ocr set the staged
// variant is returned; a nature already ending in -ocr is not suffixed twice.
func LookupType(nature string, ocr bool) (InvoiceType, bool) {
	key := nature
	if ocr && !strings.HasSuffix(nature, ocrSuffix) {
		key = nature + ocrSuffix
	}
	t := InvoiceType(key)
	_, ok := invoiceTypes[t]
	return t, ok
}

// ResolveNature resolves the natureFacture tag sent to the universal
// save and delete endpoints. Any tag mentioning "ocr" selects a staged table.
func ResolveNature(tag string) (InvoiceType, bool) {
	return LookupType(tag, strings.Contains(tag, "ocr"))
}

// FinalType returns the non-staged type for achat or vente
func FinalType(nature string) (InvoiceType, bool) {
	t, ok := LookupType(nature, false)
	if !ok || t.Staged() {
		return "", false
	}
	return t, true
}

// Valid reports whether t is a known type
func (t InvoiceType) Valid() bool {
	_, ok := invoiceTypes[t]
	return ok
}

// Table is the backing table name
func (t InvoiceType) Table() string {
	return invoiceTypes[t].table
}

// Staged reports whether t holds OCR drafts (no exported flag)
func (t InvoiceType) Staged() bool {
	return invoiceTypes[t].staged
}

// Nature is achat or vente
func (t InvoiceType) Nature() string {
	return invoiceTypes[t].nature
}

func (t InvoiceType) String() string {
	return string(t)
}

// Types lists every invoice type in a stable order
func Types() []InvoiceType {
	return []InvoiceType{TypeAchat, TypeVente, TypeAchatOCR, TypeVenteOCR}
}
