package extraction

import (
	"regexp"
	"strings"

	"github.com/kminvoice/km-invoice/internal/invoice/domain"
	"github.com/shopspring/decimal"
)

// Keys of the structured field map
const (
	FieldTotalHT  = "total_ht"
	FieldTotalTTC = "total_ttc"
	FieldTotalTVA = "total_tva"
	FieldICE      = "ice"
	FieldRC       = "rc"
	FieldIF       = "if"
)

type fieldPattern struct {
	key string
	re  *regexp.Regexp
}

// Each pattern is searched independently; the first match wins.
var fieldPatterns = []fieldPattern{
	{FieldTotalHT, regexp.MustCompile(`(?i)TOTAL\s+H\.?T\.?\s*:? ?([0-9.,]+)`)},
	{FieldTotalTTC, regexp.MustCompile(`(?i)TOTAL\s+T\.?T\.?C\.?\s*:? ?([0-9.,]+)`)},
	{FieldTotalTVA, regexp.MustCompile(`(?i)TOTAL\s+T\.?V\.?A\.?\s*:? ?([0-9.,]+)`)},
	{FieldICE, regexp.MustCompile(`(?i)ICE\s*:? ?([A-Z0-9]+)`)},
	{FieldRC, regexp.MustCompile(`(?i)\bRC\s*:? ?([A-Z0-9]+)`)},
	{FieldIF, regexp.MustCompile(`(?i)\bIF\s*:? ?([A-Z0-9]+)`)},
}

// ExtractFields searches text for invoice totals and company identifiers.
// Keys without a match are absent from the result.
func ExtractFields(text string) map[string]string {
	fields := make(map[string]string, len(fieldPatterns))
	for _, p := range fieldPatterns {
		if m := p.re.FindStringSubmatch(text); m != nil {
			fields[p.key] = m[1]
		}
	}
	return fields
}

var amountSpaces = strings.NewReplacer(" ", "", "\u00a0", "", "\u202f", "", "'", "")

// NormalizeAmount parses an amount as printed on an invoice, such as
// "1 234,56", "1.234,56" or "1,234.56". A lone separator is read as the
// decimal mark unless it repeats, in which case it groups thousands.
func NormalizeAmount(s string) (decimal.Decimal, bool) {
	s = strings.Trim(amountSpaces.Replace(s), ".,")
	if s == "" {
		return decimal.Zero, false
	}

	lastDot := strings.LastIndexByte(s, '.')
	lastComma := strings.LastIndexByte(s, ',')

	switch {
	case lastDot >= 0 && lastComma >= 0:
		if lastComma > lastDot {
			s = strings.ReplaceAll(s, ".", "")
			s = strings.Replace(s, ",", ".", 1)
		} else {
			s = strings.ReplaceAll(s, ",", "")
		}
	case lastComma >= 0:
		if strings.Count(s, ",") > 1 {
			s = strings.ReplaceAll(s, ",", "")
		} else {
			s = strings.Replace(s, ",", ".", 1)
		}
	case lastDot >= 0:
		if strings.Count(s, ".") > 1 {
			s = strings.ReplaceAll(s, ".", "")
		}
	}

	d, err := decimal.NewFromString(s)
	if err != nil || !domain.InRange(d) {
		return decimal.Zero, false
	}
	return d, true
}

func amountField(fields map[string]string, key string) domain.Amount {
	v, ok := fields[key]
	if !ok {
		return domain.Amount{}
	}
	d, ok := NormalizeAmount(v)
	if !ok {
		return domain.Amount{}
	}
	return domain.NewAmount(d)
}

// Suggest builds a staged draft of the given nature from extracted fields.
// A missing HT or TVA is derived from the other totals when possible.
func Suggest(fields map[string]string, nature string) (*domain.Draft, bool) {
	t, ok := domain.LookupType(nature, true)
	if !ok {
		return nil, false
	}

	ht := amountField(fields, FieldTotalHT)
	tva := amountField(fields, FieldTotalTVA)
	ttc := amountField(fields, FieldTotalTTC)

	if ttc.Valid {
		switch {
		case ht.Valid && !tva.Valid:
			tva = domain.NewAmount(ttc.Decimal.Sub(ht.Decimal))
		case tva.Valid && !ht.Valid:
			ht = domain.NewAmount(ttc.Decimal.Sub(tva.Decimal))
		}
	}

	return &domain.Draft{
		NatureFacture: t.String(),
		MontantHT:     ht,
		MontantTVA:    tva,
		MontantTTC:    ttc,
	}, true
}
