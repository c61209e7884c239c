package report

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/jung-kurt/gofpdf"
)

// WriteStatement renders a one-page PDF statement of a card.
func WriteStatement(w io.Writer, card Card, generatedAt time.Time) error {
	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetCreationDate(generatedAt)
	pdf.SetTitle("Bonus statement", true)
	tr := pdf.UnicodeTranslatorFromDescriptor("")

	pdf.AddPage()
	pdf.SetFont("Helvetica", "B", 16)
	pdf.Cell(40, 10, tr("Bonus statement"))
	pdf.Ln(12)

	pdf.SetFont("Helvetica", "", 12)
	line := func(format string, args ...any) {
		pdf.Cell(0, 8, tr(fmt.Sprintf(format, args...)))
		pdf.Ln(7)
	}

	line("Employee: %s", card.Name)
	line("Role: %s", card.Role)
	line("City: %s", card.City)
	if card.AdmissionDate != "" {
		line("Admission: %s (%s)", card.AdmissionDate, card.Tenure)
	}
	line("Period: %s (%s)", card.Period, strings.Join(card.Months, ", "))
	pdf.Ln(3)

	line("Target: %s", FormatBRL(card.Target))
	line("Earned: %s", FormatBRL(card.Earned))
	line("Lost: %s", FormatBRL(card.Lost))
	line("Achieved: %s", FormatPercent(card.Percentage))

	if card.Badge != "" {
		pdf.Ln(3)
		pdf.SetFont("Helvetica", "B", 12)
		line("Status: %s", card.Badge)
		pdf.SetFont("Helvetica", "", 12)
	}
	if card.Observation != "" {
		line("Observation: %s", card.Observation)
	}

	if len(card.Missed) > 0 {
		pdf.Ln(3)
		pdf.SetFont("Helvetica", "B", 12)
		line("Missed indicators")
		pdf.SetFont("Helvetica", "", 11)
		for _, m := range card.Missed {
			line("- %s", m)
		}
	}
	if len(card.Notes) > 0 {
		pdf.Ln(3)
		pdf.SetFont("Helvetica", "I", 10)
		for _, n := range card.Notes {
			line("%s", n)
		}
	}

	pdf.Ln(6)
	pdf.SetFont("Helvetica", "", 8)
	line("Generated %s", generatedAt.Format("2006-01-02 15:04"))

	return pdf.Output(w)
}
