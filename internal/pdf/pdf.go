// Package pdf renders devis and factures as printable documents.
package pdf

import (
	"fmt"
	"strings"
	"time"

	"github.com/johnfercher/maroto/v2"
	"github.com/johnfercher/maroto/v2/pkg/components/col"
	"github.com/johnfercher/maroto/v2/pkg/components/line"
	"github.com/johnfercher/maroto/v2/pkg/components/row"
	"github.com/johnfercher/maroto/v2/pkg/components/text"
	"github.com/johnfercher/maroto/v2/pkg/config"
	"github.com/johnfercher/maroto/v2/pkg/consts/align"
	"github.com/johnfercher/maroto/v2/pkg/consts/fontstyle"
	"github.com/johnfercher/maroto/v2/pkg/core"
	"github.com/johnfercher/maroto/v2/pkg/props"

	"github.com/diewo77/go-facture/internal/models"
	"github.com/diewo77/go-facture/internal/money"
)

// Euros formats integer cents the French way: "1 234,56 €".
func Euros(cents int64) string {
	sign := ""
	if cents < 0 {
		sign = "-"
		cents = -cents
	}
	whole := cents / 100
	frac := cents % 100
	digits := fmt.Sprintf("%d", whole)
	var grouped strings.Builder
	for i, d := range digits {
		if i > 0 && (len(digits)-i)%3 == 0 {
			grouped.WriteRune(' ')
		}
		grouped.WriteRune(d)
	}
	return fmt.Sprintf("%s%s,%02d €", sign, grouped.String(), frac)
}

func frenchDate(t time.Time) string {
	return t.Format("02/01/2006")
}

func newDocument() core.Maroto {
	cfg := config.NewBuilder().
		WithLeftMargin(15).
		WithRightMargin(15).
		WithTopMargin(15).
		Build()
	return maroto.New(cfg)
}

func headerRows(title string, number string, date time.Time, emitter *models.User, client *models.Client) []core.Row {
	company := emitter.CompanyName
	if company == "" {
		company = emitter.Name
	}
	emitterLines := []string{company}
	if emitter.FullAddress() != "" {
		emitterLines = append(emitterLines, strings.Split(emitter.FullAddress(), "\n")...)
	}
	if emitter.SIRET != "" {
		emitterLines = append(emitterLines, "SIRET "+emitter.SIRET)
	}
	if emitter.Phone != "" {
		emitterLines = append(emitterLines, emitter.Phone)
	}
	emitterLines = append(emitterLines, emitter.SenderEmail())

	clientLines := []string{client.Name}
	if client.FullAddress() != "" {
		clientLines = append(clientLines, strings.Split(client.FullAddress(), "\n")...)
	}

	rows := []core.Row{
		row.New(12).Add(
			text.NewCol(8, fmt.Sprintf("%s %s", title, number), props.Text{
				Size: 16, Style: fontstyle.Bold,
			}),
			text.NewCol(4, "Date : "+frenchDate(date), props.Text{
				Size: 10, Align: align.Right, Top: 3,
			}),
		),
		row.New(4),
	}
	n := max(len(emitterLines), len(clientLines))
	for i := 0; i < n; i++ {
		left, right := "", ""
		if i < len(emitterLines) {
			left = emitterLines[i]
		}
		if i < len(clientLines) {
			right = clientLines[i]
		}
		style := fontstyle.Normal
		if i == 0 {
			style = fontstyle.Bold
		}
		rows = append(rows, row.New(5).Add(
			text.NewCol(6, left, props.Text{Size: 9, Style: style}),
			text.NewCol(6, right, props.Text{Size: 9, Style: style, Align: align.Right}),
		))
	}
	rows = append(rows, row.New(6).Add(line.NewCol(12, props.Line{SizePercent: 100})))
	return rows
}

func itemsHeader(withRate bool) core.Row {
	cols := []core.Col{
		text.NewCol(6, "Désignation", props.Text{Size: 9, Style: fontstyle.Bold}),
		text.NewCol(2, "Qté", props.Text{Size: 9, Style: fontstyle.Bold, Align: align.Right}),
		text.NewCol(2, "PU HT", props.Text{Size: 9, Style: fontstyle.Bold, Align: align.Right}),
	}
	if withRate {
		cols[0] = text.NewCol(5, "Désignation", props.Text{Size: 9, Style: fontstyle.Bold})
		cols = append(cols, text.NewCol(1, "TVA", props.Text{Size: 9, Style: fontstyle.Bold, Align: align.Right}))
	}
	cols = append(cols, text.NewCol(2, "Total HT", props.Text{Size: 9, Style: fontstyle.Bold, Align: align.Right}))
	return row.New(7).Add(cols...)
}

func quantity(q float64) string {
	s := fmt.Sprintf("%.3f", q)
	s = strings.TrimRight(s, "0")
	s = strings.TrimRight(s, ".")
	return strings.Replace(s, ".", ",", 1)
}

func totalRow(label string, amount int64, bold bool) core.Row {
	style := fontstyle.Normal
	if bold {
		style = fontstyle.Bold
	}
	return row.New(6).Add(
		col.New(7),
		text.NewCol(3, label, props.Text{Size: 9, Style: style, Align: align.Right}),
		text.NewCol(2, Euros(amount), props.Text{Size: 9, Style: style, Align: align.Right}),
	)
}

// Devis renders a devis. All lines share the document's VAT rate, so the
// items table omits the per-line rate column.
func Devis(devis *models.Devis, client *models.Client, emitter *models.User) ([]byte, error) {
	m := newDocument()
	m.AddRows(headerRows("Devis", devis.Number, devis.Date, emitter, client)...)
	m.AddRows(itemsHeader(false))

	lines := make([]money.Line, len(devis.Items))
	for i, item := range devis.Items {
		lines[i] = money.Line{Quantity: item.Quantity, UnitPrice: item.UnitPrice}
		m.AddRows(row.New(6).Add(
			text.NewCol(6, item.Designation, props.Text{Size: 9}),
			text.NewCol(2, quantity(item.Quantity), props.Text{Size: 9, Align: align.Right}),
			text.NewCol(2, Euros(item.UnitPrice), props.Text{Size: 9, Align: align.Right}),
			text.NewCol(2, Euros(int64(money.LineHT(item.Quantity, item.UnitPrice))), props.Text{Size: 9, Align: align.Right}),
		))
	}
	totals := money.ComputeTotals(lines, devis.TVARate)

	m.AddRows(row.New(4).Add(line.NewCol(12, props.Line{SizePercent: 100})))
	m.AddRows(
		totalRow("Total HT", int64(totals.HT), false),
		totalRow(fmt.Sprintf("TVA %s %%", rateLabel(devis.TVARate)), int64(totals.TVA), false),
		totalRow("Total TTC", int64(totals.TTC), true),
	)
	if devis.Notes != "" {
		m.AddRows(
			row.New(6),
			row.New(5).Add(text.NewCol(12, devis.Notes, props.Text{Size: 8, Style: fontstyle.Italic})),
		)
	}

	doc, err := m.Generate()
	if err != nil {
		return nil, fmt.Errorf("render devis %s: %w", devis.Number, err)
	}
	return doc.GetBytes(), nil
}

// Facture renders a facture. Each line prints its own VAT rate, and the
// totals block details the VAT amount per rate.
func Facture(facture *models.Facture, client *models.Client, emitter *models.User) ([]byte, error) {
	m := newDocument()
	m.AddRows(headerRows("Facture", facture.Number, facture.Date, emitter, client)...)
	m.AddRows(itemsHeader(true))

	lines := make([]money.RatedLine, len(facture.Items))
	for i := range facture.Items {
		item := &facture.Items[i]
		lines[i] = money.RatedLine{Quantity: item.Quantity, UnitPrice: item.UnitPrice, TVARate: item.TVARate}
		m.AddRows(row.New(6).Add(
			text.NewCol(5, item.Designation, props.Text{Size: 9}),
			text.NewCol(2, quantity(item.Quantity), props.Text{Size: 9, Align: align.Right}),
			text.NewCol(2, Euros(item.UnitPrice), props.Text{Size: 9, Align: align.Right}),
			text.NewCol(1, rateLabel(item.RatePercent())+"%", props.Text{Size: 9, Align: align.Right}),
			text.NewCol(2, Euros(int64(money.LineHT(item.Quantity, item.UnitPrice))), props.Text{Size: 9, Align: align.Right}),
		))
	}
	totals := money.ComputeTotalsPerLine(lines)

	m.AddRows(row.New(4).Add(line.NewCol(12, props.Line{SizePercent: 100})))
	m.AddRows(totalRow("Total HT", int64(totals.HT), false))
	for _, rate := range totals.Rates() {
		label := fmt.Sprintf("TVA %s %%", rateLabel(float64(rate)/100))
		m.AddRows(totalRow(label, int64(totals.VATByRate[rate]), false))
	}
	m.AddRows(totalRow("Total TTC", int64(totals.TTC), true))

	if facture.Status == models.FactureStatusPaid && facture.PaymentDate != nil {
		label := "Acquittée le " + frenchDate(*facture.PaymentDate)
		if facture.PaymentMethod != nil {
			label += " (" + string(*facture.PaymentMethod) + ")"
		}
		m.AddRows(
			row.New(6),
			row.New(5).Add(text.NewCol(12, label, props.Text{Size: 9, Style: fontstyle.Bold})),
		)
	}
	if facture.Notes != "" {
		m.AddRows(
			row.New(6),
			row.New(5).Add(text.NewCol(12, facture.Notes, props.Text{Size: 8, Style: fontstyle.Italic})),
		)
	}

	doc, err := m.Generate()
	if err != nil {
		return nil, fmt.Errorf("render facture %s: %w", facture.Number, err)
	}
	return doc.GetBytes(), nil
}

// rateLabel prints a rate without trailing zeros, comma as separator
// (20 → "20", 5.5 → "5,5").
func rateLabel(rate float64) string {
	s := fmt.Sprintf("%.2f", rate)
	s = strings.TrimRight(s, "0")
	s = strings.TrimRight(s, ".")
	return strings.Replace(s, ".", ",", 1)
}
