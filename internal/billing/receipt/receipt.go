package receipt

import (
	"fmt"
	"strings"
	"time"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// Payload carries everything the renderer needs; it is assembled by the
// finalizer from the completed order.
type Payload struct {
	OrderNumber   string
	Lines         []Line
	Subtotal      float64
	TaxAmount     float64
	TotalAmount   float64
	PaymentMethod string
	StaffID       string
	TableLabel    string
	IssuedAt      time.Time
}

type Line struct {
	Name       string
	Quantity   int
	UnitPrice  float64
	TotalPrice float64
}

type Receipt struct {
	Payload Payload
	Text    string
}

// Renderer turns a payload into a printable receipt. A nil return means
// rendering failed; callers must check rather than expect an error.
type Renderer interface {
	Generate(p *Payload) *Receipt
}

// Printer sends a rendered receipt to its output device and reports success.
type Printer interface {
	Print(r *Receipt) bool
}

// TextRenderer renders a fixed-width text receipt with locale-aware number
// formatting.
type TextRenderer struct {
	printer *message.Printer
}

func NewTextRenderer() *TextRenderer {
	return &TextRenderer{printer: message.NewPrinter(language.English)}
}

func (t *TextRenderer) Generate(p *Payload) *Receipt {
	if p == nil || p.OrderNumber == "" || len(p.Lines) == 0 {
		return nil
	}

	var b strings.Builder
	b.WriteString("================ MESA ================\n")
	fmt.Fprintf(&b, "Order:   %s\n", p.OrderNumber)
	fmt.Fprintf(&b, "Staff:   %s\n", p.StaffID)
	fmt.Fprintf(&b, "Table:   %s\n", p.TableLabel)
	fmt.Fprintf(&b, "Issued:  %s\n", p.IssuedAt.Format("2006-01-02 15:04"))
	b.WriteString("--------------------------------------\n")

	for _, line := range p.Lines {
		fmt.Fprintf(&b, "%-22s x%-3d %s\n", clip(line.Name, 22), line.Quantity,
			t.printer.Sprintf("%8.2f", line.TotalPrice))
	}

	b.WriteString("--------------------------------------\n")
	fmt.Fprintf(&b, "Subtotal %s\n", t.printer.Sprintf("%29.2f", p.Subtotal))
	fmt.Fprintf(&b, "Tax      %s\n", t.printer.Sprintf("%29.2f", p.TaxAmount))
	fmt.Fprintf(&b, "Total    %s\n", t.printer.Sprintf("%29.2f", p.TotalAmount))
	fmt.Fprintf(&b, "Paid by  %29s\n", p.PaymentMethod)
	b.WriteString("======================================\n")

	return &Receipt{Payload: *p, Text: b.String()}
}

// clip shortens a name to at most max runes so multibyte characters are
// never cut in half.
func clip(s string, max int) string {
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return string(runes[:max])
}

// ConsolePrinter writes receipts to stdout. It stands in for a real receipt
// printer and always reports success.
type ConsolePrinter struct{}

func (ConsolePrinter) Print(r *Receipt) bool {
	if r == nil {
		return false
	}
	fmt.Print(r.Text)
	return true
}
