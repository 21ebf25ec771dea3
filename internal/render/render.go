// Package render formats chain log entries for the terminal.
package render

import (
	"encoding/json"
	"fmt"
	"io"

	gomoney "github.com/Rhymond/go-money"
	"github.com/fatih/color"
	"github.com/jmerrifield20/chainlog/internal/chainlog"
	"github.com/shopspring/decimal"
)

// hashPreview is how many hash characters a card shows.
const hashPreview = 15

var (
	faint = color.New(color.Faint).SprintFunc()
	bold  = color.New(color.Bold).SprintFunc()
	green = color.New(color.FgGreen).SprintFunc()
)

// Renderer writes entries as text cards or JSON.
type Renderer struct {
	w        io.Writer
	currency string
}

// New creates a Renderer writing to w. Amounts are displayed in currency,
// an ISO 4217 code.
func New(w io.Writer, currency string) *Renderer {
	return &Renderer{w: w, currency: currency}
}

// Entry writes a single entry card.
func (r *Renderer) Entry(e chainlog.Entry) {
	fmt.Fprintf(r.w, "%s %s\n", faint(fmt.Sprintf("#%d", e.Seq)), faint(e.Timestamp))
	fmt.Fprintf(r.w, "  %s\n", bold(e.Text))
	fmt.Fprintf(r.w, "  Amount:    %s\n", green(Amount(e.Amount, r.currency)))
	fmt.Fprintf(r.w, "  Hash:      %s\n", faint(ShortHash(e.Hash)))
	fmt.Fprintf(r.w, "  Prev Hash: %s\n", faint(ShortHash(e.PreviousHash)))
}

// EntryDetail writes an entry with full hashes.
func (r *Renderer) EntryDetail(e chainlog.Entry) {
	fmt.Fprintf(r.w, "Seq:       %d\n", e.Seq)
	fmt.Fprintf(r.w, "Timestamp: %s\n", e.Timestamp)
	fmt.Fprintf(r.w, "Text:      %s\n", e.Text)
	fmt.Fprintf(r.w, "Amount:    %s\n", Amount(e.Amount, r.currency))
	fmt.Fprintf(r.w, "Hash:      %s\n", e.Hash)
	fmt.Fprintf(r.w, "Prev Hash: %s\n", e.PreviousHash)
}

// List writes every entry followed by a count and amount total.
func (r *Renderer) List(entries []chainlog.Entry) {
	if len(entries) == 0 {
		fmt.Fprintln(r.w, "No entries.")
		return
	}
	for _, e := range entries {
		r.Entry(e)
		fmt.Fprintln(r.w)
	}
	total := chainlog.Total(entries)
	fmt.Fprintf(r.w, "%d entries, total %s\n", len(entries), bold(formatMoney(total, r.currency)))
}

// JSON writes v as indented JSON.
func (r *Renderer) JSON(v any) error {
	enc := json.NewEncoder(r.w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// Amount formats a digit-string amount, in major units, as money in currency.
// Unparsable amounts are returned unchanged.
func Amount(amount, currency string) string {
	d, err := decimal.NewFromString(amount)
	if err != nil {
		return amount
	}
	return formatMoney(d, currency)
}

func formatMoney(d decimal.Decimal, currency string) string {
	if gomoney.GetCurrency(currency) == nil {
		return d.String() + " " + currency
	}
	cur := *gomoney.New(0, currency).Currency()
	minor := d.Shift(int32(cur.Fraction))
	// go-money counts in int64 minor units.
	if !minor.BigInt().IsInt64() {
		return d.StringFixed(int32(cur.Fraction)) + " " + cur.Code
	}
	return cur.Formatter().Format(minor.IntPart())
}

// ShortHash returns the first hashPreview characters of h followed by "...".
func ShortHash(h string) string {
	if len(h) > hashPreview {
		h = h[:hashPreview]
	}
	return h + "..."
}
