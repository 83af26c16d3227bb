package registrations

import (
	"encoding/csv"
	"fmt"
	"io"
	"regexp"
	"strconv"
	"strings"
	"time"
)

var exportColumns = []string{
	"first_name",
	"last_name",
	"email",
	"phone",
	"company",
	"payment_method",
	"amount",
	"invoice_total",
	"invoice_balance",
	"registration_id",
	"cancelled",
	"create_dt",
}

// WriteCSV streams the roster rows as CSV, one line per registrant, with
// money columns in decimal dollars.
func WriteCSV(w io.Writer, items []Registrant) error {
	writer := csv.NewWriter(w)
	if err := writer.Write(exportColumns); err != nil {
		return fmt.Errorf("write csv header: %w", err)
	}
	for i := range items {
		r := &items[i]
		var total, balance int64
		if r.Invoice != nil {
			total = r.Invoice.TotalCents
			balance = r.Invoice.BalanceCents
		}
		row := []string{
			r.FirstName,
			r.LastName,
			r.Email,
			r.Phone,
			r.Company,
			paymentMethodLabel(r.PaymentMethodID),
			formatCents(r.AmountCents),
			formatCents(total),
			formatCents(balance),
			r.RegistrationID,
			strconv.FormatBool(r.Cancelled),
			r.CreatedAt.UTC().Format(time.RFC3339),
		}
		if err := writer.Write(row); err != nil {
			return fmt.Errorf("write csv row: %w", err)
		}
	}
	writer.Flush()
	return writer.Error()
}

func paymentMethodLabel(id int) string {
	switch id {
	case PaymentMethodCreditCard:
		return "credit card"
	case PaymentMethodCheck:
		return "check"
	case PaymentMethodCash:
		return "cash"
	default:
		return "unknown"
	}
}

func formatCents(cents int64) string {
	sign := ""
	if cents < 0 {
		sign = "-"
		cents = -cents
	}
	return fmt.Sprintf("%s%d.%02d", sign, cents/100, cents%100)
}

var unsafeFilenameChars = regexp.MustCompile(`[^A-Za-z0-9._-]+`)

// ExportFilename builds the attachment name, e.g.
// Event-Autumn-Meetup-Paid.csv.
func ExportFilename(eventTitle string, view RosterView) string {
	title := unsafeFilenameChars.ReplaceAllString(strings.TrimSpace(eventTitle), "-")
	title = strings.Trim(title, "-")
	if title == "" {
		title = "Event"
	}
	var label string
	switch view {
	case RosterPaid:
		label = "Paid"
	case RosterNonPaid:
		label = "Non-Paid"
	default:
		label = "Total"
	}
	return fmt.Sprintf("Event-%s-%s.csv", title, label)
}
