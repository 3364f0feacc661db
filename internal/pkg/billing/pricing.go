package billing

import "time"

// PricingRow is one line of a receipt.
type PricingRow struct {
	Label           string  `json:"label"`
	AmountInDollars float64 `json:"amount_in_dollars"`
	IsBold          bool    `json:"is_bold,omitempty"`
}

type PaymentDetails struct {
	ReceiptURL  *string      `json:"receipt_url"`
	PricingRows []PricingRow `json:"pricing_rows"`
}

// DetailsFromPayment builds receipt rows. Subtotal, tax and refund lines only appear
// when they carry information; Total is always last.
func DetailsFromPayment(p *Payment, refundedAt *time.Time) PaymentDetails {
	refund := 0
	for _, r := range p.Refunds {
		refund += r.Amount
	}
	isRefunded := refundedAt != nil || refund > 0

	subtotal := p.TotalAmount
	if p.SettlementAmount != nil {
		subtotal = *p.SettlementAmount
	}
	tax := 0
	if p.Tax != nil {
		tax = *p.Tax
	}
	currency := p.Currency
	if currency == "" {
		currency = "USD"
	}

	var rows []PricingRow
	if subtotal != p.TotalAmount {
		rows = append(rows, PricingRow{Label: "Subtotal", AmountInDollars: cents(subtotal)})
	}
	if tax > 0 {
		rows = append(rows, PricingRow{Label: "Tax (" + currency + ")", AmountInDollars: cents(tax)})
	}
	if isRefunded && refund > 0 {
		rows = append(rows, PricingRow{Label: "Refund", AmountInDollars: -cents(refund)})
	}
	rows = append(rows, PricingRow{Label: "Total", AmountInDollars: cents(p.TotalAmount), IsBold: true})

	return PaymentDetails{ReceiptURL: p.PaymentLink, PricingRows: rows}
}

// FallbackDetails is used when the provider cannot be reached.
func FallbackDetails(pricePaidInCents int) PaymentDetails {
	return PaymentDetails{
		PricingRows: []PricingRow{{Label: "Total", AmountInDollars: cents(pricePaidInCents), IsBold: true}},
	}
}

func cents(v int) float64 {
	return float64(v) / 100
}
