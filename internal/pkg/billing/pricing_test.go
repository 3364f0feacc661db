package billing

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func intPtr(v int) *int { return &v }

func TestDetailsFromPayment(t *testing.T) {
	link := "https://pay.example.com/p_1"
	now := time.Now()

	tests := []struct {
		name       string
		payment    Payment
		refundedAt *time.Time
		want       []PricingRow
	}{
		{
			name:    "total only",
			payment: Payment{TotalAmount: 4900},
			want:    []PricingRow{{Label: "Total", AmountInDollars: 49, IsBold: true}},
		},
		{
			name:    "subtotal and tax",
			payment: Payment{TotalAmount: 5390, SettlementAmount: intPtr(4900), Tax: intPtr(490), Currency: "EUR"},
			want: []PricingRow{
				{Label: "Subtotal", AmountInDollars: 49},
				{Label: "Tax (EUR)", AmountInDollars: 4.9},
				{Label: "Total", AmountInDollars: 53.9, IsBold: true},
			},
		},
		{
			name:       "refunded",
			payment:    Payment{TotalAmount: 4900, Refunds: []Refund{{Amount: 2000}, {Amount: 900}}},
			refundedAt: &now,
			want: []PricingRow{
				{Label: "Refund", AmountInDollars: -29},
				{Label: "Total", AmountInDollars: 49, IsBold: true},
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := tt.payment
			p.PaymentLink = &link
			got := DetailsFromPayment(&p, tt.refundedAt)
			assert.Equal(t, tt.want, got.PricingRows)
			assert.Equal(t, &link, got.ReceiptURL)
		})
	}
}

func TestFallbackDetails(t *testing.T) {
	got := FallbackDetails(1999)
	assert.Nil(t, got.ReceiptURL)
	assert.Equal(t, []PricingRow{{Label: "Total", AmountInDollars: 19.99, IsBold: true}}, got.PricingRows)
}
