package sender

import (
	"bytes"
	"fmt"
	"html/template"
)

// ConfirmationData is what the payment confirmation email shows.
type ConfirmationData struct {
	OrderCode     string
	Amount        int64
	Currency      string
	Provider      string
	TransactionID string
}

var confirmationTmpl = template.Must(template.New("confirmation").Parse(`<html><body>
<h2>Payment received</h2>
<p>Thank you. We received your payment for order <strong>{{.OrderCode}}</strong>.</p>
<table>
<tr><td>Amount</td><td>{{.Amount}} {{.Currency}}</td></tr>
<tr><td>Paid with</td><td>{{.Provider}}</td></tr>
{{if .TransactionID}}<tr><td>Transaction</td><td>{{.TransactionID}}</td></tr>{{end}}
</table>
<p>We will let you know when your order ships.</p>
</body></html>`))

// RenderConfirmation returns the subject and HTML body of the payment email.
func RenderConfirmation(d ConfirmationData) (string, string, error) {
	var buf bytes.Buffer
	if err := confirmationTmpl.Execute(&buf, d); err != nil {
		return "", "", fmt.Errorf("render confirmation: %w", err)
	}
	return fmt.Sprintf("Payment confirmed for order %s", d.OrderCode), buf.String(), nil
}
