package email

import (
	"bytes"
	"fmt"
	"text/template"
)

// OrderInfo carries everything the confirmation template needs. Money
// fields are pre-formatted strings in the order's currency.
type OrderInfo struct {
	OrderNumber   string
	CustomerName  string
	CustomerEmail string
	StoreURL      string
	Currency      string
	Items         []OrderLine
	Subtotal      string
	Tax           string
	Shipping      string
	Total         string
	Estimated     bool
}

// OrderLine is a single confirmed line item.
type OrderLine struct {
	Name      string
	SKU       string
	Quantity  int
	UnitPrice string
}

// Renderer renders order emails from built-in templates.
type Renderer struct {
	templates *template.Template
}

// NewRenderer parses the built-in templates.
func NewRenderer() (*Renderer, error) {
	tmpl := template.New("email")

	for name, body := range map[string]string{
		"order_confirmation_subject": orderConfirmationSubject,
		"order_confirmation_html":    orderConfirmationHTML,
		"order_confirmation_text":    orderConfirmationText,
	} {
		if _, err := tmpl.New(name).Parse(body); err != nil {
			return nil, fmt.Errorf("failed to parse template %s: %w", name, err)
		}
	}

	return &Renderer{templates: tmpl}, nil
}

// RenderOrderConfirmation builds the confirmation email for a paid order.
func (r *Renderer) RenderOrderConfirmation(info *OrderInfo) (*Email, error) {
	var subjectBuf, htmlBuf, textBuf bytes.Buffer

	if err := r.templates.ExecuteTemplate(&subjectBuf, "order_confirmation_subject", info); err != nil {
		return nil, fmt.Errorf("failed to render subject: %w", err)
	}
	if err := r.templates.ExecuteTemplate(&htmlBuf, "order_confirmation_html", info); err != nil {
		return nil, fmt.Errorf("failed to render HTML template: %w", err)
	}
	if err := r.templates.ExecuteTemplate(&textBuf, "order_confirmation_text", info); err != nil {
		return nil, fmt.Errorf("failed to render text template: %w", err)
	}

	return &Email{
		To:      info.CustomerEmail,
		Subject: subjectBuf.String(),
		HTML:    htmlBuf.String(),
		Text:    textBuf.String(),
	}, nil
}

const orderConfirmationSubject = `Order Confirmed - {{.OrderNumber}}`

const orderConfirmationText = `Hi {{.CustomerName}},

Thanks for your order! Your payment has been received and your frames are
heading to production.

Order {{.OrderNumber}}
{{range .Items}}
  {{.Name}} ({{.SKU}}) x{{.Quantity}} @ {{.UnitPrice}} {{$.Currency}}{{end}}

Subtotal: {{.Subtotal}} {{.Currency}}
Tax:      {{.Tax}} {{.Currency}}
Shipping: {{.Shipping}} {{.Currency}}
Total:    {{.Total}} {{.Currency}}
{{if .Estimated}}
Some line prices were estimated at checkout; the charged total above is
final.
{{end}}
{{if .StoreURL}}Visit us again: {{.StoreURL}}{{end}}
`

const orderConfirmationHTML = `<!DOCTYPE html>
<html>
<body style="font-family: sans-serif; color: #1f2933;">
  <h2>Thanks for your order, {{.CustomerName}}!</h2>
  <p>Your payment has been received and your frames are heading to production.</p>
  <p><strong>Order {{.OrderNumber}}</strong></p>
  <table cellpadding="6" cellspacing="0" border="0">
    {{range .Items}}
    <tr>
      <td>{{.Name}}</td>
      <td>{{.SKU}}</td>
      <td>x{{.Quantity}}</td>
      <td align="right">{{.UnitPrice}} {{$.Currency}}</td>
    </tr>
    {{end}}
    <tr><td colspan="3">Subtotal</td><td align="right">{{.Subtotal}} {{.Currency}}</td></tr>
    <tr><td colspan="3">Tax</td><td align="right">{{.Tax}} {{.Currency}}</td></tr>
    <tr><td colspan="3">Shipping</td><td align="right">{{.Shipping}} {{.Currency}}</td></tr>
    <tr><td colspan="3"><strong>Total</strong></td><td align="right"><strong>{{.Total}} {{.Currency}}</strong></td></tr>
  </table>
  {{if .Estimated}}
  <p style="color: #6b7280;">Some line prices were estimated at checkout; the charged total above is final.</p>
  {{end}}
  {{if .StoreURL}}<p><a href="{{.StoreURL}}">Visit us again</a></p>{{end}}
</body>
</html>
`
