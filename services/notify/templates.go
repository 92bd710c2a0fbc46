package notify

import (
	"bytes"
	"fmt"
	htmltemplate "html/template"
	"strings"
	"text/template"

	"github.com/junaidrashid-git/treatnaturally-api/models"
	"github.com/shopspring/decimal"
)

const (
	TemplateOrderConfirmation = "order_confirmation"
	TemplateOrderAlert        = "order_alert"
	TemplateWelcome           = "welcome"
)

var currencySymbols = map[string]string{
	"gbp": "£",
	"eur": "€",
	"usd": "$",
}

// Money formats an amount in the shop currency, e.g. "£25.00" or "CHF 25.00".
func Money(currency string, amount decimal.Decimal) string {
	currency = strings.ToLower(strings.TrimSpace(currency))
	if sym, ok := currencySymbols[currency]; ok {
		return sym + amount.StringFixed(2)
	}
	return strings.ToUpper(currency) + " " + amount.StringFixed(2)
}

type orderData struct {
	Order    models.Order
	Currency string
}

func (d orderData) Money(amount decimal.Decimal) string { return Money(d.Currency, amount) }

// Label names an order line by product and variation.
func (orderData) Label(item models.OrderItem) string {
	if item.Variation != nil && *item.Variation != "" {
		return item.Product.Name + " (" + *item.Variation + ")"
	}
	return item.Product.Name
}

var confirmationTmpl = template.Must(template.New(TemplateOrderConfirmation).Parse(
	`Hi {{.Order.BillingAddress.FirstName}}!

Your order #{{.Order.ID}} has been received.

Order Items:

{{range .Order.Items}}{{$.Label .}} - Quantity: {{.Quantity}} - {{$.Money .ChargeableUnitPrice}} each
{{end}}
Total: {{.Money .Order.FinalPrice}}
Shipping Address: {{.Order.ShippingAddressLine}}

Thank you for your order!
`))

var alertTmpl = template.Must(template.New(TemplateOrderAlert).Parse(
	`New order #{{.Order.ID}} has been placed.

Order Items:

{{range .Order.Items}}{{$.Label .}} - Quantity: {{.Quantity}} - {{$.Money .ChargeableUnitPrice}} each
{{end}}
Total: {{.Money .Order.FinalPrice}}
Customer: {{if .Order.CustomerID}}#{{.Order.CustomerID}}{{else}}guest{{end}}
Billing Email: {{.Order.BillingAddress.Email}}
Shipping Address: {{.Order.ShippingAddressLine}}
`))

var welcomeTmpl = htmltemplate.Must(htmltemplate.New(TemplateWelcome).Parse(
	`<html><body style="font-family: Roboto">
<h3>Hi {{.FirstName}}!</h3>
<h4>Welcome to TreatNaturally - Your one-stop-shop for natural &amp; organic health supplements.</h4>
<h4>Your registration has been completed successfully and you may continue shopping on our website.</h4>
<a style="color: white; background-color: #04aa6d; padding: 5px 10px; font-weight: bold;" href="{{.ShopURL}}">Shop Now</a>
<br><br>Thank you for shopping at <a href="{{.ShopURL}}">TreatNaturally!</a>
</body></html>`))

// OrderConfirmation renders the mail sent to the billing email of a new order.
func OrderConfirmation(order models.Order, currency string) (Message, error) {
	var buf bytes.Buffer
	if err := confirmationTmpl.Execute(&buf, orderData{order, currency}); err != nil {
		return Message{}, fmt.Errorf("render %s: %w", TemplateOrderConfirmation, err)
	}
	return Message{
		Template: TemplateOrderConfirmation,
		To:       []string{order.BillingAddress.Email},
		Subject:  "Your Order Has Been Received!",
		Text:     buf.String(),
	}, nil
}

// OrderAlert renders the itemized notice sent to the operations mailbox.
func OrderAlert(order models.Order, opsEmail, currency string) (Message, error) {
	var buf bytes.Buffer
	if err := alertTmpl.Execute(&buf, orderData{order, currency}); err != nil {
		return Message{}, fmt.Errorf("render %s: %w", TemplateOrderAlert, err)
	}
	return Message{
		Template: TemplateOrderAlert,
		To:       []string{opsEmail},
		Subject:  fmt.Sprintf("New Order #%d - Treatnaturally", order.ID),
		Text:     buf.String(),
	}, nil
}

func Welcome(account models.Account, shopURL string) (Message, error) {
	name := account.FirstName
	if name == "" {
		name = account.Username
	}
	var buf bytes.Buffer
	err := welcomeTmpl.Execute(&buf, struct{ FirstName, ShopURL string }{name, shopURL})
	if err != nil {
		return Message{}, fmt.Errorf("render %s: %w", TemplateWelcome, err)
	}
	return Message{
		Template: TemplateWelcome,
		To:       []string{account.Email},
		Subject:  "Welcome To TreatNaturally!",
		Text:     fmt.Sprintf("Hi %s! Your registration has been completed successfully.", name),
		HTML:     buf.String(),
	}, nil
}
