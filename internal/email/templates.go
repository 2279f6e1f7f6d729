package email

import (
	"fmt"
	"strconv"
	"strings"
)

// OrderConfirmation builds the confirmation mail sent after a gateway
// payment settles.
func OrderConfirmation(to, customerName string, orderIDs []int64, amount float64, currency string) *Email {
	ids := make([]string, 0, len(orderIDs))
	for _, id := range orderIDs {
		ids = append(ids, strconv.FormatInt(id, 10))
	}
	idList := strings.Join(ids, ", ")

	name := strings.TrimSpace(customerName)
	if name == "" {
		name = "there"
	}

	subject := fmt.Sprintf("Your order is confirmed (#%s)", idList)
	text := fmt.Sprintf(
		"Hi %s,\n\nYour payment of %.2f %s was received and your order (#%s) is confirmed.\n\nYou can track your order from your account's order history.\n\nThanks for shopping with us.",
		name, amount, currency, idList,
	)

	return &Email{
		To:      to,
		Subject: subject,
		Text:    text,
	}
}
