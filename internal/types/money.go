// README: Common money value object used across modules. Amounts are minor units.
package types

const DefaultCurrency = "TWD"

type Money struct {
	Amount   int64  `json:"amount"`
	Currency string `json:"currency"`
}

func NewMoney(amount int64) Money {
	return Money{Amount: amount, Currency: DefaultCurrency}
}
