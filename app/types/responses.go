package types

type ErrorResponse struct {
	Error string `json:"error"`
}

type HealthResponse struct {
	Status string `json:"status"`
}

type WebhookAckResponse struct {
	Received bool `json:"received"`
}

type PriceResponse struct {
	Key          string `json:"key"`
	Plan         string `json:"plan"`
	BillingCycle string `json:"billing_cycle"`
	Amount       int64  `json:"amount"`
	AmountTiyins int64  `json:"amount_tiyins"`
	Credits      int64  `json:"credits"`
	PriceID      string `json:"price_id,omitempty"`
}

type PricesResponse struct {
	Provider string           `json:"provider"`
	Prices   []*PriceResponse `json:"prices"`
}

type CheckoutResponse struct {
	Provider      string `json:"provider"`
	OrderID       string `json:"order_id"`
	CheckoutURL   string `json:"checkout_url,omitempty"`
	TransactionID string `json:"transaction_id,omitempty"`
	PaymentID     string `json:"payment_id,omitempty"`
	Plan          string `json:"plan"`
	BillingCycle  string `json:"billing_cycle"`
	Amount        int64  `json:"amount"`
	AmountTiyins  int64  `json:"amount_tiyins"`
	Credits       int64  `json:"credits"`
}

type RecurringPayResponse struct {
	Provider       string `json:"provider"`
	OrderID        string `json:"order_id"`
	PaymentID      string `json:"payment_id,omitempty"`
	Status         string `json:"status"`
	Paid           bool   `json:"paid"`
	Amount         int64  `json:"amount"`
	AmountTiyins   int64  `json:"amount_tiyins"`
	CreditsGranted int64  `json:"credits_granted"`
	Duplicate      bool   `json:"duplicate"`
}

type PaymentStatusResponse struct {
	Provider  string            `json:"provider"`
	Reference string            `json:"reference"`
	Status    string            `json:"status"`
	Paid      bool              `json:"paid"`
	Details   map[string]string `json:"details,omitempty"`
}

type CardResponse struct {
	Token      string `json:"token"`
	MaskedPan  string `json:"masked_pan,omitempty"`
	Verified   bool   `json:"verified"`
	CodeSent   bool   `json:"code_sent,omitempty"`
	Phone      string `json:"phone,omitempty"`
	WaitMillis int64  `json:"wait_ms,omitempty"`
}

type CreditGrantResponse struct {
	ID                uint64 `json:"id"`
	Provider          string `json:"provider"`
	ProviderPaymentID string `json:"provider_payment_id"`
	Plan              string `json:"plan"`
	BillingCycle      string `json:"billing_cycle"`
	Credits           int64  `json:"credits"`
	CreatedAt         string `json:"created_at"`
}

type UserCreditsResponse struct {
	UserID  string                 `json:"user_id"`
	Plan    string                 `json:"plan"`
	Credits int64                  `json:"credits"`
	Grants  []*CreditGrantResponse `json:"grants"`
}
