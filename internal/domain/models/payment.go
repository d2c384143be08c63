package models

// PaymentVerification is what the gateway reports for a reference.
type PaymentVerification struct {
	Reference string `json:"reference"`
	Status    string `json:"status"`
	Amount    int64  `json:"amount"`
	Currency  string `json:"currency"`
	BookingID int64  `json:"bookingId,omitempty"`
}

func (v PaymentVerification) Successful() bool {
	return v.Status == "success"
}
