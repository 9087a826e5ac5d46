package domain

import "time"

type Confirmation struct {
	TransactionHash string `json:"transactionHash"`
	BlockHeight     int64  `json:"blockHeight"`
	Confirmations   int    `json:"confirmations"`
}

// Receipt is the backend's confirmation of an order. Once stored it is never
// rewritten.
type Receipt struct {
	ReceiptID        string        `json:"receiptId"`
	OrderID          string        `json:"orderId"`
	Sender           string        `json:"sender"`
	Receiver         string        `json:"receiver"`
	Amount           Coin          `json:"amount"`
	Fee              *Coin         `json:"fee,omitempty"`
	Status           string        `json:"status"`
	Timestamp        time.Time     `json:"timestamp"`
	VerificationCode string        `json:"verificationCode,omitempty"`
	Confirmation     *Confirmation `json:"blockchainConfirmation,omitempty"`
}
