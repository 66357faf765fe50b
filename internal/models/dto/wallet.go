package dto

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/hongminglow/paygate/internal/models"
)

type TransferRequest struct {
	ReceiverEmail string          `json:"receiverEmail"`
	Amount        decimal.Decimal `json:"amount"`
	Description   string          `json:"description"`
}

// MovementResponse is returned by every successful peer money movement.
type MovementResponse struct {
	TransactionID string             `json:"transactionId"`
	Amount        decimal.Decimal    `json:"amount"`
	Receiver      models.UserSummary `json:"receiver"`
	Date          time.Time          `json:"date"`
}

type BalanceResponse struct {
	Balance decimal.Decimal `json:"balance"`
}

type Pagination struct {
	Total int `json:"total"`
	Page  int `json:"page"`
	Pages int `json:"pages"`
	Limit int `json:"limit"`
}

type TransactionPage struct {
	Count        int                  `json:"count"`
	Pagination   Pagination           `json:"pagination"`
	Transactions []models.Transaction `json:"transactions"`
}

type UPISetupRequest struct {
	CustomUPIID string `json:"customUpiId"`
	PIN         string `json:"pin"`
}

type UPIPayRequest struct {
	ReceiverUPIID string          `json:"receiverUpiId"`
	Amount        decimal.Decimal `json:"amount"`
	PIN           string          `json:"pin"`
	Description   string          `json:"description"`
}

type UPIPinRequest struct {
	PIN string `json:"pin"`
}

type UPIUpdatePinRequest struct {
	CurrentPIN string `json:"currentPin"`
	NewPIN     string `json:"newPin"`
}

type OTPSendRequest struct {
	Email string `json:"email"`
}

type OTPVerifyRequest struct {
	Email string `json:"email"`
	OTP   string `json:"otp"`
}
