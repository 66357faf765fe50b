package ledger

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/hongminglow/paygate/internal/models"
)

func prefixFor(t models.TransactionType) string {
	switch t {
	case models.TxTransfer:
		return "TRX"
	case models.TxPayment:
		return "UPI"
	case models.TxDeposit:
		return "PAY"
	case models.TxRefund:
		return "RFD"
	default:
		return "WDL"
	}
}

// newTransactionID returns <prefix><epoch millis><8 hex chars>.
func newTransactionID(t models.TransactionType, now time.Time) (string, error) {
	var buf [4]byte
	if _, err := rand.Read(buf[:]); err != nil {
		return "", fmt.Errorf("read random: %w", err)
	}
	return fmt.Sprintf("%s%d%s", prefixFor(t), now.UnixMilli(), hex.EncodeToString(buf[:])), nil
}
