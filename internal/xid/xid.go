package xid

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"tokoku/backend/internal/domain"
)

func New(prefix string) string {
	buf := make([]byte, 8)
	if _, err := rand.Read(buf); err != nil {
		return fmt.Sprintf("%s-%d", prefix, time.Now().UnixNano())
	}
	return fmt.Sprintf("%s-%d-%s", prefix, time.Now().UnixNano(), hex.EncodeToString(buf))
}

// Transaction builds a sale transaction id of the form
// TXN_OFF_<userID>_<unix>_<rand4>. Every record of one sale shares it.
func Transaction(salesType, userID string) string {
	channel := "OFF"
	if salesType == domain.SalesTypeOnline {
		channel = "ON"
	}
	suffix := strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", "")[:4])
	return fmt.Sprintf("TXN_%s_%s_%d_%s", channel, userID, time.Now().Unix(), suffix)
}
