package booking

import (
	"crypto/rand"
	"fmt"
	"math/big"
	"strconv"
	"time"
)

const codeSuffixChars = "0123456789ABCDEFGHIJKLMNOPQRSTUVWXYZ"

// GenerateCode creates a display code "BK<unix millis><5 chars>".
func GenerateCode(now time.Time) (string, error) {
	suffix := make([]byte, 5)
	for i := range suffix {
		n, err := rand.Int(rand.Reader, big.NewInt(int64(len(codeSuffixChars))))
		if err != nil {
			return "", fmt.Errorf("failed to generate booking code: %w", err)
		}
		suffix[i] = codeSuffixChars[n.Int64()]
	}
	return "BK" + strconv.FormatInt(now.UnixMilli(), 10) + string(suffix), nil
}
