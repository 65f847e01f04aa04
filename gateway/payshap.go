package gateway

import (
	"encoding/base64"
	"fmt"
	"os"

	qrcode "github.com/skip2/go-qrcode"
)

// PayShap initiation. The client either scans a QR code encoding the pay
// request or pays to the studio's PayShap proxy with the given reference.

type PayShapRequest struct {
	Reference string `json:"reference"`
	Proxy     string `json:"proxy"`
	Amount    int64  `json:"amount"`  // cents
	QRCode    string `json:"qr_code"` // base64 PNG
}

// InitiatePayShap builds the pay request and its QR code for a payment.
func InitiatePayShap(reference string, amount int64) (*PayShapRequest, error) {
	proxy := os.Getenv("PAYSHAP_PROXY")
	if proxy == "" {
		return nil, fmt.Errorf("payshap proxy not configured")
	}

	uri := fmt.Sprintf("payshap://pay?proxy=%s&amount=%.2f&ref=%s", proxy, float64(amount)/100, reference)
	png, err := qrcode.Encode(uri, qrcode.Medium, 256)
	if err != nil {
		return nil, fmt.Errorf("generate payshap qr: %w", err)
	}

	return &PayShapRequest{
		Reference: reference,
		Proxy:     proxy,
		Amount:    amount,
		QRCode:    base64.StdEncoding.EncodeToString(png),
	}, nil
}
