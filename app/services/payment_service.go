package services

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/skip2/go-qrcode"

	"CamuPos/app/config"
	"CamuPos/app/models"
)

var (
	// ErrQRISNotConfigured is returned when no merchant QRIS is set
	ErrQRISNotConfigured = errors.New("QRIS merchant payload not configured")
	// ErrInvalidQRIS is returned for a payload that is not an EMV QR string
	ErrInvalidQRIS = errors.New("invalid QRIS payload")
)

// DefaultQRSize is the PNG edge length in pixels
const DefaultQRSize = 320

// PaymentService renders the QRIS code shown at checkout
type PaymentService struct {
	payload string
}

// NewPaymentService creates a payment service
func NewPaymentService(cfg config.PaymentConfig) *PaymentService {
	return &PaymentService{payload: strings.TrimSpace(cfg.QRISPayload)}
}

// Enabled reports whether a merchant QRIS is configured
func (s *PaymentService) Enabled() bool {
	return s.payload != ""
}

// QRISFor returns the payload carrying the order amount
func (s *PaymentService) QRISFor(o models.Order) (string, error) {
	if !s.Enabled() {
		return "", ErrQRISNotConfigured
	}
	return DynamicQRIS(s.payload, o.Total)
}

// QRISPNG renders the order's QRIS as a PNG
func (s *PaymentService) QRISPNG(o models.Order, size int) ([]byte, error) {
	payload, err := s.QRISFor(o)
	if err != nil {
		return nil, err
	}
	if size <= 0 {
		size = DefaultQRSize
	}
	png, err := qrcode.Encode(payload, qrcode.Medium, size)
	if err != nil {
		return nil, fmt.Errorf("failed to generate QR code: %w", err)
	}
	return png, nil
}

// DynamicQRIS turns a static merchant QRIS into a single-use one for amount:
// point of initiation 11 becomes 12, tag 54 is inserted before the country
// code and the CRC is recomputed.
func DynamicQRIS(static string, amount models.Rupiah) (string, error) {
	static = strings.TrimSpace(static)
	if len(static) < 8 || static[len(static)-8:len(static)-4] != "6304" {
		return "", ErrInvalidQRIS
	}
	body := static[:len(static)-8]
	body = strings.Replace(body, "010211", "010212", 1)

	idx := strings.Index(body, "5802ID")
	if idx < 0 {
		return "", ErrInvalidQRIS
	}
	if amount > 0 {
		amt := strconv.FormatInt(amount.Int64(), 10)
		body = body[:idx] + fmt.Sprintf("54%02d%s", len(amt), amt) + body[idx:]
	}
	body += "6304"
	return body + fmt.Sprintf("%04X", crc16CCITT([]byte(body))), nil
}

// crc16CCITT is CRC-16/CCITT-FALSE, the checksum EMV QR codes use
func crc16CCITT(data []byte) uint16 {
	crc := uint16(0xFFFF)
	for _, b := range data {
		crc ^= uint16(b) << 8
		for i := 0; i < 8; i++ {
			if crc&0x8000 != 0 {
				crc = crc<<1 ^ 0x1021
			} else {
				crc <<= 1
			}
		}
	}
	return crc
}
