package service

import "github.com/skip2/go-qrcode"

// EncodeQR renders content as a PNG QR code of size x size pixels.
func EncodeQR(content string, size int) ([]byte, error) {
	return qrcode.Encode(content, qrcode.Medium, size)
}
