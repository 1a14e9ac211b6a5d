package service

import (
	"encoding/base64"
	"fmt"

	qrcode "github.com/skip2/go-qrcode"
)

const defaultQRSize = 200

// QRCodeService генерация QR-кодов для коротких ссылок.
type QRCodeService interface {
	// Encode возвращает PNG с QR-кодом для переданного текста.
	// size — сторона изображения в пикселях; при size <= 0 берётся 200.
	Encode(text string, size int) ([]byte, error)
	EncodeBase64(text string, size int) (string, error)
}

type qrCodeService struct{}

func NewQRCodeService() QRCodeService {
	return &qrCodeService{}
}

func (s *qrCodeService) Encode(text string, size int) ([]byte, error) {
	if size <= 0 {
		size = defaultQRSize
	}

	png, err := qrcode.Encode(text, qrcode.High, size)
	if err != nil {
		return nil, fmt.Errorf("failed to encode qr code: %w", err)
	}

	return png, nil
}

func (s *qrCodeService) EncodeBase64(text string, size int) (string, error) {
	png, err := s.Encode(text, size)
	if err != nil {
		return "", err
	}

	return base64.StdEncoding.EncodeToString(png), nil
}
