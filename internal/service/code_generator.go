package service

import (
	"crypto/rand"
	"fmt"
	"math/big"
)

const (
	codeLength = 8
	charset    = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
)

// CodeGenerator источник случайных коротких кодов. Уникальность кодов
// генератор не гарантирует — за неё отвечает вызывающая сторона.
type CodeGenerator interface {
	Generate() (string, error)
}

type randomCodeGenerator struct{}

func NewCodeGenerator() CodeGenerator {
	return &randomCodeGenerator{}
}

// Generate возвращает код из 8 символов алфавита base62,
// равномерно распределённый по всему пространству 62^8.
func (g *randomCodeGenerator) Generate() (string, error) {
	result := make([]byte, codeLength)
	for i := 0; i < codeLength; i++ {
		num, err := rand.Int(rand.Reader, big.NewInt(int64(len(charset))))
		if err != nil {
			return "", fmt.Errorf("failed to read random source: %w", err)
		}
		result[i] = charset[num.Int64()]
	}
	return string(result), nil
}
