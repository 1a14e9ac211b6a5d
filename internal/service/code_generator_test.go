package service_test

import (
	"testing"

	"github.com/anchorzup/url-shortener/internal/service"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestCodeGenerator_Format проверяет длину и алфавит генерируемых кодов
func TestCodeGenerator_Format(t *testing.T) {
	gen := service.NewCodeGenerator()

	for i := 0; i < 1000; i++ {
		code, err := gen.Generate()
		require.NoError(t, err)
		assert.Len(t, code, 8)
		for _, r := range code {
			assert.Contains(t, codeCharset, string(r))
		}
	}
}

// TestCodeGenerator_Dispersion проверяет, что коды почти не повторяются
func TestCodeGenerator_Dispersion(t *testing.T) {
	gen := service.NewCodeGenerator()

	codes := make(map[string]bool)
	const n = 10000
	for i := 0; i < n; i++ {
		code, err := gen.Generate()
		require.NoError(t, err)
		codes[code] = true
	}

	// При 62^8 вариантах коллизия на 10k кодов практически исключена
	assert.Len(t, codes, n)
}
