// utils/response.go
package utils

import (
	"crypto/rand"
	"math/big"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
)

// RespondWithError aborts the request with a JSON error body
func RespondWithError(c *gin.Context, status int, message string) {
	if status >= 500 {
		log.Error().
			Str("method", c.Request.Method).
			Str("path", c.FullPath()).
			Int("status", status).
			Msg(message)
	}
	c.AbortWithStatusJSON(status, gin.H{"error": message})
}

const randomAlphabet = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"

// GenerateRandomString returns n characters drawn from an unambiguous
// upper-case alphabet, for bill numbers.
func GenerateRandomString(n int) string {
	b := make([]byte, n)
	max := big.NewInt(int64(len(randomAlphabet)))
	for i := range b {
		idx, err := rand.Int(rand.Reader, max)
		if err != nil {
			panic("failed to read random bytes")
		}
		b[i] = randomAlphabet[idx.Int64()]
	}
	return string(b)
}
