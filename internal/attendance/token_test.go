package attendance

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTokenRoundTrip(t *testing.T) {
	for i := 0; i < 100; i++ {
		eventID, studentID := uuid.NewString(), uuid.NewString()

		tok := EncodeToken(eventID, studentID)
		got, ok := DecodeToken(tok)

		require.True(t, ok, tok)
		assert.Equal(t, TokenClaims{EventID: eventID, StudentID: studentID}, got)
	}
}

func TestEncodeTokenFormat(t *testing.T) {
	assert.Equal(t, "EVT:65f0a1:STU:77b2c3", EncodeToken("65f0a1", "77b2c3"))
}

func TestDecodeTokenRejectsMalformed(t *testing.T) {
	bad := []string{
		"",
		"EVT",
		"EVT:e1:STU",
		"EVT:e1:STU:s1:extra",
		"EVX:e1:STU:s1",
		"EVT:e1:STX:s1",
		"STU:s1:EVT:e1",
		"evt:e1:stu:s1",
		"EVT:e:1:STU:s1",
		"{\"event\":\"e1\"}",
		":::",
	}
	for _, tok := range bad {
		_, ok := DecodeToken(tok)
		assert.False(t, ok, "%q should be invalid", tok)
	}
}
