package attendance

import "strings"

const (
	eventMarker   = "EVT"
	studentMarker = "STU"
	tokenSep      = ":"
)

// TokenClaims is the pair an attendance token binds.
type TokenClaims struct {
	EventID   string
	StudentID string
}

// EncodeToken returns EVT:<eventID>:STU:<studentID>. The token is a plain
// convenience encoding, not a signed credential; ids must not contain ':'.
func EncodeToken(eventID, studentID string) string {
	return eventMarker + tokenSep + eventID + tokenSep + studentMarker + tokenSep + studentID
}

// DecodeToken parses a token produced by EncodeToken. ok is false when the
// token does not split into exactly four fields with the markers in place.
func DecodeToken(token string) (TokenClaims, bool) {
	if token == "" {
		return TokenClaims{}, false
	}
	parts := strings.Split(token, tokenSep)
	if len(parts) != 4 || parts[0] != eventMarker || parts[2] != studentMarker {
		return TokenClaims{}, false
	}
	return TokenClaims{EventID: parts[1], StudentID: parts[3]}, true
}
