package firestore

import (
	"encoding/base64"
	"errors"
	"strconv"
	"strings"
	"time"
)

// Page tokens encode the sort key of the last row as "<unixnano>|<docID>" so
// a follow-up query can resume with StartAfter. Tokens are opaque to callers.

func encodePageToken(ts time.Time, docID string) string {
	payload := strconv.FormatInt(ts.UTC().UnixNano(), 10) + "|" + docID
	return base64.RawURLEncoding.EncodeToString([]byte(payload))
}

func decodePageToken(token string) (time.Time, string, error) {
	data, err := base64.RawURLEncoding.DecodeString(token)
	if err != nil {
		return time.Time{}, "", err
	}
	parts := strings.SplitN(string(data), "|", 2)
	if len(parts) != 2 {
		return time.Time{}, "", errors.New("invalid token structure")
	}
	nanos, err := strconv.ParseInt(parts[0], 10, 64)
	if err != nil {
		return time.Time{}, "", err
	}
	return time.Unix(0, nanos).UTC(), parts[1], nil
}

func clampPageSize(size int) int {
	if size < 0 {
		return 0
	}
	return size
}
