package pagination

import (
	"encoding/base64"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/SscSPs/food_erp_fulfillment/internal/apperrors"
)

const timeFormat = time.RFC3339Nano

// Limits shared by every paginated listing.
const (
	DefaultLimit = 50
	MaxLimit     = 200
)

// NormalizeLimit applies the default and the upper bound.
func NormalizeLimit(limit int) int {
	if limit <= 0 {
		return DefaultLimit
	}
	if limit > MaxLimit {
		return MaxLimit
	}
	return limit
}

// EncodeOrderToken creates a cursor from the creation time and code of the
// last order on a page. Orders are listed by (created_at, code) descending.
func EncodeOrderToken(createdAt time.Time, code string) string {
	return EncodeMultiFieldToken(createdAt.UTC().Format(timeFormat), code)
}

// DecodeOrderToken parses a cursor produced by EncodeOrderToken.
func DecodeOrderToken(token string) (time.Time, string, error) {
	parts, err := DecodeMultiFieldToken(token)
	if err != nil {
		return time.Time{}, "", err
	}
	if len(parts) != 2 || parts[1] == "" {
		return time.Time{}, "", fmt.Errorf("%w: invalid pagination token format (split)", apperrors.ErrValidation)
	}
	createdAt, err := time.Parse(timeFormat, parts[0])
	if err != nil {
		return time.Time{}, "", fmt.Errorf("%w: invalid pagination token format (created_at parse): %v", apperrors.ErrValidation, err)
	}
	return createdAt, parts[1], nil
}

// EncodeVersionToken creates a cursor from the version of the last ledger
// entry on a page. Entries are listed by version descending.
func EncodeVersionToken(version int64) string {
	return EncodeMultiFieldToken("v", strconv.FormatInt(version, 10))
}

// DecodeVersionToken parses a cursor produced by EncodeVersionToken.
func DecodeVersionToken(token string) (int64, error) {
	parts, err := DecodeMultiFieldToken(token)
	if err != nil {
		return 0, err
	}
	if len(parts) != 2 || parts[0] != "v" {
		return 0, fmt.Errorf("%w: invalid pagination token format (split)", apperrors.ErrValidation)
	}
	version, err := strconv.ParseInt(parts[1], 10, 64)
	if err != nil || version < 1 {
		return 0, fmt.Errorf("%w: invalid pagination token format (version parse)", apperrors.ErrValidation)
	}
	return version, nil
}

// EncodeMultiFieldToken creates a token with any number of string fields
func EncodeMultiFieldToken(fields ...string) string {
	tokenStr := strings.Join(fields, "|")
	return base64.URLEncoding.EncodeToString([]byte(tokenStr))
}

// DecodeMultiFieldToken decodes a token into its component fields
func DecodeMultiFieldToken(token string) ([]string, error) {
	decodedBytes, err := base64.URLEncoding.DecodeString(token)
	if err != nil {
		return nil, fmt.Errorf("%w: invalid pagination token format (base64 decode): %v", apperrors.ErrValidation, err)
	}
	return strings.Split(string(decodedBytes), "|"), nil
}
