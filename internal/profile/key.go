package profile

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/resdex/resdex/internal/common"
)

// ObjectKey derives the storage key of a document from its URL: the
// URL-decoded path after the bucket host.
func ObjectKey(rawURL string) (string, error) {
	i := strings.Index(rawURL, common.DocumentBucketHost)
	if i < 0 {
		return "", fmt.Errorf("%w: %q is not a document url", common.ErrorValidation, rawURL)
	}

	rest := rawURL[i+len(common.DocumentBucketHost):]
	if j := strings.Index(rest, common.DocumentBucketHost); j >= 0 {
		rest = rest[:j]
	}

	key, err := url.PathUnescape(rest)
	if err != nil {
		return "", fmt.Errorf("%w: %v", common.ErrorValidation, err)
	}
	if key == "" {
		return "", fmt.Errorf("%w: empty object key in %q", common.ErrorValidation, rawURL)
	}
	return key, nil
}

// DocumentURL is the inverse of ObjectKey for keys produced by uploads.
func DocumentURL(key string) string {
	parts := strings.Split(key, "/")
	for i, p := range parts {
		parts[i] = url.PathEscape(p)
	}
	return "https://" + common.DocumentBucketHost + strings.Join(parts, "/")
}
