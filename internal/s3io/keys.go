package s3io

import (
	"fmt"
	"strings"
)

// Content types this service stores.
const (
	ContentTypePNG  = "image/png"
	ContentTypeJPEG = "image/jpeg"
	ContentTypePDF  = "application/pdf"
	ContentTypeHTML = "text/html; charset=utf-8"
)

// BuildAssetKey constructs the S3 key for a signature asset. The path is
// namespaced by event, contract and field so uploads never collide across
// contracts or fields; the trailing ULID keeps re-uploads distinct.
func BuildAssetKey(eventID, contractID, fieldID, assetID, ext string) string {
	return fmt.Sprintf("events/%s/contracts/%s/fields/%s/%s%s", eventID, contractID, fieldID, assetID, ext)
}

// BuildContractKey constructs the S3 key for a contract's source document.
func BuildContractKey(eventID, contractID, fileName string) string {
	return fmt.Sprintf("events/%s/contracts/%s/source/%s", eventID, contractID, fileName)
}

// BuildCertificateKey constructs the S3 key for a signing certificate.
func BuildCertificateKey(eventID, contractID string) string {
	return fmt.Sprintf("events/%s/contracts/%s/certificate.html", eventID, contractID)
}

// ParseAssetKey extracts eventID, contractID and fieldID from an asset key.
func ParseAssetKey(key string) (eventID, contractID, fieldID string, ok bool) {
	parts := strings.Split(key, "/")
	if len(parts) != 7 || parts[0] != "events" || parts[2] != "contracts" || parts[4] != "fields" {
		return "", "", "", false
	}
	return parts[1], parts[3], parts[5], true
}

// ObjectURL returns the durable fetch URL for a stored object.
func ObjectURL(bucket, region, key string) string {
	return fmt.Sprintf("https://%s.s3.%s.amazonaws.com/%s", bucket, region, key)
}
