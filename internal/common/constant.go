// Package common contains shared constants and sentinel errors used across
// ResDex components.
package common

const (
	// AccessTokenHeaderName is the gRPC metadata key used to carry the
	// access token on outbound requests.
	AccessTokenHeaderName = "access_token"

	// ProfileCacheKeyPrefix namespaces cached profiles in the local KV store.
	ProfileCacheKeyPrefix = "profile_"

	// DocumentBucket is the object storage bucket holding uploaded documents
	// and profile pictures.
	DocumentBucket = "resdex-bucket"

	// DocumentBucketHost prefixes every stored document URL. The object key is
	// the URL-decoded remainder.
	DocumentBucketHost = DocumentBucket + ".s3.amazonaws.com/"

	// SnapshotLimit bounds the live search snapshot.
	SnapshotLimit = 50
)
