// Package client is the ResDex client's gRPC transport.
//
// GRPCClient manages the connection, attaches the access token to every call,
// refreshes an expired access token once and retries, and maps gRPC status
// codes back onto the sentinel errors in internal/common. It implements the
// record store and object store collaborators used by the client services.
package client
