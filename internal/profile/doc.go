// Package profile holds the ResDex domain model shared by the server and the
// client: user profiles, research and document entries, the interest
// enumeration, field validation and document key derivation.
//
// JSON names match the stored record shape, so the same values travel over the
// wire, into the client cache, and out of the database's jsonb columns.
package profile
