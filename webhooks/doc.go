// Package webhooks contains the signed-webhook verification primitives.
//
// Verification always runs over the raw wire bytes, before any decoding,
// and uses constant-time comparison so response timing reveals nothing
// about where a forged signature first diverges.
package webhooks
