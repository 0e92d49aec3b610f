// Package gate implements the inline abuse-prevention gate guarding the
// AI-engine ingress path: per-IP rate limiting, failed-credential tracking
// and temporary IP bans, all backed by in-memory TTL stores.
package gate
