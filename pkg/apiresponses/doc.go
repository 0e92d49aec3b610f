// Package apiresponses provides standardized HTTP API response helpers
// (error, not-found, unauthorized, rate-limit, etc.) shared between the
// api, gate and controller packages without import cycles.
package apiresponses
