// Package logx configures prensabot's structured logging.
//
// It is a small wrapper (logx.Logger) on top of zerolog that keeps:
//   - Console output readable (short timestamp + key=value fields)
//   - File output JSON-structured
//   - Optional Telegram sink (min-level + rate limiting)
package logx
