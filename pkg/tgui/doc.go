// Package tgui provides small helpers for building Telegram messages that
// are safe under ParseMode="HTML": escaping, a few tag wrappers, and link
// construction. Values of type H are treated as already-escaped.
package tgui
