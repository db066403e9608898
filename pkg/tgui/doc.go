// Package tgui provides small Telegram text helpers:
//   - Safe HTML builders for ParseMode="HTML" (auto escaping)
//   - Rune-aware truncation
package tgui
