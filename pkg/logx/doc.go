// Package logx configures recobot's structured logging.
//
// A small wrapper (logx.Logger) on top of zerolog keeps:
//   - Console output readable (short timestamp, short caller, component tag)
//   - File output JSON-structured, one event per line
//   - Stdout free for command results (console logs go to stderr)
package logx
