// Package logger provides a small wrapper around zap to offer:
//   - a global sugared logger with a console encoder (colored on terminals),
//   - context helpers (ToContext/FromContext/WithName/WithKV),
//   - level configuration and parsing utilities,
//   - convenience functions (Infof, ErrorKV, etc.).
//
// Every pipeline step accepts a context and extracts the logger from it, so
// per-target fields such as the platform tag follow the work automatically.
package logger
