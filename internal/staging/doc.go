// Package staging builds the temporary copy of the app files that is merged
// into a runtime distribution.
//
// Assembler expands the configured glob patterns, copies the matches into a
// uniquely named directory and always adds the app manifest. The manifest is
// then customised for the runtime and production dependencies are installed.
package staging
