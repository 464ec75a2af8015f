// Package platform contains OS integration and external tooling glue:
// filesystem helpers, artifact detection, playlist expansion via the
// ytdlp library, and OS reveal.
package platform
