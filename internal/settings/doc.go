// Package settings decodes and validates the per-project settings.config
// file: an ordered "key: value" mapping that every later pipeline step reads
// from and, in two well-defined places, writes derived values back into.
//
// The ordering matters because the original file text is also serialized,
// percent-encoded, into the compiled binary so the packaged app can read its
// own build-time configuration.
package settings
