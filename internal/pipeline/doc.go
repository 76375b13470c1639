// Package pipeline sequences a packaging run: settings validation, layout,
// manifests, the user build step, native compilation, signing, assembly, and
// notarization. The step order is fixed; per-platform differences live behind
// a small strategy interface so exactly one branch executes per run.
package pipeline
