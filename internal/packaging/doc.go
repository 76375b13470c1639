// Package packaging assembles the final distributable per platform: the
// zipped .app bundle on macOS, a .deb archive on Linux, and an .appx
// container on Windows built by walking the package tree.
package packaging
