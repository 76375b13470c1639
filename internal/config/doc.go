// Package config loads, normalizes, and validates the optional tool-level
// configuration for socket.
//
// It supplies repository defaults, expands user paths (including tilde
// shortcuts), reads the TOML file, and honours environment precedence: CXX,
// CXX_FLAGS, SOCKET_HOME, SIGNTOOL, CSC_KEY_PASSWORD, APPLE_ID, and
// APPLE_ID_PASSWORD always win over file values. A missing config file is
// fine; every knob has a default.
package config
