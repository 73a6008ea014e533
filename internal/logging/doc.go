// Package logging is a thin leveled facade over the standard log
// package, shared by the engine and the HTTP surface.
//
// The level comes from LOG_LEVEL (DEBUG, INFO, WARN, ERROR, FATAL);
// setting DEBUG=true forces the debug level regardless. Fatal logs and
// exits. The level can be changed at runtime with SetLevel.
package logging
