// Package persistence saves the last known device set between runs.
//
// The state file is JSON. It is informational: a fresh controller always
// re-enumerates, but tools can show what was attached when the previous
// session ended and when each device was last seen.
package persistence
