// Package core contains the contracts shared by both sides of the cross-frame
// protocol: the error taxonomy, configuration loading and the logging and
// error-reporting collaborators. Agents and transports depend on core; core
// must not depend on any of them.
package core
