// Package transport models browsing contexts that exchange messages with
// postMessage semantics: a sender names the origin it expects the target to
// have, delivery is asynchronous, and the receiver learns the sender's
// origin and a handle it can reply through.
package transport
