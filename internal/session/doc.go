// Package session holds the client's identity-provider session: the access/refresh
// pair, its expiry and the identity it belongs to.
//
// Store is a typed façade over the provider. Every mutation goes through the provider
// (user lookup, refresh grant, logout); Store only decides what to commit and in which
// order listeners hear about it. Commits are serialized, each one bumps a generation,
// and an operation that started under an older generation never commits. A refresh
// racing a sign-out therefore cannot resurrect the session.
//
// Listeners run synchronously while the commit lock is held, in registration order,
// once per transition. They must not call mutating Store methods; hand the event to
// another goroutine instead (auth.Coordinator queues it).
package session
