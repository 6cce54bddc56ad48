// Package auth owns the client's "current user": it drives sign-in (OAuth browser
// handoff, email/password, sign-up), listens to session.Store transitions and inbound
// URL events, resolves the UserView and publishes snapshots to subscribers.
//
// Everything that changes state is an event on one queue consumed by a single
// goroutine, so ordering is the order events were queued. Network work (token
// exchange, profile lookup) runs off the loop and reports back as another event; a
// profile result tagged with an older generation is dropped. That is how a lookup
// still in flight when Logout returns can never bring the user back.
package auth
