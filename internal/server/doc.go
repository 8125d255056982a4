// Package server provides HTTP routing, middleware, and the web API handlers.
//
// # Router Infrastructure
//
// The [Router] interface defines HTTP routing with middleware support.
//
// [Middleware] wraps handlers in reverse order (last added executes first), following the standard Go pattern.
//
// The [BasicRouter] implementation uses [http.ServeMux] internally with method-qualified patterns,
// so the mux performs method dispatch and emits 405 responses itself.
//
// # Handlers
//
// Custom handlers implement the [Handler] interface, which wraps the stdlib handler interface and adds routes,
// allowing handlers to register multiple routes to encapsulate route definitions within the implementation.
//
// [AuthHandler] runs the OAuth2 authorization code flow: /auth/login redirects to
// the provider with a CSRF state cookie, /auth/callback validates the state, exchanges
// the code, resolves the provider identity and binds the tokens to a session cookie.
// /auth/logout clears the stored refresh token and invalidates the session.
//
// [PlaylistHandler] serves playlist listing and detail, playlist songs, filter runs
// and playlist creation from cached filter results. Every route requires the session
// cookie; an absent or lapsed session answers 401.
package server
