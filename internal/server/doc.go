// Package server runs the loopback listener that receives the authorization redirect during an
// interactive login.
//
// # Router
//
// [BasicRouter] wraps [http.ServeMux]. [Middleware] is applied in reverse order (last added
// executes first). [Handler] implementations register their own routes.
//
// # Callback
//
// [OAuthHandler] serves /callback exactly once: it checks the state parameter, classifies the
// redirect as a code, token, error or empty response, and delivers it as a
// connector.AuthorizationResponse on [OAuthHandler.Result]. The code exchange itself happens in
// the connector.
//
// # Lifecycle
//
// [Server.Start] binds the address before returning so the consent URL can be opened right
// away; [Server.Shutdown] stops it once the callback arrived or the wait timed out.
package server
