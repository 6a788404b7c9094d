// Package auth implements the OAuth side of a source connection: PKCE challenge generation, the
// credential store, and the token exchanger that talks to the accounts service.
//
// # PKCE
//
// [GenerateChallenge] draws a verifier of 43 to 128 lowercase ASCII letters and derives its S256
// challenge (base64url of the SHA-256 digest, right-trimmed of '=', '\n', '\r' and ' ').
// The narrow alphabet matches what the registered client has always sent.
//
// # Token Exchange
//
// [Exchanger] wraps an [oauth2.Config] configured for a public client (no secret, client id in the
// form body). It performs the two grants used by the connector:
//   - authorization_code with code_verifier, after interactive consent
//   - refresh_token, on every source init
//
// Failures are typed:
//   - [*AuthError] : non-2xx response or a body that is not a token (wraps [shared.ErrAuthFailed])
//   - [shared.ErrNetwork] : the request never produced a response
//
// Nothing here retries.
//
// # Credentials
//
// [CredentialStore] holds the current [Credential] and derives the bearer header from it.
// A credential is only ever replaced whole.
package auth
