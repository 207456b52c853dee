// Package google loads the OAuth client secrets and stored user token for the
// Gmail backend and turns them into an authenticated HTTP client.
//
// Obtaining the token is out of scope: token.json must already exist, either
// in golang.org/x/oauth2 token form or in the authorized-user form written by
// Google's Python client libraries.
package google
