/*
Package authsdk provides a client SDK for token-authenticated JSON APIs that
keep a short-lived bearer token in local storage and a long-lived refresh
credential in a cookie.

# Overview

The package is organized around two main types:

  - Client: issues API calls, attaches the bearer token and transparently
    refreshes it when the server rejects it
  - Session: owns the signed-in identity and the derived "is authenticated"
    state, restoring it from the credential store at startup

Every call returns an Envelope instead of an error. The Envelope mirrors the
server's wire shape:

	{ "success": bool, "data": T, "message": string, "errors": [{"field", "message"}] }

Transport failures, timeouts and malformed responses are mapped onto failed
envelopes by the client, so callers only ever check Success:

	store := credstore.NewMemory()
	client := authsdk.NewClient("https://api.example.com/api", store)

	env := authsdk.Get[Profile](ctx, client, "/user/me")
	if !env.Success {
		fmt.Println(env.ErrorMessage())
		return
	}
	fmt.Println(env.Data.Name)

# Automatic Token Refresh

When a call to an ordinary endpoint fails with 401 Unauthorized, the client:

 1. POSTs to /auth/refresh-token with no body and no bearer token; the
    cookie jar supplies the refresh credential
 2. stores the new access token if the refresh succeeded
 3. re-issues the original request exactly once

If the refresh fails the caller receives the original 401 envelope. A 401
from the retry is returned as-is. Endpoints under /auth/ never trigger a
refresh.

Concurrent calls that all see an expired token each refresh independently.
WithRefreshCoalescing shares one refresh between them, and WithRefreshLimiter
bounds how often the refresh endpoint is hit.

# Sessions

A Session is created once per process:

	session := authsdk.NewSession(ctx, store, client)
	unsubscribe := session.Subscribe(func(s authsdk.Snapshot) {
		fmt.Println("state:", s.State)
	})
	defer unsubscribe()

	env := session.SignIn(ctx, authsdk.LoginRequest{UserName: "joe", Password: "secret"})
	if !env.Success {
		for field, msg := range env.FieldErrors() {
			fmt.Printf("%s: %s\n", field, msg)
		}
	}

	session.Logout(ctx)

NewSession never fails. A store that cannot be read is cleared and the
session starts unauthenticated. Logout always ends the local session, even
when the server cannot be reached.

# Thread Safety

Client and Session are safe for concurrent use. SignIn and SignUp reject a
submission made while another one is still in flight.
*/
package authsdk
