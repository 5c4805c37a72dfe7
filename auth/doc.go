// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package auth verifies the bearer tokens issued by the external identity
provider.

# Tokens

Tokens are HS256 JWTs carrying the identity hash in "sub" and the caller's
role ("voter" or "admin") in "role". An expiry is required.

	v := auth.NewVerifier(secret, time.Now)
	id, err := v.Verify(auth.BearerToken(r))

Every failure is an AUTHENTICATION_FAILED error. The raw national identifier
never reaches this service; only its hash does.

# Context

Middleware stores the verified identity on the request context:

	ctx = auth.WithIdentity(ctx, id)
	id, ok := auth.FromContext(ctx)
*/
package auth
