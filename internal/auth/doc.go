// Package auth provides authentication for the realtime gateway.
//
// # Authentication Flow
//
// Identities log in with handle and password (bcrypt verified) and
// receive a JWT signed with HS256 using the configured jwt_secret. The
// token carries the identity ID in the "sub" claim.
//
// Every API request presents the token as a bearer Authorization header;
// the socket endpoint accepts the same token via header or query
// parameter, since browser WebSocket clients cannot set headers.
//
// # Request Context
//
// HTTPAuthMiddleware verifies the token, loads the identity, and attaches
// an AuthContext to the request context:
//
//	auth := auth.FromContext(r.Context())
//	auth.IdentityID // who is calling
//
// Admin-only endpoints wrap RequireAdminHTTP after the auth middleware;
// admin status comes from the configured admin handle list.
package auth
