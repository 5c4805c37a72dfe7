// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package middleware provides HTTP middleware and helper functions.

# Request Logging

Wrap handlers with request logging:

	mux.HandleFunc("GET /health", middleware.WithLogging(handler))

Logs one line per request on completion (method, path, remote, status,
duration_ms, and trace_id when tracing is on). Each request also gets a
server span.

# Authentication

Routes that need a caller identity are wrapped with RequireRole:

	mux.HandleFunc("POST /cast-vote",
		middleware.WithLogging(middleware.RequireRole(verifier, models.RoleVoter, h.CastVote)))

A missing or invalid bearer token is a 401; a valid token with the wrong role
is a 403.

# CORS Middleware

Enable cross-origin requests for frontend access:

	server := http.Server{
		Handler: middleware.CORS(mux),
	}

Allows methods GET, POST, PATCH, OPTIONS with headers Content-Type and
Authorization.

# JSON Helpers

Write JSON responses:

	middleware.JSONResponse(w, http.StatusOK, data)
	middleware.WriteError(w, err)

WriteError maps an apperr code to its status and writes
{"error", "code", "message"}. Unknown errors become a generic 500.

Parse JSON request bodies:

	var req models.CastVoteRequest
	if err := middleware.ParseJSONBody(r, &req); err != nil {
		middleware.WriteError(w, err)
		return
	}

# Client IP Extraction

Get the original client IP (handles X-Forwarded-For, X-Real-IP):

	ip := middleware.GetClientIP(r)

Only used for the request log.
*/
package middleware
