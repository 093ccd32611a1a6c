// Package httputil holds the JSON response helpers and middleware shared by
// the admin API handlers.
//
// # Responses
//
//	httputil.WriteJSON(w, http.StatusOK, plugins)
//	httputil.WriteNotFoundError(w, "plugin not found: Economy")
//
// Every error body has the form {"error": "..."}.
//
// # Middleware
//
//	handler := httputil.Chain(
//		httputil.RequestIDMiddleware,
//		httputil.RecoveryMiddleware(logger),
//		httputil.LoggingMiddleware(logger),
//	)(router)
package httputil
