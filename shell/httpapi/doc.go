// Package httpapi exposes the library over HTTP.
//
// Routes (all bodies and responses are JSON):
//
//	GET    /health
//	POST   /api/v1/loans/borrow      {"user_id":1,"title":"Dune","author":"Frank Herbert"}
//	POST   /api/v1/loans/return      {"user_id":1,"title":"Dune","author":"Frank Herbert"}
//	GET    /api/v1/books             ?author=...&title=... narrow the list
//	POST   /api/v1/books             {"title":"Dune","author":"Frank Herbert","quantity":2}
//	DELETE /api/v1/books             ?title=...&author=...
//	GET    /api/v1/users
//	PUT    /api/v1/users/{id}        {"name":"Ada","borrow_limit":3}
//	GET    /api/v1/users/{id}
//
// Errors are reported with the stable error kind in the "code" field.
package httpapi
