// Package jwt issues and verifies HS512 bearer tokens and carries the verified
// claims through a request context. The role claim is what the HTTP
// authorization policy matches against.
package jwt
