// Package docs holds the OpenAPI document for the stosh HTTP API. It is
// registered with swag only in builds tagged "swagger"; regenerate with
// `swag init -g cmd/stosh/docs.go -o docs` after changing handler annotations.
package docs
