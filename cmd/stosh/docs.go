package main

// General API documentation for swaggo. Regenerate docs with `swag init -g cmd/stosh/docs.go`.
//
// @title           stosh API
// @version         1.0
// @description     HTTP API for compiling Stan models and running samplers in-process.
//
// @contact.name   stosh maintainers
//
// @license.name   MIT
// @license.url    https://opensource.org/licenses/MIT
//
// @BasePath  /
//
// @schemes http
