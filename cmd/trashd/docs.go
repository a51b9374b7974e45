package main

// General API information for swaggo. Route descriptions live in docs/docs.go,
// served under /swagger/ when built with -tags=swagger.
//
// @title           trashd API
// @version         1.0
// @description     Trash image classification with optional disposal advice.
//
// @contact.name   trashd maintainers
//
// @license.name   MIT
// @license.url    https://opensource.org/licenses/MIT
//
// @BasePath  /
//
// @schemes http
