// Package service adapts remote collections to datamodule services.
//
// A Resource exposes the four collection calls. Bind turns a Resource into
// datamodule.Services, optionally limited to some verbs. Two resources are
// provided: SQLResource over the local record store and HTTPResource, a REST
// client for the server in internal/server.
package service
