// Package tracing wires the optional Langfuse callback handler into the eino
// model calls so generation spans can be inspected per trace id.
package tracing

import (
	"os"

	"github.com/cloudwego/eino-ext/callbacks/langfuse"
	"github.com/cloudwego/eino/callbacks"
)

// defaultHost targets a local Langfuse instance when LANGFUSE_HOST is unset.
const defaultHost = "http://localhost:3000"

// Setup builds the Langfuse callback handler when both LANGFUSE_PUBLIC_KEY
// and LANGFUSE_SECRET_KEY are present; otherwise it reports false and tracing
// stays off. The returned flush function must run before process exit so
// buffered spans are delivered.
func Setup() (callbacks.Handler, func(), bool) {
	public := os.Getenv("LANGFUSE_PUBLIC_KEY")
	secret := os.Getenv("LANGFUSE_SECRET_KEY")
	if public == "" || secret == "" {
		return nil, nil, false
	}

	host := os.Getenv("LANGFUSE_HOST")
	if host == "" {
		host = defaultHost
	}

	handler, flush := langfuse.NewLangfuseHandler(&langfuse.Config{
		Host:      host,
		PublicKey: public,
		SecretKey: secret,
	})
	return handler, flush, true
}
