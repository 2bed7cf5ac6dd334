// Package aria2 implements the JSON-RPC client for the download manager.
// One WebSocket connection carries both request/response traffic and the
// push notifications that drive the completion pipeline.
package aria2
