// Package server exposes the workflow engine over HTTP
//
// Workflows are executed synchronously through POST /engine/execute. Budget
// alerts are streamed to WebSocket clients connected to /engine/ws
package server
