// Package api defines the core data types shared by the workflow engine
//
// This package contains workflow and step specifications, execution results,
// budget and alert types, the error taxonomy, and HTTP messages
package api
