// Package tool implements the capability subsystem agents use mid-reasoning:
// a registry mapping declared tool names to schema-validated handlers, and a
// FunctionTool adapter exposing plain Go functions as tools. The registry
// performs no selection, only validation and dispatch; the model chooses
// tools by name.
package tool
