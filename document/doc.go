// Package document provides document loading for batch pipelines. Loaders
// are native clients: pipeline transforms invoke them through the
// reliability boundary.
package document
