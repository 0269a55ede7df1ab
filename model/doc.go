// Package model defines the normalized language-model provider interface
// used by agent nodes. Providers translate the unified Request/Response
// structures into their vendor API and classify failures into the transient /
// permanent taxonomy consumed by the reliability layer.
package model
