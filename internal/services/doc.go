// Package services holds cross-cutting helpers shared by pipeline
// components: sentinel error markers with wrapping, and context annotation
// for correlation of log output.
package services
