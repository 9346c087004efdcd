// Package assets manages fleet assets: vehicles, trailers, equipment and
// tools, their meter readings and position history.
package assets
