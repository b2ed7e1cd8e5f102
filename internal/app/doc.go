// Package app builds the client dependency graph for the CLI.
package app
