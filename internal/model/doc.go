// Package model contains the shared interfaces and data structures.
//
// # Criteria for adding a type to this package
//
// This package should contain two types:
//
// 1. important interfaces that are shared by several packages
// within the codebase, with the objective of separating unrelated
// pieces of code and making unit testing easier;
//
// 2. important pieces of data that are shared across different
// packages (e.g., the opaque Handle naming a stream).
//
// In general, this package should not contain logic, unless
// this logic is strictly related to data structures and we
// cannot implement this logic elsewhere.
//
// # Content of this package
//
// The following list summarizes the categories of types that
// currently belong here and names the files in which they are
// implemented:
//
// - handle.go: the opaque handle naming a stream or a listener,
// whose identity survives TLS attach and detach;
//
// - logger.go: generic definition of an apex/log compatible logger,
// used in several places across the codebase;
//
// - tls.go: the TLS engine capability consumed by the layering code
// and the TLS connection type the engines return.
package model
