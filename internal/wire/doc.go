// Package wire defines the segment payload structs, module-facing
// constants, bit-packed I/O banks, and closed error taxonomies shared by
// every process in the platform. Nothing in this package crosses a
// process boundary on its own; the root shm package moves these types
// between processes, and every payload here is consumed as the type
// parameter of a shm.TypedWriter/TypedReader.
package wire
