// Package hal runs the 1ms hardware-abstraction cycle: it owns the
// CuToHal/HalToCu/HalToMqt shared-memory segments and drives a pluggable
// HalDriver (simulation or a named hardware backend) once per cycle.
package hal
