// Package ioreg implements the role-based I/O registry: the single
// resolver from a functional IoRole (EStop, LimitMin3, BrakeOut1, ...) to
// a physical DI/DO/AI/AO point, with NC/NO inversion and polynomial
// analog scaling applied transparently (spec.md 4.4).
package ioreg
