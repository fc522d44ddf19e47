// Package simdrv implements the "simulation" HalDriver (spec.md 4.2): a
// software model of axis kinematics, referencing/homing, linked DO->DI
// delay chains, and analog I/O, used when no physical hardware is present.
package simdrv
