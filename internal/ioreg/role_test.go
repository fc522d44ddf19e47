package ioreg

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseIoRoleGlobal(t *testing.T) {
	r := ParseIoRole("EStop")
	assert.False(t, r.Custom)
	assert.Equal(t, "EStop", r.Function)
	assert.Equal(t, 0, r.AxisNumber)
}

func TestParseIoRolePerAxis(t *testing.T) {
	r := ParseIoRole("LimitMin3")
	assert.False(t, r.Custom)
	assert.Equal(t, "LimitMin", r.Function)
	assert.Equal(t, 3, r.AxisNumber)
	assert.Equal(t, "LimitMin3", r.String())
}

func TestParseIoRoleCustom(t *testing.T) {
	r := ParseIoRole("ConveyorJam")
	assert.True(t, r.Custom)
	assert.Equal(t, "ConveyorJam", r.String())
}

func TestParseIoRolePerAxisWithoutNumberIsCustom(t *testing.T) {
	r := ParseIoRole("LimitMin")
	assert.True(t, r.Custom)
}

func TestParseIoRoleGlobalWithNumberIsCustom(t *testing.T) {
	r := ParseIoRole("EStop1")
	assert.True(t, r.Custom)
}
