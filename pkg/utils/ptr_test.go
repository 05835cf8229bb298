// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

package utils

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestPtr(t *testing.T) {
	s := "hello"
	p := Ptr(s)
	s = "changed"
	assert.Equal(t, "hello", *p)

	now := time.Date(2025, 3, 14, 15, 0, 0, 0, time.UTC)
	assert.Equal(t, now, *Ptr(now))
}

func TestValue(t *testing.T) {
	assert.Equal(t, "", Value[string](nil))
	assert.Equal(t, 0, Value[int](nil))
	assert.True(t, Value[time.Time](nil).IsZero())

	assert.Equal(t, "x", Value(Ptr("x")))
	assert.Equal(t, 42, Value(Ptr(42)))
}
