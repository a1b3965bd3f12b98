// Copyright (c) 2026 Verano. All rights reserved.
// Author: anh.pham.dev@gmail.com

package pointer

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTo(t *testing.T) {
	now := time.Now()
	stamped := To(now)

	require.NotNil(t, stamped)
	assert.Equal(t, now, *stamped)

	// Each call yields an independent allocation.
	assert.NotSame(t, To(1), To(1))
}

func TestDeref(t *testing.T) {
	assert.Equal(t, int64(4000), Deref(To(int64(4000))))
	assert.Zero(t, Deref[int64](nil), "nil derefs to the zero value")
}

func TestDerefOr(t *testing.T) {
	assert.Equal(t, "set", DerefOr(To("set"), "fallback"))
	assert.Equal(t, "fallback", DerefOr[string](nil, "fallback"))
}
