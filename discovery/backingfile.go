// Copyright 2024 The Fuchsia Authors. All rights reserved.
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

package discovery

import (
	"os"
	"path/filepath"

	"github.com/google/uuid"
)

// NewShmBackingPath returns a fresh, collision-free path for the fallback
// backend's backing file (spec.md §4.2.2, §9 Open Questions: the original
// implementation's reuse of a fixed name is what causes its abnormal-exit
// file leak). Naming each session uniquely means a crashed session leaks
// at most its own file rather than colliding with the next one.
func NewShmBackingPath() string {
	return filepath.Join(os.TempDir(), "uitest-transactor-"+uuid.NewString()+".shm")
}
