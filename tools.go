// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 LedgerDesk Contributors

//go:build tools

// Package main keeps the test toolchain in go.mod even when only the
// integration build tag imports it.
package main

import (
	_ "github.com/onsi/ginkgo/v2"
	_ "github.com/onsi/gomega"
	_ "github.com/stretchr/testify/assert"
	_ "github.com/stretchr/testify/mock"
	_ "github.com/stretchr/testify/require"
)
