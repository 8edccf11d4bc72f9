// Copyright (c) 2025 Seedfast
// Licensed under the MIT License. See LICENSE file in the project root for details.

package driver

import (
	"fmt"
	"strings"
)

// OwnerField is the field whose absence triggers assignment rules.
const OwnerField = "OwnerId"

// AssignmentPolicy decides whether an insert asks the remote side to run its
// assignment rules. values holds the fields actually sent.
type AssignmentPolicy interface {
	AutoAssign(object string, values map[string]any) bool
}

// AssignmentFunc adapts a function to AssignmentPolicy.
type AssignmentFunc func(object string, values map[string]any) bool

func (f AssignmentFunc) AutoAssign(object string, values map[string]any) bool {
	return f(object, values)
}

// DefaultAssignment applies assignment rules whenever no owner is given.
var DefaultAssignment AssignmentPolicy = AssignmentFunc(func(_ string, values map[string]any) bool {
	v, ok := values[OwnerField]
	return !ok || v == nil || strings.TrimSpace(fmt.Sprint(v)) == ""
})

// NoAssignment never asks for assignment rules.
var NoAssignment AssignmentPolicy = AssignmentFunc(func(string, map[string]any) bool { return false })
