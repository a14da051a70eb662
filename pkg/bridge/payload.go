// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package bridge

// Payload is the dispatch table of a message encoding bridge.
type Payload struct {
	State PayloadState

	Init    Op
	GetType StringOp

	Create               HandleOp
	CreateForTemplate    HandleArgOp
	CreateFromByteBuffer HandleArgOp
	Copy                 HandleArgOp
	Clear                HandleOp
	Destroy              HandleOp
	SetParent            HandleArgOp
	GetByteSize          HandleQuery
	GetNumFields         HandleQuery
	GetSendSubject       HandleStringQuery
	ToString             HandleStringQuery
	IterateFields        HandleArgOp
	Serialize            HandleArgOp
	UnSerialize          HandleArgOp
	GetByteBuffer        HandleQuery
	SetByteBuffer        HandleArgOp
	Apply                HandleArgOp
	GetNativeMsg         HandleQuery
	GetFieldAsString     FieldGetOp
	AddString            FieldSetOp
	UpdateString         FieldSetOp
	GetString            FieldGetOp
	RemoveField          HandleNameOp

	Field FieldOps
	Iter  IterOps
}

// FieldOps are the per-field entry points of a payload.
type FieldOps struct {
	Create       HandleOp
	Destroy      HandleOp
	GetType      HandleQuery
	GetName      HandleStringQuery
	GetFid       HandleQuery
	GetString    HandleStringQuery
	UpdateString HandleNameOp
}

// IterOps are the field iterator entry points of a payload.
type IterOps struct {
	Create    HandleArgOp
	Destroy   HandleOp
	Begin     HandleQuery
	Next      HandleQuery
	HasNext   HandleQuery
	Associate HandleArgOp
}
