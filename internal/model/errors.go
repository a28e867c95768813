package model

import (
	"errors"
	"fmt"
)

var (
	// ErrContractViolation is wrapped by every ContractError.
	ErrContractViolation = errors.New("contract violation")
	// ErrArtifact is wrapped by every ArtifactError.
	ErrArtifact = errors.New("artifact failure")
)

// ContractError reports a mismatch between inference-time features and what
// a fitted encoder or model expects. It is fatal for the current report.
type ContractError struct {
	Component string // "vectorizer", "encoder", "model"
	Want      int
	Got       int
	Detail    string
}

func (e *ContractError) Error() string {
	if e.Detail != "" {
		return fmt.Sprintf("%s contract violation: %s", e.Component, e.Detail)
	}
	return fmt.Sprintf("%s contract violation: want width %d, got %d", e.Component, e.Want, e.Got)
}

func (e *ContractError) Unwrap() error { return ErrContractViolation }

// ArtifactError reports a fitted artifact that is missing, unreadable, or
// inconsistent with the others. It is fatal at startup.
type ArtifactError struct {
	Artifact string
	Path     string
	Err      error
}

func (e *ArtifactError) Error() string {
	if e.Path != "" {
		return fmt.Sprintf("artifact %s (%s): %v", e.Artifact, e.Path, e.Err)
	}
	return fmt.Sprintf("artifact %s: %v", e.Artifact, e.Err)
}

func (e *ArtifactError) Unwrap() []error { return []error{ErrArtifact, e.Err} }
