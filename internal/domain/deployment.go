package domain

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// DeploymentState represents the lifecycle state of an online deployment.
type DeploymentState string

const (
	DeploymentStateInitializing DeploymentState = "initializing"
	DeploymentStateReady        DeploymentState = "ready"
	DeploymentStateFailed       DeploymentState = "failed"
)

func (s DeploymentState) Valid() bool {
	switch s {
	case DeploymentStateInitializing, DeploymentStateReady, DeploymentStateFailed:
		return true
	default:
		return false
	}
}

func (s DeploymentState) Terminal() bool {
	return s == DeploymentStateReady || s == DeploymentStateFailed
}

// ParseDeploymentState normalizes a platform status string.
func ParseDeploymentState(raw string) (DeploymentState, error) {
	s := DeploymentState(strings.ToLower(strings.TrimSpace(raw)))
	if !s.Valid() {
		return "", fmt.Errorf("unknown deployment state: %q", raw)
	}
	return s, nil
}

// Deployment is an online scoring endpoint for a registered model.
type Deployment struct {
	ID         string
	ModelID    string
	Name       string
	State      DeploymentState
	ScoringURL string
	CreatedAt  time.Time
}

func (d Deployment) Validate() error {
	if strings.TrimSpace(d.ID) == "" {
		return errors.New("deployment id is required")
	}
	if strings.TrimSpace(d.ModelID) == "" {
		return errors.New("deployment model id is required")
	}
	if !d.State.Valid() {
		return errors.New("invalid deployment state")
	}
	return nil
}
