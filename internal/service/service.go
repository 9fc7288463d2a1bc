// Package service wires the assistant's components behind the HTTP
// transport.
package service

import (
	"github.com/openhouse-crm/assistant/config"
	"github.com/openhouse-crm/assistant/internal/assembler"
	"github.com/openhouse-crm/assistant/internal/provider"
	"github.com/openhouse-crm/assistant/internal/store"
	"github.com/openhouse-crm/assistant/internal/tools"
	"github.com/openhouse-crm/assistant/policy"
)

// Service owns the chat flow and the read surface over the audit trail
// and business data. Dependencies are injected once at startup; the
// per-request executor and orchestrator are built inside Chat so each
// request carries its own audit callbacks.
type Service struct {
	store        store.Store
	adapter      provider.Adapter
	assembler    *assembler.Assembler
	registry     *tools.Registry
	policyEngine *policy.Engine
	config       *config.Config
}

// New creates a Service.
func New(s store.Store, adapter provider.Adapter, ctxAssembler *assembler.Assembler, registry *tools.Registry, policyEngine *policy.Engine, cfg *config.Config) *Service {
	return &Service{
		store:        s,
		adapter:      adapter,
		assembler:    ctxAssembler,
		registry:     registry,
		policyEngine: policyEngine,
		config:       cfg,
	}
}
