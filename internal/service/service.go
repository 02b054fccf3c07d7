// Package service implements the chat session proxy and the recommendation
// flow on top of the store, engine and model adapters.
package service

import (
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/KaanK026/Harvia/internal/adapter/objectstore"
	"github.com/KaanK026/Harvia/internal/adapter/predictor"
	"github.com/KaanK026/Harvia/internal/adapter/profile"
	"github.com/KaanK026/Harvia/internal/config"
	"github.com/KaanK026/Harvia/internal/rag"
	"github.com/KaanK026/Harvia/internal/repository"
)

// Deps are the collaborators of the service. Profiles, Model and Images may
// be nil; the operations that need them then report unavailable.
type Deps struct {
	Store    repository.Store
	Engine   rag.QueryEngine
	Profiles profile.Store
	Model    predictor.Model
	Images   objectstore.Store
}

type Service struct {
	store    repository.Store
	engine   rag.QueryEngine
	profiles profile.Store
	model    predictor.Model
	images   objectstore.Store
	locks    *sessionLocks
	config   *config.Config
	log      *zap.Logger
	newID    func() string
}

func New(deps Deps, cfg *config.Config, log *zap.Logger) *Service {
	if log == nil {
		log = zap.NewNop()
	}
	return &Service{
		store:    deps.Store,
		engine:   deps.Engine,
		profiles: deps.Profiles,
		model:    deps.Model,
		images:   deps.Images,
		locks:    newSessionLocks(),
		config:   cfg,
		log:      log.Named("service"),
		newID:    uuid.NewString,
	}
}

// Ready reports whether chat requests can be served.
func (s *Service) Ready() bool {
	return s.engine != nil && s.engine.Ready()
}
