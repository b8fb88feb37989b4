// Package core hosts the command dispatcher spec.md §6 describes: a
// single Service struct that owns the identity vault, the gossip actor,
// and the dead-drop pipeline, and exposes one method per host-facing
// operation. Grounded on the teacher's messaging-service dependency-
// injection style (a single deps-holding struct constructed once, methods
// named after the use case) and on internal/app/runtime.go for the event
// hub and error-categorization conventions.
package core

import (
	"context"
	"errors"
	"log/slog"

	"github.com/prometheus/client_golang/prometheus"

	"ghostcore/internal/deaddrop"
	"ghostcore/internal/deaddrop/ipfsclient"
	"ghostcore/internal/ghost"
	"ghostcore/internal/shamir"
	"ghostcore/internal/vault"
)

const notificationHistoryLimit = 256

// Config bundles the process-wide settings the service needs to construct
// its subsystems. AppDataDir holds the encrypted identity file; IPFSAddr,
// when empty, falls back to ipfsclient's default local daemon address.
type Config struct {
	AppDataDir string
	IPFSAddr   string
	Ghost      ghost.Config
}

// Service is the single process-wide object the command surface dispatches
// against. It is safe for concurrent use: the vault and actor are each
// internally synchronized, and Service itself holds no mutable state
// beyond references to them.
type Service struct {
	vault    *vault.Vault
	pipeline *deaddrop.Pipeline
	actor    *ghost.Actor
	hub      *NotificationHub
	logger   *slog.Logger
	cfg      Config
	registry *prometheus.Registry
}

// New constructs a Service but performs no I/O: callers must call
// InitIdentity before any operation that needs the identity. It also
// registers the ghost actor's and dead-drop pipeline's prometheus
// metrics into a fresh registry, exposed via Registry() so the embedding
// process can serve a /metrics endpoint.
func New(cfg Config, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	hub := NewNotificationHub(notificationHistoryLimit)
	v := vault.New(cfg.AppDataDir)
	registry := prometheus.NewRegistry()
	ghost.MustRegisterMetrics(registry)
	deaddrop.MustRegisterMetrics(registry)
	s := &Service{
		vault:    v,
		pipeline: deaddrop.New(ipfsclient.New(cfg.IPFSAddr)),
		hub:      hub,
		logger:   logger,
		cfg:      cfg,
		registry: registry,
	}
	s.actor = ghost.New(v, &hubEventSink{hub: hub}, logger, cfg.Ghost)
	return s
}

// Registry returns the prometheus registry this Service's subsystems are
// registered against, for an embedding process to serve with
// promhttp.HandlerFor.
func (s *Service) Registry() *prometheus.Registry {
	return s.registry
}

// hubEventSink bridges ghost.EventSink's two callbacks into the
// NotificationHub's method-named publish calls, per spec.md §6's
// ghost_msg/msg_delivered event names.
type hubEventSink struct {
	hub *NotificationHub
}

func (s *hubEventSink) GhostMsg(m ghost.GhostMessage) {
	s.hub.Publish("ghost_msg", m)
}

func (s *hubEventSink) MsgDelivered(m ghost.MessageDelivered) {
	s.hub.Publish("msg_delivered", m)
}

// InitIdentity implements spec.md §6's init_identity(password).
func (s *Service) InitIdentity(password string) (string, error) {
	id, err := s.vault.Init(password)
	if err != nil {
		return "", categorize(err)
	}
	return id, nil
}

// GetPublicID is the supplemented get_public_id read-only accessor.
func (s *Service) GetPublicID() (string, error) {
	id, err := s.vault.PublicID()
	if err != nil {
		return "", categorize(err)
	}
	return id, nil
}

// ExportMnemonic implements the supplemented export_mnemonic operation.
func (s *Service) ExportMnemonic() (string, error) {
	mnemonic, err := s.vault.ExportMnemonic()
	if err != nil {
		return "", categorize(err)
	}
	return mnemonic, nil
}

// ImportMnemonic implements the supplemented import_mnemonic operation.
func (s *Service) ImportMnemonic(mnemonic, password string) (string, error) {
	id, err := s.vault.ImportMnemonic(mnemonic, password)
	if err != nil {
		return "", categorize(err)
	}
	return id, nil
}

// StartGhostMode implements spec.md §6's start_ghost_mode().
func (s *Service) StartGhostMode(ctx context.Context) error {
	if err := s.actor.Start(ctx); err != nil {
		return categorize(err)
	}
	return nil
}

// StopGhostMode is the supplemented stop_ghost_mode() counterpart.
func (s *Service) StopGhostMode() {
	s.actor.Shutdown()
}

// Close shuts the gossip actor down (if running) and wipes the unsealed
// identity's private scalar from memory, per spec §4.1/§5's requirement
// that the cached identity be zeroized on process shutdown. Call exactly
// once, after the last command dispatched against this Service.
func (s *Service) Close() {
	s.actor.Shutdown()
	s.vault.Wipe()
}

// SendGhostMessage implements spec.md §6's send_ghost_message(target, content).
func (s *Service) SendGhostMessage(ctx context.Context, targetPublicKeyBase58, content string) (string, error) {
	id, err := s.actor.Send(ctx, targetPublicKeyBase58, content)
	if err != nil {
		return "", categorize(err)
	}
	return id, nil
}

// CreateDrop implements spec.md §6's create_drop(path, t, n).
func (s *Service) CreateDrop(ctx context.Context, path string, threshold, total int) (*deaddrop.Created, error) {
	created, err := s.pipeline.CreateDrop(ctx, path, threshold, total)
	if err != nil {
		return nil, categorize(err)
	}
	return created, nil
}

// OpenDrop implements the supplemented retrieve_drop/open_drop(cid, shares, destPath).
func (s *Service) OpenDrop(ctx context.Context, cid string, shares []string, destPath string) error {
	if err := s.pipeline.OpenDrop(ctx, cid, shares, destPath); err != nil {
		return categorize(err)
	}
	return nil
}

// TestIPFS implements spec.md §6's test_ipfs() liveness probe against
// the local storage daemon's /api/v0/id endpoint.
func (s *Service) TestIPFS(ctx context.Context) (string, error) {
	client := ipfsclient.New(s.cfg.IPFSAddr)
	id, err := client.ID(ctx)
	if err != nil {
		return "", categorize(err)
	}
	return id, nil
}

// Events subscribes to the notification hub, returning the backlog since
// fromSeq plus a live channel and a cancel func the caller must invoke
// exactly once when done.
func (s *Service) Events(fromSeq int64) ([]NotificationEvent, <-chan NotificationEvent, func()) {
	return s.hub.Subscribe(fromSeq)
}

// categorize maps a subsystem error into a CategorizedError by the
// category its own sentinel indicates, falling back to CategoryInternal
// for anything unrecognized so the host surface never leaks a raw,
// un-categorized error.
func categorize(err error) *CategorizedError {
	if err == nil {
		return nil
	}
	for _, m := range categoryMatchers {
		if m.is(err) {
			return NewCategorizedError(m.category, err)
		}
	}
	return NewCategorizedError(CategoryInternal, err)
}

type categoryMatcher struct {
	category ErrorCategory
	is       func(error) bool
}

var categoryMatchers = buildCategoryMatchers()

func buildCategoryMatchers() []categoryMatcher {
	match := func(category ErrorCategory, targets ...error) categoryMatcher {
		return categoryMatcher{category: category, is: func(err error) bool {
			for _, t := range targets {
				if errors.Is(err, t) {
					return true
				}
			}
			return false
		}}
	}
	return []categoryMatcher{
		match(CategoryWrongPassword, vault.ErrWrongPassword),
		match(CategoryIoError, vault.ErrIO),
		match(CategoryAuthFailure, vault.ErrAuthFailed, vault.ErrInvalidPeerKey, vault.ErrInvalidMnemonic, vault.ErrNotInitialized, vault.ErrEnvelopeTooShort, deaddrop.ErrTamperedChunk),
		match(CategoryInvalidRecipient, ghost.ErrInvalidRecipient),
		match(CategoryNotRunning, ghost.ErrNotRunning),
		match(CategoryAlreadyRunning, ghost.ErrAlreadyRunning),
		match(CategoryPublishFailed, ghost.ErrPublishFailed),
		match(CategoryIoError, deaddrop.ErrIO),
		match(CategoryUploadFailed, deaddrop.ErrUploadFailed),
		match(CategoryStorageUnavailable, ipfsclient.ErrStorageUnavailable),
		match(CategoryInvalidPolicy, shamir.ErrInvalidPolicy, shamir.ErrInvalidShare),
	}
}
