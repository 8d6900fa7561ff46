package main

import (
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/time/rate"
)

// server wires the job table, admission gate, worker pool, caches and
// collaborators together. Everything is constructed explicitly so tests can
// run isolated instances.
type server struct {
	cfg       Config
	logger    *slog.Logger
	jobs      *jobTable
	admission *admissionController
	cache     *metadataCache
	artifacts *artifactStore
	resolver  Resolver
	extractor Extractor
	hub       *progressHub
	domains   *domainPolicy
	limiter   *rate.Limiter
	startedAt time.Time

	workers sync.WaitGroup

	activeJobs    atomic.Int64
	queuedJobs    atomic.Int64
	completedJobs atomic.Int64
	failedJobs    atomic.Int64
}

func newServer(cfg Config, logger *slog.Logger, resolver Resolver, extractor Extractor) *server {
	jobs := newJobTable()
	return &server{
		cfg:       cfg,
		logger:    logger,
		jobs:      jobs,
		admission: newAdmissionController(jobs, cfg.QueueCapacity),
		cache:     newMetadataCache(logger, cfg.CacheDir, cfg.CacheTTL, cfg.RedisAddr),
		artifacts: newArtifactStore(cfg.DownloadDir),
		resolver:  resolver,
		extractor: extractor,
		hub:       newProgressHub(),
		domains:   newDomainPolicy(cfg.AllowedDomains),
		limiter:   rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), cfg.BurstSize),
		startedAt: time.Now(),
	}
}
