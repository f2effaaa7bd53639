// Package server exposes the marketplace over a small JSON HTTP API. The
// browser client is an external collaborator; it consumes these routes and
// renders the toasts the notifier mirrors into the logs.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"neon-market/internal/market"
	"neon-market/internal/market/service"
	"neon-market/internal/notify"
	"neon-market/internal/wallet"
)

type Server struct {
	logger   *zap.Logger
	svc      *service.Service
	notifier notify.Notifier
	wallet   wallet.Provider
	router   chi.Router
	http     *http.Server
}

func New(logger *zap.Logger, svc *service.Service, notifier notify.Notifier, provider wallet.Provider) (*Server, error) {
	s := Server{
		logger:   logger,
		svc:      svc,
		notifier: notifier,
		wallet:   provider,
	}

	if err := s.validate(); err != nil {
		return nil, err
	}

	s.setupRoutes()

	return &s, nil
}

func (s *Server) validate() error {
	var missingDeps []string

	for _, tc := range []struct {
		dep string
		chk func() bool
	}{
		{
			dep: "logger",
			chk: func() bool { return s.logger != nil },
		},
		{
			dep: "service",
			chk: func() bool { return s.svc != nil },
		},
		{
			dep: "notifier",
			chk: func() bool { return s.notifier != nil },
		},
	} {
		if !tc.chk() {
			missingDeps = append(missingDeps, tc.dep)
		}
	}

	if len(missingDeps) > 0 {
		return fmt.Errorf(
			"unable to initialize server due to (%d) missing dependencies: %s",
			len(missingDeps),
			strings.Join(missingDeps, ","),
		)
	}

	return nil
}

func (s *Server) setupRoutes() {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)

	r.Route("/api", func(r chi.Router) {
		r.Get("/collections", s.handleListCollections)
		r.Post("/collections", s.handleCreateCollection)
		r.Get("/collections/{slug}", s.handleGetCollection)
		r.Get("/collections/{slug}/nfts", s.handleCollectionNFTs)
		r.Post("/collections/{slug}/nfts", s.handleMint)
		r.Put("/collections/{slug}/twitter", s.handleConfigureTwitter)
		r.Get("/nfts", s.handleListedNFTs)
		r.Post("/nfts/{address}/purchase", s.handlePurchase)
		r.Get("/wallet", s.handleWallet)
	})

	s.router = r
}

// Router returns the configured handler, mainly for tests.
func (s *Server) Router() http.Handler { return s.router }

// Start serves until the context is cancelled, then shuts down gracefully.
func (s *Server) Start(ctx context.Context, addr string) error {
	s.http = &http.Server{
		Addr:    addr,
		Handler: s.router,
	}

	errc := make(chan error, 1)
	go func() {
		errc <- s.http.ListenAndServe()
	}()

	s.logger.Info("server listening", zap.String("addr", addr))

	select {
	case err := <-errc:
		if err != nil && err != http.ErrServerClosed {
			return fmt.Errorf("unable to serve: %w", err)
		}
		return nil
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Second*5)
		defer cancel()
		return s.http.Shutdown(shutdownCtx)
	}
}

func (s *Server) handleListCollections(w http.ResponseWriter, r *http.Request) {
	records, err := s.svc.ListCollections()
	if err != nil {
		s.notifier.Error("Failed to load collections", err.Error())
		s.writeError(w, err)
		return
	}

	s.writeJSON(w, http.StatusOK, records)
}

func (s *Server) handleCreateCollection(w http.ResponseWriter, r *http.Request) {
	var in struct {
		Name         string `json:"name"`
		Description  string `json:"description"`
		OwnerAddress string `json:"owner_address"`
		ImageURL     string `json:"image_url"`
		market.TwitterCredentials
	}
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		s.writeJSON(w, http.StatusBadRequest, errorBody("invalid request body"))
		return
	}

	record, err := s.svc.CreateCollection(service.CreateCollectionInput{
		Name:         in.Name,
		Description:  in.Description,
		OwnerAddress: in.OwnerAddress,
		ImageURL:     in.ImageURL,
		Twitter:      in.TwitterCredentials,
	})
	if err != nil {
		s.notifier.Error("Error creating collection", err.Error())
		s.writeError(w, err)
		return
	}

	s.notifier.Success("Collection created", record.Name+" has been created successfully!")
	s.writeJSON(w, http.StatusCreated, record)
}

func (s *Server) handleGetCollection(w http.ResponseWriter, r *http.Request) {
	record, err := s.svc.ResolveSlug(chi.URLParam(r, "slug"))
	if err != nil {
		s.writeError(w, err)
		return
	}

	s.writeJSON(w, http.StatusOK, record)
}

func (s *Server) handleCollectionNFTs(w http.ResponseWriter, r *http.Request) {
	record, err := s.svc.ResolveSlug(chi.URLParam(r, "slug"))
	if err != nil {
		s.writeError(w, err)
		return
	}

	nfts, err := s.svc.CollectionNFTs(record.Name)
	if err != nil {
		s.notifier.Error("Failed to load NFTs", err.Error())
		s.writeError(w, err)
		return
	}

	s.writeJSON(w, http.StatusOK, nfts)
}

func (s *Server) handleMint(w http.ResponseWriter, r *http.Request) {
	record, err := s.svc.ResolveSlug(chi.URLParam(r, "slug"))
	if err != nil {
		s.writeError(w, err)
		return
	}

	var in struct {
		Name        string `json:"name"`
		Description string `json:"description"`
		Price       string `json:"price"`
		ImageURL    string `json:"image_url"`
	}
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		s.writeJSON(w, http.StatusBadRequest, errorBody("invalid request body"))
		return
	}

	nft, err := s.svc.Mint(record.Name, service.MintInput{
		Name:        in.Name,
		Description: in.Description,
		Price:       in.Price,
		ImageURL:    in.ImageURL,
	})
	if err != nil {
		s.notifier.Error("Error minting NFT", err.Error())
		s.writeError(w, err)
		return
	}

	s.notifier.Success("NFT Minted Successfully", nft.Name+" has been added to "+record.Name)
	s.writeJSON(w, http.StatusCreated, nft)
}

func (s *Server) handleConfigureTwitter(w http.ResponseWriter, r *http.Request) {
	record, err := s.svc.ResolveSlug(chi.URLParam(r, "slug"))
	if err != nil {
		s.writeError(w, err)
		return
	}

	var creds market.TwitterCredentials
	if err := json.NewDecoder(r.Body).Decode(&creds); err != nil {
		s.writeJSON(w, http.StatusBadRequest, errorBody("invalid request body"))
		return
	}

	if err := s.svc.ConfigureTwitter(record.Name, creds); err != nil {
		s.notifier.Error("Error", err.Error())
		s.writeError(w, err)
		return
	}

	s.notifier.Success("Twitter Configuration Saved", "Your Twitter settings have been updated")
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleListedNFTs(w http.ResponseWriter, r *http.Request) {
	records, err := s.svc.ListedNFTs()
	if err != nil {
		s.notifier.Error("Failed to load NFTs", err.Error())
		s.writeError(w, err)
		return
	}

	s.writeJSON(w, http.StatusOK, records)
}

func (s *Server) handlePurchase(w http.ResponseWriter, r *http.Request) {
	nft, err := s.svc.Purchase(chi.URLParam(r, "address"))
	if err != nil {
		s.notifier.Error("Failed to complete purchase", err.Error())
		s.writeError(w, err)
		return
	}

	s.notifier.Success("Purchase successful!", nft.Name)
	s.writeJSON(w, http.StatusOK, nft)
}

func (s *Server) handleWallet(w http.ResponseWriter, r *http.Request) {
	provider, err := wallet.Detect(s.wallet)
	if err != nil {
		// no extension: send the caller to the install page
		s.writeJSON(w, http.StatusNotFound, map[string]string{
			"error":       err.Error(),
			"install_url": wallet.InstallURL,
		})
		return
	}

	if err := provider.Connect(r.Context()); err != nil {
		s.writeError(w, err)
		return
	}

	account, err := provider.Account(r.Context())
	if err != nil {
		s.writeError(w, err)
		return
	}

	s.writeJSON(w, http.StatusOK, account)
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		s.logger.Error("unable to encode response", zap.Error(err))
	}
}

// writeError maps domain errors to status codes. Remote-store failures pass
// their message through verbatim, the same way the UI toasts them.
func (s *Server) writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError

	switch {
	case errors.Is(err, market.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, market.ErrNotListed):
		status = http.StatusConflict
	case errors.Is(err, market.ErrMissingFields),
		errors.Is(err, market.ErrInvalidPrice),
		errors.Is(err, market.ErrMissingCollectionFields),
		errors.Is(err, market.ErrMissingHandle):
		status = http.StatusBadRequest
	}

	s.writeJSON(w, status, errorBody(err.Error()))
}

func errorBody(msg string) map[string]string {
	return map[string]string{"error": msg}
}
