package router

import (
	"fmt"
	"math/big"
	"net/http"

	"github.com/citizenwallet/governance/internal/auth"
	"github.com/citizenwallet/governance/internal/chain"
	"github.com/citizenwallet/governance/internal/governance"
	"github.com/citizenwallet/governance/internal/logs"
	"github.com/citizenwallet/governance/internal/members"
	"github.com/citizenwallet/governance/internal/plugins"
	"github.com/citizenwallet/governance/internal/registry"
	"github.com/citizenwallet/governance/internal/version"
	"github.com/citizenwallet/governance/pkg/voting"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

type Router struct {
	chainId  *big.Int
	apiKey   string
	engine   *voting.Engine
	registry *registry.Registry
	ldb      logs.LogReader
}

func NewServer(chainId *big.Int, apiKey string, engine *voting.Engine, registry *registry.Registry, ldb logs.LogReader) *Router {
	return &Router{
		chainId,
		apiKey,
		engine,
		registry,
		ldb,
	}
}

// Handler builds the http routes
func (r *Router) Handler() http.Handler {
	cr := chi.NewRouter()

	a := auth.New(r.apiKey)

	// configure middleware
	cr.Use(middleware.RequestID)
	cr.Use(middleware.Logger)

	// configure custom middleware
	cr.Use((&cors{}).Middleware)
	cr.Use(HealthMiddleware(r.engine.Initialized))
	cr.Use(RequestSizeLimitMiddleware(1 << 20)) // Limit request bodies to 1MB
	cr.Use(a.Middleware)
	cr.Use(middleware.Compress(9))

	// instantiate handlers
	gov := governance.NewService(r.engine)
	mem := members.NewService(r.engine)
	l := logs.NewService(r.ldb)
	pl := plugins.NewService(r.registry)
	ch := chain.NewService(r.engine, r.chainId)
	v := version.NewService(r.engine)

	// configure routes
	cr.Get("/version", v.Current)
	cr.Get("/chain", ch.Head)

	cr.Route("/config", func(cr chi.Router) {
		cr.Get("/", gov.GetConfig)
		cr.Put("/", withSignature(gov.SetConfig))
	})

	cr.Route("/members", func(cr chi.Router) {
		cr.Get("/", mem.GetMembers)
		cr.Post("/", withSignature(mem.AddMembers))
		cr.Delete("/", withSignature(mem.RemoveMembers))
		cr.Get("/population", mem.GetPopulation)
		cr.Get("/{acc_addr}", mem.GetMember)
	})

	cr.Route("/proposals", func(cr chi.Router) {
		cr.Get("/", gov.GetProposals)
		cr.Post("/", withSignature(gov.CreateProposal))

		cr.Route("/{proposal_id}", func(cr chi.Router) {
			cr.Get("/", gov.GetProposal)
			cr.Post("/votes", withSignature(gov.Vote))
			cr.Get("/voters/{voter_address}", gov.GetVoter)
			cr.Get("/executable", gov.GetExecutable)
			cr.Post("/execute", gov.Execute)
		})
	})

	cr.Route("/plugins", func(cr chi.Router) {
		cr.Get("/", pl.GetPlugins)
		cr.Post("/", withSignature(pl.Register))
		cr.Get("/{name}", pl.GetPlugin)
	})

	if r.ldb != nil {
		cr.Route("/logs", func(cr chi.Router) {
			cr.Get("/", l.Get)
			cr.Get("/{contract_address}", l.GetContract)
		})
	}

	return cr
}

// implement the Server interface
func (r *Router) Start(port int) error {
	return http.ListenAndServe(fmt.Sprintf(":%v", port), r.Handler())
}
