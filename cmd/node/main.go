package main

import (
	"context"
	"flag"
	"log"
	"math/big"
	"time"

	com "github.com/citizenwallet/governance/internal/common"
	"github.com/citizenwallet/governance/internal/config"
	"github.com/citizenwallet/governance/internal/dao"
	"github.com/citizenwallet/governance/internal/registry"
	"github.com/citizenwallet/governance/internal/services/db"
	"github.com/citizenwallet/governance/internal/services/db/govdb"
	"github.com/citizenwallet/governance/internal/services/ethrequest"
	"github.com/citizenwallet/governance/internal/services/webhook"
	"github.com/citizenwallet/governance/pkg/acl"
	"github.com/citizenwallet/governance/pkg/bridge"
	"github.com/citizenwallet/governance/pkg/chain"
	"github.com/citizenwallet/governance/pkg/govindex"
	"github.com/citizenwallet/governance/pkg/govlog"
	"github.com/citizenwallet/governance/pkg/queue"
	"github.com/citizenwallet/governance/pkg/router"
	"github.com/citizenwallet/governance/pkg/voting"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/getsentry/sentry-go"
)

const (
	EVMTypeDev = "dev"
	EVMTypeRPC = "rpc"
)

// @title           Whitelist Governance API
// @version         1.0
// @description     Proposals, votes and execution for an organization governed by a whitelist of members.

// @host      localhost:3000
// @BasePath  /

// @securityDefinitions.basic  Authorization Bearer
func main() {
	log.Default().Println("launching governance node...")

	env := flag.String("env", ".env", "path to .env file")

	confpath := flag.String("conf", ".", "path to the folder containing governance.json")

	port := flag.Int("port", 3000, "port to listen on")

	evmtype := flag.String("evm", EVMTypeDev, "where actions are executed: dev (in process) or rpc (organization contract)")

	dbpath := flag.String("dbpath", ".", "path to db")

	bufferSize := flag.Int("buffer", 100, "log delivery queue buffer size (default: 100)")

	notify := flag.Bool("notify", true, "enable notifications")

	rate := flag.Int("rate", 100, "blocks per log query in rpc mode (default: 100)")

	sync := flag.Int("sync", 5, "seconds between chain head refreshes in rpc mode (default: 5)")

	flag.Parse()

	ctx := context.Background()

	conf, err := config.New(ctx, *env, *confpath)
	if err != nil {
		log.Fatal(err)
	}

	if conf.SentryURL != "" && conf.SentryURL != "x" {
		err = sentry.Init(sentry.ClientOptions{
			Dsn:              conf.SentryURL,
			TracesSampleRate: 1.0,
		})
		if err != nil {
			log.Fatalf("sentry.Init: %s", err)
		}
		// Flush buffered events before the program terminates.
		defer sentry.Flush(2 * time.Second)
	}

	dbconf, err := config.NewDBConfig(ctx, "")
	if err != nil {
		log.Fatal(err)
	}

	chid := big.NewInt(conf.ChainID)

	var evm *ethrequest.EthService
	if *evmtype == EVMTypeRPC {
		log.Default().Println("connecting to rpc...")

		evm, err = ethrequest.NewEthService(ctx, conf.RPCURL)
		if err != nil {
			log.Fatal(err)
		}
		defer evm.Close()

		chid, err = evm.ChainID()
		if err != nil {
			log.Fatal(err)
		}
	} else if *evmtype != EVMTypeDev {
		log.Fatal("unsupported evm type (must be one of: dev, rpc)")
	}

	log.Default().Println("node running for chain: ", chid.String())

	log.Default().Println("starting internal db service...")

	d, err := db.NewDB(chid, *dbpath, conf.EngineAddress)
	if err != nil {
		log.Fatal(err)
	}
	defer d.Close()

	stored, err := storedLogs(d.LogDB)
	if err != nil {
		log.Fatal(err)
	}

	log.Default().Println("restoring ", len(stored), " logs...")

	journal := govlog.NewJournal()
	journal.Emit(stored...)

	w := webhook.NewMessager(conf.DiscordURL, conf.Governance.Name, *notify)

	logq := queue.NewService("logs", 3, *bufferSize, ctx, w)

	processors := []queue.Processor{webhook.NewProcessor(ctx, w)}

	if dbconf.Enabled() {
		log.Default().Println("starting log mirror...")

		gdb, err := govdb.NewDB(chid, dbconf.ConnString(), dbconf.ReaderConnString())
		if err != nil {
			log.Fatal(err)
		}
		defer gdb.Close()

		processors = append(processors, gdb.LogDB)
	}

	emitter := govlog.Fanout{journal, d.LogDB, logq}

	quitAck := make(chan error)

	var clock chain.Clock
	var executor voting.Executor

	switch *evmtype {
	case EVMTypeDev:
		clock = chain.NewWallDev(lastBlock(stored))
	case EVMTypeRPC:
		head, err := chain.NewHead(evm)
		if err != nil {
			log.Fatal(err)
		}
		clock = head

		go func() {
			for {
				<-time.After(time.Duration(*sync) * time.Second)

				if err := head.Refresh(); err != nil {
					log.Default().Println("[head] recoverable error: ", err)
				}
			}
		}()
	}

	org := dao.New(conf.DAO(), clock, emitter)
	grantDefaults(org, conf)

	reg := registry.New(conf.Registry(), org, clock, emitter)
	org.SetTarget(conf.Registry(), reg)

	executor = org

	if *evmtype == EVMTypeRPC {
		key, err := com.HexToPrivateKey(conf.BridgePrivateKey)
		if err != nil {
			log.Fatal(err)
		}

		b, err := bridge.New(evm, conf.DAO(), key)
		if err != nil {
			log.Fatal(err)
		}
		executor = b

		log.Default().Println("executing through ", conf.DAO().Hex(), " as ", b.From().Hex())

		// the indexer starts after from, StartBlock itself is included
		var from uint64
		if conf.Governance.StartBlock > 0 {
			from = conf.Governance.StartBlock - 1
		}
		if last := lastBlockOf(stored, conf.DAO(), conf.Registry()); last > from {
			from = last
		}

		i := govindex.New(uint64(*rate), []common.Address{conf.DAO(), conf.Registry()}, evm, emitter, from)

		go func() {
			quitAck <- i.Background(ctx, time.Duration(*sync)*time.Second)
		}()
	}

	engine := voting.New(conf.Engine(), clock, org, executor, d.ProposalDB, emitter)
	org.SetTarget(conf.Engine(), dao.EngineTarget{Engine: engine})

	err = org.Restore(stored)
	if err != nil {
		log.Fatal(err)
	}

	err = reg.Restore(stored)
	if err != nil {
		log.Fatal(err)
	}

	err = engine.Restore(stored)
	if err != nil {
		log.Fatal(err)
	}

	if !engine.Initialized() {
		err = engine.Initialize(conf.Governance.Configuration(), conf.Governance.MemberAddresses())
		if err != nil {
			log.Fatal(err)
		}
	}

	go func() {
		quitAck <- logq.Start(processors...)
	}()

	log.Default().Println("starting api service...")

	api := router.NewServer(chid, conf.APIKEY, engine, reg, d.LogDB)

	go func() {
		quitAck <- api.Start(*port)
	}()

	log.Default().Println("listening on port: ", *port)

	for err := range quitAck {
		if err != nil {
			w.NotifyError(ctx, err)
			sentry.CaptureException(err)
			log.Fatal(err)
		}
	}
}

// grantDefaults wires the organization to its voting plugin and gives the
// configured admin the privileged roles
func grantDefaults(org *dao.DAO, conf *config.Config) {
	admin := conf.Governance.AdminAddress()

	org.Grant(conf.DAO(), conf.Engine(), acl.ExecutePermissionID)
	org.Grant(conf.Engine(), conf.DAO(), acl.ModifyWhitelistPermissionID)
	org.Grant(conf.Engine(), conf.DAO(), acl.ModifyConfigPermissionID)
	org.Grant(conf.Registry(), conf.DAO(), acl.RegisterPermissionID)

	org.Grant(conf.Engine(), admin, acl.ModifyWhitelistPermissionID)
	org.Grant(conf.Engine(), admin, acl.ModifyConfigPermissionID)
	org.Grant(conf.Registry(), admin, acl.RegisterPermissionID)
}

func storedLogs(ldb *db.LogDB) ([]types.Log, error) {
	count, err := ldb.Count()
	if err != nil {
		return nil, err
	}

	return ldb.GetLogs(0, int(count))
}

func lastBlock(logs []types.Log) uint64 {
	var last uint64
	for _, l := range logs {
		if l.BlockNumber > last {
			last = l.BlockNumber
		}
	}

	return last
}

func lastBlockOf(logs []types.Log, addrs ...common.Address) uint64 {
	var last uint64
	for _, l := range logs {
		for _, a := range addrs {
			if l.Address == a && l.BlockNumber > last {
				last = l.BlockNumber
			}
		}
	}

	return last
}
