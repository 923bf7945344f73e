package main

import (
	"context"
	"flag"
	"log"
	"math/big"

	"github.com/citizenwallet/governance/internal/config"
	"github.com/citizenwallet/governance/internal/services/db"
	"github.com/citizenwallet/governance/internal/services/db/govdb"
)

func main() {
	log.Default().Println("sqlite to postgres log migration...")

	chainId := flag.Int("chain", 1337, "chain id")

	batch := flag.Int("batch", 1000, "log batch size")

	engine := flag.String("engine", "", "engine address the sqlite db was created for")

	env := flag.String("env", ".db.env", "path to .db.env file")

	dbpath := flag.String("dbpath", ".", "path to db")

	flag.Parse()

	if engine == nil || *engine == "" {
		log.Fatal("engine is required")
	}

	chid := big.NewInt(int64(*chainId))

	ctx := context.Background()

	conf, err := config.NewDBConfig(ctx, *env)
	if err != nil {
		log.Fatal(err)
	}

	if !conf.Enabled() {
		log.Fatal("DB_HOST is required")
	}

	pqdb, err := govdb.NewDB(chid, conf.ConnString(), conf.ReaderConnString())
	if err != nil {
		log.Fatal(err)
	}
	defer pqdb.Close()

	d, err := db.NewDB(chid, *dbpath, *engine)
	if err != nil {
		log.Fatal(err)
	}
	defer d.Close()

	// resume after the last mirrored log
	last, err := pqdb.LogDB.LastIndex()
	if err != nil {
		log.Fatal(err)
	}

	from := uint(last + 1)
	total := 0
	for {
		logs, err := d.LogDB.GetLogs(from, *batch)
		if err != nil {
			log.Fatal(err)
		}

		if len(logs) == 0 {
			break
		}

		err = pqdb.LogDB.AddLogs(logs)
		if err != nil {
			log.Fatal(err)
		}

		total += len(logs)
		from = logs[len(logs)-1].Index + 1

		log.Default().Println("migrated ", total, " logs")
	}

	log.Default().Println("migration completed")
}
