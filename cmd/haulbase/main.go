package main

import (
	"github.com/bwmarrin/snowflake"
	"github.com/haulbase/haulbase/internal/migration"
	"github.com/haulbase/haulbase/internal/seed"
	"github.com/haulbase/haulbase/internal/server"
	"github.com/haulbase/haulbase/pkg/db"
	"github.com/haulbase/haulbase/pkg/log"
	"go.uber.org/fx"
)

func main() {
	app := fx.New(
		log.Module,
		fx.Provide(RegisterSnowflake),
		db.Module,
		migration.Module,
		seed.Module,
		server.Module,
	)
	app.Run()
}

func RegisterSnowflake() *snowflake.Node {
	node, err := snowflake.NewNode(1)
	if err != nil {
		panic(err)
	}
	return node
}
