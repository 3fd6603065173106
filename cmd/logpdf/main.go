package main

import (
	"context"

	"booklogger/api/internal/cli"
)

func main() {
	ctx := context.Background()
	cli.Main(ctx)
}
