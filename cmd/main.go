package main

import (
	"context"
	"fmt"
	"os"

	"github.com/yungbote/dreamworld-backend/internal/app"
	"github.com/yungbote/dreamworld-backend/internal/platform/shutdown"
)

func main() {
	ctx, stop := shutdown.NotifyContext(context.Background())
	defer stop()

	a, err := app.New(ctx)
	if err != nil {
		fmt.Printf("failed to initialize app: %v\n", err)
		os.Exit(1)
	}

	runErr := a.Run(ctx)
	if runErr != nil {
		a.Log.Error("server exited", "error", runErr)
	}
	a.Close()
	if runErr != nil {
		os.Exit(1)
	}
}
