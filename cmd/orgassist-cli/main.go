package main

import (
	"context"

	"orgassist-backend/cmd/orgassist-cli/commands"
	"orgassist-backend/lib/telemetry"
)

func main() {
	telemetry.SetupFromEnv(context.Background(), "orgassist-cli")
	telemetry.InitSlog(true)
	commands.ExecuteContext(context.Background())
}
