package main

import (
	"context"
	"log/slog"
	"os"

	"orgassist-backend/lib/restyutil"
	"orgassist-backend/lib/scrapers/showroom"
	"orgassist-backend/lib/serviceutil"
	"orgassist-backend/lib/telemetry"
)

func InitTelemetry(ctx context.Context, verbose bool) {
	telemetry.InitSlog(verbose)

	err := telemetry.SetupFromEnv(ctx, "orgassistd")
	if os.IsNotExist(err) {
		slog.Warn("no telemetry.json5 found, traces and metrics go nowhere")
	} else if err != nil {
		serviceutil.Fatal("setup telemetry", err)
	} else {
		go func() {
			<-ctx.Done()
			telemetry.Shutdown(context.Background())
		}()
		telemetry.InstrumentPerfStats(ctx)
	}

	if !verbose {
		return
	}
	showroom.SetRestyInstrumentOutput(
		restyutil.NewFilesystemOutput("resty_telemetry/showroom"),
	)
}
