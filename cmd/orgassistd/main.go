package main

import (
	"flag"
	"net/http"

	"orgassist-backend/lib/configutil"
	"orgassist-backend/lib/serviceutil"
)

type Config struct {
	Port      int             `json:"port"`
	Keychain  KeychainConfig  `json:"keychain"`
	Organizer OrganizerConfig `json:"organizer"`
}

func main() {
	verbose := flag.Bool("v", false, "Enable verbose logging/instrumentation.")
	flag.Parse()

	ctx := serviceutil.SignalContext()

	InitTelemetry(ctx, *verbose)

	cfg, err := configutil.ReadConfig[Config]("config.json5")
	if err != nil {
		serviceutil.Fatal("read config", err)
	}
	if cfg.Port == 0 {
		cfg.Port = 8000
	}

	mux := http.NewServeMux()

	keychain, err := InitKeychain(mux, cfg.Keychain)
	if err != nil {
		serviceutil.Fatal("init keychain", err)
	}
	err = InitOrganizer(ctx, mux, cfg.Organizer, keychain)
	if err != nil {
		serviceutil.Fatal("init organizer", err)
	}

	go serviceutil.StartHttpServer(cfg.Port, mux)
	<-ctx.Done()
}
